// Package enrich inspects company websites for contact channels and falls
// back to web search for channels the site itself does not reveal.
package enrich

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/contactloop/leadscout/internal/model"
)

const defaultSiteTimeout = 10 * time.Second

// SiteEnricher fetches a company homepage and scans its anchors for
// contact channels.
type SiteEnricher struct {
	httpClient *http.Client
	rules      []Rule
	userAgent  string
}

// SiteOption configures the SiteEnricher.
type SiteOption func(*SiteEnricher)

// WithHTTPClient overrides the HTTP client (for testing).
func WithHTTPClient(c *http.Client) SiteOption {
	return func(e *SiteEnricher) {
		e.httpClient = c
	}
}

// WithRules overrides the channel detection rules.
func WithRules(rules []Rule) SiteOption {
	return func(e *SiteEnricher) {
		e.rules = rules
	}
}

// WithTimeout sets the per-site fetch timeout.
func WithTimeout(d time.Duration) SiteOption {
	return func(e *SiteEnricher) {
		e.httpClient.Timeout = d
	}
}

// NewSiteEnricher creates a SiteEnricher with the default rules and a 10s
// fetch timeout.
func NewSiteEnricher(opts ...SiteOption) *SiteEnricher {
	e := &SiteEnricher{
		httpClient: &http.Client{Timeout: defaultSiteTimeout},
		rules:      DefaultRules(),
		userAgent:  "leadscout/1.0",
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Scan fetches the site and returns the channels its homepage links to.
// Any failure, from an unreachable host to unparseable markup, yields an
// all-unknown ChannelSet rather than an error: enrichment is best effort.
func (e *SiteEnricher) Scan(ctx context.Context, site string) model.ChannelSet {
	channels, err := e.scan(ctx, site)
	if err != nil {
		zap.L().Debug("enrich: site scan failed",
			zap.String("site", site),
			zap.Error(err),
		)
		return model.ChannelSet{}
	}
	return channels
}

func (e *SiteEnricher) scan(ctx context.Context, site string) (model.ChannelSet, error) {
	var channels model.ChannelSet

	base, err := url.Parse(site)
	if err != nil {
		return channels, eris.Wrapf(err, "enrich: invalid site url %s", site)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, site, nil)
	if err != nil {
		return channels, eris.Wrap(err, "enrich: creating request")
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return channels, eris.Wrapf(err, "enrich: fetching %s", site)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return channels, eris.Errorf("enrich: fetching %s: status %d", site, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return channels, eris.Wrapf(err, "enrich: parsing %s", site)
	}

	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, ok := s.Attr("href")
		if !ok || href == "" {
			return true
		}
		lowerHref := strings.ToLower(href)
		lowerText := strings.ToLower(strings.TrimSpace(s.Text()))

		for _, rule := range e.rules {
			if channels.Get(rule.Field) != nil {
				continue
			}
			if !matches(rule, lowerHref, lowerText) {
				continue
			}
			channels.Fill(rule.Field, resolveHref(base, href))
		}
		// Stop early once every field is known.
		return channels.Known() < len(model.ChannelFields())
	})

	return channels, nil
}

// matches applies one rule to a lowercased href and anchor text.
func matches(rule Rule, href, text string) bool {
	for _, token := range rule.HrefAll {
		if !strings.Contains(href, token) {
			return false
		}
	}
	if len(rule.HrefAny) == 0 && len(rule.TextAny) == 0 {
		return len(rule.HrefAll) > 0
	}
	for _, token := range rule.HrefAny {
		if strings.Contains(href, token) {
			return true
		}
	}
	for _, token := range rule.TextAny {
		if strings.Contains(text, token) {
			return true
		}
	}
	return false
}

// resolveHref turns a relative href into an absolute URL against the page
// it was found on. Unparseable hrefs are kept as found.
func resolveHref(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
