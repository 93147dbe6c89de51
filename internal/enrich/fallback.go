package enrich

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/contactloop/leadscout/internal/model"
	"github.com/contactloop/leadscout/pkg/websearch"
)

// fallbackKeywords maps each channel field to the search phrase appended to
// the company name, and to the substring a result URL must contain to count
// as a hit for that field.
var fallbackKeywords = map[string]string{
	model.FieldContactForm: "contact",
	model.FieldLinkedIn:    "linkedin",
	model.FieldTwitter:     "twitter",
	model.FieldTelegram:    "telegram",
	model.FieldLiveChat:    "live chat",
}

// FallbackSearcher looks up a single contact channel through a generic web
// search when the company's own site did not reveal it.
type FallbackSearcher struct {
	client websearch.Client
}

// NewFallbackSearcher creates a FallbackSearcher backed by the given search
// client.
func NewFallbackSearcher(client websearch.Client) *FallbackSearcher {
	return &FallbackSearcher{client: client}
}

// Find searches for "<company> <keyword>" and returns the first result on
// the first page whose URL contains the field's keyword. It returns nil
// when the field is unknown, the search fails, or nothing matches.
func (f *FallbackSearcher) Find(ctx context.Context, companyName, field string) *string {
	keyword, ok := fallbackKeywords[field]
	if !ok {
		return nil
	}

	resp, err := f.client.Search(ctx, companyName+" "+keyword)
	if err != nil {
		zap.L().Debug("enrich: fallback search failed",
			zap.String("company", companyName),
			zap.String("field", field),
			zap.Error(err),
		)
		return nil
	}

	// "live chat" as a URL fragment collapses to its hyphen-free form.
	urlToken := strings.ReplaceAll(keyword, " ", "")
	for _, r := range resp.Data {
		if strings.Contains(strings.ToLower(r.URL), urlToken) {
			return model.Ptr(r.URL)
		}
	}
	return nil
}
