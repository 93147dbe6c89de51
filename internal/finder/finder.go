// Package finder retrieves nearby businesses for a city and industry from
// the places provider, following continuation tokens across pages and
// merging per-place detail lookups.
package finder

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/contactloop/leadscout/internal/config"
	"github.com/contactloop/leadscout/internal/geocode"
	"github.com/contactloop/leadscout/internal/model"
	"github.com/contactloop/leadscout/internal/resilience"
	"github.com/contactloop/leadscout/pkg/places"
)

const (
	// defaultRateLimitWait applies when a 429 carries no Retry-After header.
	defaultRateLimitWait = 60 * time.Second
	// defaultTokenDelay is the settle time before a continuation token
	// becomes valid at the provider.
	defaultTokenDelay = 2 * time.Second
)

// Finder discovers places around a geocoded city.
type Finder struct {
	geocoder   *geocode.Geocoder
	client     places.Client
	limiter    *rate.Limiter
	radius     int
	tokenDelay time.Duration
	maxPlaces  int
	sleep      func(ctx context.Context, d time.Duration) error
}

// Option configures the Finder.
type Option func(*Finder)

// WithSleep overrides the sleep function (for testing).
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(f *Finder) {
		f.sleep = sleep
	}
}

// WithMaxPlaces caps the total number of places collected per query.
// Zero means unbounded.
func WithMaxPlaces(n int) Option {
	return func(f *Finder) {
		f.maxPlaces = n
	}
}

// New creates a Finder with the given dependencies.
func New(geocoder *geocode.Geocoder, client places.Client, cfg config.PlacesConfig, opts ...Option) *Finder {
	radius := cfg.RadiusMeters
	if radius <= 0 {
		radius = 5000
	}
	tokenDelay := time.Duration(cfg.PageTokenDelaySecs) * time.Second
	if cfg.PageTokenDelaySecs <= 0 {
		tokenDelay = defaultTokenDelay
	}
	rateLimit := cfg.RateLimit
	if rateLimit <= 0 {
		rateLimit = 10
	}

	f := &Finder{
		geocoder:   geocoder,
		client:     client,
		limiter:    rate.NewLimiter(rate.Limit(rateLimit), 1),
		radius:     radius,
		tokenDelay: tokenDelay,
		sleep:      sleepCtx,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// FindPlaces returns the businesses matching industry around city, in
// provider order, no de-duplication. An unresolvable city yields an empty
// result; a page-level failure yields everything collected so far. Pagination
// is strictly sequential: a continuation token is only valid against the
// immediately preceding page.
func (f *Finder) FindPlaces(ctx context.Context, city, industry string) []model.PlaceCandidate {
	log := zap.L().With(zap.String("city", city), zap.String("industry", industry))

	point, ok := f.geocoder.Geocode(ctx, city)
	if !ok {
		log.Warn("finder: geocoding failed, no places")
		return nil
	}

	var collected []model.PlaceCandidate
	pageToken := ""

	for page := 1; ; page++ {
		resp, err := f.fetchPage(ctx, point, industry, pageToken)
		if err != nil {
			log.Warn("finder: page request failed, returning partial results",
				zap.Int("page", page),
				zap.Int("collected", len(collected)),
				zap.Error(err),
			)
			return collected
		}

		for _, p := range resp.Results {
			collected = append(collected, f.lookupDetails(ctx, p))
			if f.maxPlaces > 0 && len(collected) >= f.maxPlaces {
				log.Info("finder: max places reached", zap.Int("collected", len(collected)))
				return collected
			}
		}

		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken

		// The provider needs a moment before a fresh token is accepted.
		if err := f.sleep(ctx, f.tokenDelay); err != nil {
			return collected
		}
	}

	log.Info("finder: discovery complete", zap.Int("places", len(collected)))
	return collected
}

// fetchPage requests one page. A rate-limited page is retried exactly once
// after honoring the provider's Retry-After wait (default 60s).
func (f *Finder) fetchPage(ctx context.Context, point model.GeoPoint, industry, pageToken string) (*places.NearbySearchResponse, error) {
	req := places.NearbySearchRequest{
		Lat:          point.Lat,
		Lng:          point.Lng,
		RadiusMeters: f.radius,
		Keyword:      industry,
		PageToken:    pageToken,
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := f.client.NearbySearch(ctx, req)
	if err == nil {
		return resp, nil
	}

	if !isRateLimited(err) {
		return nil, err
	}

	wait := resilience.RetryAfterOf(err)
	if wait <= 0 {
		wait = defaultRateLimitWait
	}
	zap.L().Warn("finder: rate limited, retrying page once", zap.Duration("wait", wait))
	if sleepErr := f.sleep(ctx, wait); sleepErr != nil {
		return nil, err
	}

	return f.client.NearbySearch(ctx, req)
}

// lookupDetails merges the detail lookup into a candidate. Detail failures
// never abort the batch: the place is kept with phone and website unknown.
func (f *Finder) lookupDetails(ctx context.Context, p places.Place) model.PlaceCandidate {
	candidate := model.PlaceCandidate{
		PlaceID: p.PlaceID,
		Name:    p.Name,
		Address: p.Vicinity,
		Rating:  p.Rating,
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return candidate
	}

	details, err := f.client.Details(ctx, p.PlaceID)
	if err != nil {
		zap.L().Warn("finder: detail lookup failed",
			zap.String("place", p.Name),
			zap.Error(err),
		)
		return candidate
	}

	if details.Result.FormattedPhoneNumber != "" {
		candidate.Phone = model.Ptr(details.Result.FormattedPhoneNumber)
	}
	if details.Result.Website != "" {
		candidate.Website = model.Ptr(details.Result.Website)
	}
	return candidate
}

func isRateLimited(err error) bool {
	var te *resilience.TransientError
	return errors.As(err, &te) && te.StatusCode == 429
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
