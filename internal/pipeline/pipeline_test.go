package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contactloop/leadscout/internal/config"
	"github.com/contactloop/leadscout/internal/enrich"
	"github.com/contactloop/leadscout/internal/finder"
	"github.com/contactloop/leadscout/internal/geocode"
	"github.com/contactloop/leadscout/internal/interpret"
	"github.com/contactloop/leadscout/internal/model"
	"github.com/contactloop/leadscout/internal/store"
	"github.com/contactloop/leadscout/pkg/places"
	"github.com/contactloop/leadscout/pkg/websearch"
)

type fakeGen struct {
	response string
	err      error
}

func (f *fakeGen) Generate(ctx context.Context, prompt string) (string, error) {
	return f.response, f.err
}

type fakeProvider struct {
	mu          sync.Mutex
	pages       map[string]*places.NearbySearchResponse
	details     map[string]*places.DetailsResponse
	nearbyCalls int
}

func (f *fakeProvider) Geocode(ctx context.Context, address string) (*places.GeocodeResponse, error) {
	resp := &places.GeocodeResponse{Status: "OK", Results: make([]places.GeocodeResult, 1)}
	resp.Results[0].Geometry.Location.Lat = 52.09
	resp.Results[0].Geometry.Location.Lng = 5.12
	return resp, nil
}

func (f *fakeProvider) NearbySearch(ctx context.Context, req places.NearbySearchRequest) (*places.NearbySearchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nearbyCalls++
	page, ok := f.pages[req.PageToken]
	if !ok {
		return nil, eris.Errorf("unexpected page token %q", req.PageToken)
	}
	return page, nil
}

func (f *fakeProvider) Details(ctx context.Context, placeID string) (*places.DetailsResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.details[placeID]; ok {
		return d, nil
	}
	return &places.DetailsResponse{Status: "OK"}, nil
}

type fakeSearch struct {
	mu      sync.Mutex
	results map[string]string // query -> url returned
	queries []string
}

func (f *fakeSearch) Search(ctx context.Context, query string) (*websearch.SearchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if url, ok := f.results[query]; ok {
		return &websearch.SearchResponse{Code: 200, Data: []websearch.SearchResult{{URL: url}}}, nil
	}
	return &websearch.SearchResponse{Code: 200}, nil
}

type fakeStore struct {
	store.Store
	mu       sync.Mutex
	upserted []model.EnrichedCompany
}

func (f *fakeStore) UpsertCompany(ctx context.Context, c model.EnrichedCompany) (*model.StoredCompany, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserted = append(f.upserted, c)
	return &model.StoredCompany{ID: fmt.Sprintf("id-%d", len(f.upserted)), EnrichedCompany: c}, nil
}

func noSleep(_ context.Context, _ time.Duration) error { return nil }

func newTestPipeline(t *testing.T, gen *fakeGen, provider *fakeProvider, search *fakeSearch, st store.Store) *Pipeline {
	t.Helper()

	interpreter := interpret.New(gen, config.InterpreterConfig{MaxAttempts: 1},
		interpret.WithSleep(noSleep))

	placesCfg := config.PlacesConfig{RadiusMeters: 5000, RateLimit: 1000}
	f := finder.New(geocode.New(provider, "key", 10), provider, placesCfg,
		finder.WithSleep(noSleep))

	enricher := enrich.NewSiteEnricher()
	fallback := enrich.NewFallbackSearcher(search)

	return New(interpreter, f, enricher, fallback, st, config.EnrichConfig{
		Concurrency:        4,
		MaxFallbackQueries: 100,
	})
}

func TestRunEndToEnd(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>
			<a href="/contact-form">Contact</a>
			<a href="https://linkedin.com/company/bakkerij-jansen">LinkedIn</a>
		</body></html>`)) //nolint:errcheck
	}))
	t.Cleanup(site.Close)

	provider := &fakeProvider{
		pages: map[string]*places.NearbySearchResponse{
			"": {Status: "OK", Results: []places.Place{
				{PlaceID: "p1", Name: "Bakkerij Jansen", Vicinity: "Brinkstraat 1"},
				{PlaceID: "p2", Name: "Brood & Zo", Vicinity: "Marktplein 4"},
			}},
		},
		details: map[string]*places.DetailsResponse{
			"p1": {Status: "OK", Result: places.PlaceDetail{FormattedPhoneNumber: "030-1112233", Website: site.URL}},
		},
	}
	gen := &fakeGen{response: `{"city":"Utrecht","industry":"bakkerij","area":"centrum"}`}
	search := &fakeSearch{results: map[string]string{
		"Brood & Zo twitter": "https://twitter.com/broodenzo",
	}}
	st := &fakeStore{}

	p := newTestPipeline(t, gen, provider, search, st)
	result := p.Run(context.Background(), "bakkerijen in het centrum van Utrecht")

	assert.Equal(t, "Utrecht", result.Query.City)
	assert.Equal(t, "bakkerij", result.Query.Industry)
	require.Len(t, result.Companies, 2)

	// Provider order is preserved through the concurrent fan-out.
	first, second := result.Companies[0], result.Companies[1]
	assert.Equal(t, "Bakkerij Jansen", first.Name)
	assert.Equal(t, "Brood & Zo", second.Name)

	// First company: channels from its own site.
	require.NotNil(t, first.ContactFormURL)
	assert.Equal(t, site.URL+"/contact-form", *first.ContactFormURL)
	require.NotNil(t, first.LinkedInProfile)

	// Second company has no website; fallback search found its twitter.
	assert.Nil(t, second.Website)
	require.NotNil(t, second.TwitterHandle)
	assert.Equal(t, "https://twitter.com/broodenzo", *second.TwitterHandle)
	assert.Nil(t, second.LinkedInProfile)

	// Every discovered company was persisted.
	assert.Len(t, st.upserted, 2)
}

func TestRunUninterpretableQuery(t *testing.T) {
	gen := &fakeGen{err: eris.New("model down")}
	provider := &fakeProvider{}
	p := newTestPipeline(t, gen, provider, &fakeSearch{}, nil)

	result := p.Run(context.Background(), "volslagen onzin")

	assert.Equal(t, model.UnknownQuery(), result.Query)
	assert.Empty(t, result.Companies)
	assert.Equal(t, 0, provider.nearbyCalls)
}

func TestRunUnknownIndustrySearchesWithoutKeyword(t *testing.T) {
	var gotKeyword *string
	provider := &fakeProvider{
		pages: map[string]*places.NearbySearchResponse{
			"": {Status: "OK"},
		},
	}
	gen := &fakeGen{response: `{"city":"Utrecht","industry":"","area":""}`}

	interpreter := interpret.New(gen, config.InterpreterConfig{MaxAttempts: 1})
	placesCfg := config.PlacesConfig{RateLimit: 1000}
	recording := &keywordRecorder{fakeProvider: provider, keyword: &gotKeyword}
	f := finder.New(geocode.New(recording, "key", 10), recording, placesCfg,
		finder.WithSleep(noSleep))
	p := New(interpreter, f, enrich.NewSiteEnricher(), enrich.NewFallbackSearcher(&fakeSearch{}), nil, config.EnrichConfig{})

	result := p.Run(context.Background(), "bedrijven in Utrecht")

	assert.Equal(t, model.Unknown, result.Query.Industry)
	require.NotNil(t, gotKeyword)
	assert.Equal(t, "", *gotKeyword)
}

type keywordRecorder struct {
	*fakeProvider
	keyword **string
}

func (k *keywordRecorder) NearbySearch(ctx context.Context, req places.NearbySearchRequest) (*places.NearbySearchResponse, error) {
	kw := req.Keyword
	*k.keyword = &kw
	return k.fakeProvider.NearbySearch(ctx, req)
}

func TestRunFallbackNeverOverwritesSiteChannels(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><a href="https://linkedin.com/company/van-de-site">in</a></body></html>`)) //nolint:errcheck
	}))
	t.Cleanup(site.Close)

	provider := &fakeProvider{
		pages: map[string]*places.NearbySearchResponse{
			"": {Status: "OK", Results: []places.Place{{PlaceID: "p1", Name: "Acme"}}},
		},
		details: map[string]*places.DetailsResponse{
			"p1": {Status: "OK", Result: places.PlaceDetail{Website: site.URL}},
		},
	}
	gen := &fakeGen{response: `{"city":"Utrecht","industry":"it","area":""}`}
	search := &fakeSearch{results: map[string]string{
		"Acme linkedin": "https://linkedin.com/company/van-de-zoekmachine",
	}}

	p := newTestPipeline(t, gen, provider, search, nil)
	result := p.Run(context.Background(), "it in Utrecht")

	require.Len(t, result.Companies, 1)
	c := result.Companies[0]
	require.NotNil(t, c.LinkedInProfile)
	assert.Equal(t, "https://linkedin.com/company/van-de-site", *c.LinkedInProfile)

	// The fallback search was only asked for the channels that were
	// still missing.
	for _, q := range search.queries {
		assert.NotContains(t, q, "linkedin")
	}
}

func TestRunFallbackQueryBudget(t *testing.T) {
	results := make([]places.Place, 3)
	for i := range results {
		results[i] = places.Place{PlaceID: fmt.Sprintf("p%d", i), Name: fmt.Sprintf("Bedrijf %d", i)}
	}
	provider := &fakeProvider{
		pages: map[string]*places.NearbySearchResponse{
			"": {Status: "OK", Results: results},
		},
	}
	gen := &fakeGen{response: `{"city":"Utrecht","industry":"it","area":""}`}
	search := &fakeSearch{}

	interpreter := interpret.New(gen, config.InterpreterConfig{MaxAttempts: 1})
	f := finder.New(geocode.New(provider, "key", 10), provider,
		config.PlacesConfig{RateLimit: 1000}, finder.WithSleep(noSleep))
	p := New(interpreter, f, enrich.NewSiteEnricher(), enrich.NewFallbackSearcher(search), nil, config.EnrichConfig{
		Concurrency:        4,
		MaxFallbackQueries: 4,
	})

	result := p.Run(context.Background(), "it in Utrecht")

	require.Len(t, result.Companies, 3)
	// Three companies with five missing channels each would need 15
	// fallback queries; the budget caps them.
	assert.LessOrEqual(t, len(search.queries), 4)
}

func TestRunStoreFailureDoesNotAbort(t *testing.T) {
	provider := &fakeProvider{
		pages: map[string]*places.NearbySearchResponse{
			"": {Status: "OK", Results: []places.Place{{PlaceID: "p1", Name: "Acme"}}},
		},
	}
	gen := &fakeGen{response: `{"city":"Utrecht","industry":"it","area":""}`}

	p := newTestPipeline(t, gen, provider, &fakeSearch{}, &failingStore{})
	result := p.Run(context.Background(), "it in Utrecht")
	assert.Len(t, result.Companies, 1)
}

type failingStore struct {
	store.Store
}

func (f *failingStore) UpsertCompany(ctx context.Context, c model.EnrichedCompany) (*model.StoredCompany, error) {
	return nil, eris.New("disk full")
}
