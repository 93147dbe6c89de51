// Package places provides a client for the places-search provider: geocoding
// by name, nearby search with continuation tokens, and per-place details.
package places

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"github.com/contactloop/leadscout/internal/resilience"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api"

// Client performs places-search provider operations.
type Client interface {
	// Geocode resolves a free-text place name to coordinates.
	Geocode(ctx context.Context, address string) (*GeocodeResponse, error)
	// NearbySearch returns one page of places around a point. The response
	// may carry a continuation token for the next page.
	NearbySearch(ctx context.Context, req NearbySearchRequest) (*NearbySearchResponse, error)
	// Details fetches phone and website for a single place.
	Details(ctx context.Context, placeID string) (*DetailsResponse, error)
}

// GeocodeResponse is the provider's geocode-by-name response.
type GeocodeResponse struct {
	Results []GeocodeResult `json:"results"`
	Status  string          `json:"status"`
}

// GeocodeResult is a single geocoding match.
type GeocodeResult struct {
	Geometry struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
	FormattedAddress string `json:"formatted_address"`
}

// NearbySearchRequest parameterizes one nearby-search page request.
type NearbySearchRequest struct {
	Lat          float64
	Lng          float64
	RadiusMeters int
	Keyword      string
	PageToken    string // opaque continuation token from the previous page
}

// NearbySearchResponse is one page of nearby-search results.
type NearbySearchResponse struct {
	Results       []Place `json:"results"`
	NextPageToken string  `json:"next_page_token"`
	Status        string  `json:"status"`
}

// Place is a single place on a nearby-search page. Rating is nil when the
// provider returned none.
type Place struct {
	PlaceID  string   `json:"place_id"`
	Name     string   `json:"name"`
	Vicinity string   `json:"vicinity"`
	Rating   *float64 `json:"rating,omitempty"`
}

// DetailsResponse is the per-place detail lookup response.
type DetailsResponse struct {
	Result PlaceDetail `json:"result"`
	Status string      `json:"status"`
}

// PlaceDetail holds the contact fields from a detail lookup.
type PlaceDetail struct {
	FormattedPhoneNumber string `json:"formatted_phone_number"`
	Website              string `json:"website"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a places-search provider client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Geocode(ctx context.Context, address string) (*GeocodeResponse, error) {
	params := url.Values{
		"address": {address},
		"key":     {c.apiKey},
	}

	var result GeocodeResponse
	if err := c.getJSON(ctx, "/geocode/json", params, &result); err != nil {
		return nil, eris.Wrap(err, "places: geocode")
	}
	return &result, nil
}

func (c *httpClient) NearbySearch(ctx context.Context, req NearbySearchRequest) (*NearbySearchResponse, error) {
	params := url.Values{
		"location": {fmt.Sprintf("%f,%f", req.Lat, req.Lng)},
		"radius":   {fmt.Sprintf("%d", req.RadiusMeters)},
		"keyword":  {req.Keyword},
		"key":      {c.apiKey},
	}
	if req.PageToken != "" {
		params.Set("pagetoken", req.PageToken)
	}

	var result NearbySearchResponse
	if err := c.getJSON(ctx, "/place/nearbysearch/json", params, &result); err != nil {
		return nil, eris.Wrap(err, "places: nearby search")
	}
	return &result, nil
}

func (c *httpClient) Details(ctx context.Context, placeID string) (*DetailsResponse, error) {
	params := url.Values{
		"place_id": {placeID},
		"fields":   {"formatted_phone_number,website"},
		"key":      {c.apiKey},
	}

	var result DetailsResponse
	if err := c.getJSON(ctx, "/place/details/json", params, &result); err != nil {
		return nil, eris.Wrap(err, "places: details")
	}
	return &result, nil
}

// getJSON performs a GET against path, classifying rate-limit and transient
// statuses so callers can apply their retry policy.
func (c *httpClient) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	reqURL := c.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return eris.Wrap(err, "create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response")
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return resilience.NewRateLimitError(
			eris.Errorf("rate limited: %s", string(body)),
			resilience.ParseRetryAfter(resp.Header, 0),
		)
	}
	if resilience.IsTransientHTTPStatus(resp.StatusCode) {
		return resilience.NewTransientError(
			eris.Errorf("status %d: %s", resp.StatusCode, string(body)),
			resp.StatusCode,
		)
	}
	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "unmarshal response")
	}
	return nil
}
