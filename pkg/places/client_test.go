package places

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contactloop/leadscout/internal/resilience"
)

func TestGeocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/geocode/json", r.URL.Path)
		assert.Equal(t, "Utrecht", r.URL.Query().Get("address"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		w.Write([]byte(`{"status":"OK","results":[{"geometry":{"location":{"lat":52.0907,"lng":5.1214}},"formatted_address":"Utrecht, Netherlands"}]}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := c.Geocode(context.Background(), "Utrecht")

	require.NoError(t, err)
	assert.Equal(t, "OK", resp.Status)
	require.Len(t, resp.Results, 1)
	assert.InDelta(t, 52.0907, resp.Results[0].Geometry.Location.Lat, 0.0001)
}

func TestNearbySearchParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/place/nearbysearch/json", r.URL.Path)
		assert.Equal(t, "5000", q.Get("radius"))
		assert.Equal(t, "bakkerij", q.Get("keyword"))
		assert.Empty(t, q.Get("pagetoken"))
		w.Write([]byte(`{"status":"OK","results":[{"place_id":"p1","name":"Bakkerij Jansen","vicinity":"Brinkstraat 1","rating":4.6}],"next_page_token":"tok1"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL))
	resp, err := c.NearbySearch(context.Background(), NearbySearchRequest{
		Lat: 52.09, Lng: 5.12, RadiusMeters: 5000, Keyword: "bakkerij",
	})

	require.NoError(t, err)
	assert.Equal(t, "tok1", resp.NextPageToken)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "Bakkerij Jansen", resp.Results[0].Name)
	require.NotNil(t, resp.Results[0].Rating)
	assert.InDelta(t, 4.6, *resp.Results[0].Rating, 0.001)
}

func TestNearbySearchSendsPageToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok1", r.URL.Query().Get("pagetoken"))
		w.Write([]byte(`{"status":"OK","results":[]}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL))
	resp, err := c.NearbySearch(context.Background(), NearbySearchRequest{PageToken: "tok1"})

	require.NoError(t, err)
	assert.Empty(t, resp.NextPageToken)
}

func TestDetails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/place/details/json", r.URL.Path)
		assert.Equal(t, "p1", q.Get("place_id"))
		assert.Equal(t, "formatted_phone_number,website", q.Get("fields"))
		w.Write([]byte(`{"status":"OK","result":{"formatted_phone_number":"030-1234567","website":"https://bakkerijjansen.nl"}}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL))
	resp, err := c.Details(context.Background(), "p1")

	require.NoError(t, err)
	assert.Equal(t, "030-1234567", resp.Result.FormattedPhoneNumber)
	assert.Equal(t, "https://bakkerijjansen.nl", resp.Result.Website)
}

func TestRateLimitCarriesRetryAfter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "45")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL))
	_, err := c.NearbySearch(context.Background(), NearbySearchRequest{})

	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
	assert.Equal(t, 45*time.Second, resilience.RetryAfterOf(err))
}

func TestRateLimitWithoutHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL))
	_, err := c.NearbySearch(context.Background(), NearbySearchRequest{})

	require.Error(t, err)
	// No header means no provider wait; the caller applies its own default.
	assert.Equal(t, time.Duration(0), resilience.RetryAfterOf(err))
}

func TestServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL))
	_, err := c.Geocode(context.Background(), "Utrecht")

	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}

func TestUnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL))
	_, err := c.Details(context.Background(), "p1")

	require.Error(t, err)
	assert.False(t, resilience.IsTransient(err))
}
