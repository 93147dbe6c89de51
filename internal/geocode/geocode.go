// Package geocode resolves city names to coordinates via the places
// provider, memoized per (city, api key) in a bounded LRU cache.
package geocode

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/contactloop/leadscout/internal/model"
	"github.com/contactloop/leadscout/pkg/places"
)

// DefaultCacheSize bounds the geocode cache when no capacity is configured.
const DefaultCacheSize = 100

// Geocoder resolves city names to coordinates. Not-found is a value, not an
// error: a city that cannot be resolved simply yields no places downstream.
type Geocoder struct {
	client places.Client
	cache  *pointCache
	keyTag string
}

// New creates a Geocoder. apiKey participates in the cache key so results
// obtained under one provider key are never served for another.
func New(client places.Client, apiKey string, cacheSize int) *Geocoder {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	return &Geocoder{
		client: client,
		cache:  newPointCache(cacheSize),
		keyTag: fmt.Sprintf("%x", sha256.Sum256([]byte(apiKey))),
	}
}

// Geocode resolves a city name. A cache hit never re-queries the provider.
// Provider errors and empty result sets both report found=false.
func (g *Geocoder) Geocode(ctx context.Context, city string) (model.GeoPoint, bool) {
	key := g.cacheKey(city)

	if entry, ok := g.cache.get(key); ok {
		return entry.point, entry.found
	}

	resp, err := g.client.Geocode(ctx, city)
	if err != nil {
		zap.L().Error("geocode: provider error", zap.String("city", city), zap.Error(err))
		// Provider errors are not cached: a later call may succeed.
		return model.GeoPoint{}, false
	}

	if resp.Status != "OK" || len(resp.Results) == 0 {
		zap.L().Warn("geocode: no match", zap.String("city", city), zap.String("status", resp.Status))
		g.cache.put(key, pointEntry{found: false})
		return model.GeoPoint{}, false
	}

	loc := resp.Results[0].Geometry.Location
	point := model.GeoPoint{Lat: loc.Lat, Lng: loc.Lng}
	g.cache.put(key, pointEntry{point: point, found: true})

	zap.L().Debug("geocode: resolved",
		zap.String("city", city),
		zap.Float64("lat", point.Lat),
		zap.Float64("lng", point.Lng),
	)
	return point, true
}

// Stats returns cache performance statistics.
func (g *Geocoder) Stats() CacheStats {
	return g.cache.stats()
}

// cacheKey normalizes the city and binds it to the provider key.
func (g *Geocoder) cacheKey(city string) string {
	return strings.ToLower(strings.TrimSpace(city)) + "|" + g.keyTag
}
