package geocode

import (
	"sync"
	"sync/atomic"

	"github.com/contactloop/leadscout/internal/model"
)

// pointCache is a concurrent-safe bounded LRU cache for geocoding results.
// Entries never expire; beyond capacity the least-recently-used entry is
// evicted. Negative results (city not found) are cached too, so a known-bad
// city never re-queries the provider.
type pointCache struct {
	mu         sync.Mutex
	entries    map[string]pointEntry
	order      []string // LRU order: front=oldest, back=newest
	maxEntries int
	hits       atomic.Int64
	misses     atomic.Int64
}

type pointEntry struct {
	point model.GeoPoint
	found bool
}

// CacheStats contains cache performance statistics.
type CacheStats struct {
	Entries    int   `json:"entries"`
	MaxEntries int   `json:"max_entries"`
	Hits       int64 `json:"hits"`
	Misses     int64 `json:"misses"`
}

func newPointCache(maxEntries int) *pointCache {
	return &pointCache{
		entries:    make(map[string]pointEntry),
		maxEntries: maxEntries,
	}
}

// get retrieves a cached result and marks it most recently used.
func (c *pointCache) get(key string) (pointEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)
		return pointEntry{}, false
	}

	c.removeFromOrder(key)
	c.order = append(c.order, key)
	c.hits.Add(1)
	return entry, true
}

// put stores a result, evicting the oldest entry if at capacity.
func (c *pointCache) put(key string, entry pointEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		c.entries[key] = entry
		c.removeFromOrder(key)
		c.order = append(c.order, key)
		return
	}

	for len(c.entries) >= c.maxEntries && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[key] = entry
	c.order = append(c.order, key)
}

// stats returns cache performance statistics.
func (c *pointCache) stats() CacheStats {
	c.mu.Lock()
	entries := len(c.entries)
	maxEntries := c.maxEntries
	c.mu.Unlock()

	return CacheStats{
		Entries:    entries,
		MaxEntries: maxEntries,
		Hits:       c.hits.Load(),
		Misses:     c.misses.Load(),
	}
}

// removeFromOrder removes a key from the LRU order slice.
func (c *pointCache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
