package airquality

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/breatheroute/routeexposure/pkg/polyline"
)

const (
	// DefaultGridDegrees is the cache quantization step (~3km at mid latitudes).
	DefaultGridDegrees = 0.03

	// DefaultCacheTTL is how long a cached reading is served.
	DefaultCacheTTL = 6 * time.Hour
)

// CacheConfig holds configuration for the reading cache.
type CacheConfig struct {
	// GridDegrees is the size of a cache cell (default: 0.03).
	GridDegrees float64

	// TTL is the freshness window for entries (default: 6h).
	TTL time.Duration

	// MaxEntries bounds the cache size; the oldest entry is evicted on insert
	// when full. Zero means unbounded.
	MaxEntries int

	// Now overrides the clock, for tests.
	Now func() time.Time
}

type cacheEntry struct {
	reading  *Reading
	storedAt time.Time
}

// Cache stores readings keyed by grid cell. Stale entries are ignored on read
// and overwritten on the next Put for the same cell.
type Cache struct {
	grid       float64
	ttl        time.Duration
	maxEntries int
	now        func() time.Time

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

// NewCache creates a reading cache.
func NewCache(cfg CacheConfig) *Cache {
	grid := cfg.GridDegrees
	if grid <= 0 {
		grid = DefaultGridDegrees
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Cache{
		grid:       grid,
		ttl:        ttl,
		maxEntries: cfg.MaxEntries,
		now:        now,
		entries:    make(map[string]cacheEntry),
	}
}

// Key returns the cache key of the grid cell containing coord.
func (c *Cache) Key(coord polyline.Coordinate) string {
	lat := math.Round(coord.Lat/c.grid) * c.grid
	lon := math.Round(coord.Lon/c.grid) * c.grid
	return fmt.Sprintf("%.5f_%.5f", lat, lon)
}

// Get returns the reading for coord's cell if one was stored less than TTL ago.
func (c *Cache) Get(coord polyline.Coordinate) (*Reading, bool) {
	return c.getKey(c.Key(coord))
}

func (c *Cache) getKey(key string) (*Reading, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || c.now().Sub(entry.storedAt) >= c.ttl {
		return nil, false
	}
	return entry.reading, true
}

// Put stores reading for coord's cell with the given timestamp, replacing any
// previous entry.
func (c *Cache) Put(coord polyline.Coordinate, reading *Reading, at time.Time) {
	c.putKey(c.Key(coord), reading, at)
}

// Store stores reading for coord's cell stamped with the cache clock.
func (c *Cache) Store(coord polyline.Coordinate, reading *Reading) {
	c.putKey(c.Key(coord), reading, c.now())
}

func (c *Cache) putKey(key string, reading *Reading, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}
	c.entries[key] = cacheEntry{reading: reading, storedAt: at}
}

func (c *Cache) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	first := true
	for k, e := range c.entries {
		if first || e.storedAt.Before(oldest) {
			oldestKey, oldest, first = k, e.storedAt, false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
	}
}

// CacheStats describes the cache contents.
type CacheStats struct {
	Entries int
	Fresh   int
	TTL     time.Duration
	Grid    float64
}

// Stats returns a snapshot of the cache contents.
func (c *Cache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()
	fresh := 0
	for _, e := range c.entries {
		if now.Sub(e.storedAt) < c.ttl {
			fresh++
		}
	}

	return CacheStats{
		Entries: len(c.entries),
		Fresh:   fresh,
		TTL:     c.ttl,
		Grid:    c.grid,
	}
}
