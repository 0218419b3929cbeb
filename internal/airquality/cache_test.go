package airquality

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breatheroute/routeexposure/pkg/polyline"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestCache(cfg CacheConfig) (*Cache, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)}
	cfg.Now = clock.Now
	return NewCache(cfg), clock
}

func TestCache_Key(t *testing.T) {
	cache, _ := newTestCache(CacheConfig{})

	tests := []struct {
		name     string
		coord    polyline.Coordinate
		expected string
	}{
		{"on grid", polyline.Coordinate{Lat: 28.62, Lon: 77.22}, "28.62000_77.22000"},
		{"rounds to nearest cell", polyline.Coordinate{Lat: 28.631, Lon: 77.209}, "28.62000_77.22000"},
		{"negative coordinates", polyline.Coordinate{Lat: -33.868, Lon: 151.209}, "-33.87000_151.20000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, cache.Key(tt.coord))
		})
	}
}

func TestCache_SameCellSharesEntry(t *testing.T) {
	cache, clock := newTestCache(CacheConfig{})

	cache.Put(polyline.Coordinate{Lat: 28.620, Lon: 77.220}, NewReading(40, 20), clock.Now())

	reading, ok := cache.Get(polyline.Coordinate{Lat: 28.625, Lon: 77.215})
	require.True(t, ok)
	assert.Equal(t, 40.0, *reading.PM25)

	_, ok = cache.Get(polyline.Coordinate{Lat: 28.70, Lon: 77.22})
	assert.False(t, ok)
}

func TestCache_TTL(t *testing.T) {
	cache, clock := newTestCache(CacheConfig{TTL: time.Hour})
	coord := polyline.Coordinate{Lat: 52.37, Lon: 4.89}

	cache.Put(coord, NewReading(10, 30), clock.Now())

	clock.Advance(59 * time.Minute)
	_, ok := cache.Get(coord)
	assert.True(t, ok, "entry younger than TTL should hit")

	clock.Advance(time.Minute)
	_, ok = cache.Get(coord)
	assert.False(t, ok, "entry exactly TTL old should miss")

	// Stale entries are ignored, not removed.
	assert.Equal(t, 1, cache.Stats().Entries)
	assert.Equal(t, 0, cache.Stats().Fresh)

	cache.Put(coord, NewReading(12, 31), clock.Now())
	reading, ok := cache.Get(coord)
	require.True(t, ok)
	assert.Equal(t, 12.0, *reading.PM25)
	assert.Equal(t, 1, cache.Stats().Entries)
}

func TestCache_PutOverwrites(t *testing.T) {
	cache, clock := newTestCache(CacheConfig{})
	coord := polyline.Coordinate{Lat: 19.07, Lon: 72.87}

	cache.Put(coord, NewReading(1, 1), clock.Now())
	cache.Put(coord, NewReading(2, 2), clock.Now())

	reading, ok := cache.Get(coord)
	require.True(t, ok)
	assert.Equal(t, 2.0, *reading.PM25)
}

func TestCache_MaxEntriesEvictsOldest(t *testing.T) {
	cache, clock := newTestCache(CacheConfig{MaxEntries: 2})

	a := polyline.Coordinate{Lat: 10, Lon: 10}
	b := polyline.Coordinate{Lat: 20, Lon: 20}
	c := polyline.Coordinate{Lat: 30, Lon: 30}

	cache.Put(a, NewReading(1, 1), clock.Now())
	clock.Advance(time.Minute)
	cache.Put(b, NewReading(2, 2), clock.Now())
	clock.Advance(time.Minute)
	cache.Put(c, NewReading(3, 3), clock.Now())

	assert.Equal(t, 2, cache.Stats().Entries)
	_, ok := cache.Get(a)
	assert.False(t, ok, "oldest entry should be evicted")
	_, ok = cache.Get(b)
	assert.True(t, ok)
	_, ok = cache.Get(c)
	assert.True(t, ok)

	// Overwriting an existing key does not evict.
	cache.Put(b, NewReading(4, 4), clock.Now())
	assert.Equal(t, 2, cache.Stats().Entries)
	_, ok = cache.Get(c)
	assert.True(t, ok)
}

func TestCache_ConcurrentAccess(t *testing.T) {
	cache, clock := newTestCache(CacheConfig{MaxEntries: 50})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				coord := polyline.Coordinate{Lat: float64(i), Lon: float64(j % 10)}
				cache.Put(coord, NewReading(float64(j), 0), clock.Now())
				cache.Get(coord)
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, cache.Stats().Entries, 50)
}

func TestCache_StoreUsesCacheClock(t *testing.T) {
	cache, clock := newTestCache(CacheConfig{TTL: time.Minute})
	coord := polyline.Coordinate{Lat: 28.62, Lon: 77.22}

	cache.Store(coord, NewReading(15, 25))
	clock.Advance(59 * time.Second)
	_, ok := cache.Get(coord)
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, ok = cache.Get(coord)
	assert.False(t, ok)
}
