package geocoding

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/breatheroute/routeexposure/pkg/polyline"
)

const (
	// DefaultLimit is the number of places returned when no limit is given.
	DefaultLimit = 6

	// MaxLimit caps the number of places requested from the provider.
	MaxLimit = 20
)

// ServiceConfig holds configuration for the geocoding service.
type ServiceConfig struct {
	// Geocoder is the upstream geocoding provider.
	Geocoder Geocoder

	// Logger for service operations.
	Logger zerolog.Logger

	// CacheTTL is how long search results are cached (default: 24 hours).
	CacheTTL time.Duration

	// MaxEntries bounds the cache (default: 1000).
	MaxEntries int
}

// Service provides cached place search.
type Service struct {
	geocoder   Geocoder
	logger     zerolog.Logger
	cacheTTL   time.Duration
	maxEntries int

	mu    sync.RWMutex
	cache map[string]cachedPlaces
}

type cachedPlaces struct {
	places    []Place
	expiresAt time.Time
}

// NewService creates a new geocoding service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 24 * time.Hour
	}

	maxEntries := cfg.MaxEntries
	if maxEntries == 0 {
		maxEntries = 1000
	}

	return &Service{
		geocoder:   cfg.Geocoder,
		logger:     cfg.Logger,
		cacheTTL:   cacheTTL,
		maxEntries: maxEntries,
		cache:      make(map[string]cachedPlaces),
	}
}

// Search returns up to limit places matching query.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	key := fmt.Sprintf("%d:%s", limit, strings.ToLower(query))

	s.mu.RLock()
	if cached, ok := s.cache[key]; ok && time.Now().Before(cached.expiresAt) {
		s.mu.RUnlock()
		return cached.places, nil
	}
	s.mu.RUnlock()

	places, err := s.geocoder.Search(ctx, query, limit)
	if err != nil {
		s.logger.Warn().Err(err).
			Str("provider", s.geocoder.Name()).
			Msg("geocoding search failed")
		return nil, err
	}

	s.mu.Lock()
	if len(s.cache) >= s.maxEntries {
		s.pruneLocked()
	}
	s.cache[key] = cachedPlaces{places: places, expiresAt: time.Now().Add(s.cacheTTL)}
	s.mu.Unlock()

	return places, nil
}

// pruneLocked drops expired entries, or everything if none had expired.
func (s *Service) pruneLocked() {
	now := time.Now()
	for k, c := range s.cache {
		if now.After(c.expiresAt) {
			delete(s.cache, k)
		}
	}
	if len(s.cache) >= s.maxEntries {
		s.cache = make(map[string]cachedPlaces)
	}
}

// Resolve turns user input into a coordinate. A "lat,lon" pair is parsed
// directly; anything else is geocoded and the first match used.
func (s *Service) Resolve(ctx context.Context, input string) (Place, error) {
	if c, ok := ParseLatLon(input); ok {
		return Place{Label: strings.TrimSpace(input), Coordinate: c}, nil
	}

	places, err := s.Search(ctx, input, 1)
	if err != nil {
		return Place{}, err
	}
	if len(places) == 0 {
		return Place{}, fmt.Errorf("%w: %q", ErrNotFound, input)
	}
	return places[0], nil
}

var latLonPattern = regexp.MustCompile(`^\s*(-?\d+(?:\.\d+)?)\s*,\s*(-?\d+(?:\.\d+)?)\s*$`)

// ParseLatLon parses "lat,lon" input. It reports false for anything that is
// not a pair of in-range decimal degrees.
func ParseLatLon(s string) (polyline.Coordinate, bool) {
	m := latLonPattern.FindStringSubmatch(s)
	if m == nil {
		return polyline.Coordinate{}, false
	}

	lat, err := strconv.ParseFloat(m[1], 64)
	if err != nil || lat < -90 || lat > 90 {
		return polyline.Coordinate{}, false
	}
	lon, err := strconv.ParseFloat(m[2], 64)
	if err != nil || lon < -180 || lon > 180 {
		return polyline.Coordinate{}, false
	}

	return polyline.Coordinate{Lat: lat, Lon: lon}, true
}
