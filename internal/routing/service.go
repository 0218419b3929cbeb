package routing

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/breatheroute/routeexposure/pkg/polyline"
)

// ServiceConfig holds configuration for the routing service.
type ServiceConfig struct {
	// Provider is the routing engine.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// CacheTTL is how long to cache routing data (default: 5 minutes).
	CacheTTL time.Duration

	// CacheGridSize is the size of cache grid cells in degrees (default: 0.001 ~ 110m).
	// Origins and destinations within the same cell share cached routes.
	CacheGridSize float64

	// StaleIfErrorTTL allows serving stale data on provider errors (default: 15 minutes).
	StaleIfErrorTTL time.Duration

	// CleanupInterval is how often to clean up expired entries (default: 5 minutes).
	CleanupInterval time.Duration

	// FetchTimeout bounds a shared provider fetch (default: 20 seconds).
	FetchTimeout time.Duration
}

// Service provides routing data with caching.
type Service struct {
	provider        Provider
	logger          zerolog.Logger
	cacheTTL        time.Duration
	cacheGridSize   float64
	staleIfErrorTTL time.Duration
	cleanupInterval time.Duration
	fetchTimeout    time.Duration

	inflight singleflight.Group

	mu          sync.RWMutex
	cache       map[string]*cachedDirections
	lastCleanup time.Time
}

type cachedDirections struct {
	response  *DirectionsResponse
	fetchedAt time.Time
	expiresAt time.Time
}

// NewService creates a new routing service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 5 * time.Minute
	}

	cacheGridSize := cfg.CacheGridSize
	if cacheGridSize == 0 {
		cacheGridSize = 0.001
	}

	staleIfErrorTTL := cfg.StaleIfErrorTTL
	if staleIfErrorTTL == 0 {
		staleIfErrorTTL = 15 * time.Minute
	}

	cleanupInterval := cfg.CleanupInterval
	if cleanupInterval == 0 {
		cleanupInterval = 5 * time.Minute
	}

	fetchTimeout := cfg.FetchTimeout
	if fetchTimeout <= 0 {
		fetchTimeout = 20 * time.Second
	}

	return &Service{
		provider:        cfg.Provider,
		logger:          cfg.Logger,
		cacheTTL:        cacheTTL,
		cacheGridSize:   cacheGridSize,
		staleIfErrorTTL: staleIfErrorTTL,
		cleanupInterval: cleanupInterval,
		fetchTimeout:    fetchTimeout,
		cache:           make(map[string]*cachedDirections),
	}
}

// GetDirections returns route alternatives between two points.
// Uses cached data if available and not expired.
func (s *Service) GetDirections(ctx context.Context, req DirectionsRequest) (*DirectionsResponse, error) {
	if err := validateCoordinates(req.Origin); err != nil {
		return nil, &Error{
			Provider: s.provider.Name(),
			Code:     "INVALID_ORIGIN",
			Message:  "invalid origin coordinates",
			Err:      ErrInvalidCoordinates,
		}
	}
	if err := validateCoordinates(req.Destination); err != nil {
		return nil, &Error{
			Provider: s.provider.Name(),
			Code:     "INVALID_DESTINATION",
			Message:  "invalid destination coordinates",
			Err:      ErrInvalidCoordinates,
		}
	}
	if req.Profile == "" {
		req.Profile = ProfileDriving
	}
	if !slices.Contains(s.provider.SupportedProfiles(), req.Profile) {
		return nil, &Error{
			Provider: s.provider.Name(),
			Code:     "UNSUPPORTED_PROFILE",
			Message:  fmt.Sprintf("profile %q is not supported", req.Profile),
			Err:      ErrUnsupportedProfile,
		}
	}

	cacheKey := s.CacheKey(req)

	s.mu.RLock()
	if cached, ok := s.cache[cacheKey]; ok && time.Now().Before(cached.expiresAt) {
		s.mu.RUnlock()
		s.logger.Debug().
			Str("cache_key", cacheKey).
			Msg("cache hit for directions")
		return cached.response, nil
	}
	s.mu.RUnlock()

	// The shared fetch is detached from any one caller so a disconnecting
	// client doesn't fail the others waiting on the same pair.
	ch := s.inflight.DoChan(cacheKey, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
		defer cancel()
		return s.fetchDirections(fetchCtx, req, cacheKey)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*DirectionsResponse), nil
	}
}

// fetchDirections fetches directions from the provider and updates the cache.
func (s *Service) fetchDirections(ctx context.Context, req DirectionsRequest, cacheKey string) (*DirectionsResponse, error) {
	s.logger.Debug().
		Float64("origin_lat", req.Origin.Lat).
		Float64("origin_lon", req.Origin.Lon).
		Float64("dest_lat", req.Destination.Lat).
		Float64("dest_lon", req.Destination.Lon).
		Str("profile", string(req.Profile)).
		Str("provider", s.provider.Name()).
		Msg("fetching directions from provider")

	resp, err := s.provider.GetDirections(ctx, req)
	if err != nil {
		s.logger.Error().Err(err).
			Str("cache_key", cacheKey).
			Str("profile", string(req.Profile)).
			Msg("failed to fetch directions")

		s.mu.RLock()
		cached, ok := s.cache[cacheKey]
		s.mu.RUnlock()
		if ok && time.Now().Before(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
			s.logger.Warn().
				Time("fetched_at", cached.fetchedAt).
				Str("cache_key", cacheKey).
				Msg("serving stale directions due to provider error")
			return cached.response, nil
		}

		return nil, err
	}
	if len(resp.Routes) == 0 {
		return nil, &Error{
			Provider: s.provider.Name(),
			Code:     "NO_ROUTE",
			Message:  "provider returned no routes",
			Err:      ErrNoRouteFound,
		}
	}

	now := time.Now()
	s.mu.Lock()
	s.cache[cacheKey] = &cachedDirections{
		response:  resp,
		fetchedAt: now,
		expiresAt: now.Add(s.cacheTTL),
	}
	s.cleanupLocked(now)
	s.mu.Unlock()

	s.logger.Debug().
		Str("cache_key", cacheKey).
		Int("route_count", len(resp.Routes)).
		Msg("cached directions response")

	return resp, nil
}

// CacheKey quantizes origin and destination to the cache grid.
// Format: {profile}:{lat},{lon}:{lat},{lon}.
func (s *Service) CacheKey(req DirectionsRequest) string {
	q := func(v float64) float64 {
		return math.Round(v/s.cacheGridSize) * s.cacheGridSize
	}

	return fmt.Sprintf("%s:%.4f,%.4f:%.4f,%.4f",
		req.Profile,
		q(req.Origin.Lat), q(req.Origin.Lon),
		q(req.Destination.Lat), q(req.Destination.Lon),
	)
}

// cleanupLocked drops entries past the stale-if-error window once per
// cleanup interval. Callers hold s.mu.
func (s *Service) cleanupLocked(now time.Time) {
	if now.Sub(s.lastCleanup) < s.cleanupInterval {
		return
	}
	s.lastCleanup = now

	expired := 0
	for key, cached := range s.cache {
		if now.After(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
			delete(s.cache, key)
			expired++
		}
	}

	if expired > 0 {
		s.logger.Debug().
			Int("expired_entries", expired).
			Msg("cleaned up expired routing cache entries")
	}
}

// InvalidateCache clears all cached data.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]*cachedDirections)
}

// CacheStats returns cache statistics.
func (s *Service) CacheStats() CacheStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	fresh := 0
	stale := 0

	for _, c := range s.cache {
		if now.Before(c.expiresAt) {
			fresh++
		} else if now.Before(c.fetchedAt.Add(s.staleIfErrorTTL)) {
			stale++
		}
	}

	return CacheStats{
		TotalEntries: len(s.cache),
		FreshEntries: fresh,
		StaleEntries: stale,
		Provider:     s.provider.Name(),
	}
}

// CacheStats contains cache statistics.
type CacheStats struct {
	TotalEntries int
	FreshEntries int
	StaleEntries int
	Provider     string
}

// ProviderName returns the name of the underlying provider.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}

// validateCoordinates checks if coordinates are within valid ranges.
func validateCoordinates(c polyline.Coordinate) error {
	if math.IsNaN(c.Lat) || c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("latitude %f out of range [-90, 90]", c.Lat)
	}
	if math.IsNaN(c.Lon) || c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("longitude %f out of range [-180, 180]", c.Lon)
	}
	return nil
}
