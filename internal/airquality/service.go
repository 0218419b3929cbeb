package airquality

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/breatheroute/routeexposure/pkg/polyline"
)

const (
	// DefaultFetchTimeout bounds a single provider call.
	DefaultFetchTimeout = 5 * time.Second

	// DefaultConcurrency bounds parallel per-point fetches.
	DefaultConcurrency = 8

	operationReading = "reading"
	operationBatch   = "batch"
)

// ServiceConfig holds configuration for the air quality service.
type ServiceConfig struct {
	// Provider is the per-point pollutant data provider.
	Provider Provider

	// Batch is an optional aggregation endpoint used by GetReadings.
	Batch BatchProvider

	// Cache stores successful readings. If nil, a cache with defaults is created.
	Cache *Cache

	// Logger for service operations.
	Logger zerolog.Logger

	// Timeout bounds each provider call (default: 5s).
	Timeout time.Duration

	// Concurrency bounds parallel per-point fetches (default: 8).
	Concurrency int

	// Metrics records provider requests and cache hits. Optional.
	Metrics MetricsRecorder
}

// Service resolves pollutant readings through the cache and the provider.
// Failures surface as nil readings and are never cached.
type Service struct {
	provider    Provider
	batch       BatchProvider
	cache       *Cache
	logger      zerolog.Logger
	timeout     time.Duration
	concurrency int
	metrics     MetricsRecorder

	inflight singleflight.Group
}

// NewService creates a new air quality service.
func NewService(cfg ServiceConfig) *Service {
	cache := cfg.Cache
	if cache == nil {
		cache = NewCache(CacheConfig{})
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	var metrics MetricsRecorder = noopRecorder{}
	if cfg.Metrics != nil {
		metrics = cfg.Metrics
	}

	return &Service{
		provider:    cfg.Provider,
		batch:       cfg.Batch,
		cache:       cache,
		logger:      cfg.Logger,
		timeout:     timeout,
		concurrency: concurrency,
		metrics:     metrics,
	}
}

// Cache returns the cache backing the service.
func (s *Service) Cache() *Cache {
	return s.cache
}

// GetReading returns the reading for coord, or nil when none is available.
func (s *Service) GetReading(ctx context.Context, coord polyline.Coordinate) *Reading {
	key := s.cache.Key(coord)
	if reading, ok := s.cache.getKey(key); ok {
		s.metrics.RecordCacheHit(s.provider.Name(), operationReading)
		return reading
	}
	s.metrics.RecordCacheMiss(s.provider.Name(), operationReading)

	// Concurrent misses for the same cell share one upstream call.
	v, _, _ := s.inflight.Do(key, func() (interface{}, error) {
		if reading, ok := s.cache.getKey(key); ok {
			return reading, nil
		}
		return s.fetch(ctx, key, coord), nil
	})

	reading, _ := v.(*Reading)
	return reading
}

func (s *Service) fetch(ctx context.Context, key string, coord polyline.Coordinate) *Reading {
	// Detached from the caller so one cancelled request doesn't fail the
	// others waiting on the same cell.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	start := time.Now()
	reading, err := s.provider.FetchReading(ctx, coord)
	s.metrics.RecordRequest(s.provider.Name(), operationReading, time.Since(start), err)

	if err != nil {
		event := s.logger.Warn()
		if errors.Is(err, ErrNoData) {
			event = s.logger.Debug()
		}
		event.Err(err).
			Str("provider", s.provider.Name()).
			Float64("lat", coord.Lat).
			Float64("lon", coord.Lon).
			Msg("pollutant reading unavailable")
		return nil
	}
	if !reading.Usable() {
		return nil
	}

	s.cache.putKey(key, reading, s.cache.now())
	return reading
}

// GetReadings resolves readings for coords. The result is positional and has
// the same length as coords; entries are nil where no reading was available.
// Cached cells are served first; remaining cells go to the batch provider when
// one is configured and fall back to per-point fetches if it fails.
func (s *Service) GetReadings(ctx context.Context, coords []polyline.Coordinate) []*Reading {
	results := make([]*Reading, len(coords))
	if len(coords) == 0 {
		return results
	}

	var missing []int
	for i, c := range coords {
		if reading, ok := s.cache.Get(c); ok {
			s.metrics.RecordCacheHit(s.provider.Name(), operationBatch)
			results[i] = reading
			continue
		}
		missing = append(missing, i)
	}
	if len(missing) == 0 {
		return results
	}

	if s.batch != nil && s.fetchBatch(ctx, coords, missing, results) {
		return results
	}

	s.fetchEach(ctx, coords, missing, results)
	return results
}

// fetchBatch fills results[missing] from the batch provider. It reports false
// when the batch call failed and nothing was written.
func (s *Service) fetchBatch(ctx context.Context, coords []polyline.Coordinate, missing []int, results []*Reading) bool {
	request := make([]polyline.Coordinate, len(missing))
	for j, i := range missing {
		request[j] = coords[i]
	}

	batchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	readings, err := s.batch.FetchReadings(batchCtx, request)
	if err == nil && len(readings) != len(request) {
		err = ErrBatchMismatch
	}
	s.metrics.RecordRequest(s.batch.Name(), operationBatch, time.Since(start), err)

	if err != nil {
		s.logger.Warn().Err(err).
			Int("points", len(request)).
			Msg("batch pollutant fetch failed, falling back to per-point fetches")
		return false
	}

	for j, i := range missing {
		reading := readings[j]
		if !reading.Usable() {
			continue
		}
		results[i] = reading
		s.cache.Store(coords[i], reading)
	}
	return true
}

func (s *Service) fetchEach(ctx context.Context, coords []polyline.Coordinate, missing []int, results []*Reading) {
	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for _, i := range missing {
		g.Go(func() error {
			results[i] = s.GetReading(ctx, coords[i])
			return nil
		})
	}

	_ = g.Wait()
}
