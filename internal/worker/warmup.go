package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/breatheroute/routeexposure/internal/airquality"
	"github.com/breatheroute/routeexposure/pkg/polyline"
)

// ReadingGetter is the nil-on-failure pollutant lookup; *airquality.Service
// implements it.
type ReadingGetter interface {
	GetReading(ctx context.Context, coord polyline.Coordinate) *airquality.Reading
}

// WarmupJobConfig holds dependencies for a WarmupJob.
type WarmupJobConfig struct {
	Config   WarmupConfig
	Readings ReadingGetter

	// Cache, when set, lets the job skip points that are already fresh.
	Cache  *airquality.Cache
	Logger zerolog.Logger
}

// WarmupJob pre-fetches readings for hotspot points.
type WarmupJob struct {
	config   WarmupConfig
	readings ReadingGetter
	cache    *airquality.Cache
	logger   zerolog.Logger

	runMu   sync.Mutex
	mu      sync.RWMutex
	metrics WarmupMetrics
}

// WarmupMetrics accumulates statistics across runs.
type WarmupMetrics struct {
	Runs            int64         `json:"runs"`
	Fetched         int64         `json:"fetched"`
	AlreadyFresh    int64         `json:"already_fresh"`
	Failed          int64         `json:"failed"`
	LastRunAt       time.Time     `json:"last_run_at"`
	LastRunDuration time.Duration `json:"last_run_duration"`
}

// WarmupResult describes one run.
type WarmupResult struct {
	StartTime    time.Time
	Duration     time.Duration
	TotalPoints  int
	Fetched      int
	AlreadyFresh int
	Failed       []polyline.Coordinate
}

// NewWarmupJob creates a warm-up job.
func NewWarmupJob(cfg WarmupJobConfig) *WarmupJob {
	return &WarmupJob{
		config:   cfg.Config.withDefaults(),
		readings: cfg.Readings,
		cache:    cfg.Cache,
		logger:   cfg.Logger,
	}
}

type outcome int

const (
	outcomeFetched outcome = iota
	outcomeFresh
	outcomeFailed
)

type pointResult struct {
	point   polyline.Coordinate
	outcome outcome
}

// Run warms every configured point once. Overlapping calls are serialized.
func (j *WarmupJob) Run(ctx context.Context) *WarmupResult {
	j.runMu.Lock()
	defer j.runMu.Unlock()

	start := time.Now()
	points := j.config.AllPoints()
	result := &WarmupResult{StartTime: start, TotalPoints: len(points)}

	j.logger.Info().
		Int("total_points", len(points)).
		Int("concurrency", j.config.Concurrency).
		Msg("starting cache warm-up")

	pointsCh := make(chan polyline.Coordinate)
	resultsCh := make(chan pointResult, len(points))

	var wg sync.WaitGroup
	for range j.config.Concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range pointsCh {
				resultsCh <- j.warmPoint(ctx, p)
			}
		}()
	}

feed:
	for _, p := range points {
		select {
		case <-ctx.Done():
			break feed
		case pointsCh <- p:
		}
	}
	close(pointsCh)
	wg.Wait()
	close(resultsCh)

	for pr := range resultsCh {
		switch pr.outcome {
		case outcomeFetched:
			result.Fetched++
		case outcomeFresh:
			result.AlreadyFresh++
		default:
			result.Failed = append(result.Failed, pr.point)
		}
	}
	result.Duration = time.Since(start)

	j.record(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("fetched", result.Fetched).
		Int("already_fresh", result.AlreadyFresh).
		Int("failed", len(result.Failed)).
		Msg("cache warm-up completed")

	return result
}

func (j *WarmupJob) warmPoint(ctx context.Context, p polyline.Coordinate) pointResult {
	if j.cache != nil {
		if _, ok := j.cache.Get(p); ok {
			return pointResult{point: p, outcome: outcomeFresh}
		}
	}

	pointCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	if j.readings.GetReading(pointCtx, p) == nil {
		j.logger.Debug().
			Float64("lat", p.Lat).
			Float64("lon", p.Lon).
			Msg("warm-up fetch returned no reading")
		return pointResult{point: p, outcome: outcomeFailed}
	}
	return pointResult{point: p, outcome: outcomeFetched}
}

func (j *WarmupJob) record(r *WarmupResult) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.metrics.Runs++
	j.metrics.Fetched += int64(r.Fetched)
	j.metrics.AlreadyFresh += int64(r.AlreadyFresh)
	j.metrics.Failed += int64(len(r.Failed))
	j.metrics.LastRunAt = r.StartTime
	j.metrics.LastRunDuration = r.Duration
}

// Metrics returns a copy of the accumulated statistics.
func (j *WarmupJob) Metrics() WarmupMetrics {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.metrics
}

// Start runs the job immediately and then every Interval until ctx is done.
// It blocks; call it in its own goroutine.
func (j *WarmupJob) Start(ctx context.Context) {
	ticker := time.NewTicker(j.config.Interval)
	defer ticker.Stop()

	for {
		j.Run(ctx)

		select {
		case <-ctx.Done():
			j.logger.Info().Msg("cache warm-up stopped")
			return
		case <-ticker.C:
		}
	}
}
