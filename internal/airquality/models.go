// Package airquality provides pollutant readings for coordinates along a route,
// backed by a grid-quantized TTL cache.
package airquality

import (
	"context"
	"errors"
	"time"

	"github.com/breatheroute/routeexposure/pkg/polyline"
)

// Provider errors.
var (
	ErrNoData              = errors.New("no pollutant data for location")
	ErrProviderUnavailable = errors.New("pollutant provider unavailable")
	ErrBatchMismatch       = errors.New("batch response length does not match request")
)

// Pollutant identifies a pollutant carried by a Reading.
type Pollutant string

const (
	PollutantPM25 Pollutant = "PM25"
	PollutantNO2  Pollutant = "NO2"
)

// Reading is a pollutant observation at a point. Either field may be nil
// when the provider had no value for it; nil is unknown, not zero.
type Reading struct {
	PM25 *float64 // µg/m³
	NO2  *float64 // µg/m³
}

// NewReading builds a Reading from concrete values.
func NewReading(pm25, no2 float64) *Reading {
	return &Reading{PM25: &pm25, NO2: &no2}
}

// Usable reports whether the reading carries at least one pollutant value.
func (r *Reading) Usable() bool {
	return r != nil && (r.PM25 != nil || r.NO2 != nil)
}

// Provider fetches a single reading for a coordinate.
type Provider interface {
	// Name identifies the provider for logs and metrics.
	Name() string

	// FetchReading returns the current reading at coord. Implementations
	// return ErrNoData when the upstream answered but carried no values.
	FetchReading(ctx context.Context, coord polyline.Coordinate) (*Reading, error)
}

// BatchProvider fetches readings for many coordinates in one round trip.
// The returned slice must be positional: element i belongs to coords[i].
type BatchProvider interface {
	Name() string
	FetchReadings(ctx context.Context, coords []polyline.Coordinate) ([]*Reading, error)
}

// MetricsRecorder receives provider and cache observations.
// telemetry.ProviderMetrics satisfies it.
type MetricsRecorder interface {
	RecordRequest(provider, operation string, duration time.Duration, err error)
	RecordCacheHit(provider, operation string)
	RecordCacheMiss(provider, operation string)
}

type noopRecorder struct{}

func (noopRecorder) RecordRequest(string, string, time.Duration, error) {}
func (noopRecorder) RecordCacheHit(string, string)                      {}
func (noopRecorder) RecordCacheMiss(string, string)                     {}
