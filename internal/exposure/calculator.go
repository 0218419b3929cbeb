package exposure

import (
	"context"
	"math"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/breatheroute/routeexposure/internal/routing"
	"github.com/breatheroute/routeexposure/pkg/polyline"
)

const tracerName = "github.com/breatheroute/routeexposure/internal/exposure"

// Config tunes the exposure model.
type Config struct {
	// Alpha weights NO2 relative to PM2.5. Zero scores PM2.5 only; negative
	// or NaN falls back to 0.1.
	Alpha float64

	// LongRouteThreshold is the distance above which routes are sampled
	// sparsely (default: 20km).
	LongRouteThreshold float64

	// LongRouteInterval is the sampling interval for long routes (default: 25km).
	LongRouteInterval float64

	// ShortRouteInterval is the sampling interval otherwise (default: 300m).
	ShortRouteInterval float64

	// MinHighConfidenceSamples is the number of usable segments needed for
	// high confidence (default: 3).
	MinHighConfidenceSamples int
}

// DefaultConfig returns the standard exposure model parameters.
func DefaultConfig() Config {
	return Config{
		Alpha:                    0.1,
		LongRouteThreshold:       20000,
		LongRouteInterval:        25000,
		ShortRouteInterval:       300,
		MinHighConfidenceSamples: 3,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if math.IsNaN(c.Alpha) || c.Alpha < 0 {
		c.Alpha = d.Alpha
	}
	if c.LongRouteThreshold <= 0 {
		c.LongRouteThreshold = d.LongRouteThreshold
	}
	if c.LongRouteInterval <= 0 {
		c.LongRouteInterval = d.LongRouteInterval
	}
	if c.ShortRouteInterval <= 0 {
		c.ShortRouteInterval = d.ShortRouteInterval
	}
	if c.MinHighConfidenceSamples <= 0 {
		c.MinHighConfidenceSamples = d.MinHighConfidenceSamples
	}
	return c
}

// SamplingInterval returns the sampling interval in meters for a route of
// the given length.
func (c Config) SamplingInterval(distanceMeters float64) float64 {
	if distanceMeters > c.LongRouteThreshold {
		return c.LongRouteInterval
	}
	return c.ShortRouteInterval
}

// Calculator computes exposure scores.
type Calculator struct {
	cfg      Config
	readings ReadingSource
	logger   zerolog.Logger
	tracer   trace.Tracer
}

// NewCalculator creates a calculator that resolves readings through src.
func NewCalculator(cfg Config, src ReadingSource, logger zerolog.Logger) *Calculator {
	return &Calculator{
		cfg:      cfg.withDefaults(),
		readings: src,
		logger:   logger,
		tracer:   otel.Tracer(tracerName),
	}
}

// Config returns the effective model parameters.
func (c *Calculator) Config() Config {
	return c.cfg
}

// Compute scores a route. Bad input and missing data produce an unscorable
// score rather than an error.
func (c *Calculator) Compute(ctx context.Context, route routing.Route) Score {
	ctx, span := c.tracer.Start(ctx, "exposure.compute", trace.WithAttributes(
		attribute.Int("route.index", route.Index),
		attribute.Float64("route.distance_m", route.DistanceMeters),
		attribute.Float64("route.duration_s", route.DurationSeconds),
	))
	defer span.End()

	score := c.compute(ctx, route)

	span.SetAttributes(
		attribute.Int("exposure.valid_samples", score.ValidSamples),
		attribute.Int("exposure.total_samples", score.TotalSamples),
		attribute.String("exposure.confidence", string(score.Confidence)),
		attribute.Bool("exposure.scorable", score.Scorable()),
	)
	return score
}

func (c *Calculator) compute(ctx context.Context, route routing.Route) Score {
	if route.Geometry == "" || !positive(route.DistanceMeters) || !positive(route.DurationSeconds) {
		return unscorable(0, 0)
	}

	coords, err := route.Coordinates()
	if err != nil {
		c.logger.Warn().Err(err).Int("route_index", route.Index).Msg("route geometry could not be decoded")
		return unscorable(0, 0)
	}
	if len(coords) < 2 {
		return unscorable(0, 0)
	}

	sampled := polyline.SampleByDistance(coords, c.cfg.SamplingInterval(route.DistanceMeters))
	segDists := polyline.SegmentDistances(sampled)
	if len(segDists) == 0 {
		return unscorable(0, 0)
	}

	midpoints := make([]polyline.Coordinate, len(segDists))
	for i := range segDists {
		midpoints[i] = polyline.Midpoint(sampled[i], sampled[i+1])
	}

	readings := c.readings.GetReadings(ctx, midpoints)

	timePerMeter := route.DurationSeconds / route.DistanceMeters
	var cumulative float64
	valid := 0

	for i, d := range segDists {
		if i >= len(readings) || !readings[i].Usable() {
			continue
		}
		cumulative += c.concentration(readings[i].PM25, readings[i].NO2) * d * timePerMeter
		valid++
	}

	if valid == 0 {
		return unscorable(len(segDists), 0)
	}

	perHour := cumulative / route.DurationSeconds * 3600

	confidence := ConfidenceHigh
	if valid < c.cfg.MinHighConfidenceSamples {
		confidence = ConfidenceLow
	}

	return Score{
		Exposure:        &cumulative,
		ExposurePerHour: &perHour,
		ValidSamples:    valid,
		TotalSamples:    len(segDists),
		Confidence:      confidence,
	}
}

// concentration combines PM2.5 and weighted NO2. An absent field contributes
// nothing.
func (c *Calculator) concentration(pm25, no2 *float64) float64 {
	var conc float64
	if pm25 != nil {
		conc += *pm25
	}
	if no2 != nil {
		conc += c.cfg.Alpha * *no2
	}
	return conc
}

func positive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
