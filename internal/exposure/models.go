// Package exposure scores routes by estimated pollutant exposure and ranks
// route alternatives.
package exposure

import (
	"context"
	"errors"

	"github.com/breatheroute/routeexposure/internal/airquality"
	"github.com/breatheroute/routeexposure/pkg/polyline"
)

// Ranking errors.
var (
	ErrNoRoutes          = errors.New("no routes to rank")
	ErrScoreMismatch     = errors.New("scores do not match routes")
	ErrUnknownPreference = errors.New("unknown route preference")
)

// ReadingSource resolves pollutant readings for many points at once.
// The result is positional; nil entries mean no reading.
// *airquality.Service satisfies it.
type ReadingSource interface {
	GetReadings(ctx context.Context, coords []polyline.Coordinate) []*airquality.Reading
}

// Confidence grades how many usable samples backed a score.
type Confidence string

const (
	ConfidenceLow  Confidence = "low"
	ConfidenceHigh Confidence = "high"
)

// Score is the exposure estimate for one route. Exposure and ExposurePerHour
// are nil when the route could not be scored; that is never the same as zero.
type Score struct {
	// Exposure is the time-weighted concentration integral, (µg/m³)·s.
	Exposure *float64
	// ExposurePerHour normalizes Exposure by trip duration, (µg/m³)·s per hour of travel.
	ExposurePerHour *float64
	// ValidSamples counts segments with a usable reading.
	ValidSamples int
	// TotalSamples counts segments sampled.
	TotalSamples int
	Confidence   Confidence
}

// Scorable reports whether the route received an exposure estimate.
func (s Score) Scorable() bool {
	return s.ExposurePerHour != nil
}

func unscorable(total, valid int) Score {
	return Score{
		ValidSamples: valid,
		TotalSamples: total,
		Confidence:   ConfidenceLow,
	}
}
