package exposure

import (
	"context"
	"fmt"
	"math"

	"github.com/breatheroute/routeexposure/internal/routing"
	"github.com/breatheroute/routeexposure/pkg/polyline"
)

const (
	// DefaultHeatmapStride samples every 4th vertex of the route.
	DefaultHeatmapStride = 4

	// heatmapPM25Scale is the PM2.5 level (µg/m³) that maps to full intensity.
	heatmapPM25Scale = 150.0

	// heatmapBaseline is the intensity of points without a PM2.5 value.
	heatmapBaseline = 0.05
)

// HeatPoint is one weighted point of a route heatmap, intensity in [0,1].
type HeatPoint struct {
	Lat       float64
	Lon       float64
	Intensity float64
}

// HeatmapBuilder turns a route into heatmap points.
type HeatmapBuilder struct {
	readings ReadingSource
	stride   int
}

// NewHeatmapBuilder creates a heatmap builder. stride <= 0 uses DefaultHeatmapStride.
func NewHeatmapBuilder(src ReadingSource, stride int) *HeatmapBuilder {
	if stride <= 0 {
		stride = DefaultHeatmapStride
	}
	return &HeatmapBuilder{readings: src, stride: stride}
}

// Build samples the route geometry and weights each point by its PM2.5 reading.
func (b *HeatmapBuilder) Build(ctx context.Context, route routing.Route) ([]HeatPoint, error) {
	coords, err := route.Coordinates()
	if err != nil {
		return nil, fmt.Errorf("decode route geometry: %w", err)
	}

	sampled := polyline.SampleEvery(coords, b.stride)
	if len(sampled) == 0 {
		return []HeatPoint{}, nil
	}

	readings := b.readings.GetReadings(ctx, sampled)

	points := make([]HeatPoint, len(sampled))
	for i, c := range sampled {
		var pm25 *float64
		if i < len(readings) && readings[i] != nil {
			pm25 = readings[i].PM25
		}
		points[i] = HeatPoint{Lat: c.Lat, Lon: c.Lon, Intensity: Intensity(pm25)}
	}
	return points, nil
}

// Intensity maps a PM2.5 value to heatmap intensity.
func Intensity(pm25 *float64) float64 {
	if pm25 == nil || math.IsNaN(*pm25) {
		return heatmapBaseline
	}
	if *pm25 <= 0 {
		return 0
	}
	return math.Min(1, math.Sqrt(*pm25/heatmapPM25Scale))
}
