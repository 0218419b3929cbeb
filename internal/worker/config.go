// Package worker runs background jobs that keep the pollutant cache warm.
package worker

import (
	"time"

	"github.com/breatheroute/routeexposure/pkg/polyline"
)

// WarmupTarget is a named area whose points are pre-fetched.
type WarmupTarget struct {
	Name string

	Points []polyline.Coordinate

	// Priority orders targets; lower runs first.
	Priority int
}

// WarmupConfig configures the cache warm-up job.
type WarmupConfig struct {
	// Targets to warm. Empty uses DefaultWarmupTargets.
	Targets []WarmupTarget

	// Concurrency bounds in-flight fetches. Default: 3
	Concurrency int

	// Interval between runs when started with Start. Default: 1 hour
	Interval time.Duration

	// Timeout bounds a single point fetch. Default: 30 seconds
	Timeout time.Duration
}

// DefaultWarmupConfig returns the default warm-up configuration.
func DefaultWarmupConfig() WarmupConfig {
	return WarmupConfig{
		Targets:     DefaultWarmupTargets(),
		Concurrency: 3,
		Interval:    time.Hour,
		Timeout:     30 * time.Second,
	}
}

func (c WarmupConfig) withDefaults() WarmupConfig {
	d := DefaultWarmupConfig()
	if len(c.Targets) == 0 {
		c.Targets = d.Targets
	}
	if c.Concurrency <= 0 {
		c.Concurrency = d.Concurrency
	}
	if c.Interval <= 0 {
		c.Interval = d.Interval
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	return c
}

// TargetsFromPoints wraps ad-hoc points into a single target.
func TargetsFromPoints(points []polyline.Coordinate) []WarmupTarget {
	if len(points) == 0 {
		return nil
	}
	return []WarmupTarget{{Name: "configured", Points: points, Priority: 1}}
}

// DefaultWarmupTargets covers the busiest Mumbai commuter corridors.
func DefaultWarmupTargets() []WarmupTarget {
	return []WarmupTarget{
		{
			Name:     "South Mumbai",
			Priority: 1,
			Points: []polyline.Coordinate{
				{Lat: 18.9398, Lon: 72.8355}, // CSMT
				{Lat: 18.9696, Lon: 72.8194}, // Mumbai Central
				{Lat: 19.0176, Lon: 72.8562}, // Dadar
			},
		},
		{
			Name:     "Western Suburbs",
			Priority: 1,
			Points: []polyline.Coordinate{
				{Lat: 19.0544, Lon: 72.8406}, // Bandra
				{Lat: 19.0650, Lon: 72.8650}, // BKC
				{Lat: 19.1197, Lon: 72.8464}, // Andheri
				{Lat: 19.1663, Lon: 72.8526}, // Goregaon
			},
		},
		{
			Name:     "Eastern Suburbs",
			Priority: 2,
			Points: []polyline.Coordinate{
				{Lat: 19.0866, Lon: 72.9080}, // Ghatkopar
				{Lat: 19.1176, Lon: 72.9060}, // Powai
				{Lat: 19.1860, Lon: 72.9760}, // Thane
			},
		},
		{
			Name:     "Navi Mumbai",
			Priority: 3,
			Points: []polyline.Coordinate{
				{Lat: 19.0330, Lon: 73.0297}, // Vashi
				{Lat: 19.0216, Lon: 73.0395}, // Sanpada
			},
		},
	}
}

// AllPoints returns every target's points, lowest priority value first.
func (c WarmupConfig) AllPoints() []polyline.Coordinate {
	maxPriority := 0
	for _, t := range c.Targets {
		maxPriority = max(maxPriority, t.Priority)
	}

	var points []polyline.Coordinate
	for p := 0; p <= maxPriority; p++ {
		for _, t := range c.Targets {
			if t.Priority == p {
				points = append(points, t.Points...)
			}
		}
	}
	return points
}

// TotalPoints returns the number of points across all targets.
func (c WarmupConfig) TotalPoints() int {
	total := 0
	for _, t := range c.Targets {
		total += len(t.Points)
	}
	return total
}
