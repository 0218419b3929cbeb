package planner

import (
	"fmt"
	"math"
	"sync"

	"github.com/breatheroute/routeexposure/pkg/polyline"
)

// Generations hands out monotonically increasing generation numbers and
// tracks the latest one per key. A result computed for a generation older
// than the key's latest is stale. Numbers are never reused, so a released
// key cannot revive an older in-flight generation.
type Generations struct {
	mu      sync.Mutex
	seq     uint64
	current map[string]uint64
}

// NewGenerations creates an empty generation tracker.
func NewGenerations() *Generations {
	return &Generations{current: make(map[string]uint64)}
}

// Next starts a new generation for key and returns it.
func (g *Generations) Next(key string) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	g.current[key] = g.seq
	return g.seq
}

// IsCurrent reports whether gen is still the latest generation for key.
func (g *Generations) IsCurrent(key string, gen uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current[key] == gen
}

// Release forgets key if gen is still its latest generation. Call it once
// the work for gen is finished.
func (g *Generations) Release(key string, gen uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current[key] == gen {
		delete(g.current, key)
	}
}

// Len returns the number of tracked keys.
func (g *Generations) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.current)
}

// odKeyGrid is ~11m; searches closer than that count as the same pair.
const odKeyGrid = 0.0001

// ODKey identifies an origin/destination pair for generation tracking.
func ODKey(origin, destination polyline.Coordinate) string {
	q := func(v float64) float64 { return math.Round(v/odKeyGrid) * odKeyGrid }
	return fmt.Sprintf("%.4f,%.4f>%.4f,%.4f", q(origin.Lat), q(origin.Lon), q(destination.Lat), q(destination.Lon))
}
