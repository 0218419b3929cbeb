// Package resilience wraps upstream HTTP calls with a circuit breaker,
// bounded retries, and per-provider health tracking.
package resilience

import (
	"time"

	"github.com/sony/gobreaker/v2"
)

// BreakerConfig configures a provider circuit breaker.
type BreakerConfig struct {
	// MaxRequests allowed through while half-open.
	MaxRequests uint32

	// Interval clears counts while closed. Zero keeps counts until a trip.
	Interval time.Duration

	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration

	// MinRequests and FailureRatio decide when the breaker trips.
	MinRequests  uint32
	FailureRatio float64
}

// DefaultBreakerConfig trips after 5 requests at a 50% failure rate and
// probes again after 30 seconds.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:  1,
		Interval:     time.Minute,
		OpenTimeout:  30 * time.Second,
		MinRequests:  5,
		FailureRatio: 0.5,
	}
}

// ShouldTrip reports whether counts exceed the configured failure threshold.
func (c BreakerConfig) ShouldTrip(counts gobreaker.Counts) bool {
	if counts.Requests == 0 || counts.Requests < c.MinRequests {
		return false
	}
	return float64(counts.TotalFailures)/float64(counts.Requests) >= c.FailureRatio
}

func newBreaker[T any](name string, cfg BreakerConfig, onChange func(string, gobreaker.State, gobreaker.State)) *gobreaker.CircuitBreaker[T] {
	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:          name,
		MaxRequests:   cfg.MaxRequests,
		Interval:      cfg.Interval,
		Timeout:       cfg.OpenTimeout,
		ReadyToTrip:   cfg.ShouldTrip,
		OnStateChange: onChange,
	})
}
