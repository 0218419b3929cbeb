package resilience

import (
	"sort"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Status summarizes a provider's breaker state.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// ProviderHealth is a point-in-time view of one provider.
type ProviderHealth struct {
	Name          string
	CircuitState  gobreaker.State
	Counts        gobreaker.Counts
	LastSuccessAt *time.Time
	LastFailureAt *time.Time
	LastError     string
}

// Status maps the breaker state: closed is healthy, half-open degraded, open
// unhealthy.
func (h *ProviderHealth) Status() Status {
	switch h.CircuitState {
	case gobreaker.StateClosed:
		return StatusHealthy
	case gobreaker.StateHalfOpen:
		return StatusDegraded
	default:
		return StatusUnhealthy
	}
}

func (h *ProviderHealth) IsHealthy() bool { return h.Status() == StatusHealthy }

// BreakerSource is implemented by *Client.
type BreakerSource interface {
	State() gobreaker.State
	Counts() gobreaker.Counts
}

// Registry tracks upstream providers for the status endpoint.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]*entry
	now       func() time.Time
}

type entry struct {
	source        BreakerSource
	lastSuccessAt *time.Time
	lastFailureAt *time.Time
	lastError     string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]*entry),
		now:       time.Now,
	}
}

// Register adds or replaces a provider.
func (r *Registry) Register(name string, source BreakerSource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = &entry{source: source}
}

// RecordSuccess stamps the last successful call. Unknown names are ignored.
func (r *Registry) RecordSuccess(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.providers[name]; ok {
		now := r.now()
		p.lastSuccessAt = &now
	}
}

// RecordFailure stamps the last failed call and its error.
func (r *Registry) RecordFailure(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.providers[name]; ok {
		now := r.now()
		p.lastFailureAt = &now
		if err != nil {
			p.lastError = err.Error()
		}
	}
}

// GetHealth returns the provider's health, or nil if it is not registered.
func (r *Registry) GetHealth(name string) *ProviderHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	if !ok {
		return nil
	}
	return p.health(name)
}

// Snapshot returns every provider's health sorted by name.
func (r *Registry) Snapshot() []*ProviderHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*ProviderHealth, 0, len(r.providers))
	for name, p := range r.providers {
		out = append(out, p.health(name))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Overall is unhealthy if any provider is, degraded if any is half-open, and
// healthy otherwise (including when nothing is registered).
func (r *Registry) Overall() Status {
	overall := StatusHealthy
	for _, h := range r.Snapshot() {
		switch h.Status() {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			overall = StatusDegraded
		}
	}
	return overall
}

func (p *entry) health(name string) *ProviderHealth {
	return &ProviderHealth{
		Name:          name,
		CircuitState:  p.source.State(),
		Counts:        p.source.Counts(),
		LastSuccessAt: p.lastSuccessAt,
		LastFailureAt: p.lastFailureAt,
		LastError:     p.lastError,
	}
}
