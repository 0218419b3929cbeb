package resilience_test

import (
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breatheroute/routeexposure/internal/provider/resilience"
)

type fakeBreaker struct {
	state gobreaker.State
}

func (f *fakeBreaker) State() gobreaker.State    { return f.state }
func (f *fakeBreaker) Counts() gobreaker.Counts { return gobreaker.Counts{} }

func TestRegistry_RegisterViaClient(t *testing.T) {
	registry := resilience.NewRegistry()
	cfg := resilience.DefaultClientConfig("osrm")
	cfg.Registry = registry
	client := resilience.NewClient(cfg)

	health := registry.GetHealth("osrm")
	require.NotNil(t, health)
	assert.Equal(t, "osrm", client.Name())
	assert.Equal(t, gobreaker.StateClosed, health.CircuitState)
	assert.Equal(t, resilience.StatusHealthy, health.Status())
	assert.True(t, health.IsHealthy())
}

func TestRegistry_RecordOutcomes(t *testing.T) {
	registry := resilience.NewRegistry()
	registry.Register("open-meteo", &fakeBreaker{})

	registry.RecordSuccess("open-meteo")
	registry.RecordFailure("open-meteo", assert.AnError)

	health := registry.GetHealth("open-meteo")
	require.NotNil(t, health)
	require.NotNil(t, health.LastSuccessAt)
	require.NotNil(t, health.LastFailureAt)
	assert.WithinDuration(t, time.Now(), *health.LastFailureAt, time.Second)
	assert.Equal(t, assert.AnError.Error(), health.LastError)
}

func TestRegistry_UnknownProvider(t *testing.T) {
	registry := resilience.NewRegistry()

	registry.RecordSuccess("missing")
	registry.RecordFailure("missing", assert.AnError)
	assert.Nil(t, registry.GetHealth("missing"))
	assert.Empty(t, registry.Snapshot())
	assert.Equal(t, resilience.StatusHealthy, registry.Overall())
}

func TestRegistry_SnapshotSorted(t *testing.T) {
	registry := resilience.NewRegistry()
	for _, name := range []string{"osrm", "aggregator", "nominatim"} {
		registry.Register(name, &fakeBreaker{})
	}

	var names []string
	for _, h := range registry.Snapshot() {
		names = append(names, h.Name)
	}
	assert.Equal(t, []string{"aggregator", "nominatim", "osrm"}, names)
}

func TestRegistry_Overall(t *testing.T) {
	tests := []struct {
		name   string
		states []gobreaker.State
		want   resilience.Status
	}{
		{"all closed", []gobreaker.State{gobreaker.StateClosed, gobreaker.StateClosed}, resilience.StatusHealthy},
		{"one half-open", []gobreaker.State{gobreaker.StateClosed, gobreaker.StateHalfOpen}, resilience.StatusDegraded},
		{"one open", []gobreaker.State{gobreaker.StateHalfOpen, gobreaker.StateOpen}, resilience.StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := resilience.NewRegistry()
			for i, state := range tt.states {
				registry.Register(string(rune('a'+i)), &fakeBreaker{state: state})
			}
			assert.Equal(t, tt.want, registry.Overall())
		})
	}
}
