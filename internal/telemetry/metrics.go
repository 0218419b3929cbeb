package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = ServiceName + "/telemetry"

// ProviderMetrics records upstream calls and pollutant cache lookups.
// It satisfies airquality.MetricsRecorder.
type ProviderMetrics struct {
	requestDuration metric.Float64Histogram
	requestTotal    metric.Int64Counter
	cacheHits       metric.Int64Counter
	cacheMisses     metric.Int64Counter
}

// NewProviderMetrics registers provider instruments on the global meter.
func NewProviderMetrics() (*ProviderMetrics, error) {
	meter := otel.Meter(meterName)

	requestDuration, err := meter.Float64Histogram(
		"provider.request.duration",
		metric.WithDescription("Duration of upstream provider requests"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	requestTotal, err := meter.Int64Counter(
		"provider.request.total",
		metric.WithDescription("Upstream provider requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}
	cacheHits, err := meter.Int64Counter(
		"provider.cache.hit",
		metric.WithDescription("Reading cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return nil, err
	}
	cacheMisses, err := meter.Int64Counter(
		"provider.cache.miss",
		metric.WithDescription("Reading cache misses"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return nil, err
	}

	return &ProviderMetrics{
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
	}, nil
}

func providerAttrs(provider, operation string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("provider.name", provider),
		attribute.String("provider.operation", operation),
	}
}

// RecordRequest records one upstream call.
func (m *ProviderMetrics) RecordRequest(provider, operation string, d time.Duration, err error) {
	attrs := providerAttrs(provider, operation)
	attrs = append(attrs, attribute.Bool("error", err != nil))

	// Detached: recording must not depend on a request context that may be cancelled.
	ctx := context.Background()
	m.requestDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attrs...))
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *ProviderMetrics) RecordCacheHit(provider, operation string) {
	m.cacheHits.Add(context.Background(), 1, metric.WithAttributes(providerAttrs(provider, operation)...))
}

func (m *ProviderMetrics) RecordCacheMiss(provider, operation string) {
	m.cacheMisses.Add(context.Background(), 1, metric.WithAttributes(providerAttrs(provider, operation)...))
}

// PlanMetrics records route planning outcomes.
type PlanMetrics struct {
	planDuration metric.Float64Histogram
	plans        metric.Int64Counter
	options      metric.Int64Histogram
}

// Plan outcomes.
const (
	OutcomeOK         = "ok"
	OutcomeSuperseded = "superseded"
	OutcomeError      = "error"
)

// NewPlanMetrics registers planning instruments on the global meter.
func NewPlanMetrics() (*PlanMetrics, error) {
	meter := otel.Meter(meterName)

	planDuration, err := meter.Float64Histogram(
		"plan.duration",
		metric.WithDescription("Time to route, score and rank one request"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	plans, err := meter.Int64Counter(
		"plan.total",
		metric.WithDescription("Route plans by outcome"),
		metric.WithUnit("{plan}"),
	)
	if err != nil {
		return nil, err
	}
	options, err := meter.Int64Histogram(
		"plan.options",
		metric.WithDescription("Route options per successful plan"),
		metric.WithUnit("{route}"),
	)
	if err != nil {
		return nil, err
	}

	return &PlanMetrics{planDuration: planDuration, plans: plans, options: options}, nil
}

// RecordPlan records one planning attempt. options is ignored unless the
// outcome is OutcomeOK.
func (m *PlanMetrics) RecordPlan(ctx context.Context, preference, outcome string, d time.Duration, options int) {
	attrs := metric.WithAttributes(
		attribute.String("plan.preference", preference),
		attribute.String("plan.outcome", outcome),
	)
	ctx = context.WithoutCancel(ctx)
	m.planDuration.Record(ctx, d.Seconds(), attrs)
	m.plans.Add(ctx, 1, attrs)
	if outcome == OutcomeOK {
		m.options.Record(ctx, int64(options), attrs)
	}
}
