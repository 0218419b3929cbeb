package middleware

import (
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records HTTP server instruments labelled by matched route.
type Metrics struct {
	duration metric.Float64Histogram
	total    metric.Int64Counter
	inFlight metric.Int64UpDownCounter
	size     metric.Int64Histogram
}

// NewMetrics registers the HTTP instruments on the global meter.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(instrumentationName)

	duration, err := meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("Duration of HTTP server requests"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	total, err := meter.Int64Counter(
		"http.server.request.total",
		metric.WithDescription("HTTP server requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}
	inFlight, err := meter.Int64UpDownCounter(
		"http.server.requests_in_flight",
		metric.WithDescription("HTTP requests currently being served"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}
	size, err := meter.Int64Histogram(
		"http.server.response.size",
		metric.WithDescription("Size of HTTP response bodies"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{duration: duration, total: total, inFlight: inFlight, size: size}, nil
}

// Middleware records one observation per request.
func (m *Metrics) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := r.Context()
			methodAttr := metric.WithAttributes(attribute.String("http.request.method", r.Method))

			m.inFlight.Add(ctx, 1, methodAttr)
			defer m.inFlight.Add(ctx, -1, methodAttr)

			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)

			attrs := metric.WithAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("http.route", routePattern(r)),
				attribute.String("http.response.status_code", strconv.Itoa(rec.status)),
				attribute.Bool("error", rec.status >= http.StatusBadRequest),
			)
			m.duration.Record(ctx, time.Since(start).Seconds(), attrs)
			m.total.Add(ctx, 1, attrs)
			m.size.Record(ctx, rec.written, attrs)
		})
	}
}
