package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/breatheroute/routeexposure/internal/api/models"
)

// RateLimitConfig is a fixed-window request budget per client IP.
type RateLimitConfig struct {
	RequestLimit int
	WindowLength time.Duration
}

var (
	// ComputeRateLimit covers routing, scoring and heatmaps (30 req/min).
	ComputeRateLimit = RateLimitConfig{RequestLimit: 30, WindowLength: time.Minute}

	// StandardRateLimit covers lookups such as geocoding (100 req/min).
	StandardRateLimit = RateLimitConfig{RequestLimit: 100, WindowLength: time.Minute}
)

// RateLimitByIP limits by the client IP resolved by chi's RealIP middleware.
func RateLimitByIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	retryAfter := strconv.Itoa(int(cfg.WindowLength.Seconds()))
	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			// httprate does not expose the window reset; the full window is an upper bound.
			w.Header().Set("Retry-After", retryAfter)
			models.NewTooManyRequests(GetRequestID(r.Context()), "rate limit exceeded, try again later").
				WithInstance(r.URL.Path).
				Write(w)
		}),
	)
}
