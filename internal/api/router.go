// Package api provides the HTTP API for route exposure scoring.
package api

import (
	"fmt"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/breatheroute/routeexposure/internal/api/handler"
	"github.com/breatheroute/routeexposure/internal/api/middleware"
	"github.com/breatheroute/routeexposure/internal/exposure"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version    string
	BuildTime  string
	Logger     zerolog.Logger
	Metrics    *middleware.Metrics
	RequireTLS bool

	// CompressMinSize is the smallest response body that is gzipped
	// (default: middleware.DefaultCompressMinSize).
	CompressMinSize int

	Planner  handler.PlanService
	Resolver handler.PlaceResolver
	Searcher handler.PlaceSearcher
	Heatmap  handler.HeatmapService
	Readings exposure.ReadingSource
	Plans    handler.PlanRecorder
	Ops      handler.OpsConfig
}

// NewRouter creates a chi router with all API routes configured.
func NewRouter(cfg RouterConfig) (*chi.Mux, error) {
	minSize := cfg.CompressMinSize
	if minSize <= 0 {
		minSize = middleware.DefaultCompressMinSize
	}
	compress, err := middleware.Compress(minSize)
	if err != nil {
		return nil, fmt.Errorf("compression middleware: %w", err)
	}

	r := chi.NewRouter()

	// Global middleware - order matters
	r.Use(middleware.RequestID) // Generate/propagate request ID first
	r.Use(middleware.Tracing())
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(compress)

	opsHandler := handler.NewOpsHandler(cfg.Ops)
	routeHandler := handler.NewRouteHandler(cfg.Planner, cfg.Resolver, cfg.Heatmap, cfg.Plans)
	exposureHandler := handler.NewExposureHandler(cfg.Readings)
	geocodeHandler := handler.NewGeocodeHandler(cfg.Searcher)

	computeRateLimit := middleware.RateLimitByIP(middleware.ComputeRateLimit)   // 30 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit) // 100 req/min

	r.Route("/v1", func(r chi.Router) {
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		// Scoring endpoints fan out to upstream providers
		r.Group(func(r chi.Router) {
			r.Use(computeRateLimit)
			r.Use(middleware.RequireJSON)
			r.Post("/routes:compute", routeHandler.ComputeRoutes)
			r.Post("/routes:heatmap", routeHandler.Heatmap)
			r.Post("/exposure", exposureHandler.Aggregate)
		})

		if cfg.Searcher != nil {
			r.With(standardRateLimit).Get("/geocode", geocodeHandler.Search)
		}
	})

	return r, nil
}
