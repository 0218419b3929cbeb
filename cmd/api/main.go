// Package main provides the entrypoint for the route exposure API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/breatheroute/routeexposure/internal/airquality"
	"github.com/breatheroute/routeexposure/internal/airquality/aggregator"
	"github.com/breatheroute/routeexposure/internal/airquality/openmeteo"
	"github.com/breatheroute/routeexposure/internal/api"
	"github.com/breatheroute/routeexposure/internal/api/handler"
	"github.com/breatheroute/routeexposure/internal/api/middleware"
	"github.com/breatheroute/routeexposure/internal/config"
	"github.com/breatheroute/routeexposure/internal/exposure"
	"github.com/breatheroute/routeexposure/internal/geocoding"
	"github.com/breatheroute/routeexposure/internal/geocoding/nominatim"
	"github.com/breatheroute/routeexposure/internal/planner"
	"github.com/breatheroute/routeexposure/internal/provider/resilience"
	"github.com/breatheroute/routeexposure/internal/routing"
	"github.com/breatheroute/routeexposure/internal/routing/osrm"
	"github.com/breatheroute/routeexposure/internal/telemetry"
	"github.com/breatheroute/routeexposure/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", telemetry.ServiceName).
		Str("version", Version).
		Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log = log.Level(level)

	log.Info().
		Str("build_time", BuildTime).
		Str("env", cfg.Environment).
		Msg("starting route exposure API")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if tp.Enabled() {
		log.Info().
			Str("otlp_endpoint", cfg.Telemetry.OTLPEndpoint).
			Msg("OpenTelemetry initialized")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		stop()
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	httpMetrics, err := middleware.NewMetrics()
	if err != nil {
		return err
	}
	providerMetrics, err := telemetry.NewProviderMetrics()
	if err != nil {
		return err
	}
	planMetrics, err := telemetry.NewPlanMetrics()
	if err != nil {
		return err
	}

	registry := resilience.NewRegistry()

	// Routing
	profiles := make([]routing.RouteProfile, 0, len(cfg.Routing.Profiles))
	for _, p := range cfg.Routing.Profiles {
		profiles = append(profiles, routing.RouteProfile(p))
	}
	routingService := routing.NewService(routing.ServiceConfig{
		Provider: osrm.NewClient(osrm.ClientConfig{
			BaseURL:    cfg.Routing.BaseURL,
			Geometries: cfg.Routing.Geometries,
			Profiles:   profiles,
			Timeout:    cfg.Routing.Timeout,
			Registry:   registry,
			Logger:     log,
		}),
		Logger:   log,
		CacheTTL: cfg.Routing.CacheTTL,
	})

	// Pollutant readings
	var batch airquality.BatchProvider
	if cfg.AirQuality.AggregatorURL != "" {
		agg, err := aggregator.NewClient(aggregator.ClientConfig{
			BaseURL:  cfg.AirQuality.AggregatorURL,
			Timeout:  cfg.AirQuality.FetchTimeout,
			Registry: registry,
		})
		if err != nil {
			return err
		}
		batch = agg
		log.Info().Str("url", cfg.AirQuality.AggregatorURL).Msg("exposure aggregator enabled")
	}

	readingCache := airquality.NewCache(airquality.CacheConfig{
		GridDegrees: cfg.AirQuality.CacheGrid,
		TTL:         cfg.AirQuality.CacheTTL,
		MaxEntries:  cfg.AirQuality.CacheMaxEntries,
	})
	airService := airquality.NewService(airquality.ServiceConfig{
		Provider: openmeteo.NewClient(openmeteo.ClientConfig{
			BaseURL:  cfg.AirQuality.OpenMeteoBaseURL,
			Timeout:  cfg.AirQuality.FetchTimeout,
			Registry: registry,
		}),
		Batch:       batch,
		Cache:       readingCache,
		Logger:      log,
		Timeout:     cfg.AirQuality.FetchTimeout,
		Concurrency: cfg.AirQuality.Concurrency,
		Metrics:     providerMetrics,
	})

	// Geocoding
	geocoder := geocoding.NewService(geocoding.ServiceConfig{
		Geocoder: nominatim.NewClient(nominatim.ClientConfig{
			BaseURL:   cfg.Geocoding.BaseURL,
			UserAgent: cfg.Geocoding.UserAgent,
			Registry:  registry,
		}),
		Logger:   log,
		CacheTTL: cfg.Geocoding.CacheTTL,
	})

	// Scoring
	calculator := exposure.NewCalculator(exposure.Config{
		Alpha:                    cfg.Exposure.Alpha,
		LongRouteThreshold:       cfg.Exposure.LongRouteThreshold,
		LongRouteInterval:        cfg.Exposure.LongRouteInterval,
		ShortRouteInterval:       cfg.Exposure.ShortRouteInterval,
		MinHighConfidenceSamples: cfg.Exposure.MinHighConfidence,
	}, airService, log)

	routePlanner := planner.New(planner.Config{
		Routes: routingService,
		Scorer: calculator,
		Logger: log,
	})

	ops := handler.OpsConfig{
		Version:      Version,
		BuildTime:    BuildTime,
		Registry:     registry,
		ReadingCache: readingCache,
		RouteCache:   routingService,
	}

	if cfg.Warmup.Enabled {
		points, err := cfg.Warmup.ParsePoints()
		if err != nil {
			return err
		}
		warmup := worker.NewWarmupJob(worker.WarmupJobConfig{
			Config: worker.WarmupConfig{
				Targets:     worker.TargetsFromPoints(points),
				Concurrency: cfg.Warmup.Concurrency,
				Interval:    cfg.Warmup.Interval,
			},
			Readings: airService,
			Cache:    readingCache,
			Logger:   log,
		})
		ops.Warmup = warmup
		go warmup.Start(ctx)
		log.Info().Dur("interval", cfg.Warmup.Interval).Msg("cache warm-up started")
	}

	router, err := api.NewRouter(api.RouterConfig{
		Version:    Version,
		BuildTime:  BuildTime,
		Logger:     log,
		Metrics:    httpMetrics,
		RequireTLS: cfg.RequireTLS,
		Planner:    routePlanner,
		Resolver:   geocoder,
		Searcher:   geocoder,
		Heatmap:    exposure.NewHeatmapBuilder(airService, cfg.Exposure.HeatmapStride),
		Readings:   airService,
		Plans:      planMetrics,
		Ops:        ops,
	})
	if err != nil {
		return err
	}

	// A plan fans out to many upstream calls; WriteTimeout covers the worst case.
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}
