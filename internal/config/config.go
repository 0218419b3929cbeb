// Package config loads service configuration from the environment.
//
// Values are read in priority order: OS environment, then a .env file in the
// working directory, then struct defaults.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/breatheroute/routeexposure/pkg/polyline"
)

// Config is the top-level service configuration.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"development" validate:"oneof=development staging production test"`
	Port        string `envconfig:"APP_PORT" default:"8080" validate:"required,numeric"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=trace debug info warn error"`
	RequireTLS  bool   `envconfig:"REQUIRE_TLS" default:"false"`

	Telemetry  TelemetryConfig
	Routing    RoutingConfig
	AirQuality AirQualityConfig
	Geocoding  GeocodingConfig
	Exposure   ExposureConfig
	Warmup     WarmupConfig
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled      bool   `envconfig:"OTEL_ENABLED" default:"false"`
	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT" default:"localhost:4317" validate:"required"`
}

// RoutingConfig configures the routing engine client.
type RoutingConfig struct {
	BaseURL    string        `envconfig:"OSRM_BASE_URL" default:"https://router.project-osrm.org" validate:"required,url"`
	Geometries string        `envconfig:"OSRM_GEOMETRIES" default:"polyline" validate:"oneof=polyline polyline6"`
	Profiles   []string      `envconfig:"OSRM_PROFILES" default:"driving" validate:"min=1,dive,oneof=driving cycling foot"`
	Timeout    time.Duration `envconfig:"OSRM_TIMEOUT" default:"10s"`
	CacheTTL   time.Duration `envconfig:"ROUTING_CACHE_TTL" default:"5m"`
}

// AirQualityConfig configures pollutant data access and caching.
type AirQualityConfig struct {
	OpenMeteoBaseURL string        `envconfig:"OPEN_METEO_BASE_URL" default:"https://air-quality-api.open-meteo.com" validate:"required,url"`
	AggregatorURL    string        `envconfig:"EXPOSURE_AGGREGATOR_URL" validate:"omitempty,url"`
	FetchTimeout     time.Duration `envconfig:"AQ_FETCH_TIMEOUT" default:"5s" validate:"gt=0"`
	Concurrency      int           `envconfig:"AQ_CONCURRENCY" default:"8" validate:"min=1,max=64"`
	CacheGrid        float64       `envconfig:"AQ_CACHE_GRID" default:"0.03" validate:"gt=0,lte=1"`
	CacheTTL         time.Duration `envconfig:"AQ_CACHE_TTL" default:"6h" validate:"gt=0"`
	CacheMaxEntries  int           `envconfig:"AQ_CACHE_MAX_ENTRIES" default:"50000" validate:"min=0"`
}

// GeocodingConfig configures the geocoder.
type GeocodingConfig struct {
	BaseURL   string        `envconfig:"NOMINATIM_BASE_URL" default:"https://nominatim.openstreetmap.org" validate:"required,url"`
	UserAgent string        `envconfig:"NOMINATIM_USER_AGENT" default:"routeexposure/1.0" validate:"required"`
	CacheTTL  time.Duration `envconfig:"GEOCODE_CACHE_TTL" default:"24h"`
}

// ExposureConfig tunes the exposure model.
type ExposureConfig struct {
	Alpha              float64 `envconfig:"EXPOSURE_NO2_ALPHA" default:"0.1" validate:"gte=0"`
	LongRouteThreshold float64 `envconfig:"EXPOSURE_LONG_ROUTE_M" default:"20000" validate:"gt=0"`
	LongRouteInterval  float64 `envconfig:"EXPOSURE_LONG_INTERVAL_M" default:"25000" validate:"gt=0"`
	ShortRouteInterval float64 `envconfig:"EXPOSURE_SHORT_INTERVAL_M" default:"300" validate:"gt=0"`
	MinHighConfidence  int     `envconfig:"EXPOSURE_MIN_HIGH_CONFIDENCE" default:"3" validate:"min=1"`
	HeatmapStride      int     `envconfig:"HEATMAP_STRIDE" default:"4" validate:"min=1"`
}

// WarmupConfig configures the cache warm-up job.
type WarmupConfig struct {
	Enabled     bool          `envconfig:"WARMUP_ENABLED" default:"false"`
	Interval    time.Duration `envconfig:"WARMUP_INTERVAL" default:"1h" validate:"gt=0"`
	Concurrency int           `envconfig:"WARMUP_CONCURRENCY" default:"3" validate:"min=1"`
	// Points is a ";"-separated list of "lat,lon" pairs. Empty uses the
	// built-in hotspot list.
	Points string `envconfig:"WARMUP_POINTS"`
}

// Error is returned by Load when configuration cannot be read or is invalid.
type Error struct {
	Stage string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("config %s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Load reads configuration from a .env file (if present) and the environment,
// then validates it.
func Load() (*Config, error) {
	// A missing .env file is fine; existing environment variables win.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &Error{Stage: "parse", Err: err}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New()

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return &Error{Stage: "validate", Err: err}
	}
	if c.Exposure.LongRouteInterval <= c.Exposure.ShortRouteInterval {
		return &Error{Stage: "validate", Err: errors.New("EXPOSURE_LONG_INTERVAL_M must exceed EXPOSURE_SHORT_INTERVAL_M")}
	}
	if _, err := c.Warmup.ParsePoints(); err != nil {
		return &Error{Stage: "validate", Err: err}
	}
	return nil
}

// ParsePoints parses the configured warm-up points.
func (w WarmupConfig) ParsePoints() ([]polyline.Coordinate, error) {
	if strings.TrimSpace(w.Points) == "" {
		return nil, nil
	}

	var points []polyline.Coordinate
	for _, pair := range strings.Split(w.Points, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		lat, lon, ok := strings.Cut(pair, ",")
		if !ok {
			return nil, fmt.Errorf("WARMUP_POINTS: %q is not lat,lon", pair)
		}
		latV, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
		if err != nil || latV < -90 || latV > 90 {
			return nil, fmt.Errorf("WARMUP_POINTS: invalid latitude in %q", pair)
		}
		lonV, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
		if err != nil || lonV < -180 || lonV > 180 {
			return nil, fmt.Errorf("WARMUP_POINTS: invalid longitude in %q", pair)
		}
		points = append(points, polyline.Coordinate{Lat: latV, Lon: lonV})
	}
	return points, nil
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
