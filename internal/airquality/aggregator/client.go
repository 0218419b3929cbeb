// Package aggregator is a batch pollutant provider that talks to a remote
// exposure aggregation endpoint (POST /v1/exposure).
package aggregator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/breatheroute/routeexposure/internal/airquality"
	"github.com/breatheroute/routeexposure/internal/provider/resilience"
	"github.com/breatheroute/routeexposure/pkg/polyline"
)

// ProviderName identifies this provider.
const ProviderName = "exposure-aggregator"

// ErrNoBaseURL is returned by NewClient when no endpoint is configured.
var ErrNoBaseURL = errors.New("aggregator base URL is required")

// ClientConfig holds configuration for the aggregator client.
type ClientConfig struct {
	// BaseURL is the aggregation service base URL. Required.
	BaseURL string

	// HTTPClient is the HTTP client to use.
	// If nil, a default resilient client will be created.
	HTTPClient HTTPDoer

	// Timeout for a batch request (default: 5s).
	Timeout time.Duration

	// Registry receives the default resilient client for health reporting. Optional.
	Registry *resilience.Registry
}

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client implements airquality.BatchProvider.
type Client struct {
	endpoint   string
	httpClient HTTPDoer
}

// NewClient creates a new aggregator client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, ErrNoBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 5 * time.Second
		}
		// Batches are not retried: the caller falls back to per-point fetches.
		httpClient = resilience.NewClient(resilience.ClientConfig{
			Name:       ProviderName,
			Timeout:    timeout,
			MaxRetries: 0,
			Breaker:    resilience.DefaultBreakerConfig(),
			Registry:   cfg.Registry,
		})
	}

	return &Client{
		endpoint:   strings.TrimSuffix(cfg.BaseURL, "/") + "/v1/exposure",
		httpClient: httpClient,
	}, nil
}

type point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type exposureRequest struct {
	Points []point `json:"points"`
}

type pointReading struct {
	PM25 *float64 `json:"pm2_5"`
	NO2  *float64 `json:"no2"`
}

type exposureResponse struct {
	Points  []pointReading `json:"points"`
	AvgPM25 *float64       `json:"avg_pm2_5"`
	AvgNO2  *float64       `json:"avg_no2"`
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// FetchReadings posts coords to the aggregation endpoint and returns one
// reading per coordinate, in order. Points with no values map to nil.
func (c *Client) FetchReadings(ctx context.Context, coords []polyline.Coordinate) ([]*airquality.Reading, error) {
	body := exposureRequest{Points: make([]point, len(coords))}
	for i, coord := range coords {
		body.Points[i] = point{Lat: coord.Lat, Lon: coord.Lon}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post exposure batch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d from exposure endpoint", airquality.ErrProviderUnavailable, resp.StatusCode)
	}

	var result exposureResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode exposure response: %w", err)
	}

	if len(result.Points) != len(coords) {
		return nil, fmt.Errorf("%w: sent %d points, got %d", airquality.ErrBatchMismatch, len(coords), len(result.Points))
	}

	readings := make([]*airquality.Reading, len(result.Points))
	for i, p := range result.Points {
		r := &airquality.Reading{PM25: p.PM25, NO2: p.NO2}
		if r.Usable() {
			readings[i] = r
		}
	}
	return readings, nil
}
