// Package openmeteo provides a pollutant provider backed by the Open-Meteo
// Air Quality API.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/breatheroute/routeexposure/internal/airquality"
	"github.com/breatheroute/routeexposure/internal/provider/resilience"
	"github.com/breatheroute/routeexposure/pkg/polyline"
)

const (
	// DefaultBaseURL is the base URL for the Open-Meteo Air Quality API.
	DefaultBaseURL = "https://air-quality-api.open-meteo.com"

	// ProviderName identifies this provider.
	ProviderName = "open-meteo"
)

// ClientConfig holds configuration for the Open-Meteo client.
type ClientConfig struct {
	// BaseURL is the API base URL (defaults to DefaultBaseURL).
	BaseURL string

	// HTTPClient is the HTTP client to use.
	// If nil, a default resilient client will be created.
	HTTPClient HTTPDoer

	// Timeout for individual API requests (default: 5s).
	Timeout time.Duration

	// Registry receives health updates for the default resilient client. Optional.
	Registry *resilience.Registry
}

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is an Open-Meteo Air Quality API client.
type Client struct {
	baseURL    string
	httpClient HTTPDoer
}

// NewClient creates a new Open-Meteo client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 5 * time.Second
		}
		httpClient = resilience.NewClient(resilience.ClientConfig{
			Name:            ProviderName,
			Timeout:         timeout,
			MaxRetries:      2,
			InitialInterval: 200 * time.Millisecond,
			MaxInterval:     2 * time.Second,
			Breaker:         resilience.DefaultBreakerConfig(),
			Registry:        cfg.Registry,
		})
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

// airQualityResponse is the subset of the /v1/air-quality payload we read.
// Current values are null when the model has no data for the cell.
type airQualityResponse struct {
	Current *struct {
		Time            string   `json:"time"`
		PM25            *float64 `json:"pm2_5"`
		NitrogenDioxide *float64 `json:"nitrogen_dioxide"`
	} `json:"current"`
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// FetchReading fetches the current-hour PM2.5 and NO2 values at coord.
func (c *Client) FetchReading(ctx context.Context, coord polyline.Coordinate) (*airquality.Reading, error) {
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(coord.Lat, 'f', 5, 64))
	params.Set("longitude", strconv.FormatFloat(coord.Lon, 'f', 5, 64))
	params.Set("current", "pm2_5,nitrogen_dioxide")

	reqURL := c.baseURL + "/v1/air-quality?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", airquality.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d from air-quality endpoint", airquality.ErrProviderUnavailable, resp.StatusCode)
	}

	var result airQualityResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode air-quality response: %w", err)
	}

	return currentReading(&result)
}

func currentReading(r *airQualityResponse) (*airquality.Reading, error) {
	if r.Current == nil {
		return nil, airquality.ErrNoData
	}

	reading := &airquality.Reading{
		PM25: r.Current.PM25,
		NO2:  r.Current.NitrogenDioxide,
	}
	if !reading.Usable() {
		return nil, airquality.ErrNoData
	}
	return reading, nil
}
