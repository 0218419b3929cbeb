// Package nominatim provides a geocoder backed by the OpenStreetMap Nominatim API.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/breatheroute/routeexposure/internal/geocoding"
	"github.com/breatheroute/routeexposure/internal/provider/resilience"
	"github.com/breatheroute/routeexposure/pkg/polyline"
)

const (
	// ProviderName identifies this provider.
	ProviderName = "nominatim"

	// DefaultBaseURL is the public Nominatim instance.
	DefaultBaseURL = "https://nominatim.openstreetmap.org"

	// DefaultUserAgent identifies this service; the public instance rejects
	// requests without one.
	DefaultUserAgent = "routeexposure/1.0"
)

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the Nominatim client.
type ClientConfig struct {
	BaseURL        string
	UserAgent      string
	AcceptLanguage string // default: en
	HTTPClient     HTTPDoer
	Timeout        time.Duration
	Registry       *resilience.Registry
}

// Client is a Nominatim search client.
type Client struct {
	baseURL        string
	userAgent      string
	acceptLanguage string
	httpClient     HTTPDoer
}

// NewClient creates a new Nominatim client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	acceptLanguage := cfg.AcceptLanguage
	if acceptLanguage == "" {
		acceptLanguage = "en"
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		if cfg.Timeout > 0 {
			clientCfg.Timeout = cfg.Timeout
		}
		clientCfg.Registry = cfg.Registry
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		baseURL:        strings.TrimSuffix(baseURL, "/"),
		userAgent:      userAgent,
		acceptLanguage: acceptLanguage,
		httpClient:     httpClient,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// Nominatim returns coordinates as strings.
type searchResult struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
}

// Search queries /search with format=jsonv2.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]geocoding.Place, error) {
	params := url.Values{}
	params.Set("format", "jsonv2")
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Language", c.acceptLanguage)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &geocoding.Error{
			Provider: ProviderName,
			Code:     "NETWORK_ERROR",
			Message:  "failed to reach geocoder",
			Err:      fmt.Errorf("%w: %v", geocoding.ErrProviderUnavailable, err),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &geocoding.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("HTTP_%d", resp.StatusCode),
			Message:  "unexpected geocoder response",
			Err:      geocoding.ErrProviderUnavailable,
		}
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, &geocoding.Error{
			Provider: ProviderName,
			Code:     "PARSE_ERROR",
			Message:  "failed to parse geocoder response",
			Err:      err,
		}
	}

	places := make([]geocoding.Place, 0, len(results))
	for _, r := range results {
		lat, latErr := strconv.ParseFloat(r.Lat, 64)
		lon, lonErr := strconv.ParseFloat(r.Lon, 64)
		if latErr != nil || lonErr != nil {
			continue
		}
		places = append(places, geocoding.Place{
			Label:      r.DisplayName,
			Coordinate: polyline.Coordinate{Lat: lat, Lon: lon},
		})
	}
	return places, nil
}
