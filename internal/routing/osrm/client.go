// Package osrm provides a client for the OSRM route service.
package osrm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/breatheroute/routeexposure/internal/provider/resilience"
	"github.com/breatheroute/routeexposure/internal/routing"
	"github.com/breatheroute/routeexposure/pkg/polyline"
)

const (
	// ProviderName identifies this routing provider.
	ProviderName = "osrm"

	// DefaultBaseURL is the public OSRM demo server.
	DefaultBaseURL = "https://router.project-osrm.org"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second
)

// Geometry formats accepted by OSRM.
const (
	GeometryPolyline  = "polyline"
	GeometryPolyline6 = "polyline6"
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the OSRM client.
type ClientConfig struct {
	// BaseURL is the OSRM server base URL (optional, defaults to the public demo server).
	BaseURL string

	// Geometries selects the polyline encoding (default: polyline).
	Geometries string

	// Profiles overrides the profiles this server can route.
	// The public demo server only serves driving.
	Profiles []routing.RouteProfile

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional, defaults to 10s).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is an OSRM route service client.
type Client struct {
	baseURL    string
	geometries string
	precision  float64
	profiles   []routing.RouteProfile
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new OSRM client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	geometries := cfg.Geometries
	precision := polyline.Precision5
	if geometries == GeometryPolyline6 {
		precision = polyline.Precision6
	} else {
		geometries = GeometryPolyline
	}

	profiles := cfg.Profiles
	if len(profiles) == 0 {
		profiles = []routing.RouteProfile{routing.ProfileDriving, routing.ProfileCycling, routing.ProfileFoot}
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Timeout = timeout
		clientCfg.Registry = cfg.Registry
		clientCfg.Logger = cfg.Logger
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		geometries: geometries,
		precision:  precision,
		profiles:   profiles,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// SupportedProfiles returns the supported routing profiles.
func (c *Client) SupportedProfiles() []routing.RouteProfile {
	return c.profiles
}

type routeResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Routes  []osrmRoute `json:"routes"`
}

type osrmRoute struct {
	Geometry string    `json:"geometry"`
	Distance float64   `json:"distance"`
	Duration float64   `json:"duration"`
	Legs     []osrmLeg `json:"legs"`
}

type osrmLeg struct {
	Summary string `json:"summary"`
}

// GetDirections retrieves route alternatives between two points.
func (c *Client) GetDirections(ctx context.Context, req routing.DirectionsRequest) (*routing.DirectionsResponse, error) {
	profile := req.Profile
	if profile == "" {
		profile = routing.ProfileDriving
	}

	reqURL := c.buildURL(profile, req)

	c.logger.Debug().
		Str("url", reqURL).
		Str("profile", string(profile)).
		Msg("requesting OSRM route")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "REQUEST_ERROR",
			Message:  "failed to create request",
			Err:      err,
		}
	}
	httpReq.Header.Set("Accept", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "NETWORK_ERROR",
			Message:  "failed to reach routing service",
			Err:      fmt.Errorf("%w: %v", routing.ErrProviderUnavailable, err),
		}
	}
	defer httpResp.Body.Close()

	var body routeResponse
	decodeErr := json.NewDecoder(httpResp.Body).Decode(&body)

	if httpResp.StatusCode >= 500 {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("HTTP_%d", httpResp.StatusCode),
			Message:  "routing service error",
			Err:      routing.ErrProviderUnavailable,
		}
	}
	if decodeErr != nil {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "PARSE_ERROR",
			Message:  "failed to parse routing response",
			Err:      decodeErr,
		}
	}
	if body.Code != "Ok" {
		return nil, c.codeError(body)
	}
	if len(body.Routes) == 0 {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "NoRoute",
			Message:  "no routes in response",
			Err:      routing.ErrNoRouteFound,
		}
	}

	routes := make([]routing.Route, len(body.Routes))
	for i, r := range body.Routes {
		routes[i] = routing.Route{
			Index:           i,
			Geometry:        r.Geometry,
			Precision:       c.precision,
			DistanceMeters:  r.Distance,
			DurationSeconds: r.Duration,
			Summary:         summary(r.Legs),
		}
	}

	return &routing.DirectionsResponse{
		Routes:    routes,
		Provider:  ProviderName,
		FetchedAt: time.Now(),
	}, nil
}

// buildURL formats /route/v1/{profile}/{lon},{lat};{lon},{lat}.
func (c *Client) buildURL(profile routing.RouteProfile, req routing.DirectionsRequest) string {
	coords := formatCoord(req.Origin) + ";" + formatCoord(req.Destination)

	params := url.Values{}
	params.Set("overview", "full")
	params.Set("geometries", c.geometries)
	params.Set("alternatives", strconv.FormatBool(req.Alternatives))
	params.Set("steps", "false")

	return fmt.Sprintf("%s/route/v1/%s/%s?%s", c.baseURL, profile, coords, params.Encode())
}

func (c *Client) codeError(body routeResponse) error {
	var sentinel error
	switch body.Code {
	case "NoRoute", "NoSegment":
		sentinel = routing.ErrNoRouteFound
	case "InvalidValue", "InvalidQuery", "InvalidUrl":
		sentinel = routing.ErrInvalidCoordinates
	default:
		sentinel = routing.ErrProviderUnavailable
	}

	msg := body.Message
	if msg == "" {
		msg = "routing service returned " + body.Code
	}

	return &routing.Error{
		Provider: ProviderName,
		Code:     body.Code,
		Message:  msg,
		Err:      sentinel,
	}
}

func formatCoord(c polyline.Coordinate) string {
	return strconv.FormatFloat(c.Lon, 'f', 6, 64) + "," + strconv.FormatFloat(c.Lat, 'f', 6, 64)
}

func summary(legs []osrmLeg) string {
	parts := make([]string, 0, len(legs))
	for _, l := range legs {
		if l.Summary != "" {
			parts = append(parts, l.Summary)
		}
	}
	return strings.Join(parts, "; ")
}
