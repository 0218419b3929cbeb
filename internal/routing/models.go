// Package routing provides route alternatives between two points from an
// external routing engine.
package routing

import (
	"context"
	"errors"
	"time"

	"github.com/breatheroute/routeexposure/pkg/polyline"
)

// Sentinel errors for routing operations.
var (
	// ErrProviderUnavailable indicates the routing provider is down or the circuit breaker is open.
	ErrProviderUnavailable = errors.New("routing provider unavailable")
	// ErrNoRouteFound indicates no valid route exists between the given points.
	ErrNoRouteFound = errors.New("no route found between the given points")
	// ErrInvalidCoordinates indicates the provided coordinates are invalid or out of range.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	// ErrUnsupportedProfile indicates the provider cannot route the requested mode.
	ErrUnsupportedProfile = errors.New("unsupported route profile")
)

// Provider defines the interface for routing providers.
type Provider interface {
	// GetDirections retrieves route directions between two points.
	// Returns multiple route alternatives when available.
	GetDirections(ctx context.Context, req DirectionsRequest) (*DirectionsResponse, error)
	// Name returns the provider identifier for logging and metrics.
	Name() string
	// SupportedProfiles returns the list of route profiles this provider supports.
	SupportedProfiles() []RouteProfile
}

// RouteProfile represents a routing profile (mode of transport).
type RouteProfile string

const (
	ProfileDriving RouteProfile = "driving"
	ProfileCycling RouteProfile = "cycling"
	ProfileFoot    RouteProfile = "foot"
)

// ParseProfile maps a profile name to a RouteProfile. Empty means driving.
func ParseProfile(s string) (RouteProfile, error) {
	switch RouteProfile(s) {
	case "":
		return ProfileDriving, nil
	case ProfileDriving, ProfileCycling, ProfileFoot:
		return RouteProfile(s), nil
	default:
		return "", ErrUnsupportedProfile
	}
}

// DirectionsRequest is the request for computing routes.
type DirectionsRequest struct {
	Origin       polyline.Coordinate
	Destination  polyline.Coordinate
	Profile      RouteProfile
	Alternatives bool
}

// DirectionsResponse is the response containing route alternatives.
type DirectionsResponse struct {
	Routes    []Route
	Provider  string
	FetchedAt time.Time
}

// Route is a single route option as returned by the routing engine.
type Route struct {
	Index           int     // Position in the provider response
	Geometry        string  // Encoded polyline
	Precision       float64 // Polyline precision factor (polyline.Precision5 or Precision6)
	DistanceMeters  float64
	DurationSeconds float64
	Summary         string
}

// Coordinates decodes the route geometry using its precision.
func (r *Route) Coordinates() ([]polyline.Coordinate, error) {
	return polyline.DecodeWithPrecision(r.Geometry, r.Precision)
}

// Error provides detailed error information from the routing provider.
type Error struct {
	Provider string // Provider that generated the error
	Code     string // Error code from the provider
	Message  string // Human-readable error message
	Err      error  // Underlying error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is transient and the request can be retried.
func (e *Error) IsRetryable() bool {
	return errors.Is(e.Err, ErrProviderUnavailable)
}
