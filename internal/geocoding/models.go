// Package geocoding resolves free-text place queries to coordinates.
package geocoding

import (
	"context"
	"errors"

	"github.com/breatheroute/routeexposure/pkg/polyline"
)

// Sentinel errors for geocoding operations.
var (
	ErrEmptyQuery          = errors.New("empty geocoding query")
	ErrNotFound            = errors.New("place not found")
	ErrProviderUnavailable = errors.New("geocoding provider unavailable")
)

// Place is a labelled location returned by a geocoder.
type Place struct {
	Label      string
	Coordinate polyline.Coordinate
}

// Geocoder searches places by free text.
type Geocoder interface {
	Search(ctx context.Context, query string, limit int) ([]Place, error)
	Name() string
}

// Error provides detailed error information from the geocoding provider.
type Error struct {
	Provider string
	Code     string
	Message  string
	Err      error
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
