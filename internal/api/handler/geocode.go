package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/breatheroute/routeexposure/internal/api/models"
	"github.com/breatheroute/routeexposure/internal/api/response"
	"github.com/breatheroute/routeexposure/internal/geocoding"
)

const maxGeocodeQuery = 200

// PlaceSearcher searches places by free text. *geocoding.Service satisfies it.
type PlaceSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]geocoding.Place, error)
}

// GeocodeHandler serves place search for the origin and destination inputs.
type GeocodeHandler struct {
	searcher PlaceSearcher
}

// NewGeocodeHandler creates a GeocodeHandler.
func NewGeocodeHandler(searcher PlaceSearcher) *GeocodeHandler {
	return &GeocodeHandler{searcher: searcher}
}

// Search handles GET /v1/geocode?q=...&limit=...
func (h *GeocodeHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		response.BadRequest(w, r, "query parameter q is required",
			[]models.FieldError{{Field: "q", Message: "is required", Code: "required"}})
		return
	}
	if len(query) > maxGeocodeQuery {
		response.BadRequest(w, r, "query parameter q is too long",
			[]models.FieldError{{Field: "q", Message: "must be at most " + strconv.Itoa(maxGeocodeQuery), Code: "max"}})
		return
	}

	limit := geocoding.DefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > geocoding.MaxLimit {
			response.BadRequest(w, r, "limit must be between 1 and "+strconv.Itoa(geocoding.MaxLimit),
				[]models.FieldError{{Field: "limit", Message: "is invalid", Code: "range"}})
			return
		}
		limit = n
	}

	places, err := h.searcher.Search(r.Context(), query, limit)
	switch {
	case err == nil, errors.Is(err, geocoding.ErrNotFound):
	case errors.Is(err, context.Canceled):
		return
	default:
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("geocode search failed")
		response.ServiceUnavailable(w, r, "geocoding is temporarily unavailable")
		return
	}

	resp := models.GeocodeResponse{Query: query, Results: make([]models.GeocodePlace, 0, len(places))}
	for _, p := range places {
		resp.Results = append(resp.Results, models.GeocodePlace{
			Label: p.Label,
			Lat:   p.Coordinate.Lat,
			Lon:   p.Coordinate.Lon,
		})
	}
	response.JSON(w, r, http.StatusOK, resp)
}
