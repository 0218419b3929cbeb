package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/breatheroute/routeexposure/internal/api/models"
	"github.com/breatheroute/routeexposure/internal/api/response"
	"github.com/breatheroute/routeexposure/internal/exposure"
	"github.com/breatheroute/routeexposure/internal/geocoding"
	"github.com/breatheroute/routeexposure/internal/planner"
	"github.com/breatheroute/routeexposure/internal/routing"
	"github.com/breatheroute/routeexposure/internal/telemetry"
	"github.com/breatheroute/routeexposure/pkg/polyline"
)

// PlanService computes scored route plans. *planner.Planner satisfies it.
type PlanService interface {
	Plan(ctx context.Context, req planner.Request) (*planner.Plan, error)
}

// PlaceResolver turns free-text input into a place. *geocoding.Service satisfies it.
type PlaceResolver interface {
	Resolve(ctx context.Context, input string) (geocoding.Place, error)
}

// HeatmapService builds heatmap points for a route. *exposure.HeatmapBuilder satisfies it.
type HeatmapService interface {
	Build(ctx context.Context, route routing.Route) ([]exposure.HeatPoint, error)
}

// PlanRecorder records plan outcomes. *telemetry.PlanMetrics satisfies it.
type PlanRecorder interface {
	RecordPlan(ctx context.Context, preference, outcome string, d time.Duration, options int)
}

// RouteHandler handles route computation and heatmap requests.
type RouteHandler struct {
	planner  PlanService
	resolver PlaceResolver
	heatmap  HeatmapService
	metrics  PlanRecorder
}

// NewRouteHandler creates a RouteHandler. resolver and metrics may be nil;
// without a resolver only coordinate endpoints are accepted.
func NewRouteHandler(p PlanService, resolver PlaceResolver, heatmap HeatmapService, metrics PlanRecorder) *RouteHandler {
	return &RouteHandler{
		planner:  p,
		resolver: resolver,
		heatmap:  heatmap,
		metrics:  metrics,
	}
}

// ComputeRoutes handles POST /v1/routes:compute.
func (h *RouteHandler) ComputeRoutes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := zerolog.Ctx(ctx)

	var req models.RouteComputeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	origin, ok := h.endpoint(w, r, "origin", req.Origin, req.OriginQuery)
	if !ok {
		return
	}
	destination, ok := h.endpoint(w, r, "destination", req.Destination, req.DestinationQuery)
	if !ok {
		return
	}

	profile, err := routing.ParseProfile(req.Profile)
	if err != nil {
		response.BadRequest(w, r, err.Error(), []models.FieldError{{Field: "profile", Message: "is not supported", Code: "oneof"}})
		return
	}
	preference, err := exposure.ParsePreference(req.Preference)
	if err != nil {
		response.BadRequest(w, r, err.Error(), []models.FieldError{{Field: "preference", Message: "is not supported", Code: "oneof"}})
		return
	}

	start := time.Now()
	plan, err := h.planner.Plan(ctx, planner.Request{
		Origin:      origin,
		Destination: destination,
		Profile:     profile,
		Preference:  preference,
		Session:     req.SessionID,
	})
	if err != nil {
		outcome := telemetry.OutcomeError
		if errors.Is(err, planner.ErrSuperseded) {
			outcome = telemetry.OutcomeSuperseded
		}
		h.recordPlan(ctx, string(preference), outcome, time.Since(start), 0)
		h.writePlanError(w, r, err)
		return
	}
	h.recordPlan(ctx, string(preference), telemetry.OutcomeOK, time.Since(start), len(plan.Options))

	log.Debug().
		Str("plan_id", plan.ID).
		Int("options", len(plan.Options)).
		Msg("route plan served")

	response.JSON(w, r, http.StatusOK, planResponse(plan, origin, destination))
}

// endpoint resolves one end of the trip from a point or a free-text query.
func (h *RouteHandler) endpoint(w http.ResponseWriter, r *http.Request, field string, p *models.Point, query string) (polyline.Coordinate, bool) {
	if p != nil {
		return polyline.Coordinate{Lat: p.Lat, Lon: p.Lon}, true
	}

	if c, ok := geocoding.ParseLatLon(query); ok {
		return c, true
	}
	if h.resolver == nil {
		response.BadRequest(w, r, field+" must be a coordinate", []models.FieldError{{Field: field, Message: "is required", Code: "required"}})
		return polyline.Coordinate{}, false
	}

	place, err := h.resolver.Resolve(r.Context(), query)
	switch {
	case err == nil:
		return place.Coordinate, true
	case errors.Is(err, geocoding.ErrNotFound), errors.Is(err, geocoding.ErrEmptyQuery):
		response.Unprocessable(w, r, "could not resolve "+field+" "+strings.TrimSpace(query))
	case errors.Is(err, context.Canceled):
	default:
		zerolog.Ctx(r.Context()).Warn().Err(err).Str("field", field).Msg("geocoding failed")
		response.ServiceUnavailable(w, r, "geocoding is temporarily unavailable")
	}
	return polyline.Coordinate{}, false
}

func (h *RouteHandler) writePlanError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, context.Canceled):
		// Client went away; nothing to write.
	case errors.Is(err, planner.ErrSuperseded):
		response.Superseded(w, r, "a newer route request replaced this one")
	case errors.Is(err, routing.ErrNoRouteFound):
		response.NotFound(w, r, "no route found between origin and destination")
	case errors.Is(err, routing.ErrInvalidCoordinates), errors.Is(err, routing.ErrUnsupportedProfile),
		errors.Is(err, exposure.ErrUnknownPreference):
		response.BadRequest(w, r, err.Error(), nil)
	case errors.Is(err, routing.ErrProviderUnavailable), errors.Is(err, context.DeadlineExceeded):
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("routing unavailable")
		response.ServiceUnavailable(w, r, "routing is temporarily unavailable")
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("route plan failed")
		response.InternalError(w, r, "failed to compute routes")
	}
}

func (h *RouteHandler) recordPlan(ctx context.Context, preference, outcome string, d time.Duration, options int) {
	if h.metrics != nil {
		h.metrics.RecordPlan(ctx, preference, outcome, d, options)
	}
}

func planResponse(plan *planner.Plan, origin, destination polyline.Coordinate) models.RouteComputeResponse {
	options := make([]models.RouteOption, len(plan.Options))
	for i, opt := range plan.Options {
		options[i] = models.RouteOption{
			ID:                        opt.ID,
			Index:                     opt.Route.Index,
			Summary:                   opt.Route.Summary,
			DurationSeconds:           opt.Route.DurationSeconds,
			DistanceMeters:            opt.Route.DistanceMeters,
			Geometry:                  opt.Route.Geometry,
			GeometryPrecision:         precisionDigits(opt.Route.Precision),
			Exposure:                  opt.Score.Exposure,
			ExposurePerHour:           opt.Score.ExposurePerHour,
			ValidSamples:              opt.Score.ValidSamples,
			TotalSamples:              opt.Score.TotalSamples,
			Confidence:                confidence(opt.Score.Confidence),
			RelativeDifferencePercent: opt.Relative,
			RelativeText:              opt.RelativeText,
			IsFastest:                 opt.IsFastest,
			IsHealthiest:              opt.IsHealthiest,
			Selected:                  i == plan.Selected,
		}
	}

	return models.RouteComputeResponse{
		PlanID:      plan.ID,
		GeneratedAt: models.Timestamp(plan.ComputedAt),
		Provider:    plan.Provider,
		Preference:  string(plan.Preference),
		Origin:      models.Point{Lat: origin.Lat, Lon: origin.Lon},
		Destination: models.Point{Lat: destination.Lat, Lon: destination.Lon},
		Options:     options,
		SelectedID:  plan.SelectedOption().ID,
		Disclaimer:  plan.Disclaimer,
	}
}

func precisionDigits(p float64) int {
	if p == polyline.Precision6 {
		return 6
	}
	return 5
}

func precisionFactor(digits int) float64 {
	if digits == 6 {
		return polyline.Precision6
	}
	return polyline.Precision5
}

func confidence(c exposure.Confidence) models.Confidence {
	if c == exposure.ConfidenceHigh {
		return models.ConfidenceHigh
	}
	return models.ConfidenceLow
}

// Heatmap handles POST /v1/routes:heatmap.
func (h *RouteHandler) Heatmap(w http.ResponseWriter, r *http.Request) {
	var req models.HeatmapRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	route := routing.Route{
		Geometry:  req.Geometry,
		Precision: precisionFactor(req.Precision),
	}
	if _, err := route.Coordinates(); err != nil {
		response.BadRequest(w, r, "geometry is not a valid encoded polyline",
			[]models.FieldError{{Field: "geometry", Message: "is invalid", Code: "polyline"}})
		return
	}

	points, err := h.heatmap.Build(r.Context(), route)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("heatmap failed")
		response.InternalError(w, r, "failed to build heatmap")
		return
	}

	out := make([]models.HeatPoint, len(points))
	for i, p := range points {
		out[i] = models.HeatPoint{Lat: p.Lat, Lon: p.Lon, Intensity: p.Intensity}
	}
	response.JSON(w, r, http.StatusOK, models.HeatmapResponse{Points: out})
}
