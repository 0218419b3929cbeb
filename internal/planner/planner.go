// Package planner computes route alternatives, scores their exposure and
// selects one according to the caller's preference.
package planner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/breatheroute/routeexposure/internal/exposure"
	"github.com/breatheroute/routeexposure/internal/routing"
	"github.com/breatheroute/routeexposure/pkg/polyline"
)

// Disclaimer accompanies every plan.
const Disclaimer = "Exposure values are relative estimates for comparison (not medical advice)."

// ErrSuperseded is returned when a newer plan request for the same key
// started while this one was in flight.
var ErrSuperseded = errors.New("plan superseded by a newer request")

// RouteSource returns route alternatives. *routing.Service satisfies it.
type RouteSource interface {
	GetDirections(ctx context.Context, req routing.DirectionsRequest) (*routing.DirectionsResponse, error)
}

// Scorer computes the exposure score of a route. *exposure.Calculator satisfies it.
type Scorer interface {
	Compute(ctx context.Context, route routing.Route) exposure.Score
}

// Config holds planner dependencies.
type Config struct {
	Routes      RouteSource
	Scorer      Scorer
	Generations *Generations
	Logger      zerolog.Logger

	// Concurrency bounds how many routes are scored at once (default: 4).
	Concurrency int
}

// Planner orchestrates routing, scoring and ranking.
type Planner struct {
	routes      RouteSource
	scorer      Scorer
	generations *Generations
	logger      zerolog.Logger
	concurrency int
}

// New creates a planner.
func New(cfg Config) *Planner {
	generations := cfg.Generations
	if generations == nil {
		generations = NewGenerations()
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	return &Planner{
		routes:      cfg.Routes,
		scorer:      cfg.Scorer,
		generations: generations,
		logger:      cfg.Logger,
		concurrency: concurrency,
	}
}

// Request is a plan request.
type Request struct {
	Origin      polyline.Coordinate
	Destination polyline.Coordinate
	Profile     routing.RouteProfile
	Preference  exposure.Preference

	// Session scopes superseding to one client. When empty, requests for the
	// same origin/destination supersede each other.
	Session string
}

func (r Request) generationKey() string {
	if r.Session != "" {
		return "session:" + r.Session
	}
	return string(r.Profile) + "|" + ODKey(r.Origin, r.Destination)
}

// Option is one scored route alternative.
type Option struct {
	ID           string
	Route        routing.Route
	Score        exposure.Score
	Relative     *int
	RelativeText string
	IsFastest    bool
	IsHealthiest bool
}

// Plan is the result of a plan request.
type Plan struct {
	ID         string
	Options    []Option
	Selected   int
	Preference exposure.Preference
	Provider   string
	Generation uint64
	ComputedAt time.Time
	Disclaimer string
}

// SelectedOption returns the option chosen for the preference.
func (p *Plan) SelectedOption() Option {
	return p.Options[p.Selected]
}

// Plan fetches route alternatives, scores each one concurrently, and ranks them.
// It returns ErrSuperseded if a newer request with the same key started
// before scoring finished.
func (p *Planner) Plan(ctx context.Context, req Request) (*Plan, error) {
	if req.Preference == "" {
		req.Preference = exposure.PreferFastest
	}
	if _, err := exposure.ParsePreference(string(req.Preference)); err != nil {
		return nil, err
	}

	key := req.generationKey()
	gen := p.generations.Next(key)
	defer p.generations.Release(key, gen)

	directions, err := p.routes.GetDirections(ctx, routing.DirectionsRequest{
		Origin:       req.Origin,
		Destination:  req.Destination,
		Profile:      req.Profile,
		Alternatives: true,
	})
	if err != nil {
		return nil, fmt.Errorf("get directions: %w", err)
	}

	routes := directions.Routes
	scores := make([]exposure.Score, len(routes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i := range routes {
		g.Go(func() error {
			scores[i] = p.scorer.Compute(gctx, routes[i])
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !p.generations.IsCurrent(key, gen) {
		p.logger.Debug().
			Str("generation_key", key).
			Uint64("generation", gen).
			Msg("discarding superseded plan")
		return nil, ErrSuperseded
	}

	ranking, err := exposure.RankAndSelect(routes, scores, req.Preference)
	if err != nil {
		return nil, err
	}

	options := make([]Option, len(routes))
	for i := range routes {
		options[i] = Option{
			ID:           uuid.NewString(),
			Route:        routes[i],
			Score:        scores[i],
			Relative:     ranking.RelativeDifference[i],
			RelativeText: exposure.RelativeText(ranking, i, scores[i]),
			IsFastest:    i == ranking.Fastest,
			IsHealthiest: i == ranking.Healthiest,
		}
	}

	p.logger.Info().
		Int("routes", len(routes)).
		Int("fastest", ranking.Fastest).
		Int("healthiest", ranking.Healthiest).
		Int("selected", ranking.Selected).
		Str("preference", string(req.Preference)).
		Msg("route plan computed")

	return &Plan{
		ID:         uuid.NewString(),
		Options:    options,
		Selected:   ranking.Selected,
		Preference: req.Preference,
		Provider:   directions.Provider,
		Generation: gen,
		ComputedAt: time.Now().UTC(),
		Disclaimer: Disclaimer,
	}, nil
}
