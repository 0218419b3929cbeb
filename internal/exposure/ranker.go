package exposure

import (
	"fmt"
	"math"

	"github.com/breatheroute/routeexposure/internal/routing"
)

// Preference is the user's route selection preference.
type Preference string

const (
	PreferFastest    Preference = "fastest"
	PreferHealthiest Preference = "healthiest"
)

// ParsePreference validates a preference. Empty means fastest.
func ParsePreference(s string) (Preference, error) {
	switch Preference(s) {
	case "":
		return PreferFastest, nil
	case PreferFastest, PreferHealthiest:
		return Preference(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPreference, s)
	}
}

// zeroExposureEpsilon replaces a zero minimum so relative differences stay finite.
const zeroExposureEpsilon = 1e-6

// Ranking is the comparison of a set of route alternatives.
type Ranking struct {
	// Fastest is the index of the minimum-duration route.
	Fastest int
	// Healthiest is the index of the minimum per-hour exposure route, or -1
	// when no route is scorable.
	Healthiest int
	// RelativeDifference is the whole-percent excess of each route's per-hour
	// exposure over the healthiest; nil for unscorable routes.
	RelativeDifference []*int
	// Selected is the route chosen for the preference.
	Selected int
}

// HasHealthiest reports whether any route was scorable.
func (r Ranking) HasHealthiest() bool {
	return r.Healthiest >= 0
}

// RankAndSelect ranks routes by duration and exposure and picks one for the
// preference. scores[i] must belong to routes[i]. Ties go to the earlier route.
func RankAndSelect(routes []routing.Route, scores []Score, pref Preference) (Ranking, error) {
	if len(routes) == 0 {
		return Ranking{}, ErrNoRoutes
	}
	if len(scores) != len(routes) {
		return Ranking{}, fmt.Errorf("%w: %d routes, %d scores", ErrScoreMismatch, len(routes), len(scores))
	}
	if pref != PreferFastest && pref != PreferHealthiest {
		return Ranking{}, fmt.Errorf("%w: %q", ErrUnknownPreference, pref)
	}

	fastest := 0
	for i := 1; i < len(routes); i++ {
		if routes[i].DurationSeconds < routes[fastest].DurationSeconds {
			fastest = i
		}
	}

	healthiest := -1
	for i, s := range scores {
		if !s.Scorable() {
			continue
		}
		if healthiest < 0 || *s.ExposurePerHour < *scores[healthiest].ExposurePerHour {
			healthiest = i
		}
	}

	ranking := Ranking{
		Fastest:            fastest,
		Healthiest:         healthiest,
		RelativeDifference: make([]*int, len(routes)),
		Selected:           fastest,
	}

	if healthiest >= 0 {
		minExposure := *scores[healthiest].ExposurePerHour
		if minExposure == 0 {
			minExposure = zeroExposureEpsilon
		}
		for i, s := range scores {
			if !s.Scorable() {
				continue
			}
			pct := 0
			if i != healthiest {
				pct = int(math.Round(math.Abs((*s.ExposurePerHour - minExposure) / minExposure * 100)))
			}
			ranking.RelativeDifference[i] = &pct
		}

		if pref == PreferHealthiest {
			ranking.Selected = healthiest
		}
	}

	return ranking, nil
}

// RelativeText renders a route's exposure relative to the healthiest route.
func RelativeText(r Ranking, i int, s Score) string {
	var text string
	switch {
	case r.RelativeDifference[i] == nil:
		text = "Exposure: unavailable"
	case i == r.Healthiest:
		text = "Healthiest (reference)"
	default:
		text = fmt.Sprintf("%d%% higher exposure vs healthiest", *r.RelativeDifference[i])
	}
	if s.Confidence == ConfidenceLow {
		text += " • estimated / low confidence"
	}
	return text
}
