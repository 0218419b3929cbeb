package models

// Route preference values accepted by RouteComputeRequest.
const (
	PreferenceFastest    = "fastest"
	PreferenceHealthiest = "healthiest"
)

// RouteComputeRequest is the body of POST /v1/routes:compute. Each endpoint
// is either a point or a free-text query resolved by the geocoder.
type RouteComputeRequest struct {
	Origin           *Point `json:"origin,omitempty" validate:"required_without=OriginQuery"`
	OriginQuery      string `json:"originQuery,omitempty" validate:"max=200"`
	Destination      *Point `json:"destination,omitempty" validate:"required_without=DestinationQuery"`
	DestinationQuery string `json:"destinationQuery,omitempty" validate:"max=200"`

	// Profile is driving, cycling or foot. Empty means driving.
	Profile string `json:"profile,omitempty" validate:"omitempty,oneof=driving cycling foot"`

	// Preference is fastest or healthiest. Empty means fastest.
	Preference string `json:"preference,omitempty" validate:"omitempty,oneof=fastest healthiest"`

	// SessionID scopes superseding: a newer request from the same session
	// cancels the result of an older one still in flight.
	SessionID string `json:"sessionId,omitempty" validate:"max=128"`
}

// RouteComputeResponse is the body returned by POST /v1/routes:compute.
type RouteComputeResponse struct {
	PlanID      string        `json:"planId"`
	GeneratedAt Timestamp     `json:"generatedAt"`
	Provider    string        `json:"provider"`
	Preference  string        `json:"preference"`
	Origin      Point         `json:"origin"`
	Destination Point         `json:"destination"`
	Options     []RouteOption `json:"options"`
	SelectedID  string        `json:"selectedOptionId"`
	Disclaimer  string        `json:"disclaimer"`
}

// RouteOption is one scored route alternative.
type RouteOption struct {
	ID              string  `json:"id"`
	Index           int     `json:"index"`
	Summary         string  `json:"summary,omitempty"`
	DurationSeconds float64 `json:"durationSeconds"`
	DistanceMeters  float64 `json:"distanceMeters"`

	// Geometry is an encoded polyline at GeometryPrecision (5 or 6).
	Geometry          string `json:"geometry"`
	GeometryPrecision int    `json:"geometryPrecision"`

	// Exposure and ExposurePerHour are null when the route could not be scored.
	Exposure        *float64   `json:"exposure"`
	ExposurePerHour *float64   `json:"exposurePerHour"`
	ValidSamples    int        `json:"validSamples"`
	TotalSamples    int        `json:"totalSamples"`
	Confidence      Confidence `json:"confidence"`

	// RelativeDifferencePercent is null when exposure is unavailable.
	RelativeDifferencePercent *int   `json:"relativeDifferencePercent"`
	RelativeText              string `json:"relativeText"`

	IsFastest    bool `json:"isFastest"`
	IsHealthiest bool `json:"isHealthiest"`
	Selected     bool `json:"selected"`
}

// HeatmapRequest is the body of POST /v1/routes:heatmap.
type HeatmapRequest struct {
	Geometry string `json:"geometry" validate:"required,max=200000"`

	// Precision is 5 (default) or 6.
	Precision int `json:"precision,omitempty" validate:"omitempty,oneof=5 6"`
}

// HeatmapResponse is the body returned by POST /v1/routes:heatmap.
type HeatmapResponse struct {
	Points []HeatPoint `json:"points"`
}

// HeatPoint is a weighted heatmap point with intensity in [0,1].
type HeatPoint struct {
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Intensity float64 `json:"intensity"`
}
