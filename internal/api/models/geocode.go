package models

// GeocodeResponse is the body returned by GET /v1/geocode.
type GeocodeResponse struct {
	Query   string         `json:"query"`
	Results []GeocodePlace `json:"results"`
}

// GeocodePlace is one geocoder match.
type GeocodePlace struct {
	Label string  `json:"label"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
}
