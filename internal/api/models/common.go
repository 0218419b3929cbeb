// Package models holds request and response bodies of the HTTP API.
package models

import "time"

// Point is a WGS84 coordinate. Zero is a valid latitude and longitude, so
// presence is checked by the enclosing pointer field rather than here.
type Point struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon float64 `json:"lon" validate:"gte=-180,lte=180"`
}

// Confidence mirrors exposure.Confidence on the wire.
type Confidence string

const (
	ConfidenceLow  Confidence = "LOW"
	ConfidenceHigh Confidence = "HIGH"
)

// HealthStatus is the status of the service, a subsystem or a provider.
type HealthStatus string

const (
	HealthStatusOK       HealthStatus = "OK"
	HealthStatusDegraded HealthStatus = "DEGRADED"
	HealthStatusFail     HealthStatus = "FAIL"
)

// Timestamp marshals as RFC 3339.
type Timestamp time.Time

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Time(t).Format(time.RFC3339) + `"`), nil
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	parsed, err := time.Parse(`"`+time.RFC3339+`"`, string(data))
	if err != nil {
		return err
	}
	*t = Timestamp(parsed)
	return nil
}

// Time returns the underlying time.Time.
func (t Timestamp) Time() time.Time {
	return time.Time(t)
}
