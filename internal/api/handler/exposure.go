package handler

import (
	"context"
	"net/http"

	"github.com/breatheroute/routeexposure/internal/api/models"
	"github.com/breatheroute/routeexposure/internal/api/response"
	"github.com/breatheroute/routeexposure/internal/exposure"
	"github.com/breatheroute/routeexposure/pkg/polyline"
)

// ExposureHandler aggregates pollutant readings for arbitrary points.
type ExposureHandler struct {
	readings exposure.ReadingSource
}

// NewExposureHandler creates an ExposureHandler.
func NewExposureHandler(readings exposure.ReadingSource) *ExposureHandler {
	return &ExposureHandler{readings: readings}
}

// Aggregate handles POST /v1/exposure. Readings are returned in request
// order; points without data come back with null values.
func (h *ExposureHandler) Aggregate(w http.ResponseWriter, r *http.Request) {
	var req models.ExposureRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	coords := make([]polyline.Coordinate, len(req.Points))
	for i, p := range req.Points {
		coords[i] = polyline.Coordinate{Lat: p.Lat, Lon: p.Lon}
	}

	readings := h.readings.GetReadings(r.Context(), coords)
	if r.Context().Err() == context.Canceled {
		return
	}

	resp := models.ExposureResponse{Points: make([]models.ExposureReading, len(coords))}
	var pm25, no2 mean
	for i := range coords {
		if i >= len(readings) || readings[i] == nil {
			continue
		}
		resp.Points[i] = models.ExposureReading{PM25: readings[i].PM25, NO2: readings[i].NO2}
		pm25.add(readings[i].PM25)
		no2.add(readings[i].NO2)
	}
	resp.AvgPM25 = pm25.value()
	resp.AvgNO2 = no2.value()

	response.JSON(w, r, http.StatusOK, resp)
}

type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v *float64) {
	if v != nil {
		m.sum += *v
		m.n++
	}
}

func (m *mean) value() *float64 {
	if m.n == 0 {
		return nil
	}
	avg := m.sum / float64(m.n)
	return &avg
}
