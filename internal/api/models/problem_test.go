package models_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breatheroute/routeexposure/internal/api/models"
)

func TestProblem_Write(t *testing.T) {
	p := models.NewBadRequest("req_test123", "invalid input", []models.FieldError{
		{Field: "origin.lat", Message: "must be at most 90", Code: "lte"},
	}).WithInstance("/v1/routes:compute")

	w := httptest.NewRecorder()
	p.Write(w)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
	assert.Equal(t, "req_test123", w.Header().Get("X-Request-Id"))

	var result models.Problem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))

	assert.Equal(t, models.ProblemTypeValidation, result.Type)
	assert.Equal(t, "Validation error", result.Title)
	assert.Equal(t, "invalid input", result.Detail)
	assert.Equal(t, "/v1/routes:compute", result.Instance)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "origin.lat", result.Errors[0].Field)
}

func TestProblem_Constructors(t *testing.T) {
	tests := []struct {
		name    string
		problem *models.Problem
		typ     string
		title   string
		status  int
	}{
		{"not found", models.NewNotFound("req_1", "d"), models.ProblemTypeNotFound, "Not found", http.StatusNotFound},
		{"unprocessable", models.NewUnprocessable("req_1", "d"), models.ProblemTypeUnprocessable, "Unprocessable request", http.StatusUnprocessableEntity},
		{"superseded", models.NewSuperseded("req_1", "d"), models.ProblemTypeSuperseded, "Superseded", http.StatusConflict},
		{"too many requests", models.NewTooManyRequests("req_1", "d"), models.ProblemTypeTooManyRequests, "Too many requests", http.StatusTooManyRequests},
		{"internal", models.NewInternalError("req_1", "d"), models.ProblemTypeInternal, "Internal server error", http.StatusInternalServerError},
		{"unavailable", models.NewServiceUnavailable("req_1", "d"), models.ProblemTypeUnavailable, "Service unavailable", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.typ, tt.problem.Type)
			assert.Equal(t, tt.title, tt.problem.Title)
			assert.Equal(t, tt.status, tt.problem.Status)
			assert.Equal(t, "d", tt.problem.Detail)
			assert.Equal(t, "req_1", tt.problem.TraceID)
		})
	}
}

func TestProblem_WriteWithoutTraceID(t *testing.T) {
	w := httptest.NewRecorder()
	models.NewInternalError("", "boom").Write(w)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, w.Header().Get("X-Request-Id"))
}

func TestTimestamp_RoundTrip(t *testing.T) {
	var ts models.Timestamp
	require.NoError(t, json.Unmarshal([]byte(`"2026-03-01T08:30:00Z"`), &ts))
	assert.Equal(t, 2026, ts.Time().Year())

	out, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, `"2026-03-01T08:30:00Z"`, string(out))

	require.NoError(t, json.Unmarshal([]byte(`null`), &ts))
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &ts))
}
