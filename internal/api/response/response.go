// Package response writes JSON and problem responses.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/breatheroute/routeexposure/internal/api/middleware"
	"github.com/breatheroute/routeexposure/internal/api/models"
)

// JSON writes data as JSON with the given status and echoes the request ID.
func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	if requestID := middleware.GetRequestID(r.Context()); requestID != "" {
		w.Header().Set("X-Request-Id", requestID)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Error writes a problem document for the current request path.
func Error(w http.ResponseWriter, r *http.Request, problem *models.Problem) {
	problem.WithInstance(r.URL.Path).Write(w)
}

func traceID(r *http.Request) string {
	return middleware.GetRequestID(r.Context())
}

// BadRequest writes a 400 validation problem.
func BadRequest(w http.ResponseWriter, r *http.Request, detail string, errors []models.FieldError) {
	Error(w, r, models.NewBadRequest(traceID(r), detail, errors))
}

// NotFound writes a 404 problem.
func NotFound(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewNotFound(traceID(r), detail))
}

// Unprocessable writes a 422 problem for well-formed input that cannot be served.
func Unprocessable(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewUnprocessable(traceID(r), detail))
}

// Superseded writes a 409 problem for a plan replaced by a newer request.
func Superseded(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewSuperseded(traceID(r), detail))
}

// InternalError writes a 500 problem.
func InternalError(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewInternalError(traceID(r), detail))
}

// ServiceUnavailable writes a 503 problem.
func ServiceUnavailable(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewServiceUnavailable(traceID(r), detail))
}
