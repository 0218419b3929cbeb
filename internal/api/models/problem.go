package models

import (
	"encoding/json"
	"net/http"
)

// Problem is an RFC 7807 error body, served as application/problem+json.
type Problem struct {
	Type     string       `json:"type"`
	Title    string       `json:"title"`
	Status   int          `json:"status"`
	Detail   string       `json:"detail,omitempty"`
	Instance string       `json:"instance,omitempty"`
	TraceID  string       `json:"traceId"`
	Errors   []FieldError `json:"errors,omitempty"`
}

// FieldError is a validation failure on one request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

const problemBase = "https://routeexposure.dev/problems/"

// Problem type URIs.
const (
	ProblemTypeValidation      = problemBase + "validation-error"
	ProblemTypeNotFound        = problemBase + "not-found"
	ProblemTypeUnprocessable   = problemBase + "unprocessable"
	ProblemTypeSuperseded      = problemBase + "superseded"
	ProblemTypeTooManyRequests = problemBase + "too-many-requests"
	ProblemTypeUnsupported     = problemBase + "unsupported-media-type"
	ProblemTypeTLSRequired     = problemBase + "tls-required"
	ProblemTypeInternal        = problemBase + "internal-error"
	ProblemTypeUnavailable     = problemBase + "service-unavailable"
)

var problemTitles = map[string]string{
	ProblemTypeValidation:      "Validation error",
	ProblemTypeNotFound:        "Not found",
	ProblemTypeUnprocessable:   "Unprocessable request",
	ProblemTypeSuperseded:      "Superseded",
	ProblemTypeTooManyRequests: "Too many requests",
	ProblemTypeUnsupported:     "Unsupported media type",
	ProblemTypeTLSRequired:     "TLS required",
	ProblemTypeInternal:        "Internal server error",
	ProblemTypeUnavailable:     "Service unavailable",
}

// NewProblem creates a Problem with the standard title for problemType.
func NewProblem(problemType string, status int, traceID, detail string) *Problem {
	return &Problem{
		Type:    problemType,
		Title:   problemTitles[problemType],
		Status:  status,
		Detail:  detail,
		TraceID: traceID,
	}
}

// WithInstance sets the request path the problem occurred on.
func (p *Problem) WithInstance(instance string) *Problem {
	p.Instance = instance
	return p
}

// WithErrors attaches field errors.
func (p *Problem) WithErrors(errors []FieldError) *Problem {
	p.Errors = errors
	return p
}

// Write serializes the Problem with its status code.
func (p *Problem) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/problem+json")
	if p.TraceID != "" {
		w.Header().Set("X-Request-Id", p.TraceID)
	}
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

func NewBadRequest(traceID, detail string, errors []FieldError) *Problem {
	return NewProblem(ProblemTypeValidation, http.StatusBadRequest, traceID, detail).WithErrors(errors)
}

func NewNotFound(traceID, detail string) *Problem {
	return NewProblem(ProblemTypeNotFound, http.StatusNotFound, traceID, detail)
}

func NewUnprocessable(traceID, detail string) *Problem {
	return NewProblem(ProblemTypeUnprocessable, http.StatusUnprocessableEntity, traceID, detail)
}

// NewSuperseded reports that a newer request for the same plan key won.
func NewSuperseded(traceID, detail string) *Problem {
	return NewProblem(ProblemTypeSuperseded, http.StatusConflict, traceID, detail)
}

func NewTooManyRequests(traceID, detail string) *Problem {
	return NewProblem(ProblemTypeTooManyRequests, http.StatusTooManyRequests, traceID, detail)
}

func NewInternalError(traceID, detail string) *Problem {
	return NewProblem(ProblemTypeInternal, http.StatusInternalServerError, traceID, detail)
}

func NewServiceUnavailable(traceID, detail string) *Problem {
	return NewProblem(ProblemTypeUnavailable, http.StatusServiceUnavailable, traceID, detail)
}
