// Package handler implements the HTTP endpoints of the route exposure API.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/breatheroute/routeexposure/internal/api/models"
	"github.com/breatheroute/routeexposure/internal/api/response"
)

// maxBodyBytes bounds JSON request bodies; encoded geometries are the
// largest legitimate payload.
const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeAndValidate reads a JSON body into dst and validates it. On failure
// it writes a 400 problem and returns false.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.BadRequest(w, r, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit), nil)
			return false
		}
		response.BadRequest(w, r, "invalid JSON body", nil)
		return false
	}

	if err := validate.Struct(dst); err != nil {
		response.BadRequest(w, r, "request validation failed", fieldErrors(err))
		return false
	}
	return true
}

// fieldErrors converts validator errors to API field errors. Field paths
// drop the top-level struct name: "origin.lat", "points[3].lon".
func fieldErrors(err error) []models.FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []models.FieldError{{Field: "", Message: err.Error()}}
	}

	out := make([]models.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		out = append(out, models.FieldError{
			Field:   field,
			Message: fieldMessage(fe),
			Code:    fe.Tag(),
		})
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_without":
		return "is required"
	case "gte", "min":
		return "must be at least " + fe.Param()
	case "lte", "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "is invalid"
	}
}
