package middleware

import (
	"mime"
	"net/http"

	"github.com/breatheroute/routeexposure/internal/api/models"
)

// RequireJSON rejects request bodies declared as anything but JSON. A
// missing Content-Type is accepted.
func RequireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "" {
			mediaType, _, err := mime.ParseMediaType(ct)
			if err != nil || mediaType != "application/json" {
				models.NewProblem(models.ProblemTypeUnsupported, http.StatusUnsupportedMediaType, GetRequestID(r.Context()), "Content-Type must be application/json").
					WithInstance(r.URL.Path).
					Write(w)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
