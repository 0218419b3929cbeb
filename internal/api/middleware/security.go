package middleware

import (
	"net/http"

	"github.com/breatheroute/routeexposure/internal/api/models"
)

// SecurityHeaders sets the response headers appropriate for a JSON API.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		// Location stays allowed: clients send their own position as origin.
		h.Set("Permissions-Policy", "camera=(), microphone=()")
		next.ServeHTTP(w, r)
	})
}

// RequireTLS rejects requests a proxy marks as plain HTTP via
// X-Forwarded-Proto. Disabled, it passes everything through.
func RequireTLS(enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" && proto != "https" {
				models.NewProblem(models.ProblemTypeTLSRequired, http.StatusForbidden, GetRequestID(r.Context()), "this endpoint requires HTTPS").
					WithInstance(r.URL.Path).
					Write(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
