package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"

	"github.com/breatheroute/routeexposure/internal/api/models"
)

// Recovery turns a handler panic into a 500 problem response.
// http.ErrAbortHandler is re-raised so the server can abort the connection.
func Recovery(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler { //nolint:errorlint // sentinel panic value
					panic(rec)
				}

				requestID := GetRequestID(r.Context())
				log.Error().
					Str("request_id", requestID).
					Interface("panic", rec).
					Bytes("stack", debug.Stack()).
					Msg("panic recovered")

				models.NewInternalError(requestID, "an unexpected error occurred").
					WithInstance(r.URL.Path).
					Write(w)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
