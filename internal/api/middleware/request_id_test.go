package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/breatheroute/routeexposure/internal/api/middleware"
)

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"generated when missing", "", false},
		{"propagated", "req_from_gateway", true},
		{"regenerated when oversized", strings.Repeat("x", 200), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			handler := middleware.RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				seen = middleware.GetRequestID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			if tt.incoming != "" {
				req.Header.Set("X-Request-Id", tt.incoming)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, seen, w.Header().Get("X-Request-Id"))
			if tt.keep {
				assert.Equal(t, tt.incoming, seen)
			} else {
				assert.True(t, strings.HasPrefix(seen, "req_"))
				assert.LessOrEqual(t, len(seen), 128)
			}
		})
	}
}

func TestGetRequestID_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	assert.Empty(t, middleware.GetRequestID(req.Context()))
}
