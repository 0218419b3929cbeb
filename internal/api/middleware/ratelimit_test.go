package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/breatheroute/routeexposure/internal/api/middleware"
)

func TestRateLimitByIP(t *testing.T) {
	handler := middleware.RateLimitByIP(middleware.RateLimitConfig{
		RequestLimit: 3,
		WindowLength: time.Minute,
	})(okHandler)

	send := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/routes:compute", http.NoBody)
		req.RemoteAddr = ip + ":12345"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, send("10.0.0.1").Code, "request %d", i+1)
	}

	limited := send("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "application/problem+json", limited.Header().Get("Content-Type"))
	assert.Equal(t, "60", limited.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, send("10.0.0.2").Code, "other clients keep their own budget")
}

func TestRateLimitDefaults(t *testing.T) {
	assert.Equal(t, 30, middleware.ComputeRateLimit.RequestLimit)
	assert.Equal(t, 100, middleware.StandardRateLimit.RequestLimit)
	assert.Equal(t, time.Minute, middleware.StandardRateLimit.WindowLength)
}
