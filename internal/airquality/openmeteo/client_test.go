package openmeteo_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breatheroute/routeexposure/internal/airquality"
	"github.com/breatheroute/routeexposure/internal/airquality/openmeteo"
	"github.com/breatheroute/routeexposure/pkg/polyline"
)

func TestClient_FetchReading(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/air-quality", r.URL.Path)
		assert.Equal(t, "28.61390", r.URL.Query().Get("latitude"))
		assert.Equal(t, "77.20900", r.URL.Query().Get("longitude"))
		assert.Equal(t, "pm2_5,nitrogen_dioxide", r.URL.Query().Get("current"))
		assert.Empty(t, r.URL.Query().Get("hourly"), "the forecast series is not requested")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"latitude": 28.6,
			"longitude": 77.2,
			"current_units": {"time": "iso8601", "interval": "seconds", "pm2_5": "μg/m³", "nitrogen_dioxide": "μg/m³"},
			"current": {
				"time": "2024-03-01T08:00",
				"interval": 3600,
				"pm2_5": 97.0,
				"nitrogen_dioxide": 47.2
			}
		}`))
	}))
	defer server.Close()

	client := openmeteo.NewClient(openmeteo.ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: http.DefaultClient,
	})

	reading, err := client.FetchReading(context.Background(), polyline.Coordinate{Lat: 28.6139, Lon: 77.2090})
	require.NoError(t, err)
	require.NotNil(t, reading.PM25)
	require.NotNil(t, reading.NO2)
	assert.Equal(t, 97.0, *reading.PM25)
	assert.Equal(t, 47.2, *reading.NO2)
	assert.Equal(t, "open-meteo", client.Name())
}

func TestClient_FetchReading_PartialNulls(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"current": {
				"time": "2024-03-01T08:00",
				"interval": 3600,
				"pm2_5": null,
				"nitrogen_dioxide": 18.5
			}
		}`))
	}))
	defer server.Close()

	client := openmeteo.NewClient(openmeteo.ClientConfig{BaseURL: server.URL, HTTPClient: http.DefaultClient})

	reading, err := client.FetchReading(context.Background(), polyline.Coordinate{Lat: 1, Lon: 1})
	require.NoError(t, err)
	assert.Nil(t, reading.PM25, "null in the current hour must stay unknown")
	require.NotNil(t, reading.NO2)
	assert.Equal(t, 18.5, *reading.NO2)
}

func TestClient_FetchReading_NoData(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing current", `{}`},
		{"null current", `{"current": null}`},
		{"all null in current hour", `{"current": {"time": "t0", "pm2_5": null, "nitrogen_dioxide": null}}`},
		{"pollutants absent", `{"current": {"time": "t0", "interval": 3600}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := openmeteo.NewClient(openmeteo.ClientConfig{BaseURL: server.URL, HTTPClient: http.DefaultClient})

			reading, err := client.FetchReading(context.Background(), polyline.Coordinate{Lat: 1, Lon: 1})
			assert.ErrorIs(t, err, airquality.ErrNoData)
			assert.Nil(t, reading)
		})
	}
}

func TestClient_FetchReading_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"server error", http.StatusInternalServerError, `{"error": true}`, airquality.ErrProviderUnavailable},
		{"bad request", http.StatusBadRequest, `{"error": true, "reason": "Latitude must be in range"}`, airquality.ErrProviderUnavailable},
		{"malformed payload", http.StatusOK, `{"current": [`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := openmeteo.NewClient(openmeteo.ClientConfig{BaseURL: server.URL, HTTPClient: http.DefaultClient})

			reading, err := client.FetchReading(context.Background(), polyline.Coordinate{Lat: 1, Lon: 1})
			require.Error(t, err)
			assert.Nil(t, reading)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
