package osrm_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breatheroute/routeexposure/internal/provider/resilience"
	"github.com/breatheroute/routeexposure/internal/routing"
	"github.com/breatheroute/routeexposure/internal/routing/osrm"
	"github.com/breatheroute/routeexposure/pkg/polyline"
)

const twoRoutes = `{
	"code": "Ok",
	"routes": [
		{
			"geometry": "_p~iF~ps|U_ulLnnqC",
			"distance": 4821.3,
			"duration": 612.8,
			"legs": [{"summary": "Kartavya Path, Rajpath"}]
		},
		{
			"geometry": "_p~iF~ps|U_mqNvxq` + "`" + `@",
			"distance": 5210.0,
			"duration": 590.1,
			"legs": [{"summary": ""}]
		}
	],
	"waypoints": []
}`

func newTestClient(serverURL string, cfg osrm.ClientConfig) *osrm.Client {
	cfg.BaseURL = serverURL
	cfg.HTTPClient = http.DefaultClient
	cfg.Logger = zerolog.New(io.Discard)
	return osrm.NewClient(cfg)
}

var directions = routing.DirectionsRequest{
	Origin:       polyline.Coordinate{Lat: 28.6315, Lon: 77.2167},
	Destination:  polyline.Coordinate{Lat: 28.6129, Lon: 77.2295},
	Profile:      routing.ProfileDriving,
	Alternatives: true,
}

func TestClient_GetDirections(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/route/v1/driving/77.216700,28.631500;77.229500,28.612900", r.URL.Path)
		assert.Equal(t, "full", r.URL.Query().Get("overview"))
		assert.Equal(t, "polyline", r.URL.Query().Get("geometries"))
		assert.Equal(t, "true", r.URL.Query().Get("alternatives"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(twoRoutes))
	}))
	defer server.Close()

	client := newTestClient(server.URL, osrm.ClientConfig{})

	resp, err := client.GetDirections(context.Background(), directions)
	require.NoError(t, err)
	require.Len(t, resp.Routes, 2)
	assert.Equal(t, "osrm", resp.Provider)

	first := resp.Routes[0]
	assert.Equal(t, 0, first.Index)
	assert.Equal(t, 4821.3, first.DistanceMeters)
	assert.Equal(t, 612.8, first.DurationSeconds)
	assert.Equal(t, polyline.Precision5, first.Precision)
	assert.Equal(t, "Kartavya Path, Rajpath", first.Summary)

	coords, err := first.Coordinates()
	require.NoError(t, err)
	assert.Len(t, coords, 2)

	assert.Equal(t, 1, resp.Routes[1].Index)
	assert.Empty(t, resp.Routes[1].Summary)
}

func TestClient_GetDirections_Polyline6(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "polyline6", r.URL.Query().Get("geometries"))
		assert.Equal(t, "/route/v1/foot/77.216700,28.631500;77.229500,28.612900", r.URL.Path)
		_, _ = w.Write([]byte(twoRoutes))
	}))
	defer server.Close()

	client := newTestClient(server.URL, osrm.ClientConfig{Geometries: osrm.GeometryPolyline6})

	req := directions
	req.Profile = routing.ProfileFoot
	resp, err := client.GetDirections(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, polyline.Precision6, resp.Routes[0].Precision)
}

func TestClient_GetDirections_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantErr  error
		wantCode string
	}{
		{
			name:     "no route",
			status:   http.StatusOK,
			body:     `{"code": "NoRoute", "message": "Impossible route between points"}`,
			wantErr:  routing.ErrNoRouteFound,
			wantCode: "NoRoute",
		},
		{
			name:     "invalid query",
			status:   http.StatusBadRequest,
			body:     `{"code": "InvalidQuery", "message": "Query string malformed close to position 28"}`,
			wantErr:  routing.ErrInvalidCoordinates,
			wantCode: "InvalidQuery",
		},
		{
			name:     "empty routes",
			status:   http.StatusOK,
			body:     `{"code": "Ok", "routes": []}`,
			wantErr:  routing.ErrNoRouteFound,
			wantCode: "NoRoute",
		},
		{
			name:     "server error",
			status:   http.StatusBadGateway,
			body:     `upstream down`,
			wantErr:  routing.ErrProviderUnavailable,
			wantCode: "HTTP_502",
		},
		{
			name:     "malformed payload",
			status:   http.StatusOK,
			body:     `{"code": "Ok", "routes": [`,
			wantCode: "PARSE_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := newTestClient(server.URL, osrm.ClientConfig{})

			resp, err := client.GetDirections(context.Background(), directions)
			require.Error(t, err)
			assert.Nil(t, resp)

			var routingErr *routing.Error
			require.True(t, errors.As(err, &routingErr))
			assert.Equal(t, "osrm", routingErr.Provider)
			assert.Equal(t, tt.wantCode, routingErr.Code)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestClient_RecordsHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(twoRoutes))
	}))
	defer server.Close()

	registry := resilience.NewRegistry()
	client := osrm.NewClient(osrm.ClientConfig{
		BaseURL:  server.URL,
		Registry: registry,
		Logger:   zerolog.New(io.Discard),
	})

	_, err := client.GetDirections(context.Background(), directions)
	require.NoError(t, err)

	health := registry.GetHealth("osrm")
	require.NotNil(t, health)
	assert.True(t, health.IsHealthy())
	assert.NotNil(t, health.LastSuccessAt)
}

func TestClient_SupportedProfiles(t *testing.T) {
	client := osrm.NewClient(osrm.ClientConfig{Profiles: []routing.RouteProfile{routing.ProfileDriving}})
	assert.Equal(t, []routing.RouteProfile{routing.ProfileDriving}, client.SupportedProfiles())
	assert.Equal(t, "osrm", client.Name())
}
