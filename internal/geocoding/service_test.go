package geocoding_test

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breatheroute/routeexposure/internal/geocoding"
	"github.com/breatheroute/routeexposure/pkg/polyline"
)

type mockGeocoder struct {
	places    []geocoding.Place
	err       error
	callCount atomic.Int32
	lastLimit int
}

func (m *mockGeocoder) Search(_ context.Context, _ string, limit int) ([]geocoding.Place, error) {
	m.callCount.Add(1)
	m.lastLimit = limit
	if m.err != nil {
		return nil, m.err
	}
	if limit < len(m.places) {
		return m.places[:limit], nil
	}
	return m.places, nil
}

func (m *mockGeocoder) Name() string { return "mock" }

func newTestService(g geocoding.Geocoder) *geocoding.Service {
	return geocoding.NewService(geocoding.ServiceConfig{
		Geocoder: g,
		Logger:   zerolog.New(io.Discard),
	})
}

var indiaGate = geocoding.Place{
	Label:      "India Gate, Kartavya Path, New Delhi",
	Coordinate: polyline.Coordinate{Lat: 28.6129, Lon: 77.2295},
}

func TestService_Search_Caches(t *testing.T) {
	g := &mockGeocoder{places: []geocoding.Place{indiaGate}}
	svc := newTestService(g)

	places, err := svc.Search(context.Background(), "India Gate", 0)
	require.NoError(t, err)
	require.Len(t, places, 1)
	assert.Equal(t, geocoding.DefaultLimit, g.lastLimit)

	_, err = svc.Search(context.Background(), "  india gate ", 0)
	require.NoError(t, err)
	assert.Equal(t, int32(1), g.callCount.Load())
}

func TestService_Search_LimitCapped(t *testing.T) {
	g := &mockGeocoder{}
	svc := newTestService(g)

	_, err := svc.Search(context.Background(), "Delhi", 500)
	require.NoError(t, err)
	assert.Equal(t, geocoding.MaxLimit, g.lastLimit)
}

func TestService_Search_EmptyQuery(t *testing.T) {
	g := &mockGeocoder{}
	_, err := newTestService(g).Search(context.Background(), "   ", 5)
	assert.ErrorIs(t, err, geocoding.ErrEmptyQuery)
	assert.Zero(t, g.callCount.Load())
}

func TestService_Search_ErrorNotCached(t *testing.T) {
	g := &mockGeocoder{err: geocoding.ErrProviderUnavailable}
	svc := newTestService(g)

	_, err := svc.Search(context.Background(), "Delhi", 5)
	assert.ErrorIs(t, err, geocoding.ErrProviderUnavailable)

	g.err = nil
	g.places = []geocoding.Place{indiaGate}
	places, err := svc.Search(context.Background(), "Delhi", 5)
	require.NoError(t, err)
	assert.Len(t, places, 1)
	assert.Equal(t, int32(2), g.callCount.Load())
}

func TestService_Resolve(t *testing.T) {
	g := &mockGeocoder{places: []geocoding.Place{indiaGate}}
	svc := newTestService(g)

	t.Run("coordinate pair skips geocoder", func(t *testing.T) {
		place, err := svc.Resolve(context.Background(), "28.6315, 77.2167")
		require.NoError(t, err)
		assert.Equal(t, 28.6315, place.Coordinate.Lat)
		assert.Equal(t, 77.2167, place.Coordinate.Lon)
		assert.Zero(t, g.callCount.Load())
	})

	t.Run("free text uses first match", func(t *testing.T) {
		place, err := svc.Resolve(context.Background(), "India Gate")
		require.NoError(t, err)
		assert.Equal(t, indiaGate, place)
		assert.Equal(t, 1, g.lastLimit)
	})

	t.Run("no match", func(t *testing.T) {
		empty := newTestService(&mockGeocoder{})
		_, err := empty.Resolve(context.Background(), "Atlantis")
		assert.True(t, errors.Is(err, geocoding.ErrNotFound))
	})
}

func TestParseLatLon(t *testing.T) {
	tests := []struct {
		in     string
		want   polyline.Coordinate
		wantOK bool
	}{
		{"28.6315,77.2167", polyline.Coordinate{Lat: 28.6315, Lon: 77.2167}, true},
		{" -33.8688 , 151.2093 ", polyline.Coordinate{Lat: -33.8688, Lon: 151.2093}, true},
		{"19,72", polyline.Coordinate{Lat: 19, Lon: 72}, true},
		{"91.0,10.0", polyline.Coordinate{}, false},
		{"10.0,181.0", polyline.Coordinate{}, false},
		{"Connaught Place", polyline.Coordinate{}, false},
		{"28.6315;77.2167", polyline.Coordinate{}, false},
	}

	for _, tt := range tests {
		got, ok := geocoding.ParseLatLon(tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
