package polyline

import (
	"errors"
	"math"
	"testing"
)

func TestDecode_ValidPolyline(t *testing.T) {
	tests := []struct {
		name     string
		encoded  string
		expected []Coordinate
	}{
		{
			name:    "single point",
			encoded: "_p~iF~ps|U",
			expected: []Coordinate{
				{Lat: 38.5, Lon: -120.2},
			},
		},
		{
			name:    "two points",
			encoded: "_p~iF~ps|U_ulLnnqC",
			expected: []Coordinate{
				{Lat: 38.5, Lon: -120.2},
				{Lat: 40.7, Lon: -120.95},
			},
		},
		{
			name:    "three points - Google example",
			encoded: "_p~iF~ps|U_ulLnnqC_mqNvxq`@",
			expected: []Coordinate{
				{Lat: 38.5, Lon: -120.2},
				{Lat: 40.7, Lon: -120.95},
				{Lat: 43.252, Lon: -126.453},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Decode(tt.encoded)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(result) != len(tt.expected) {
				t.Fatalf("expected %d coordinates, got %d", len(tt.expected), len(result))
			}

			for i, coord := range result {
				if !coordsEqual(coord, tt.expected[i], 0.001) {
					t.Errorf("coordinate %d: expected %+v, got %+v", i, tt.expected[i], coord)
				}
			}
		})
	}
}

func TestDecode_EmptyString(t *testing.T) {
	result, err := Decode("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil {
		t.Errorf("expected nil for empty string, got %v", result)
	}
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		encoded string
	}{
		{"truncated trailing value", "_p~iF~ps|"},
		{"latitude without longitude", "_p~iF~ps|U_ulL"},
		{"byte below alphabet", "_p~iF ps|U"},
		{"continuation never terminates", "~~~~~~~~~~~~~~~"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Decode(tt.encoded)
			if !errors.Is(err, ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", err)
			}
			if result != nil {
				t.Errorf("expected no coordinates on malformed input, got %v", result)
			}
		})
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		coords []Coordinate
	}{
		{
			name: "single point",
			coords: []Coordinate{
				{Lat: 38.5, Lon: -120.2},
			},
		},
		{
			name: "three points",
			coords: []Coordinate{
				{Lat: 38.5, Lon: -120.2},
				{Lat: 40.7, Lon: -120.95},
				{Lat: 43.252, Lon: -126.453},
			},
		},
		{
			name: "Connaught Place to India Gate",
			coords: []Coordinate{
				{Lat: 28.63153, Lon: 77.21673},
				{Lat: 28.62001, Lon: 77.22112},
				{Lat: 28.61294, Lon: 77.22951},
			},
		},
		{
			name: "southern and western hemispheres",
			coords: []Coordinate{
				{Lat: -33.86882, Lon: 151.20929},
				{Lat: -34.60368, Lon: -58.38157},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := Encode(tt.coords)
			if encoded == "" {
				t.Fatal("expected non-empty encoded string")
			}

			decoded, err := Decode(encoded)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(decoded) != len(tt.coords) {
				t.Fatalf("round-trip: expected %d coordinates, got %d", len(tt.coords), len(decoded))
			}

			for i, coord := range decoded {
				if !coordsEqual(coord, tt.coords[i], 0.000005) {
					t.Errorf("round-trip coordinate %d: expected %+v, got %+v", i, tt.coords[i], coord)
				}
			}
		})
	}
}

func TestRoundTrip_Precision6(t *testing.T) {
	coords := []Coordinate{
		{Lat: 19.076090, Lon: 72.877426},
		{Lat: 19.075112, Lon: 72.879001},
		{Lat: 19.073987, Lon: 72.881234},
	}

	encoded := EncodeWithPrecision(coords, Precision6)
	decoded, err := DecodeWithPrecision(encoded, Precision6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(decoded) != len(coords) {
		t.Fatalf("expected %d coordinates, got %d", len(coords), len(decoded))
	}
	for i, coord := range decoded {
		if !coordsEqual(coord, coords[i], 0.0000005) {
			t.Errorf("coordinate %d lost precision: expected %+v, got %+v", i, coords[i], coord)
		}
	}

	// Decoding a polyline6 string at the default precision scales it by 10.
	wrong, err := Decode(encoded)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if coordsEqual(wrong[0], coords[0], 1) {
		t.Errorf("expected precision mismatch to change coordinates, got %+v", wrong[0])
	}
}

func TestEncode_EmptyCoordinates(t *testing.T) {
	result := Encode(nil)
	if result != "" {
		t.Errorf("expected empty string for nil coordinates, got %q", result)
	}

	result = Encode([]Coordinate{})
	if result != "" {
		t.Errorf("expected empty string for empty coordinates, got %q", result)
	}
}

func TestDistance_KnownPairs(t *testing.T) {
	tests := []struct {
		name           string
		a, b           Coordinate
		expectedMeters float64
		tolerance      float64
	}{
		{
			name:           "same point",
			a:              Coordinate{Lat: 28.6, Lon: 77.2},
			b:              Coordinate{Lat: 28.6, Lon: 77.2},
			expectedMeters: 0,
			tolerance:      0,
		},
		{
			name:           "1 degree latitude at equator - roughly 111km",
			a:              Coordinate{Lat: 0, Lon: 0},
			b:              Coordinate{Lat: 1, Lon: 0},
			expectedMeters: 111195,
			tolerance:      10,
		},
		{
			name:           "Delhi to Mumbai - roughly 1150km",
			a:              Coordinate{Lat: 28.6139, Lon: 77.2090},
			b:              Coordinate{Lat: 19.0760, Lon: 72.8777},
			expectedMeters: 1150000,
			tolerance:      10000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Distance(tt.a, tt.b)
			if math.Abs(result-tt.expectedMeters) > tt.tolerance {
				t.Errorf("expected ~%.0fm (±%.0f), got %.0fm", tt.expectedMeters, tt.tolerance, result)
			}
			if reverse := Distance(tt.b, tt.a); math.Abs(reverse-result) > 1e-6 {
				t.Errorf("distance should be symmetric: %.3f vs %.3f", result, reverse)
			}
		})
	}
}

func TestLength_ValidRoute(t *testing.T) {
	tests := []struct {
		name           string
		coords         []Coordinate
		expectedMeters float64
		tolerance      float64
	}{
		{
			name:           "empty",
			coords:         nil,
			expectedMeters: 0,
			tolerance:      0,
		},
		{
			name:           "single point",
			coords:         []Coordinate{{Lat: 52.0, Lon: 4.0}},
			expectedMeters: 0,
			tolerance:      0,
		},
		{
			name: "three degrees of latitude in two legs",
			coords: []Coordinate{
				{Lat: 0.0, Lon: 0.0},
				{Lat: 1.0, Lon: 0.0},
				{Lat: 3.0, Lon: 0.0},
			},
			expectedMeters: 333585,
			tolerance:      50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Length(tt.coords)
			diff := math.Abs(result - tt.expectedMeters)
			if diff > tt.tolerance {
				t.Errorf("expected ~%.0fm (±%.0f), got %.0fm", tt.expectedMeters, tt.tolerance, result)
			}
		})
	}
}

func TestMidpoint(t *testing.T) {
	mid := Midpoint(Coordinate{Lat: 10, Lon: 20}, Coordinate{Lat: 12, Lon: 24})
	if !coordsEqual(mid, Coordinate{Lat: 11, Lon: 22}, 1e-12) {
		t.Errorf("expected midpoint {11 22}, got %+v", mid)
	}
}

func TestSegmentDistances(t *testing.T) {
	coords := northbound(4)

	dists := SegmentDistances(coords)
	if len(dists) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(dists))
	}
	var total float64
	for _, d := range dists {
		total += d
	}
	if math.Abs(total-Length(coords)) > 1e-6 {
		t.Errorf("segment distances should sum to the path length")
	}

	if SegmentDistances(coords[:1]) != nil {
		t.Errorf("expected nil for a single coordinate")
	}
}

func TestSampleEvery(t *testing.T) {
	t.Run("last coordinate not aligned to stride", func(t *testing.T) {
		coords := northbound(10)
		sampled := SampleEvery(coords, 4)
		expected := []Coordinate{coords[0], coords[4], coords[8], coords[9]}
		assertCoords(t, expected, sampled)
	})

	t.Run("last coordinate aligned to stride", func(t *testing.T) {
		coords := northbound(9)
		sampled := SampleEvery(coords, 4)
		expected := []Coordinate{coords[0], coords[4], coords[8]}
		assertCoords(t, expected, sampled)
	})

	t.Run("stride of one returns a copy", func(t *testing.T) {
		coords := northbound(3)
		sampled := SampleEvery(coords, 1)
		assertCoords(t, coords, sampled)
		sampled[0].Lat = -1
		if coords[0].Lat == -1 {
			t.Errorf("sampling must not alias the input")
		}
	})

	t.Run("single coordinate", func(t *testing.T) {
		coords := northbound(1)
		assertCoords(t, coords, SampleEvery(coords, 4))
	})

	t.Run("empty coordinates", func(t *testing.T) {
		if SampleEvery(nil, 4) != nil {
			t.Errorf("expected nil for empty coordinates")
		}
	})
}

func TestSampleByDistance(t *testing.T) {
	// Vertices ~1.1km apart heading north.
	coords := northbound(4)

	t.Run("interval shorter than every step emits every vertex", func(t *testing.T) {
		sampled := SampleByDistance(coords, 500)
		assertCoords(t, coords, sampled)
	})

	t.Run("interval spanning two steps", func(t *testing.T) {
		sampled := SampleByDistance(coords, 2000)
		expected := []Coordinate{coords[0], coords[2], coords[3]}
		assertCoords(t, expected, sampled)
	})

	t.Run("interval exceeds route length", func(t *testing.T) {
		sampled := SampleByDistance(coords, 10000)
		expected := []Coordinate{coords[0], coords[3]}
		assertCoords(t, expected, sampled)
	})

	t.Run("zero interval returns all", func(t *testing.T) {
		sampled := SampleByDistance(coords, 0)
		assertCoords(t, coords, sampled)
	})

	t.Run("empty coordinates", func(t *testing.T) {
		if SampleByDistance(nil, 500) != nil {
			t.Errorf("expected nil for empty coordinates")
		}
	})
}

func TestSampling_BracketsRoute(t *testing.T) {
	routes := [][]Coordinate{
		northbound(1),
		northbound(2),
		northbound(7),
		northbound(50),
	}

	for _, coords := range routes {
		for _, stride := range []int{1, 2, 3, 4, 10} {
			sampled := SampleEvery(coords, stride)
			assertBrackets(t, coords, sampled)
		}
		for _, interval := range []float64{0, 300, 1500, 25000} {
			sampled := SampleByDistance(coords, interval)
			assertBrackets(t, coords, sampled)
		}
	}
}

// northbound builds n vertices 0.01° (~1.1km) apart heading north.
func northbound(n int) []Coordinate {
	coords := make([]Coordinate, n)
	for i := range coords {
		coords[i] = Coordinate{Lat: 28.5 + float64(i)*0.01, Lon: 77.2}
	}
	return coords
}

func assertCoords(t *testing.T, expected, actual []Coordinate) {
	t.Helper()
	if len(actual) != len(expected) {
		t.Fatalf("expected %d coordinates, got %d: %+v", len(expected), len(actual), actual)
	}
	for i := range expected {
		if actual[i] != expected[i] {
			t.Errorf("coordinate %d: expected %+v, got %+v", i, expected[i], actual[i])
		}
	}
}

func assertBrackets(t *testing.T, coords, sampled []Coordinate) {
	t.Helper()
	if len(sampled) == 0 {
		t.Fatalf("expected samples for %d coordinates", len(coords))
	}
	if sampled[0] != coords[0] {
		t.Errorf("first sample %+v should equal first coordinate %+v", sampled[0], coords[0])
	}
	if sampled[len(sampled)-1] != coords[len(coords)-1] {
		t.Errorf("last sample %+v should equal last coordinate %+v", sampled[len(sampled)-1], coords[len(coords)-1])
	}
}

// coordsEqual checks if two coordinates are equal within a tolerance.
func coordsEqual(a, b Coordinate, tolerance float64) bool {
	return math.Abs(a.Lat-b.Lat) <= tolerance && math.Abs(a.Lon-b.Lon) <= tolerance
}

// BenchmarkDecode benchmarks decoding for performance testing.
func BenchmarkDecode(b *testing.B) {
	encoded := "_p~iF~ps|U_ulLnnqC_mqNvxq`@"
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Decode(encoded)
	}
}

func BenchmarkSampleByDistance(b *testing.B) {
	coords := northbound(500)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = SampleByDistance(coords, 300)
	}
}
