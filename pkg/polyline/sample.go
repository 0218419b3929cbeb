package polyline

import "math"

const earthRadiusMeters = 6371000

// Distance returns the great-circle distance between two coordinates in meters
// using the haversine formula.
func Distance(a, b Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	sinDLat := math.Sin(dLat / 2)
	sinDLon := math.Sin(dLon / 2)

	h := sinDLat*sinDLat + math.Cos(lat1)*math.Cos(lat2)*sinDLon*sinDLon
	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Midpoint returns the arithmetic midpoint of two coordinates.
// Adequate for the short segments produced by sampling.
func Midpoint(a, b Coordinate) Coordinate {
	return Coordinate{
		Lat: (a.Lat + b.Lat) / 2,
		Lon: (a.Lon + b.Lon) / 2,
	}
}

// Length calculates the total length of a polyline in meters using the haversine formula.
func Length(coords []Coordinate) float64 {
	if len(coords) < 2 {
		return 0
	}

	var total float64
	for i := 1; i < len(coords); i++ {
		total += Distance(coords[i-1], coords[i])
	}
	return total
}

// SegmentDistances returns the distance of each consecutive pair of coordinates.
// The result has len(coords)-1 entries.
func SegmentDistances(coords []Coordinate) []float64 {
	if len(coords) < 2 {
		return nil
	}

	dists := make([]float64, len(coords)-1)
	for i := 1; i < len(coords); i++ {
		dists[i-1] = Distance(coords[i-1], coords[i])
	}
	return dists
}

// SampleEvery returns every stride-th coordinate. The first and last
// coordinates are always included even when the last is not aligned to the stride.
func SampleEvery(coords []Coordinate, stride int) []Coordinate {
	if len(coords) == 0 {
		return nil
	}
	if stride <= 1 {
		out := make([]Coordinate, len(coords))
		copy(out, coords)
		return out
	}

	out := make([]Coordinate, 0, len(coords)/stride+2)
	for i := 0; i < len(coords); i += stride {
		out = append(out, coords[i])
	}
	if (len(coords)-1)%stride != 0 {
		out = append(out, coords[len(coords)-1])
	}
	return out
}

// SampleByDistance walks the coordinates accumulating great-circle distance and
// emits a coordinate each time the distance since the last emission meets or
// exceeds intervalMeters. The first and final coordinates are always emitted.
// Emitted points are existing vertices; nothing is interpolated.
func SampleByDistance(coords []Coordinate, intervalMeters float64) []Coordinate {
	if len(coords) == 0 {
		return nil
	}
	if len(coords) == 1 || intervalMeters <= 0 {
		out := make([]Coordinate, len(coords))
		copy(out, coords)
		return out
	}

	sampled := []Coordinate{coords[0]}
	accumulated := 0.0
	lastEmitted := 0

	for i := 1; i < len(coords); i++ {
		accumulated += Distance(coords[i-1], coords[i])
		if accumulated >= intervalMeters {
			sampled = append(sampled, coords[i])
			accumulated = 0
			lastEmitted = i
		}
	}

	// Always include the last point if it's not already included
	if lastEmitted != len(coords)-1 {
		sampled = append(sampled, coords[len(coords)-1])
	}

	return sampled
}
