// Package polyline provides encoding and decoding utilities for Google's polyline algorithm.
// The polyline algorithm is documented at: https://developers.google.com/maps/documentation/utilities/polylinealgorithm
package polyline

import (
	"errors"
	"fmt"
	"math"
)

const (
	// Precision5 is the standard Google/OSRM precision factor (5 decimal places).
	Precision5 = 1e5

	// Precision6 is the precision factor used by "polyline6" geometries.
	Precision6 = 1e6
)

// ErrMalformed indicates an encoded polyline that cannot be decoded completely,
// e.g. a truncated trailing value or a byte outside the polyline alphabet.
var ErrMalformed = errors.New("malformed polyline")

// maxShift bounds a single varint so corrupt input cannot overflow int64.
const maxShift = 60

// Coordinate represents a geographic point with latitude and longitude.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Decode decodes a polyline-encoded string into a slice of coordinates
// using the default precision of 5 decimal places.
func Decode(encoded string) ([]Coordinate, error) {
	return DecodeWithPrecision(encoded, Precision5)
}

// DecodeWithPrecision decodes a polyline-encoded string using the given
// precision factor (1e5 for polyline, 1e6 for polyline6).
// Incomplete input is reported as ErrMalformed rather than returning a
// silently shortened route.
func DecodeWithPrecision(encoded string, precision float64) ([]Coordinate, error) {
	if encoded == "" {
		return nil, nil
	}
	if precision <= 0 {
		precision = Precision5
	}

	coords := make([]Coordinate, 0, len(encoded)/4)
	index := 0
	var lat, lon int64

	for index < len(encoded) {
		latDelta, next, err := decodeValue(encoded, index)
		if err != nil {
			return nil, err
		}
		index = next
		lat += latDelta

		if index >= len(encoded) {
			return nil, fmt.Errorf("%w: latitude at offset %d has no longitude", ErrMalformed, index)
		}

		lonDelta, next, err := decodeValue(encoded, index)
		if err != nil {
			return nil, err
		}
		index = next
		lon += lonDelta

		coords = append(coords, Coordinate{
			Lat: float64(lat) / precision,
			Lon: float64(lon) / precision,
		})
	}

	return coords, nil
}

// decodeValue decodes a single value from the polyline at the given index.
// Returns the decoded delta value and the new index position.
func decodeValue(encoded string, index int) (int64, int, error) {
	var shift uint
	var result int64

	for {
		if index >= len(encoded) {
			return 0, index, fmt.Errorf("%w: truncated value at offset %d", ErrMalformed, index)
		}
		b := int64(encoded[index]) - 63
		if b < 0 || b > 0x3f {
			return 0, index, fmt.Errorf("%w: invalid byte %q at offset %d", ErrMalformed, encoded[index], index)
		}
		index++
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
		if shift > maxShift {
			return 0, index, fmt.Errorf("%w: value too long at offset %d", ErrMalformed, index)
		}
	}

	// Apply two's complement for negative values
	if result&1 != 0 {
		return ^(result >> 1), index, nil
	}
	return result >> 1, index, nil
}

// Encode encodes a slice of coordinates into a polyline-encoded string.
// The polyline format uses precision of 5 decimal places (standard Google/OSRM format).
func Encode(coords []Coordinate) string {
	return EncodeWithPrecision(coords, Precision5)
}

// EncodeWithPrecision encodes coordinates using the given precision factor.
func EncodeWithPrecision(coords []Coordinate, precision float64) string {
	if len(coords) == 0 {
		return ""
	}
	if precision <= 0 {
		precision = Precision5
	}

	encoded := make([]byte, 0, len(coords)*4)
	var prevLat, prevLon int64

	for _, coord := range coords {
		lat := int64(math.Round(coord.Lat * precision))
		lon := int64(math.Round(coord.Lon * precision))

		encoded = encodeValue(encoded, lat-prevLat)
		encoded = encodeValue(encoded, lon-prevLon)

		prevLat = lat
		prevLon = lon
	}

	return string(encoded)
}

// encodeValue encodes a single integer value using the polyline algorithm.
func encodeValue(buf []byte, value int64) []byte {
	// Invert if negative
	if value < 0 {
		value = ^(value << 1)
	} else {
		value <<= 1
	}

	// Encode in 5-bit chunks
	for value >= 0x20 {
		buf = append(buf, byte((value&0x1f)|0x20)+63)
		value >>= 5
	}
	buf = append(buf, byte(value)+63)

	return buf
}
