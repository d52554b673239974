// Package polyline implements Google's polyline encoding for route
// geometry, plus length and interval-sampling helpers used when shaping
// provider geometry into waypoints.
package polyline

import (
	"math"
)

// Coordinate is a geographic point.
type Coordinate struct {
	Lat float64
	Lon float64
}

const precision = 1e5

// Encode encodes coordinates into a polyline string at the standard
// 5-decimal precision.
func Encode(coords []Coordinate) string {
	if len(coords) == 0 {
		return ""
	}

	buf := make([]byte, 0, len(coords)*4)
	var prevLat, prevLon int

	for _, c := range coords {
		lat := int(math.Round(c.Lat * precision))
		lon := int(math.Round(c.Lon * precision))

		buf = appendChunks(buf, lat-prevLat)
		buf = appendChunks(buf, lon-prevLon)

		prevLat, prevLon = lat, lon
	}

	return string(buf)
}

// Decode decodes a polyline string. Returns nil for an empty input.
func Decode(encoded string) []Coordinate {
	if encoded == "" {
		return nil
	}

	var coords []Coordinate
	var lat, lon int
	i := 0

	for i < len(encoded) {
		dLat, next := readChunks(encoded, i)
		i = next
		lat += dLat

		dLon, next := readChunks(encoded, i)
		i = next
		lon += dLon

		coords = append(coords, Coordinate{
			Lat: float64(lat) / precision,
			Lon: float64(lon) / precision,
		})
	}

	return coords
}

// appendChunks writes one signed value as 5-bit chunks offset by 63.
func appendChunks(buf []byte, v int) []byte {
	if v < 0 {
		v = ^(v << 1)
	} else {
		v <<= 1
	}

	for v >= 0x20 {
		buf = append(buf, byte((v&0x1f)|0x20)+63)
		v >>= 5
	}
	return append(buf, byte(v)+63)
}

// readChunks reads one signed value starting at index i and returns the
// value and the index just past it.
func readChunks(encoded string, i int) (int, int) {
	var shift, result int

	for i < len(encoded) {
		b := int(encoded[i]) - 63
		i++
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
	}

	if result&1 != 0 {
		return ^(result >> 1), i
	}
	return result >> 1, i
}

// Length returns the total path length in meters.
func Length(coords []Coordinate) float64 {
	if len(coords) < 2 {
		return 0
	}

	var total float64
	for i := 1; i < len(coords); i++ {
		total += haversineMeters(coords[i-1], coords[i])
	}
	return total
}

// Sample returns points spaced approximately intervalMeters apart along the
// path. The first and last input points are always present in the output.
func Sample(coords []Coordinate, intervalMeters float64) []Coordinate {
	if len(coords) == 0 {
		return nil
	}
	if intervalMeters <= 0 {
		return coords
	}

	out := []Coordinate{coords[0]}
	carried := 0.0

	for i := 1; i < len(coords); i++ {
		legDist := haversineMeters(coords[i-1], coords[i])
		if legDist == 0 {
			continue
		}

		// offset is how far along this leg we have emitted points.
		offset := 0.0
		for carried+(legDist-offset) >= intervalMeters {
			offset += intervalMeters - carried
			carried = 0

			frac := offset / legDist
			out = append(out, Coordinate{
				Lat: coords[i-1].Lat + frac*(coords[i].Lat-coords[i-1].Lat),
				Lon: coords[i-1].Lon + frac*(coords[i].Lon-coords[i-1].Lon),
			})
		}

		carried += legDist - offset
	}

	end := coords[len(coords)-1]
	if out[len(out)-1] != end {
		out = append(out, end)
	}

	return out
}

const earthRadiusMeters = 6371000

func haversineMeters(a, b Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)

	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}
