package evaluation

import (
	"fmt"
	"math"
)

// segmentDurationMinutes is a deliberate simplification: per-segment travel
// time is a constant rather than derived from traffic data.
const segmentDurationMinutes = 5.0

const earthRadiusKm = 6371.0

// BuildSegments pairs consecutive sample coordinates into travel segments.
// Each segment carries the great-circle distance between its endpoints, the
// fixed per-segment duration, the air quality sample of its starting
// coordinate, and an ordinal instruction. len(coords)-1 segments are
// produced; samples must line up one per coordinate.
func BuildSegments(coords []Coordinate, samples []AirQualitySample) ([]RouteSegment, error) {
	if len(coords) < 2 {
		return nil, ErrTooFewWaypoints
	}
	if len(samples) != len(coords) {
		return nil, ErrSampleCountMismatch
	}

	segments := make([]RouteSegment, 0, len(coords)-1)
	for i := 0; i < len(coords)-1; i++ {
		segments = append(segments, RouteSegment{
			Start:           coords[i],
			End:             coords[i+1],
			DistanceKm:      HaversineKm(coords[i], coords[i+1]),
			DurationMinutes: segmentDurationMinutes,
			AirQuality:      samples[i],
			Instruction:     fmt.Sprintf("%d번째 구간을 따라 이동하세요", i+1),
		})
	}

	return segments, nil
}

// HaversineKm returns the great-circle distance between two points in
// kilometers.
func HaversineKm(a, b Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)

	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}
