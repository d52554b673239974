package routing

import (
	"github.com/cleanairroute/cleanairroute/internal/evaluation"
	"github.com/cleanairroute/cleanairroute/pkg/polyline"
)

// Fallback candidate parameters. The set is fixed so the evaluation engine
// stays usable (and testable) when the map provider is down: distances scale
// from the direct line between the endpoints, durations are constants.
const (
	fallbackFastestFactor    = 1.1
	fallbackShortestFactor   = 1.0
	fallbackHealthiestFactor = 1.3

	fallbackFastestMinutes    = 25
	fallbackShortestMinutes   = 35
	fallbackHealthiestMinutes = 45
)

// FallbackCandidates builds the deterministic candidate set for a pair of
// endpoints: one candidate per category, two-point waypoints, distances
// scaled from the direct-line distance.
func FallbackCandidates(origin, destination evaluation.Coordinate) []evaluation.RouteCandidate {
	line := []polyline.Coordinate{
		{Lat: origin.Lat, Lon: origin.Lon},
		{Lat: destination.Lat, Lon: destination.Lon},
	}
	directKm := polyline.Length(line) / 1000
	path := polyline.Encode(line)
	waypoints := []evaluation.Coordinate{origin, destination}

	return []evaluation.RouteCandidate{
		{
			ID:              "route_001",
			Category:        evaluation.CategoryFastest,
			DistanceKm:      directKm * fallbackFastestFactor,
			DurationMinutes: fallbackFastestMinutes,
			Path:            path,
			Waypoints:       waypoints,
		},
		{
			ID:              "route_002",
			Category:        evaluation.CategoryShortest,
			DistanceKm:      directKm * fallbackShortestFactor,
			DurationMinutes: fallbackShortestMinutes,
			Path:            path,
			Waypoints:       waypoints,
		},
		{
			ID:              "route_003",
			Category:        evaluation.CategoryHealthiest,
			DistanceKm:      directKm * fallbackHealthiestFactor,
			DurationMinutes: fallbackHealthiestMinutes,
			Path:            path,
			Waypoints:       waypoints,
		},
	}
}
