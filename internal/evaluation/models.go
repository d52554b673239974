// Package evaluation implements the route evaluation and selection engine:
// sampling route geometry into coordinates, collecting per-coordinate air
// quality estimates, scoring routes, building segment detail, and picking
// the best route per category.
package evaluation

import (
	"errors"
)

// Sentinel errors for route evaluation.
var (
	// ErrTooFewWaypoints indicates a route geometry with fewer than two waypoints.
	ErrTooFewWaypoints = errors.New("route requires at least two waypoints")
	// ErrInvalidSampleCount indicates a non-positive sample count.
	ErrInvalidSampleCount = errors.New("sample count must be positive")
	// ErrEmptySampleSet indicates a route with zero air quality samples.
	// Such routes are excluded from selection rather than scored as zero.
	ErrEmptySampleSet = errors.New("no air quality samples for route")
	// ErrSampleCountMismatch indicates the sample sequence does not line up
	// with the sampled coordinates.
	ErrSampleCountMismatch = errors.New("sample count does not match coordinate count")
)

// Coordinate represents a geographic point.
type Coordinate struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// Category classifies a route candidate by what it optimizes for.
type Category string

const (
	// CategoryFastest is the lowest-duration candidate.
	CategoryFastest Category = "fastest"
	// CategoryShortest is the lowest-distance candidate.
	CategoryShortest Category = "shortest"
	// CategoryHealthiest is the lowest-exposure candidate.
	CategoryHealthiest Category = "healthiest"
	// CategoryOptimal labels the weighted best pick in results.
	CategoryOptimal Category = "optimal"
)

// Grade is the categorical air quality level reported by the oracle.
type Grade string

const (
	GradeGood          Grade = "good"
	GradeModerate      Grade = "moderate"
	GradeUnhealthy     Grade = "unhealthy"
	GradeVeryUnhealthy Grade = "very_unhealthy"
	GradeHazardous     Grade = "hazardous"
)

// Pollutant keys used in exposure maps.
const (
	PollutantPM25 = "pm25"
	PollutantPM10 = "pm10"
	PollutantO3   = "o3"
	PollutantNO2  = "no2"
)

// AirQualitySample is one coordinate's predicted air quality. Defaulted is
// set when the oracle could not be reached and the fixed fallback values
// were substituted.
type AirQualitySample struct {
	PM25       float64 `json:"pm25"`
	PM10       float64 `json:"pm10"`
	O3         float64 `json:"o3"`
	NO2        float64 `json:"no2"`
	Index      int     `json:"air_quality_index"`
	Grade      Grade   `json:"grade"`
	Confidence float64 `json:"confidence"`
	Defaulted  bool    `json:"-"`
}

// RouteCandidate is a raw proposed route before evaluation. Waypoints holds
// at minimum the start and end of the route.
type RouteCandidate struct {
	ID              string       `json:"route_id"`
	Category        Category     `json:"route_type"`
	DistanceKm      float64      `json:"distance"`
	DurationMinutes float64      `json:"duration"`
	Path            string       `json:"polyline"`
	Waypoints       []Coordinate `json:"waypoints"`
}

// RouteSegment is one leg between two adjacent sample coordinates.
type RouteSegment struct {
	Start           Coordinate       `json:"start"`
	End             Coordinate       `json:"end"`
	DistanceKm      float64          `json:"distance"`
	DurationMinutes float64          `json:"duration"`
	AirQuality      AirQualitySample `json:"air_quality"`
	Instruction     string           `json:"instruction"`
}

// ScoredRoute is a candidate enriched with air quality scoring, exposure
// averages, segment detail, and the sampled coordinate sequence.
type ScoredRoute struct {
	RouteCandidate

	// AirQualityScore is in [0,100]; higher is cleaner.
	AirQualityScore float64 `json:"air_quality_score"`
	// AverageIndex is the mean air quality index across samples.
	AverageIndex float64 `json:"average_aqi"`
	// Exposure maps pollutant keys to route-average concentrations.
	Exposure map[string]float64 `json:"pollution_exposure"`
	Segments []RouteSegment     `json:"segments"`
	Sampled  []Coordinate       `json:"-"`
	// DefaultedSamples counts how many samples fell back to the fixed default.
	DefaultedSamples int `json:"-"`
}

// SelectionResult is the final outcome of evaluating a candidate set.
// Success false with zero routes is a valid terminal state, not an error.
type SelectionResult struct {
	Success     bool         `json:"success"`
	Message     string       `json:"message"`
	Fastest     *ScoredRoute `json:"fastest_route,omitempty"`
	Shortest    *ScoredRoute `json:"shortest_route,omitempty"`
	Healthiest  *ScoredRoute `json:"healthiest_route,omitempty"`
	Optimal     *ScoredRoute `json:"optimal_route,omitempty"`
	TotalRoutes int          `json:"total_routes"`
}

// CandidateError describes a candidate that failed evaluation. Failures are
// reported alongside surviving routes; they never abort sibling candidates.
type CandidateError struct {
	RouteID  string
	Category Category
	Err      error
}

func (e *CandidateError) Error() string {
	return "candidate " + e.RouteID + " (" + string(e.Category) + "): " + e.Err.Error()
}

func (e *CandidateError) Unwrap() error {
	return e.Err
}
