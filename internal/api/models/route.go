package models

// RouteRecommendRequest is the request body for route recommendation.
type RouteRecommendRequest struct {
	Start *Point `json:"start" validate:"required"`
	End   *Point `json:"end" validate:"required"`

	// RouteType narrows the response to a single category. Empty returns
	// every category plus the optimal pick.
	RouteType string `json:"route_type,omitempty" validate:"omitempty,oneof=fastest shortest healthiest optimal"`
}

// RouteRecommendResponse is the response for route recommendation. Success
// false with zero routes means no candidate survived evaluation; it is not
// an error status.
type RouteRecommendResponse struct {
	Success     bool      `json:"success"`
	Message     string    `json:"message,omitempty"`
	TotalRoutes int       `json:"total_routes"`
	GeneratedAt Timestamp `json:"generated_at"`
	Fastest     *Route    `json:"fastest_route,omitempty"`
	Shortest    *Route    `json:"shortest_route,omitempty"`
	Healthiest  *Route    `json:"healthiest_route,omitempty"`
	Optimal     *Route    `json:"optimal_route,omitempty"`
}

// Route is a single evaluated route.
type Route struct {
	ID              string             `json:"route_id"`
	RouteType       RouteType          `json:"route_type"`
	DistanceKm      float64            `json:"distance"`
	DurationMinutes float64            `json:"duration"`
	AirQualityScore float64            `json:"air_quality_score"`
	AverageIndex    float64            `json:"average_aqi"`
	Exposure        map[string]float64 `json:"pollution_exposure"`
	Waypoints       []Point            `json:"waypoints"`
	Segments        []RouteSegment     `json:"segments"`
	Polyline        string             `json:"polyline,omitempty"`
}

// RouteSegment is one leg between two adjacent sample points.
type RouteSegment struct {
	Start           Point             `json:"start"`
	End             Point             `json:"end"`
	DistanceKm      float64           `json:"distance"`
	DurationMinutes float64           `json:"duration"`
	AirQuality      SegmentAirQuality `json:"air_quality"`
	Instruction     string            `json:"instruction"`
}

// SegmentAirQuality is the air quality estimate at a segment midpoint.
type SegmentAirQuality struct {
	PM25       float64 `json:"pm25"`
	PM10       float64 `json:"pm10"`
	O3         float64 `json:"o3"`
	NO2        float64 `json:"no2"`
	Index      int     `json:"air_quality_index"`
	Grade      string  `json:"grade"`
	Confidence float64 `json:"confidence"`
}
