package kakaomobility

// kakaoResponse represents the route gateway response.
type kakaoResponse struct {
	TransID string       `json:"trans_id,omitempty"`
	Routes  []kakaoRoute `json:"routes"`
}

// kakaoRoute represents a single route candidate on the wire.
type kakaoRoute struct {
	RouteID   string          `json:"route_id"`
	RouteType string          `json:"route_type"`
	Distance  float64         `json:"distance"` // Distance in kilometers
	Duration  float64         `json:"duration"` // Duration in minutes
	Polyline  string          `json:"polyline,omitempty"`
	Waypoints []kakaoWaypoint `json:"waypoints,omitempty"`
	Summary   string          `json:"summary,omitempty"`
}

// kakaoWaypoint is a single point along a route.
type kakaoWaypoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// kakaoErrorResponse represents an error response from the gateway.
type kakaoErrorResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// Gateway error codes for error mapping.
const (
	kakaoErrorCodeNoRoute      = 104 // No route between the given points
	kakaoErrorCodeInvalidParam = -2  // Malformed request parameter
)
