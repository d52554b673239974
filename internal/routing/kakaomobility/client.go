// Package kakaomobility provides a client for the Kakao Mobility route gateway.
package kakaomobility

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cleanairroute/cleanairroute/internal/evaluation"
	"github.com/cleanairroute/cleanairroute/internal/provider/resilience"
	"github.com/cleanairroute/cleanairroute/internal/routing"
	"github.com/cleanairroute/cleanairroute/pkg/polyline"
)

const (
	// ProviderName identifies this routing provider.
	ProviderName = "kakaomobility"

	// DefaultBaseURL is the route gateway base URL.
	DefaultBaseURL = "https://apis-navi.kakaomobility.com"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second

	// waypointSpacingMeters controls how densely route geometry is
	// converted into waypoints when the gateway sends only a polyline.
	waypointSpacingMeters = 500
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the Kakao Mobility client.
type ClientConfig struct {
	// APIKey is the Kakao REST API key (required).
	APIKey string

	// BaseURL is the gateway base URL (optional).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional, defaults to 10s).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a Kakao Mobility route gateway client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new Kakao Mobility client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Timeout = timeout
		if cfg.Registry != nil {
			clientCfg.Registry = cfg.Registry
		}
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// FetchRoutes retrieves route candidates between two points.
func (c *Client) FetchRoutes(ctx context.Context, req routing.RoutesRequest) (*routing.RoutesResponse, error) {
	if err := validateCoordinates(req.Origin); err != nil {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "INVALID_ORIGIN",
			Message:  "invalid origin coordinates",
			Err:      routing.ErrInvalidCoordinates,
		}
	}
	if err := validateCoordinates(req.Destination); err != nil {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "INVALID_DESTINATION",
			Message:  "invalid destination coordinates",
			Err:      routing.ErrInvalidCoordinates,
		}
	}

	priority := req.Priority
	if priority == "" {
		priority = routing.PriorityRecommend
	}

	// The gateway expects "lat,lon" pairs.
	query := url.Values{}
	query.Set("origin", formatCoordinate(req.Origin))
	query.Set("destination", formatCoordinate(req.Destination))
	query.Set("priority", priority)

	endpoint := fmt.Sprintf("%s/routes?%s", c.baseURL, query.Encode())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header.Set("Authorization", "KakaoAK "+c.apiKey)
	httpReq.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("priority", priority).
		Float64("origin_lat", req.Origin.Lat).
		Float64("origin_lon", req.Origin.Lon).
		Float64("dest_lat", req.Destination.Lat).
		Float64("dest_lon", req.Destination.Lon).
		Msg("requesting routes from gateway")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "REQUEST_FAILED",
			Message:  "failed to reach route gateway",
			Err:      routing.ErrProviderUnavailable,
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.handleErrorResponse(resp.StatusCode, respBody)
	}

	var kakaoResp kakaoResponse
	if err := json.Unmarshal(respBody, &kakaoResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	result := c.toRoutesResponse(&kakaoResp)

	c.logger.Debug().
		Int("candidate_count", len(result.Candidates)).
		Msg("received routes from gateway")

	return result, nil
}

// handleErrorResponse maps gateway error responses to domain errors.
func (c *Client) handleErrorResponse(statusCode int, body []byte) error {
	var kakaoErr kakaoErrorResponse
	if err := json.Unmarshal(body, &kakaoErr); err != nil {
		// Fall back to generic error if we can't parse
		return &routing.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("HTTP_%d", statusCode),
			Message:  fmt.Sprintf("route gateway returned status %d", statusCode),
			Err:      routing.ErrProviderUnavailable,
		}
	}

	switch statusCode {
	case http.StatusTooManyRequests:
		return &routing.Error{
			Provider: ProviderName,
			Code:     "RATE_LIMIT",
			Message:  "API rate limit exceeded, please try again later",
			Err:      routing.ErrRateLimitExceeded,
		}
	case http.StatusUnauthorized:
		return &routing.Error{
			Provider: ProviderName,
			Code:     "UNAUTHORIZED",
			Message:  "API key rejected - check KakaoAK credentials",
			Err:      routing.ErrProviderUnavailable,
		}
	case http.StatusForbidden:
		return &routing.Error{
			Provider: ProviderName,
			Code:     "FORBIDDEN",
			Message:  "API access denied - check API key permissions",
			Err:      routing.ErrProviderUnavailable,
		}
	case http.StatusNotFound:
		return &routing.Error{
			Provider: ProviderName,
			Code:     "NO_ROUTE",
			Message:  "no route found between the given points",
			Err:      routing.ErrNoRouteFound,
		}
	case http.StatusBadRequest:
		// The gateway reports unroutable point pairs as a 400 with its
		// own code rather than a 404.
		if kakaoErr.Code == kakaoErrorCodeNoRoute {
			return &routing.Error{
				Provider: ProviderName,
				Code:     "NO_ROUTE",
				Message:  kakaoErr.Msg,
				Err:      routing.ErrNoRouteFound,
			}
		}
		return &routing.Error{
			Provider: ProviderName,
			Code:     "BAD_REQUEST",
			Message:  kakaoErr.Msg,
			Err:      routing.ErrInvalidCoordinates,
		}
	default:
		if statusCode >= 500 {
			return &routing.Error{
				Provider: ProviderName,
				Code:     fmt.Sprintf("SERVER_%d", statusCode),
				Message:  "route gateway is temporarily unavailable",
				Err:      routing.ErrProviderUnavailable,
			}
		}
		return &routing.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("HTTP_%d", statusCode),
			Message:  kakaoErr.Msg,
			Err:      routing.ErrProviderUnavailable,
		}
	}
}

// toRoutesResponse converts the gateway response to the domain model.
func (c *Client) toRoutesResponse(resp *kakaoResponse) *routing.RoutesResponse {
	candidates := make([]evaluation.RouteCandidate, 0, len(resp.Routes))

	for i := range resp.Routes {
		kr := &resp.Routes[i]
		candidate := evaluation.RouteCandidate{
			ID:              kr.RouteID,
			Category:        evaluation.Category(kr.RouteType),
			DistanceKm:      kr.Distance,
			DurationMinutes: kr.Duration,
			Path:            kr.Polyline,
		}

		// Not every gateway deployment assigns route IDs.
		if candidate.ID == "" {
			candidate.ID = "route_" + uuid.New().String()[:8]
		}

		for _, wp := range kr.Waypoints {
			candidate.Waypoints = append(candidate.Waypoints, evaluation.Coordinate{
				Lat: wp.Latitude,
				Lon: wp.Longitude,
			})
		}

		// Some responses carry geometry only as a polyline.
		if len(candidate.Waypoints) == 0 && kr.Polyline != "" {
			candidate.Waypoints = waypointsFromPolyline(kr.Polyline)
		}
		if candidate.Path == "" && len(candidate.Waypoints) >= 2 {
			candidate.Path = encodeWaypoints(candidate.Waypoints)
		}

		candidates = append(candidates, candidate)
	}

	return &routing.RoutesResponse{
		Candidates: candidates,
		Provider:   ProviderName,
		FetchedAt:  time.Now(),
	}
}

// waypointsFromPolyline decodes route geometry and thins it so downstream
// air quality sampling does not walk thousands of vertices.
func waypointsFromPolyline(encoded string) []evaluation.Coordinate {
	points := polyline.Sample(polyline.Decode(encoded), waypointSpacingMeters)

	waypoints := make([]evaluation.Coordinate, 0, len(points))
	for _, p := range points {
		waypoints = append(waypoints, evaluation.Coordinate{Lat: p.Lat, Lon: p.Lon})
	}
	return waypoints
}

// encodeWaypoints produces an encoded polyline for waypoint-only routes.
func encodeWaypoints(waypoints []evaluation.Coordinate) string {
	points := make([]polyline.Coordinate, 0, len(waypoints))
	for _, wp := range waypoints {
		points = append(points, polyline.Coordinate{Lat: wp.Lat, Lon: wp.Lon})
	}
	return polyline.Encode(points)
}

// formatCoordinate renders a coordinate as the "lat,lon" pair the gateway expects.
func formatCoordinate(c evaluation.Coordinate) string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lon)
}

// validateCoordinates checks if coordinates are within valid ranges.
func validateCoordinates(c evaluation.Coordinate) error {
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("latitude %f out of range [-90, 90]", c.Lat)
	}
	if c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("longitude %f out of range [-180, 180]", c.Lon)
	}
	return nil
}
