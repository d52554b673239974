// Package routing fetches route candidates from external map providers and
// supplies a deterministic fallback set when none are available.
package routing

import (
	"context"
	"errors"
	"time"

	"github.com/cleanairroute/cleanairroute/internal/evaluation"
)

// Sentinel errors for candidate fetching.
var (
	// ErrProviderUnavailable indicates the map provider is down or the circuit breaker is open.
	ErrProviderUnavailable = errors.New("map provider unavailable")
	// ErrNoRouteFound indicates the provider could not route between the given points.
	ErrNoRouteFound = errors.New("no route found between the given points")
	// ErrRateLimitExceeded indicates the provider API quota has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	// ErrInvalidCoordinates indicates coordinates outside valid ranges.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
)

// Provider defines the interface for map providers that return raw route
// candidates between two points.
type Provider interface {
	// FetchRoutes retrieves route candidates between two points.
	FetchRoutes(ctx context.Context, req RoutesRequest) (*RoutesResponse, error)
	// Name returns the provider identifier for logging and metrics.
	Name() string
}

// Priority values understood by the map provider.
const (
	// PriorityRecommend asks the provider for its recommended mix of routes.
	PriorityRecommend = "RECOMMEND"
)

// RoutesRequest is the request for route candidates.
type RoutesRequest struct {
	Origin      evaluation.Coordinate
	Destination evaluation.Coordinate
	Priority    string // Defaults to PriorityRecommend when empty
}

// RoutesResponse carries the provider's raw candidates.
type RoutesResponse struct {
	Candidates []evaluation.RouteCandidate
	Provider   string
	FetchedAt  time.Time
}

// Error provides detailed error information from the map provider.
type Error struct {
	Provider string // Provider that generated the error
	Code     string // Error code from the provider
	Message  string // Human-readable error message
	Err      error  // Underlying error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is transient and the request can be retried.
func (e *Error) IsRetryable() bool {
	return errors.Is(e.Err, ErrProviderUnavailable) || errors.Is(e.Err, ErrRateLimitExceeded)
}
