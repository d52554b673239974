package routing

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cleanairroute/cleanairroute/internal/evaluation"
)

// ServiceConfig holds configuration for the candidate fetching service.
type ServiceConfig struct {
	// Provider is the external map provider. Required.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// CacheTTL is how long to cache candidate sets (default: 5 minutes).
	CacheTTL time.Duration

	// CacheGridSize is the size of cache grid cells in degrees (default: 0.01 ~ 1.1km).
	// Endpoint pairs within the same grid cells share cached candidates.
	CacheGridSize float64

	// StaleIfErrorTTL allows serving stale candidates on provider errors (default: 15 minutes).
	StaleIfErrorTTL time.Duration

	// CleanupInterval is how often to clean up expired entries (default: 5 minutes).
	CleanupInterval time.Duration
}

// Service fetches route candidates with caching. A failing or empty
// provider never fails the caller: the deterministic fallback set is
// substituted so evaluation can proceed.
type Service struct {
	provider        Provider
	logger          zerolog.Logger
	cacheTTL        time.Duration
	cacheGridSize   float64
	staleIfErrorTTL time.Duration
	cleanupInterval time.Duration

	mu          sync.RWMutex
	cache       map[string]*cachedCandidates
	lastCleanup time.Time
}

type cachedCandidates struct {
	candidates []evaluation.RouteCandidate
	fetchedAt  time.Time
	expiresAt  time.Time
}

// NewService creates a new candidate fetching service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 5 * time.Minute
	}

	cacheGridSize := cfg.CacheGridSize
	if cacheGridSize == 0 {
		cacheGridSize = 0.01 // ~1.1km at the equator
	}

	staleIfErrorTTL := cfg.StaleIfErrorTTL
	if staleIfErrorTTL == 0 {
		staleIfErrorTTL = 15 * time.Minute
	}

	cleanupInterval := cfg.CleanupInterval
	if cleanupInterval == 0 {
		cleanupInterval = 5 * time.Minute
	}

	return &Service{
		provider:        cfg.Provider,
		logger:          cfg.Logger,
		cacheTTL:        cacheTTL,
		cacheGridSize:   cacheGridSize,
		staleIfErrorTTL: staleIfErrorTTL,
		cleanupInterval: cleanupInterval,
		cache:           make(map[string]*cachedCandidates),
	}
}

// FetchCandidates returns route candidates between two points. Uses cached
// candidates when fresh. Provider failures and empty provider results fall
// back to the deterministic candidate set; only invalid coordinates fail.
func (s *Service) FetchCandidates(ctx context.Context, origin, destination evaluation.Coordinate) ([]evaluation.RouteCandidate, error) {
	if err := validateCoordinate(origin); err != nil {
		return nil, &Error{
			Provider: s.provider.Name(),
			Code:     "INVALID_ORIGIN",
			Message:  "invalid origin coordinates",
			Err:      ErrInvalidCoordinates,
		}
	}
	if err := validateCoordinate(destination); err != nil {
		return nil, &Error{
			Provider: s.provider.Name(),
			Code:     "INVALID_DESTINATION",
			Message:  "invalid destination coordinates",
			Err:      ErrInvalidCoordinates,
		}
	}

	cacheKey := s.cacheKey(origin, destination)

	s.mu.RLock()
	if cached, ok := s.cache[cacheKey]; ok && time.Now().Before(cached.expiresAt) {
		s.mu.RUnlock()
		s.logger.Debug().
			Str("cache_key", cacheKey).
			Msg("cache hit for route candidates")
		return cached.candidates, nil
	}
	s.mu.RUnlock()

	return s.fetchCandidates(ctx, origin, destination, cacheKey)
}

// fetchCandidates fetches from the provider and updates the cache.
func (s *Service) fetchCandidates(ctx context.Context, origin, destination evaluation.Coordinate, cacheKey string) ([]evaluation.RouteCandidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check cache (prevents thundering herd)
	if cached, ok := s.cache[cacheKey]; ok && time.Now().Before(cached.expiresAt) {
		s.logger.Debug().
			Str("cache_key", cacheKey).
			Msg("cache hit after double-check")
		return cached.candidates, nil
	}

	s.logger.Debug().
		Float64("origin_lat", origin.Lat).
		Float64("origin_lon", origin.Lon).
		Float64("dest_lat", destination.Lat).
		Float64("dest_lon", destination.Lon).
		Str("provider", s.provider.Name()).
		Msg("fetching route candidates from provider")

	resp, err := s.provider.FetchRoutes(ctx, RoutesRequest{
		Origin:      origin,
		Destination: destination,
		Priority:    PriorityRecommend,
	})
	if err != nil {
		s.logger.Error().Err(err).
			Float64("origin_lat", origin.Lat).
			Float64("origin_lon", origin.Lon).
			Float64("dest_lat", destination.Lat).
			Float64("dest_lon", destination.Lon).
			Msg("failed to fetch route candidates")

		// Stale real data beats the synthetic fallback.
		if cached, ok := s.cache[cacheKey]; ok {
			if time.Now().Before(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
				s.logger.Warn().
					Time("fetched_at", cached.fetchedAt).
					Str("cache_key", cacheKey).
					Msg("serving stale candidates due to provider error")
				return cached.candidates, nil
			}
		}

		s.logger.Warn().
			Str("provider", s.provider.Name()).
			Msg("provider unavailable, using fallback candidates")
		return FallbackCandidates(origin, destination), nil
	}

	if len(resp.Candidates) == 0 {
		s.logger.Warn().
			Str("provider", s.provider.Name()).
			Msg("provider returned no routes, using fallback candidates")
		return FallbackCandidates(origin, destination), nil
	}

	now := time.Now()
	s.cache[cacheKey] = &cachedCandidates{
		candidates: resp.Candidates,
		fetchedAt:  now,
		expiresAt:  now.Add(s.cacheTTL),
	}

	s.logger.Debug().
		Str("cache_key", cacheKey).
		Int("candidate_count", len(resp.Candidates)).
		Msg("cached route candidates")

	s.cleanupIfNeeded()

	return resp.Candidates, nil
}

// cacheKey quantizes both endpoints onto the cache grid.
// Format: {gridOriginLat},{gridOriginLon}:{gridDestLat},{gridDestLon}.
func (s *Service) cacheKey(origin, destination evaluation.Coordinate) string {
	gridOriginLat := math.Floor(origin.Lat/s.cacheGridSize) * s.cacheGridSize
	gridOriginLon := math.Floor(origin.Lon/s.cacheGridSize) * s.cacheGridSize
	gridDestLat := math.Floor(destination.Lat/s.cacheGridSize) * s.cacheGridSize
	gridDestLon := math.Floor(destination.Lon/s.cacheGridSize) * s.cacheGridSize

	return fmt.Sprintf("%.2f,%.2f:%.2f,%.2f",
		gridOriginLat, gridOriginLon,
		gridDestLat, gridDestLon,
	)
}

// cleanupIfNeeded removes expired entries if the cleanup interval has passed.
func (s *Service) cleanupIfNeeded() {
	now := time.Now()
	if now.Sub(s.lastCleanup) < s.cleanupInterval {
		return
	}

	s.lastCleanup = now
	expired := 0

	for key, cached := range s.cache {
		if now.After(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
			delete(s.cache, key)
			expired++
		}
	}

	if expired > 0 {
		s.logger.Debug().
			Int("expired_entries", expired).
			Msg("cleaned up expired candidate cache entries")
	}
}

// InvalidateCache clears all cached candidates.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]*cachedCandidates)
}

// CacheStats returns cache statistics.
func (s *Service) CacheStats() CacheStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	fresh := 0
	stale := 0

	for _, c := range s.cache {
		if now.Before(c.expiresAt) {
			fresh++
		} else if now.Before(c.fetchedAt.Add(s.staleIfErrorTTL)) {
			stale++
		}
	}

	return CacheStats{
		TotalEntries: len(s.cache),
		FreshEntries: fresh,
		StaleEntries: stale,
		Provider:     s.provider.Name(),
	}
}

// CacheStats contains cache statistics.
type CacheStats struct {
	TotalEntries int
	FreshEntries int
	StaleEntries int
	Provider     string
}

// ProviderName returns the name of the underlying provider.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}

// validateCoordinate checks that a coordinate is within valid ranges.
func validateCoordinate(c evaluation.Coordinate) error {
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("latitude %f out of range [-90, 90]", c.Lat)
	}
	if c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("longitude %f out of range [-180, 180]", c.Lon)
	}
	return nil
}
