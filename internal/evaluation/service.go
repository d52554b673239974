package evaluation

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// ServiceConfig holds configuration for the evaluation service.
type ServiceConfig struct {
	// Oracle collects per-coordinate air quality samples. Required.
	Oracle *Oracle

	// Logger for candidate-level failures.
	Logger zerolog.Logger

	// SampleCount is the number of interpolation steps per route; the
	// sampled sequence has SampleCount+1 coordinates. Default: 10.
	SampleCount int
}

// Service evaluates raw route candidates concurrently and selects the best
// route per category. A failing candidate is logged and dropped; it never
// aborts its siblings.
type Service struct {
	oracle      *Oracle
	logger      zerolog.Logger
	sampleCount int
}

// NewService creates an evaluation service, filling config defaults.
func NewService(cfg ServiceConfig) *Service {
	if cfg.SampleCount <= 0 {
		cfg.SampleCount = 10
	}

	return &Service{
		oracle:      cfg.Oracle,
		logger:      cfg.Logger.With().Str("component", "evaluation").Logger(),
		sampleCount: cfg.SampleCount,
	}
}

// Evaluate scores every candidate and returns the category selection.
// Candidates are evaluated concurrently; result order follows input order,
// not completion order. A cancelled context discards all partial work and
// reports an unsuccessful result.
func (s *Service) Evaluate(ctx context.Context, candidates []RouteCandidate) SelectionResult {
	if len(candidates) == 0 {
		return Select(nil)
	}

	type outcome struct {
		route ScoredRoute
		err   error
	}

	outcomes := make([]outcome, len(candidates))
	var wg sync.WaitGroup

	for i := range candidates {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			route, err := s.evaluateCandidate(ctx, candidates[idx])
			if err != nil {
				outcomes[idx] = outcome{err: err}
				return
			}
			outcomes[idx] = outcome{route: route}
		}(i)
	}

	wg.Wait()

	if ctx.Err() != nil {
		s.logger.Warn().Err(ctx.Err()).Msg("evaluation cancelled, discarding partial results")
		return SelectionResult{
			Success: false,
			Message: "경로 평가가 취소되었습니다",
		}
	}

	scored := make([]ScoredRoute, 0, len(candidates))
	for i, out := range outcomes {
		if out.err != nil {
			s.logger.Error().
				Err(out.err).
				Str("route_id", candidates[i].ID).
				Str("category", string(candidates[i].Category)).
				Msg("candidate evaluation failed, excluding route")
			continue
		}
		scored = append(scored, out.route)
	}

	result := Select(scored)

	s.logger.Info().
		Int("candidates", len(candidates)).
		Int("valid_routes", result.TotalRoutes).
		Bool("success", result.Success).
		Msg("route evaluation completed")

	return result
}

// evaluateCandidate runs the full pipeline for one candidate: sample the
// geometry, collect air quality, score, and build segment detail.
func (s *Service) evaluateCandidate(ctx context.Context, candidate RouteCandidate) (ScoredRoute, error) {
	coords, err := SampleCoordinates(candidate.Waypoints, s.sampleCount)
	if err != nil {
		return ScoredRoute{}, &CandidateError{RouteID: candidate.ID, Category: candidate.Category, Err: err}
	}

	samples, defaulted := s.oracle.Collect(ctx, coords)

	if err := ctx.Err(); err != nil {
		return ScoredRoute{}, &CandidateError{RouteID: candidate.ID, Category: candidate.Category, Err: err}
	}

	score, err := Score(samples)
	if err != nil {
		return ScoredRoute{}, &CandidateError{RouteID: candidate.ID, Category: candidate.Category, Err: err}
	}

	segments, err := BuildSegments(coords, samples)
	if err != nil {
		return ScoredRoute{}, &CandidateError{RouteID: candidate.ID, Category: candidate.Category, Err: fmt.Errorf("build segments: %w", err)}
	}

	if defaulted > 0 {
		s.logger.Debug().
			Str("route_id", candidate.ID).
			Int("defaulted_samples", defaulted).
			Int("total_samples", len(samples)).
			Msg("some samples used default air quality")
	}

	return ScoredRoute{
		RouteCandidate:   candidate,
		AirQualityScore:  score.AirQuality,
		AverageIndex:     score.AverageIndex,
		Exposure:         score.Exposure,
		Segments:         segments,
		Sampled:          coords,
		DefaultedSamples: defaulted,
	}, nil
}
