package evaluation

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Estimator produces an air quality estimate for a single coordinate.
// Implementations are expected to fail with an error on any problem;
// fallback defaulting is applied here, not inside implementations.
type Estimator interface {
	Estimate(ctx context.Context, c Coordinate) (AirQualitySample, error)
}

// DefaultSample returns the fixed sample substituted when the oracle cannot
// produce an estimate for a coordinate.
func DefaultSample() AirQualitySample {
	return AirQualitySample{
		PM25:       25.0,
		PM10:       40.0,
		O3:         0.05,
		NO2:        0.02,
		Index:      50,
		Grade:      GradeModerate,
		Confidence: 0.5,
		Defaulted:  true,
	}
}

// OracleConfig holds configuration for the Oracle.
type OracleConfig struct {
	// Estimator is the prediction collaborator. Required.
	Estimator Estimator

	// Logger for per-coordinate failures.
	Logger zerolog.Logger

	// Timeout bounds each estimate call. Default: 30 seconds.
	Timeout time.Duration

	// Concurrency is the number of in-flight estimates per route. Default: 4.
	Concurrency int
}

// Oracle fans estimate calls out across a route's sample coordinates.
// This is the single point where per-coordinate failures are converted
// into the documented default sample; callers always receive one sample
// per coordinate, in coordinate order.
type Oracle struct {
	estimator   Estimator
	logger      zerolog.Logger
	timeout     time.Duration
	concurrency int
}

// NewOracle creates an Oracle, filling config defaults.
func NewOracle(cfg OracleConfig) *Oracle {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}

	return &Oracle{
		estimator:   cfg.Estimator,
		logger:      cfg.Logger.With().Str("component", "oracle").Logger(),
		timeout:     cfg.Timeout,
		concurrency: cfg.Concurrency,
	}
}

// Collect returns one sample per coordinate, preserving coordinate order
// regardless of completion order, plus the number of samples that were
// defaulted. Individual failures never propagate; cancellation of ctx stops
// outstanding calls, with the affected coordinates defaulted.
func (o *Oracle) Collect(ctx context.Context, coords []Coordinate) ([]AirQualitySample, int) {
	samples := make([]AirQualitySample, len(coords))
	if len(coords) == 0 {
		return samples, 0
	}

	sem := make(chan struct{}, o.concurrency)
	var wg sync.WaitGroup
	var defaulted atomic.Int64

	for i, c := range coords {
		wg.Add(1)
		go func(idx int, coord Coordinate) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			callCtx, cancel := context.WithTimeout(ctx, o.timeout)
			defer cancel()

			sample, err := o.estimator.Estimate(callCtx, coord)
			if err != nil {
				o.logger.Warn().
					Err(err).
					Float64("lat", coord.Lat).
					Float64("lon", coord.Lon).
					Int("coordinate_index", idx).
					Msg("estimate failed, using default sample")

				samples[idx] = DefaultSample()
				defaulted.Add(1)
				return
			}

			samples[idx] = sample
		}(i, c)
	}

	wg.Wait()
	return samples, int(defaulted.Load())
}
