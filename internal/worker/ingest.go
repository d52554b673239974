package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cleanairroute/cleanairroute/internal/airquality"
)

// IngestJob pulls current-hour predictions for every configured district
// point and stores them as readings. The stored readings feed interpolation
// for current conditions and heatmaps.
type IngestJob struct {
	config     IngestConfig
	logger     zerolog.Logger
	predictor  airquality.Predictor
	repository airquality.Repository

	mu      sync.RWMutex
	metrics IngestMetrics
}

// IngestMetrics tracks ingest job statistics across runs.
type IngestMetrics struct {
	// Counters
	TotalRuns        int64
	SuccessfulPoints int64
	FailedPoints     int64
	ReadingsStored   int64

	// Timings
	LastRunAt       time.Time
	LastRunDuration time.Duration
	TotalDuration   time.Duration
}

// IngestJobConfig holds configuration for creating an IngestJob.
type IngestJobConfig struct {
	Config     IngestConfig
	Logger     zerolog.Logger
	Predictor  airquality.Predictor
	Repository airquality.Repository
}

// NewIngestJob creates a new ingest job processor.
func NewIngestJob(cfg IngestJobConfig) *IngestJob {
	config := cfg.Config
	if len(config.Targets) == 0 {
		config = DefaultIngestConfig()
	}
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultIngestConfig().Concurrency
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultIngestConfig().Timeout
	}

	return &IngestJob{
		config:     config,
		logger:     cfg.Logger,
		predictor:  cfg.Predictor,
		repository: cfg.Repository,
	}
}

// IngestResult contains the result of an ingest run.
type IngestResult struct {
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
	TotalPoints    int
	Successful     int
	Failed         int
	ReadingsStored int
	Errors         []IngestError
}

// IngestError represents an error during ingest.
type IngestError struct {
	District string
	Point    Point
	Error    string
}

// Run executes the ingest job for all configured district points.
func (j *IngestJob) Run(ctx context.Context) *IngestResult {
	startTime := time.Now()
	result := &IngestResult{
		StartTime:   startTime,
		TotalPoints: j.config.TotalPoints(),
	}

	j.logger.Info().
		Int("total_points", result.TotalPoints).
		Int("concurrency", j.config.Concurrency).
		Msg("starting reading ingest job")

	points := j.config.AllPoints()

	pointsChan := make(chan DistrictPoint, len(points))
	resultsChan := make(chan pointResult, len(points))

	// Start workers
	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.ingestWorker(ctx, pointsChan, resultsChan)
		}()
	}

	// Send points to workers
	for _, p := range points {
		pointsChan <- p
	}
	close(pointsChan)

	// Wait for workers to complete
	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	// Collect results
	for pr := range resultsChan {
		if pr.success {
			result.Successful++
		} else {
			result.Failed++
		}
		result.ReadingsStored += pr.stored
		result.Errors = append(result.Errors, pr.errors...)
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Int("readings_stored", result.ReadingsStored).
		Msg("reading ingest job completed")

	return result
}

type pointResult struct {
	point   DistrictPoint
	success bool
	stored  int
	errors  []IngestError
}

func (j *IngestJob) ingestWorker(ctx context.Context, points <-chan DistrictPoint, results chan<- pointResult) {
	for point := range points {
		select {
		case <-ctx.Done():
			return
		default:
			results <- j.ingestPoint(ctx, point)
		}
	}
}

func (j *IngestJob) ingestPoint(ctx context.Context, dp DistrictPoint) pointResult {
	result := pointResult{
		point:   dp,
		success: true,
	}

	// Nothing to do without both collaborators; a partially wired job is
	// allowed for dry runs.
	if j.predictor == nil || j.repository == nil {
		return result
	}

	pointCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	prediction, err := j.predictor.Predict(pointCtx, dp.Point.Lat, dp.Point.Lon, 1)
	if err != nil {
		result.errors = append(result.errors, IngestError{
			District: dp.District,
			Point:    dp.Point,
			Error:    err.Error(),
		})
		result.success = false
		return result
	}
	if len(prediction.Hourly) == 0 {
		result.errors = append(result.errors, IngestError{
			District: dp.District,
			Point:    dp.Point,
			Error:    "prediction has no hourly data",
		})
		result.success = false
		return result
	}

	reading := readingFromPrediction(dp, prediction)
	if err := j.repository.Upsert(pointCtx, reading); err != nil {
		result.errors = append(result.errors, IngestError{
			District: dp.District,
			Point:    dp.Point,
			Error:    "store reading: " + err.Error(),
		})
		result.success = false
		return result
	}

	result.stored++
	return result
}

// readingFromPrediction turns the current-hour forecast into a stored
// reading. RecordedAt is truncated to the hour so reruns within the same
// hour update the existing row instead of stacking duplicates.
func readingFromPrediction(dp DistrictPoint, prediction *airquality.Prediction) *airquality.Reading {
	hour := prediction.Hourly[0]

	source := "model"
	if prediction.ModelVersion != "" {
		source = "model:" + prediction.ModelVersion
	}

	return &airquality.Reading{
		District:   dp.District,
		Lat:        dp.Point.Lat,
		Lon:        dp.Point.Lon,
		PM25:       hour.PM25,
		PM10:       hour.PM10,
		O3:         hour.O3,
		NO2:        hour.NO2,
		AQI:        hour.AQI,
		Grade:      hour.Grade,
		Confidence: prediction.Confidence,
		Source:     source,
		RecordedAt: prediction.PredictedAt.Truncate(time.Hour),
	}
}

func (j *IngestJob) updateMetrics(result *IngestResult) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.metrics.TotalRuns++
	j.metrics.SuccessfulPoints += int64(result.Successful)
	j.metrics.FailedPoints += int64(result.Failed)
	j.metrics.ReadingsStored += int64(result.ReadingsStored)
	j.metrics.LastRunAt = result.EndTime
	j.metrics.LastRunDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *IngestJob) GetMetrics() IngestMetrics {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return j.metrics
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *IngestJob) MetricsSnapshot() map[string]interface{} {
	m := j.GetMetrics()
	return map[string]interface{}{
		"total_runs":        m.TotalRuns,
		"successful_points": m.SuccessfulPoints,
		"failed_points":     m.FailedPoints,
		"readings_stored":   m.ReadingsStored,
		"last_run_at":       m.LastRunAt,
		"last_run_duration": m.LastRunDuration.String(),
		"total_duration":    m.TotalDuration.String(),
	}
}
