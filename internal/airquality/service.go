package airquality

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Forecast horizon limits in hours.
const (
	DefaultForecastHours = 24
	MaxForecastHours     = 72
)

// Heatmap grid limits per axis.
const (
	DefaultHeatmapGridSize = 10
	MinHeatmapGridSize     = 2
	MaxHeatmapGridSize     = 50
)

// ServiceConfig holds configuration for the air quality service.
type ServiceConfig struct {
	// Repository stores ingested readings. Required.
	Repository Repository

	// Predictor is the prediction service client. Optional; without it
	// forecasts are unavailable and current conditions rely on stored
	// readings alone.
	Predictor Predictor

	// Interpolator estimates values between reading sites.
	// Defaults to NewInterpolator(DefaultInterpolationConfig()).
	Interpolator *Interpolator

	// Logger for service operations.
	Logger zerolog.Logger

	// ReadingMaxAge is how old a stored reading may be and still count as
	// current (default: 90 minutes).
	ReadingMaxAge time.Duration

	// NearRadiusKm is the search radius for current conditions
	// (default: 10km).
	NearRadiusKm float64

	// HeatmapCacheTTL is how long generated heatmaps are cached
	// (default: 5 minutes).
	HeatmapCacheTTL time.Duration
}

// Service answers current, forecast, and heatmap air quality queries from
// stored readings, falling back to the prediction service when the store
// has nothing recent.
type Service struct {
	repository      Repository
	predictor       Predictor
	interpolator    *Interpolator
	logger          zerolog.Logger
	readingMaxAge   time.Duration
	nearRadiusKm    float64
	heatmapCacheTTL time.Duration

	mu       sync.RWMutex
	heatmaps map[string]heatmapCacheEntry
}

type heatmapCacheEntry struct {
	heatmap   *Heatmap
	expiresAt time.Time
}

// NewService creates a new air quality service.
func NewService(cfg ServiceConfig) *Service {
	interpolator := cfg.Interpolator
	if interpolator == nil {
		interpolator = NewInterpolator(DefaultInterpolationConfig())
	}

	readingMaxAge := cfg.ReadingMaxAge
	if readingMaxAge == 0 {
		readingMaxAge = 90 * time.Minute
	}

	nearRadiusKm := cfg.NearRadiusKm
	if nearRadiusKm <= 0 {
		nearRadiusKm = 10
	}

	heatmapCacheTTL := cfg.HeatmapCacheTTL
	if heatmapCacheTTL == 0 {
		heatmapCacheTTL = 5 * time.Minute
	}

	return &Service{
		repository:      cfg.Repository,
		predictor:       cfg.Predictor,
		interpolator:    interpolator,
		logger:          cfg.Logger,
		readingMaxAge:   readingMaxAge,
		nearRadiusKm:    nearRadiusKm,
		heatmapCacheTTL: heatmapCacheTTL,
		heatmaps:        make(map[string]heatmapCacheEntry),
	}
}

// Current returns interpolated air quality at a point. Stored readings are
// preferred; when none are recent enough the prediction service fills in.
func (s *Service) Current(ctx context.Context, lat, lon float64) (*CurrentConditions, error) {
	if err := validateLocation(lat, lon); err != nil {
		return nil, err
	}

	since := time.Now().Add(-s.readingMaxAge)
	readings, err := s.repository.Near(ctx, lat, lon, s.nearRadiusKm, since)
	if err != nil {
		s.logger.Error().Err(err).Msg("reading lookup failed")
		readings = nil
	}

	if len(readings) > 0 {
		point, err := s.interpolator.Interpolate(lat, lon, readings)
		if err == nil {
			return conditionsFromPoint(point, newestRecordedAt(readings)), nil
		}
		s.logger.Warn().Err(err).
			Int("readings", len(readings)).
			Msg("interpolation failed, falling back to model")
	}

	return s.currentFromModel(ctx, lat, lon)
}

// currentFromModel asks the prediction service for the current hour.
func (s *Service) currentFromModel(ctx context.Context, lat, lon float64) (*CurrentConditions, error) {
	if s.predictor == nil {
		return nil, ErrNoReadings
	}

	prediction, err := s.predictor.Predict(ctx, lat, lon, 1)
	if err != nil {
		s.logger.Error().Err(err).Msg("model fallback failed")
		return nil, ErrNoReadings
	}
	if len(prediction.Hourly) == 0 {
		return nil, ErrNoReadings
	}

	s.logger.Debug().
		Float64("lat", lat).
		Float64("lon", lon).
		Msg("serving current conditions from model")

	hour := prediction.Hourly[0]
	confidence := ConfidenceLow
	if prediction.Confidence >= 0.7 {
		confidence = ConfidenceMedium
	}

	return &CurrentConditions{
		Lat:        lat,
		Lon:        lon,
		PM25:       hour.PM25,
		PM10:       hour.PM10,
		O3:         hour.O3,
		NO2:        hour.NO2,
		AQI:        hour.AQI,
		Grade:      hour.Grade,
		Color:      ColorForGrade(hour.Grade),
		Confidence: confidence,
		ObservedAt: prediction.PredictedAt,
	}, nil
}

// Forecast returns an hourly forecast for a point. Hours outside 1..72 are
// clamped; zero means the default horizon.
func (s *Service) Forecast(ctx context.Context, lat, lon float64, hours int) (*Prediction, error) {
	if err := validateLocation(lat, lon); err != nil {
		return nil, err
	}
	if s.predictor == nil {
		return nil, ErrNoPrediction
	}

	if hours <= 0 {
		hours = DefaultForecastHours
	}
	if hours > MaxForecastHours {
		hours = MaxForecastHours
	}

	prediction, err := s.predictor.Predict(ctx, lat, lon, hours)
	if err != nil {
		return nil, err
	}
	if len(prediction.Hourly) == 0 {
		return nil, ErrNoPrediction
	}

	return prediction, nil
}

// Heatmap interpolates a grid of cells covering the bounding box.
func (s *Service) Heatmap(ctx context.Context, bounds Bounds, gridSize int) (*Heatmap, error) {
	if !bounds.Valid() {
		return nil, ErrInvalidBounds
	}

	if gridSize <= 0 {
		gridSize = DefaultHeatmapGridSize
	}
	if gridSize < MinHeatmapGridSize {
		gridSize = MinHeatmapGridSize
	}
	if gridSize > MaxHeatmapGridSize {
		gridSize = MaxHeatmapGridSize
	}

	key := heatmapCacheKey(bounds, gridSize)

	s.mu.RLock()
	if entry, ok := s.heatmaps[key]; ok && time.Now().Before(entry.expiresAt) {
		s.mu.RUnlock()
		return entry.heatmap, nil
	}
	s.mu.RUnlock()

	since := time.Now().Add(-s.readingMaxAge)
	readings, err := s.repository.Within(ctx, expandBounds(bounds, s.interpolator.config.MaxDistance), since)
	if err != nil {
		return nil, err
	}
	if len(readings) == 0 {
		return nil, ErrNoReadings
	}

	heatmap := s.buildHeatmap(bounds, gridSize, readings)
	if len(heatmap.Cells) == 0 {
		return nil, ErrNoReadings
	}

	s.mu.Lock()
	s.heatmaps[key] = heatmapCacheEntry{
		heatmap:   heatmap,
		expiresAt: time.Now().Add(s.heatmapCacheTTL),
	}
	s.mu.Unlock()

	s.logger.Info().
		Int("cells", len(heatmap.Cells)).
		Int("readings", len(readings)).
		Int("grid_size", gridSize).
		Msg("heatmap generated")

	return heatmap, nil
}

// buildHeatmap interpolates each cell center. Cells out of reach of every
// reading are omitted rather than filled with guesses.
func (s *Service) buildHeatmap(bounds Bounds, gridSize int, readings []*Reading) *Heatmap {
	latStep := (bounds.MaxLat - bounds.MinLat) / float64(gridSize)
	lonStep := (bounds.MaxLon - bounds.MinLon) / float64(gridSize)

	cells := make([]HeatmapCell, 0, gridSize*gridSize)
	for row := 0; row < gridSize; row++ {
		for col := 0; col < gridSize; col++ {
			cellLat := bounds.MinLat + (float64(row)+0.5)*latStep
			cellLon := bounds.MinLon + (float64(col)+0.5)*lonStep

			point, err := s.interpolator.Interpolate(cellLat, cellLon, readings)
			if err != nil {
				continue
			}

			pm25 := point.Values[PollutantPM25]
			grade := GradeFromPM25(pm25)
			cells = append(cells, HeatmapCell{
				Lat:   cellLat,
				Lon:   cellLon,
				PM25:  pm25,
				AQI:   IndexFromPM25(pm25),
				Grade: grade,
				Color: ColorForGrade(grade),
			})
		}
	}

	return &Heatmap{
		Bounds:      bounds,
		Cells:       cells,
		GridSize:    gridSize,
		ReadingsIn:  len(readings),
		GeneratedAt: time.Now(),
	}
}

// ModelStatus reports the prediction service's model health.
func (s *Service) ModelStatus(ctx context.Context) (*ModelStatus, error) {
	if s.predictor == nil {
		return nil, ErrProviderUnavailable
	}
	return s.predictor.ModelStatus(ctx)
}

// InvalidateCache clears all cached heatmaps.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.heatmaps = make(map[string]heatmapCacheEntry)
}

// conditionsFromPoint converts an interpolated point into current
// conditions, deriving index and grade from PM2.5.
func conditionsFromPoint(point *InterpolatedPoint, observedAt time.Time) *CurrentConditions {
	pm25 := point.Values[PollutantPM25]
	grade := GradeFromPM25(pm25)

	return &CurrentConditions{
		Lat:           point.Lat,
		Lon:           point.Lon,
		PM25:          pm25,
		PM10:          point.Values[PollutantPM10],
		O3:            point.Values[PollutantO3],
		NO2:           point.Values[PollutantNO2],
		AQI:           IndexFromPM25(pm25),
		Grade:         grade,
		Color:         ColorForGrade(grade),
		Confidence:    point.Confidence,
		Contributions: point.Contributions,
		ObservedAt:    observedAt,
	}
}

// newestRecordedAt returns the latest observation time among readings.
func newestRecordedAt(readings []*Reading) time.Time {
	var newest time.Time
	for _, r := range readings {
		if r.RecordedAt.After(newest) {
			newest = r.RecordedAt
		}
	}
	return newest
}

// expandBounds widens the box by the interpolation range so cells near the
// edge can still see readings just outside it.
func expandBounds(bounds Bounds, maxDistanceMeters float64) Bounds {
	latDelta := maxDistanceMeters / 1000 / kmPerDegreeLat
	midLat := (bounds.MinLat + bounds.MaxLat) / 2
	lonDelta := maxDistanceMeters / 1000 / (kmPerDegreeLat * math.Cos(midLat*math.Pi/180))

	return Bounds{
		MinLat: math.Max(bounds.MinLat-latDelta, -90),
		MinLon: math.Max(bounds.MinLon-lonDelta, -180),
		MaxLat: math.Min(bounds.MaxLat+latDelta, 90),
		MaxLon: math.Min(bounds.MaxLon+lonDelta, 180),
	}
}

func heatmapCacheKey(bounds Bounds, gridSize int) string {
	return fmt.Sprintf("%.4f:%.4f:%.4f:%.4f:%d",
		bounds.MinLat, bounds.MinLon, bounds.MaxLat, bounds.MaxLon, gridSize)
}

func validateLocation(lat, lon float64) error {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return fmt.Errorf("%w: lat=%v lon=%v", ErrInvalidLocation, lat, lon)
	}
	return nil
}
