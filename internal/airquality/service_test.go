package airquality_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleanairroute/cleanairroute/internal/airquality"
	"github.com/cleanairroute/cleanairroute/internal/evaluation"
)

// fakePredictor is a stub prediction service client.
type fakePredictor struct {
	prediction *airquality.Prediction
	status     *airquality.ModelStatus
	err        error
	calls      int
	lastHours  int
}

func (f *fakePredictor) Predict(_ context.Context, lat, lon float64, hours int) (*airquality.Prediction, error) {
	f.calls++
	f.lastHours = hours
	if f.err != nil {
		return nil, f.err
	}
	return f.prediction, nil
}

func (f *fakePredictor) ModelStatus(_ context.Context) (*airquality.ModelStatus, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.status, nil
}

// erroringRepo fails every lookup.
type erroringRepo struct {
	err error
}

func (r *erroringRepo) Upsert(_ context.Context, _ *airquality.Reading) error {
	return r.err
}

func (r *erroringRepo) Within(_ context.Context, _ airquality.Bounds, _ time.Time) ([]*airquality.Reading, error) {
	return nil, r.err
}

func (r *erroringRepo) Near(_ context.Context, _, _, _ float64, _ time.Time) ([]*airquality.Reading, error) {
	return nil, r.err
}

func (r *erroringRepo) Latest(_ context.Context, _ int) ([]*airquality.Reading, error) {
	return nil, r.err
}

// countingRepo counts Within calls to observe heatmap cache behavior.
type countingRepo struct {
	inner       airquality.Repository
	withinCalls int
}

func (r *countingRepo) Upsert(ctx context.Context, reading *airquality.Reading) error {
	return r.inner.Upsert(ctx, reading)
}

func (r *countingRepo) Within(ctx context.Context, bounds airquality.Bounds, since time.Time) ([]*airquality.Reading, error) {
	r.withinCalls++
	return r.inner.Within(ctx, bounds, since)
}

func (r *countingRepo) Near(ctx context.Context, lat, lon, radiusKm float64, since time.Time) ([]*airquality.Reading, error) {
	return r.inner.Near(ctx, lat, lon, radiusKm, since)
}

func (r *countingRepo) Latest(ctx context.Context, limit int) ([]*airquality.Reading, error) {
	return r.inner.Latest(ctx, limit)
}

func seedReadings(t *testing.T, repo airquality.Repository) {
	t.Helper()
	for _, reading := range seoulReadings() {
		require.NoError(t, repo.Upsert(context.Background(), reading))
	}
}

func TestService_Current_FromReadings(t *testing.T) {
	repo := airquality.NewInMemoryRepository()
	seedReadings(t, repo)
	predictor := &fakePredictor{}

	svc := airquality.NewService(airquality.ServiceConfig{
		Repository: repo,
		Predictor:  predictor,
		Logger:     zerolog.Nop(),
	})

	// Query at the Gangnam reading site
	conditions, err := svc.Current(context.Background(), 37.5172, 127.0473)
	require.NoError(t, err)
	require.NotNil(t, conditions)

	assert.InDelta(t, 20.0, conditions.PM25, 0.5)
	assert.Equal(t, airquality.IndexFromPM25(conditions.PM25), conditions.AQI)
	assert.Equal(t, evaluation.GradeModerate, conditions.Grade)
	assert.Equal(t, "#FFFF00", conditions.Color)
	assert.Equal(t, airquality.ConfidenceHigh, conditions.Confidence)
	assert.NotEmpty(t, conditions.Contributions)
	assert.WithinDuration(t, time.Now(), conditions.ObservedAt, 5*time.Second)

	assert.Equal(t, 0, predictor.calls, "model should not be consulted when readings suffice")
}

func TestService_Current_ModelFallback(t *testing.T) {
	predictedAt := time.Now().Truncate(time.Second)
	predictor := &fakePredictor{
		prediction: &airquality.Prediction{
			Lat: 37.5172,
			Lon: 127.0473,
			Hourly: []airquality.HourlyAirQuality{
				{Hour: 0, PM25: 30, PM10: 50, O3: 0.04, NO2: 0.02, AQI: 87, Grade: evaluation.GradeModerate},
			},
			Confidence:   0.8,
			ModelVersion: "v3",
			PredictedAt:  predictedAt,
		},
	}

	svc := airquality.NewService(airquality.ServiceConfig{
		Repository: airquality.NewInMemoryRepository(),
		Predictor:  predictor,
		Logger:     zerolog.Nop(),
	})

	conditions, err := svc.Current(context.Background(), 37.5172, 127.0473)
	require.NoError(t, err)

	assert.Equal(t, 30.0, conditions.PM25)
	assert.Equal(t, 87, conditions.AQI)
	assert.Equal(t, evaluation.GradeModerate, conditions.Grade)
	assert.Equal(t, "#FFFF00", conditions.Color)
	assert.Equal(t, airquality.ConfidenceMedium, conditions.Confidence)
	assert.Equal(t, predictedAt, conditions.ObservedAt)
	assert.Equal(t, 1, predictor.calls)
	assert.Equal(t, 1, predictor.lastHours, "fallback should ask for a single hour")
}

func TestService_Current_StaleReadingsIgnored(t *testing.T) {
	repo := airquality.NewInMemoryRepository()
	stale := seoulReadings()[0]
	stale.RecordedAt = time.Now().Add(-3 * time.Hour)
	require.NoError(t, repo.Upsert(context.Background(), stale))

	predictor := &fakePredictor{
		prediction: &airquality.Prediction{
			Hourly:      []airquality.HourlyAirQuality{{PM25: 12, AQI: 40, Grade: evaluation.GradeGood}},
			Confidence:  0.6,
			PredictedAt: time.Now(),
		},
	}

	svc := airquality.NewService(airquality.ServiceConfig{
		Repository: repo,
		Predictor:  predictor,
		Logger:     zerolog.Nop(),
	})

	conditions, err := svc.Current(context.Background(), 37.5172, 127.0473)
	require.NoError(t, err)

	assert.Equal(t, 12.0, conditions.PM25, "stale reading must not be served as current")
	assert.Equal(t, airquality.ConfidenceLow, conditions.Confidence)
	assert.Equal(t, 1, predictor.calls)
}

func TestService_Current_RepositoryError(t *testing.T) {
	predictor := &fakePredictor{
		prediction: &airquality.Prediction{
			Hourly:      []airquality.HourlyAirQuality{{PM25: 22, AQI: 67, Grade: evaluation.GradeModerate}},
			Confidence:  0.75,
			PredictedAt: time.Now(),
		},
	}

	svc := airquality.NewService(airquality.ServiceConfig{
		Repository: &erroringRepo{err: errors.New("connection refused")},
		Predictor:  predictor,
		Logger:     zerolog.Nop(),
	})

	conditions, err := svc.Current(context.Background(), 37.5172, 127.0473)
	require.NoError(t, err, "a broken store should not break current conditions")
	assert.Equal(t, 22.0, conditions.PM25)
}

func TestService_Current_NothingAvailable(t *testing.T) {
	t.Run("predictor fails", func(t *testing.T) {
		svc := airquality.NewService(airquality.ServiceConfig{
			Repository: airquality.NewInMemoryRepository(),
			Predictor:  &fakePredictor{err: errors.New("model offline")},
			Logger:     zerolog.Nop(),
		})

		_, err := svc.Current(context.Background(), 37.5172, 127.0473)
		assert.ErrorIs(t, err, airquality.ErrNoReadings)
	})

	t.Run("no predictor configured", func(t *testing.T) {
		svc := airquality.NewService(airquality.ServiceConfig{
			Repository: airquality.NewInMemoryRepository(),
			Logger:     zerolog.Nop(),
		})

		_, err := svc.Current(context.Background(), 37.5172, 127.0473)
		assert.ErrorIs(t, err, airquality.ErrNoReadings)
	})
}

func TestService_Current_InvalidLocation(t *testing.T) {
	svc := airquality.NewService(airquality.ServiceConfig{
		Repository: airquality.NewInMemoryRepository(),
		Logger:     zerolog.Nop(),
	})

	_, err := svc.Current(context.Background(), 95.0, 127.0473)
	assert.ErrorIs(t, err, airquality.ErrInvalidLocation)
}

func TestService_Forecast(t *testing.T) {
	prediction := &airquality.Prediction{
		Hourly:      []airquality.HourlyAirQuality{{Hour: 0, PM25: 18, AQI: 57, Grade: evaluation.GradeModerate}},
		Confidence:  0.82,
		PredictedAt: time.Now(),
	}

	tests := []struct {
		name          string
		requested     int
		expectedHours int
	}{
		{"explicit horizon", 5, 5},
		{"zero means default", 0, 24},
		{"clamped to max", 100, 72},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			predictor := &fakePredictor{prediction: prediction}
			svc := airquality.NewService(airquality.ServiceConfig{
				Repository: airquality.NewInMemoryRepository(),
				Predictor:  predictor,
				Logger:     zerolog.Nop(),
			})

			result, err := svc.Forecast(context.Background(), 37.5172, 127.0473, tt.requested)
			require.NoError(t, err)
			assert.Equal(t, prediction, result)
			assert.Equal(t, tt.expectedHours, predictor.lastHours)
		})
	}
}

func TestService_Forecast_Errors(t *testing.T) {
	t.Run("no predictor", func(t *testing.T) {
		svc := airquality.NewService(airquality.ServiceConfig{
			Repository: airquality.NewInMemoryRepository(),
			Logger:     zerolog.Nop(),
		})

		_, err := svc.Forecast(context.Background(), 37.5172, 127.0473, 24)
		assert.ErrorIs(t, err, airquality.ErrNoPrediction)
	})

	t.Run("provider error passes through", func(t *testing.T) {
		svc := airquality.NewService(airquality.ServiceConfig{
			Repository: airquality.NewInMemoryRepository(),
			Predictor:  &fakePredictor{err: airquality.ErrProviderUnavailable},
			Logger:     zerolog.Nop(),
		})

		_, err := svc.Forecast(context.Background(), 37.5172, 127.0473, 24)
		assert.ErrorIs(t, err, airquality.ErrProviderUnavailable)
	})

	t.Run("empty forecast", func(t *testing.T) {
		svc := airquality.NewService(airquality.ServiceConfig{
			Repository: airquality.NewInMemoryRepository(),
			Predictor:  &fakePredictor{prediction: &airquality.Prediction{}},
			Logger:     zerolog.Nop(),
		})

		_, err := svc.Forecast(context.Background(), 37.5172, 127.0473, 24)
		assert.ErrorIs(t, err, airquality.ErrNoPrediction)
	})

	t.Run("invalid location", func(t *testing.T) {
		svc := airquality.NewService(airquality.ServiceConfig{
			Repository: airquality.NewInMemoryRepository(),
			Predictor:  &fakePredictor{},
			Logger:     zerolog.Nop(),
		})

		_, err := svc.Forecast(context.Background(), 37.5172, 200.0, 24)
		assert.ErrorIs(t, err, airquality.ErrInvalidLocation)
	})
}

var seoulBounds = airquality.Bounds{
	MinLat: 37.45,
	MinLon: 126.85,
	MaxLat: 37.62,
	MaxLon: 127.15,
}

func TestService_Heatmap(t *testing.T) {
	inner := airquality.NewInMemoryRepository()
	seedReadings(t, inner)
	repo := &countingRepo{inner: inner}

	svc := airquality.NewService(airquality.ServiceConfig{
		Repository: repo,
		Logger:     zerolog.Nop(),
	})

	heatmap, err := svc.Heatmap(context.Background(), seoulBounds, 4)
	require.NoError(t, err)

	assert.Equal(t, 4, heatmap.GridSize)
	assert.Len(t, heatmap.Cells, 16, "every cell center is within interpolation range")
	assert.Equal(t, 5, heatmap.ReadingsIn)

	for _, cell := range heatmap.Cells {
		assert.True(t, cell.Lat > seoulBounds.MinLat && cell.Lat < seoulBounds.MaxLat)
		assert.True(t, cell.Lon > seoulBounds.MinLon && cell.Lon < seoulBounds.MaxLon)
		assert.True(t, cell.PM25 > 0)
		assert.Equal(t, airquality.GradeFromPM25(cell.PM25), cell.Grade)
		assert.Equal(t, airquality.ColorForGrade(cell.Grade), cell.Color)
		assert.Equal(t, airquality.IndexFromPM25(cell.PM25), cell.AQI)
	}

	// Second call is served from cache
	again, err := svc.Heatmap(context.Background(), seoulBounds, 4)
	require.NoError(t, err)
	assert.Same(t, heatmap, again)
	assert.Equal(t, 1, repo.withinCalls)

	// Invalidation forces a rebuild
	svc.InvalidateCache()
	_, err = svc.Heatmap(context.Background(), seoulBounds, 4)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.withinCalls)
}

func TestService_Heatmap_GridClamping(t *testing.T) {
	repo := airquality.NewInMemoryRepository()
	seedReadings(t, repo)

	svc := airquality.NewService(airquality.ServiceConfig{
		Repository: repo,
		Logger:     zerolog.Nop(),
	})

	heatmap, err := svc.Heatmap(context.Background(), seoulBounds, 0)
	require.NoError(t, err)
	assert.Equal(t, 10, heatmap.GridSize, "zero grid size uses the default")

	heatmap, err = svc.Heatmap(context.Background(), seoulBounds, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, heatmap.GridSize, "grid size is clamped to the minimum")
	assert.Len(t, heatmap.Cells, 4)
}

func TestService_Heatmap_InvalidBounds(t *testing.T) {
	svc := airquality.NewService(airquality.ServiceConfig{
		Repository: airquality.NewInMemoryRepository(),
		Logger:     zerolog.Nop(),
	})

	_, err := svc.Heatmap(context.Background(), airquality.Bounds{
		MinLat: 38.0,
		MinLon: 127.0,
		MaxLat: 37.0,
		MaxLon: 126.0,
	}, 10)
	assert.ErrorIs(t, err, airquality.ErrInvalidBounds)
}

func TestService_Heatmap_NoReadings(t *testing.T) {
	svc := airquality.NewService(airquality.ServiceConfig{
		Repository: airquality.NewInMemoryRepository(),
		Logger:     zerolog.Nop(),
	})

	_, err := svc.Heatmap(context.Background(), seoulBounds, 10)
	assert.ErrorIs(t, err, airquality.ErrNoReadings)
}

func TestService_ModelStatus(t *testing.T) {
	status := &airquality.ModelStatus{
		ModelVersion: "v3",
		ModelType:    "gradient_boosting",
		FeatureCount: 42,
		Healthy:      true,
	}

	svc := airquality.NewService(airquality.ServiceConfig{
		Repository: airquality.NewInMemoryRepository(),
		Predictor:  &fakePredictor{status: status},
		Logger:     zerolog.Nop(),
	})

	got, err := svc.ModelStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, status, got)

	bare := airquality.NewService(airquality.ServiceConfig{
		Repository: airquality.NewInMemoryRepository(),
		Logger:     zerolog.Nop(),
	})

	_, err = bare.ModelStatus(context.Background())
	assert.ErrorIs(t, err, airquality.ErrProviderUnavailable)
}
