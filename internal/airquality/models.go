// Package airquality holds the air quality domain: pollutant readings
// ingested from the prediction service, spatial interpolation between
// reading sites, and the current/forecast/heatmap queries served by the API.
package airquality

import (
	"context"
	"errors"
	"time"

	"github.com/cleanairroute/cleanairroute/internal/evaluation"
)

var (
	// ErrNoReadings is returned when no stored readings cover the requested
	// area and time window.
	ErrNoReadings = errors.New("no air quality readings available")

	// ErrNoPrediction is returned when the prediction service produced no
	// usable forecast.
	ErrNoPrediction = errors.New("no prediction available")

	// ErrProviderUnavailable is returned when the prediction service cannot
	// be reached.
	ErrProviderUnavailable = errors.New("air quality provider unavailable")

	// ErrInvalidLocation is returned for coordinates outside valid range.
	ErrInvalidLocation = errors.New("invalid location")

	// ErrInvalidBounds is returned for a malformed bounding box.
	ErrInvalidBounds = errors.New("invalid bounds")
)

// Pollutant identifies a measured pollutant.
type Pollutant string

const (
	PollutantPM25 Pollutant = "pm25"
	PollutantPM10 Pollutant = "pm10"
	PollutantO3   Pollutant = "o3"
	PollutantNO2  Pollutant = "no2"
)

// AllPollutants lists every pollutant tracked per reading.
var AllPollutants = []Pollutant{PollutantPM25, PollutantPM10, PollutantO3, PollutantNO2}

// Reading is one stored air quality observation for a location. Readings
// come from the prediction service's hour-zero output, recorded per district
// by the ingest worker.
type Reading struct {
	ID         int64
	District   string
	Lat        float64
	Lon        float64
	PM25       float64
	PM10       float64
	O3         float64
	NO2        float64
	AQI        int
	Grade      evaluation.Grade
	Confidence float64
	Source     string
	RecordedAt time.Time
}

// Bounds is a lat/lon bounding box. MinLat/MinLon is the south-west corner.
type Bounds struct {
	MinLat float64
	MinLon float64
	MaxLat float64
	MaxLon float64
}

// Valid reports whether the box is well formed and inside coordinate range.
func (b Bounds) Valid() bool {
	if b.MinLat > b.MaxLat || b.MinLon > b.MaxLon {
		return false
	}
	if b.MinLat < -90 || b.MaxLat > 90 || b.MinLon < -180 || b.MaxLon > 180 {
		return false
	}
	return true
}

// CurrentConditions is the interpolated air quality at a point right now.
type CurrentConditions struct {
	Lat           float64
	Lon           float64
	PM25          float64
	PM10          float64
	O3            float64
	NO2           float64
	AQI           int
	Grade         evaluation.Grade
	Color         string
	Confidence    Confidence
	Contributions []ReadingContribution
	ObservedAt    time.Time
}

// HeatmapCell is one grid cell of an area heatmap, graded by PM2.5.
type HeatmapCell struct {
	Lat   float64
	Lon   float64
	PM25  float64
	AQI   int
	Grade evaluation.Grade
	Color string
}

// Heatmap is a grid of interpolated cells covering a bounding box.
type Heatmap struct {
	Bounds      Bounds
	Cells       []HeatmapCell
	GridSize    int
	ReadingsIn  int
	GeneratedAt time.Time
}

// HourlyAirQuality is one hour of a forecast.
type HourlyAirQuality struct {
	Hour  int
	PM25  float64
	PM10  float64
	O3    float64
	NO2   float64
	AQI   int
	Grade evaluation.Grade
}

// Prediction is a multi-hour forecast for a location.
type Prediction struct {
	Lat          float64
	Lon          float64
	Hourly       []HourlyAirQuality
	Confidence   float64
	ModelVersion string
	PredictedAt  time.Time
}

// ModelStatus describes the prediction service's loaded model.
type ModelStatus struct {
	ModelVersion string
	ModelType    string
	TrainedAt    time.Time
	FeatureCount int
	Healthy      bool
}

// Predictor is the prediction service surface the domain depends on.
// The predict package provides the HTTP implementation.
type Predictor interface {
	Predict(ctx context.Context, lat, lon float64, hours int) (*Prediction, error)
	ModelStatus(ctx context.Context) (*ModelStatus, error)
}
