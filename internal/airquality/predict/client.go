// Package predict provides a client for the air quality prediction service.
package predict

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cleanairroute/cleanairroute/internal/airquality"
	"github.com/cleanairroute/cleanairroute/internal/evaluation"
	"github.com/cleanairroute/cleanairroute/internal/provider/resilience"
)

const (
	// DefaultBaseURL is the base URL for the prediction service.
	DefaultBaseURL = "http://localhost:8000"

	// ProviderName identifies this provider.
	ProviderName = "aq-predict"
)

// ClientConfig holds configuration for the prediction service client.
type ClientConfig struct {
	// BaseURL is the API base URL (defaults to DefaultBaseURL).
	BaseURL string

	// HTTPClient is the HTTP client to use (must implement HTTPDoer).
	// If nil, a default resilient client will be created.
	HTTPClient HTTPDoer

	// Timeout for individual API requests (default: 30s). Model inference
	// is slow compared to plain lookups.
	Timeout time.Duration

	// Registry receives the default resilient client for health reporting
	// (optional, unused when HTTPClient is set).
	Registry *resilience.Registry
}

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a prediction service client.
type Client struct {
	baseURL    string
	httpClient HTTPDoer
}

// NewClient creates a new prediction service client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = resilience.NewClient(resilience.ClientConfig{
			Name:            ProviderName,
			Timeout:         timeout,
			MaxRetries:      3,
			InitialInterval: 200 * time.Millisecond,
			MaxInterval:     5 * time.Second,
			Registry:        cfg.Registry,
		})
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

// API request/response types (from the prediction service).

type predictRequest struct {
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
	PredictionHours int     `json:"prediction_hours"`
}

type predictResponse struct {
	Success        bool               `json:"success"`
	Predictions    []hourlyPrediction `json:"predictions"`
	Confidence     float64            `json:"confidence"`
	ModelVersion   string             `json:"model_version"`
	PredictionTime string             `json:"prediction_time"`
}

type hourlyPrediction struct {
	Hour            int     `json:"hour"`
	PredictedPM25   float64 `json:"predicted_pm25"`
	PredictedPM10   float64 `json:"predicted_pm10"`
	PredictedO3     float64 `json:"predicted_o3"`
	PredictedNO2    float64 `json:"predicted_no2"`
	AirQualityIndex int     `json:"air_quality_index"`
	Grade           string  `json:"grade"`
	Confidence      float64 `json:"confidence"`
}

type statusResponse struct {
	ModelVersion string `json:"model_version"`
	ModelType    string `json:"model_type"`
	TrainedAt    string `json:"trained_at"`
	FeatureCount int    `json:"feature_count"`
	Status       string `json:"status"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// Predict requests an hourly forecast for a location.
func (c *Client) Predict(ctx context.Context, lat, lon float64, hours int) (*airquality.Prediction, error) {
	payload, err := json.Marshal(predictRequest{
		Latitude:        lat,
		Longitude:       lon,
		PredictionHours: hours,
	})
	if err != nil {
		return nil, fmt.Errorf("encode predict request: %w", err)
	}

	url := c.baseURL + "/api/v1/predict"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", airquality.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError("predict", resp)
	}

	var result predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode predict response: %w", err)
	}

	if !result.Success || len(result.Predictions) == 0 {
		return nil, airquality.ErrNoPrediction
	}

	return c.toPrediction(lat, lon, &result), nil
}

// ModelStatus retrieves the loaded model's metadata.
func (c *Client) ModelStatus(ctx context.Context) (*airquality.ModelStatus, error) {
	url := c.baseURL + "/api/v1/models/status"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", airquality.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError("model status", resp)
	}

	var result statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode status response: %w", err)
	}

	trainedAt, _ := time.Parse(time.RFC3339, result.TrainedAt)

	return &airquality.ModelStatus{
		ModelVersion: result.ModelVersion,
		ModelType:    result.ModelType,
		TrainedAt:    trainedAt,
		FeatureCount: result.FeatureCount,
		Healthy:      result.Status == "ready",
	}, nil
}

// Estimate returns the current-hour estimate for a coordinate. It adapts
// the forecast endpoint to the shape route evaluation consumes.
func (c *Client) Estimate(ctx context.Context, coord evaluation.Coordinate) (evaluation.AirQualitySample, error) {
	prediction, err := c.Predict(ctx, coord.Lat, coord.Lon, 1)
	if err != nil {
		return evaluation.AirQualitySample{}, err
	}

	hour := prediction.Hourly[0]
	return evaluation.AirQualitySample{
		PM25:       hour.PM25,
		PM10:       hour.PM10,
		O3:         hour.O3,
		NO2:        hour.NO2,
		Index:      hour.AQI,
		Grade:      hour.Grade,
		Confidence: prediction.Confidence,
	}, nil
}

// statusError turns a non-200 response into an error, surfacing the
// service's detail message when it sends one.
func (c *Client) statusError(operation string, resp *http.Response) error {
	var apiErr errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Detail != "" {
		if resp.StatusCode >= 500 {
			return fmt.Errorf("%w: %s", airquality.ErrProviderUnavailable, apiErr.Detail)
		}
		return fmt.Errorf("%s failed with status %d: %s", operation, resp.StatusCode, apiErr.Detail)
	}

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: status %d from %s endpoint", airquality.ErrProviderUnavailable, resp.StatusCode, operation)
	}
	return fmt.Errorf("unexpected status %d from %s endpoint", resp.StatusCode, operation)
}

// toPrediction converts a service response to a domain Prediction.
func (c *Client) toPrediction(lat, lon float64, result *predictResponse) *airquality.Prediction {
	hourly := make([]airquality.HourlyAirQuality, 0, len(result.Predictions))
	for _, p := range result.Predictions {
		grade := toGrade(p.Grade)
		if grade == "" {
			// Older model versions omit grade and index.
			grade = airquality.GradeFromPM25(p.PredictedPM25)
		}
		aqi := p.AirQualityIndex
		if aqi == 0 && p.PredictedPM25 > 0 {
			aqi = airquality.IndexFromPM25(p.PredictedPM25)
		}

		hourly = append(hourly, airquality.HourlyAirQuality{
			Hour:  p.Hour,
			PM25:  p.PredictedPM25,
			PM10:  p.PredictedPM10,
			O3:    p.PredictedO3,
			NO2:   p.PredictedNO2,
			AQI:   aqi,
			Grade: grade,
		})
	}

	predictedAt, err := time.Parse(time.RFC3339, result.PredictionTime)
	if err != nil {
		predictedAt = time.Now()
	}

	return &airquality.Prediction{
		Lat:          lat,
		Lon:          lon,
		Hourly:       hourly,
		Confidence:   result.Confidence,
		ModelVersion: result.ModelVersion,
		PredictedAt:  predictedAt,
	}
}

// toGrade converts a service grade string to our Grade type.
func toGrade(grade string) evaluation.Grade {
	switch strings.ToLower(grade) {
	case "good":
		return evaluation.GradeGood
	case "moderate":
		return evaluation.GradeModerate
	case "unhealthy":
		return evaluation.GradeUnhealthy
	case "very_unhealthy":
		return evaluation.GradeVeryUnhealthy
	case "hazardous":
		return evaluation.GradeHazardous
	default:
		return ""
	}
}

// Interface checks.
var (
	_ airquality.Predictor = (*Client)(nil)
	_ evaluation.Estimator = (*Client)(nil)
)
