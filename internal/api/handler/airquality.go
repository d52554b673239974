package handler

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/cleanairroute/cleanairroute/internal/airquality"
	"github.com/cleanairroute/cleanairroute/internal/api/models"
	"github.com/cleanairroute/cleanairroute/internal/api/response"
)

// AirQualityHandler handles air quality endpoints.
type AirQualityHandler struct {
	service *airquality.Service
	logger  zerolog.Logger
}

// NewAirQualityHandler creates a new AirQualityHandler.
func NewAirQualityHandler(service *airquality.Service, logger zerolog.Logger) *AirQualityHandler {
	return &AirQualityHandler{
		service: service,
		logger:  logger,
	}
}

// Current handles GET /v1/air-quality/current - blended conditions at a point.
func (h *AirQualityHandler) Current(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var errs []models.FieldError
	lat := parseCoordParam(q.Get("lat"), "lat", 90, &errs)
	lon := parseCoordParam(q.Get("lon"), "lon", 180, &errs)
	if len(errs) > 0 {
		response.BadRequest(w, r, "request validation failed", errs)
		return
	}

	conditions, err := h.service.Current(r.Context(), lat, lon)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, toCurrentAirQuality(conditions))
}

// Forecast handles GET /v1/air-quality/forecast - hourly forecast for a point.
// The hours parameter is optional; the service clamps it to its horizon.
func (h *AirQualityHandler) Forecast(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var errs []models.FieldError
	lat := parseCoordParam(q.Get("lat"), "lat", 90, &errs)
	lon := parseCoordParam(q.Get("lon"), "lon", 180, &errs)

	hours := 0
	if raw := q.Get("hours"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			errs = append(errs, models.FieldError{Field: "hours", Message: "must be a positive integer"})
		} else {
			hours = parsed
		}
	}

	if len(errs) > 0 {
		response.BadRequest(w, r, "request validation failed", errs)
		return
	}

	prediction, err := h.service.Forecast(r.Context(), lat, lon, hours)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, toForecast(prediction))
}

// Heatmap handles GET /v1/air-quality/heatmap - PM2.5 grid over a bounding box.
func (h *AirQualityHandler) Heatmap(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var errs []models.FieldError
	bounds := airquality.Bounds{
		MinLat: parseCoordParam(q.Get("min_lat"), "min_lat", 90, &errs),
		MinLon: parseCoordParam(q.Get("min_lon"), "min_lon", 180, &errs),
		MaxLat: parseCoordParam(q.Get("max_lat"), "max_lat", 90, &errs),
		MaxLon: parseCoordParam(q.Get("max_lon"), "max_lon", 180, &errs),
	}

	cells := 0
	if raw := q.Get("cells"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			errs = append(errs, models.FieldError{Field: "cells", Message: "must be a positive integer"})
		} else {
			cells = parsed
		}
	}

	if len(errs) > 0 {
		response.BadRequest(w, r, "request validation failed", errs)
		return
	}

	heatmap, err := h.service.Heatmap(r.Context(), bounds, cells)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	// Heatmaps are expensive to build and not user specific.
	w.Header().Set("Cache-Control", "public, max-age=60")
	response.JSON(w, r, http.StatusOK, toHeatmap(heatmap))
}

// writeError maps domain sentinel errors onto problem responses.
func (h *AirQualityHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, airquality.ErrInvalidLocation):
		response.BadRequest(w, r, "latitude or longitude out of range", nil)
	case errors.Is(err, airquality.ErrInvalidBounds):
		response.BadRequest(w, r, "bounding box is malformed", nil)
	case errors.Is(err, airquality.ErrNoReadings):
		response.NotFound(w, r, "no recent readings cover this area")
	case errors.Is(err, airquality.ErrNoPrediction):
		response.NotFound(w, r, "no prediction available for this location")
	case errors.Is(err, airquality.ErrProviderUnavailable):
		response.ServiceUnavailable(w, r, "air quality provider is temporarily unavailable")
	default:
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("air quality request failed")
		response.InternalError(w, r, "air quality lookup failed")
	}
}

func toCurrentAirQuality(conditions *airquality.CurrentConditions) models.CurrentAirQuality {
	out := models.CurrentAirQuality{
		Location:   models.Point{Lat: conditions.Lat, Lon: conditions.Lon},
		PM25:       conditions.PM25,
		PM10:       conditions.PM10,
		O3:         conditions.O3,
		NO2:        conditions.NO2,
		AQI:        conditions.AQI,
		Grade:      string(conditions.Grade),
		Color:      conditions.Color,
		Confidence: models.Confidence(conditions.Confidence),
		ObservedAt: models.Timestamp(conditions.ObservedAt),
	}

	for _, c := range conditions.Contributions {
		out.Stations = append(out.Stations, models.StationContribution{
			District:       c.District,
			DistanceMeters: int(math.Round(c.Distance)),
			Weight:         c.Weight,
		})
	}

	return out
}

func toForecast(prediction *airquality.Prediction) models.AirQualityForecast {
	out := models.AirQualityForecast{
		Location:     models.Point{Lat: prediction.Lat, Lon: prediction.Lon},
		Hours:        make([]models.HourlyForecast, 0, len(prediction.Hourly)),
		Confidence:   prediction.Confidence,
		ModelVersion: prediction.ModelVersion,
		PredictedAt:  models.Timestamp(prediction.PredictedAt),
	}

	for _, hour := range prediction.Hourly {
		out.Hours = append(out.Hours, models.HourlyForecast{
			Hour:  hour.Hour,
			PM25:  hour.PM25,
			PM10:  hour.PM10,
			O3:    hour.O3,
			NO2:   hour.NO2,
			AQI:   hour.AQI,
			Grade: string(hour.Grade),
		})
	}

	return out
}

func toHeatmap(heatmap *airquality.Heatmap) models.AirQualityHeatmap {
	out := models.AirQualityHeatmap{
		Bounds: models.GeoBox{
			MinLat: heatmap.Bounds.MinLat,
			MinLon: heatmap.Bounds.MinLon,
			MaxLat: heatmap.Bounds.MaxLat,
			MaxLon: heatmap.Bounds.MaxLon,
		},
		GridSize:     heatmap.GridSize,
		Cells:        make([]models.HeatmapCell, 0, len(heatmap.Cells)),
		ReadingsUsed: heatmap.ReadingsIn,
		GeneratedAt:  models.Timestamp(heatmap.GeneratedAt),
	}

	for _, cell := range heatmap.Cells {
		out.Cells = append(out.Cells, models.HeatmapCell{
			Lat:   cell.Lat,
			Lon:   cell.Lon,
			PM25:  cell.PM25,
			AQI:   cell.AQI,
			Grade: string(cell.Grade),
			Color: cell.Color,
		})
	}

	return out
}
