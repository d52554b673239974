// Package handler provides HTTP handlers for the CleanAirRoute API.
package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/cleanairroute/cleanairroute/internal/api/middleware"
	"github.com/cleanairroute/cleanairroute/internal/api/models"
	"github.com/cleanairroute/cleanairroute/internal/api/response"
	"github.com/cleanairroute/cleanairroute/internal/evaluation"
	"github.com/cleanairroute/cleanairroute/internal/routing"
)

// RouteHandler handles route recommendation endpoints.
type RouteHandler struct {
	planner   *routing.Service
	evaluator *evaluation.Service
	logger    zerolog.Logger
}

// NewRouteHandler creates a new RouteHandler.
func NewRouteHandler(planner *routing.Service, evaluator *evaluation.Service, logger zerolog.Logger) *RouteHandler {
	return &RouteHandler{
		planner:   planner,
		evaluator: evaluator,
		logger:    logger,
	}
}

// Recommend handles POST /v1/routes:recommend - fetch candidates between two
// points, evaluate their air quality exposure, and return the ranked picks.
func (h *RouteHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	var input models.RouteRecommendRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	if errs := validateRecommendRequest(&input); len(errs) > 0 {
		response.BadRequest(w, r, "request validation failed", errs)
		return
	}

	h.recommend(w, r,
		evaluation.Coordinate{Lat: input.Start.Lat, Lon: input.Start.Lon},
		evaluation.Coordinate{Lat: input.End.Lat, Lon: input.End.Lon},
		models.RouteType(input.RouteType),
	)
}

// GetRoutes handles GET /v1/routes - the query-parameter variant of Recommend.
func (h *RouteHandler) GetRoutes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var errs []models.FieldError
	startLat := parseCoordParam(q.Get("start_lat"), "start_lat", 90, &errs)
	startLon := parseCoordParam(q.Get("start_lon"), "start_lon", 180, &errs)
	endLat := parseCoordParam(q.Get("end_lat"), "end_lat", 90, &errs)
	endLon := parseCoordParam(q.Get("end_lon"), "end_lon", 180, &errs)

	routeType := q.Get("route_type")
	if routeType != "" && !models.ValidRouteType(routeType) {
		errs = append(errs, models.FieldError{
			Field:   "route_type",
			Message: "must be one of fastest, shortest, healthiest, optimal",
		})
	}

	if len(errs) > 0 {
		response.BadRequest(w, r, "request validation failed", errs)
		return
	}

	h.recommend(w, r,
		evaluation.Coordinate{Lat: startLat, Lon: startLon},
		evaluation.Coordinate{Lat: endLat, Lon: endLon},
		models.RouteType(routeType),
	)
}

// recommend runs the fetch-evaluate pipeline and writes the ranked result.
func (h *RouteHandler) recommend(w http.ResponseWriter, r *http.Request, origin, destination evaluation.Coordinate, filter models.RouteType) {
	candidates, err := h.planner.FetchCandidates(r.Context(), origin, destination)
	if err != nil {
		// FetchCandidates only fails on coordinate validation; provider
		// trouble degrades to cached or fallback candidates instead.
		response.BadRequest(w, r, err.Error(), nil)
		return
	}

	result := h.evaluator.Evaluate(r.Context(), candidates)

	h.logger.Info().
		Str("request_id", middleware.GetRequestID(r.Context())).
		Str("provider", h.planner.ProviderName()).
		Int("candidates", len(candidates)).
		Int("total_routes", result.TotalRoutes).
		Bool("success", result.Success).
		Msg("route recommendation served")

	w.Header().Set("Cache-Control", "private, max-age=60")
	response.JSON(w, r, http.StatusOK, toRecommendResponse(result, filter))
}

// validateRecommendRequest checks presence and coordinate ranges. Errors are
// accumulated so the client sees every problem at once.
func validateRecommendRequest(input *models.RouteRecommendRequest) []models.FieldError {
	var errs []models.FieldError

	if input.Start == nil {
		errs = append(errs, models.FieldError{Field: "start", Message: "is required"})
	} else {
		errs = append(errs, validatePoint(*input.Start, "start")...)
	}
	if input.End == nil {
		errs = append(errs, models.FieldError{Field: "end", Message: "is required"})
	} else {
		errs = append(errs, validatePoint(*input.End, "end")...)
	}
	if input.RouteType != "" && !models.ValidRouteType(input.RouteType) {
		errs = append(errs, models.FieldError{
			Field:   "route_type",
			Message: "must be one of fastest, shortest, healthiest, optimal",
		})
	}

	return errs
}

func validatePoint(p models.Point, field string) []models.FieldError {
	var errs []models.FieldError
	if p.Lat < -90 || p.Lat > 90 {
		errs = append(errs, models.FieldError{Field: field + ".latitude", Message: "must be between -90 and 90"})
	}
	if p.Lon < -180 || p.Lon > 180 {
		errs = append(errs, models.FieldError{Field: field + ".longitude", Message: "must be between -180 and 180"})
	}
	return errs
}

// parseCoordParam parses one required coordinate query parameter, recording a
// field error when it is missing, malformed, or out of range.
func parseCoordParam(raw, field string, limit float64, errs *[]models.FieldError) float64 {
	if raw == "" {
		*errs = append(*errs, models.FieldError{Field: field, Message: "is required"})
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*errs = append(*errs, models.FieldError{Field: field, Message: "must be a number"})
		return 0
	}
	if v < -limit || v > limit {
		*errs = append(*errs, models.FieldError{
			Field:   field,
			Message: fmt.Sprintf("must be between -%g and %g", limit, limit),
		})
		return 0
	}
	return v
}

// toRecommendResponse maps an evaluation result onto the wire schema,
// optionally narrowed to one category.
func toRecommendResponse(result evaluation.SelectionResult, filter models.RouteType) models.RouteRecommendResponse {
	resp := models.RouteRecommendResponse{
		Success:     result.Success,
		Message:     result.Message,
		TotalRoutes: result.TotalRoutes,
		GeneratedAt: models.Timestamp(time.Now()),
	}

	include := func(t models.RouteType) bool { return filter == "" || filter == t }

	if include(models.RouteTypeFastest) {
		resp.Fastest = toRoute(result.Fastest)
	}
	if include(models.RouteTypeShortest) {
		resp.Shortest = toRoute(result.Shortest)
	}
	if include(models.RouteTypeHealthiest) {
		resp.Healthiest = toRoute(result.Healthiest)
	}
	if include(models.RouteTypeOptimal) {
		resp.Optimal = toRoute(result.Optimal)
	}

	return resp
}

func toRoute(scored *evaluation.ScoredRoute) *models.Route {
	if scored == nil {
		return nil
	}

	route := &models.Route{
		ID:              scored.ID,
		RouteType:       models.RouteType(scored.Category),
		DistanceKm:      scored.DistanceKm,
		DurationMinutes: scored.DurationMinutes,
		AirQualityScore: scored.AirQualityScore,
		AverageIndex:    scored.AverageIndex,
		Exposure:        scored.Exposure,
		Polyline:        scored.Path,
		Waypoints:       make([]models.Point, 0, len(scored.Waypoints)),
		Segments:        make([]models.RouteSegment, 0, len(scored.Segments)),
	}

	for _, wp := range scored.Waypoints {
		route.Waypoints = append(route.Waypoints, models.Point{Lat: wp.Lat, Lon: wp.Lon})
	}
	for _, seg := range scored.Segments {
		route.Segments = append(route.Segments, toSegment(seg))
	}

	return route
}

func toSegment(seg evaluation.RouteSegment) models.RouteSegment {
	return models.RouteSegment{
		Start:           models.Point{Lat: seg.Start.Lat, Lon: seg.Start.Lon},
		End:             models.Point{Lat: seg.End.Lat, Lon: seg.End.Lon},
		DistanceKm:      seg.DistanceKm,
		DurationMinutes: seg.DurationMinutes,
		Instruction:     seg.Instruction,
		AirQuality: models.SegmentAirQuality{
			PM25:       seg.AirQuality.PM25,
			PM10:       seg.AirQuality.PM10,
			O3:         seg.AirQuality.O3,
			NO2:        seg.AirQuality.NO2,
			Index:      seg.AirQuality.Index,
			Grade:      string(seg.AirQuality.Grade),
			Confidence: seg.AirQuality.Confidence,
		},
	}
}
