package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cleanairroute/cleanairroute/internal/airquality"
	"github.com/cleanairroute/cleanairroute/internal/api/models"
	"github.com/cleanairroute/cleanairroute/internal/api/response"
	"github.com/cleanairroute/cleanairroute/internal/provider/resilience"
)

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	providers *resilience.Registry
	db        *pgxpool.Pool
	aq        *airquality.Service
}

// NewOpsHandler creates a new OpsHandler. db and aq may be nil in reduced
// deployments; the affected checks report DEGRADED instead of failing.
func NewOpsHandler(version, buildTime string, providers *resilience.Registry, db *pgxpool.Pool, aq *airquality.Service) *OpsHandler {
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
		providers: providers,
		db:        db,
		aq:        aq,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check. Probes key off
// the status code, so an unreachable database turns into a 503 here.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
	}

	if h.db != nil {
		pingCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(pingCtx); err != nil {
			health.Status = models.HealthStatusFail
			health.Details = map[string]interface{}{"database": err.Error()}
			response.JSON(w, r, http.StatusServiceUnavailable, health)
			return
		}
	}

	response.JSON(w, r, http.StatusOK, health)
}

// SystemStatus handles GET /v1/ops/status - provider and subsystem status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	overall := models.HealthStatusOK

	dbStatus := h.databaseStatus(r.Context())
	overall = worstStatus(overall, dbStatus.Status)

	var providerStatuses []models.ProviderStatus
	var degradations []string
	if h.providers != nil {
		for _, health := range h.providers.GetAllHealth() {
			status := circuitStatus(health)
			overall = worstStatus(overall, status)

			ps := models.ProviderStatus{
				Provider: health.Name,
				Status:   status,
			}
			if health.LastSuccessAt != nil {
				ts := models.Timestamp(*health.LastSuccessAt)
				ps.LastSuccessAt = &ts
			}
			if health.LastFailureAt != nil {
				ts := models.Timestamp(*health.LastFailureAt)
				ps.LastFailureAt = &ts
			}
			if health.LastError != "" {
				msg := health.LastError
				ps.Message = &msg
			}
			providerStatuses = append(providerStatuses, ps)

			if status == models.HealthStatusFail {
				degradations = append(degradations, health.Name+"_circuit_open")
			}
		}
	}

	status := models.SystemStatus{
		Status:                 overall,
		Time:                   models.Timestamp(time.Now()),
		Subsystems:             []models.SubsystemStatus{dbStatus},
		Providers:              providerStatuses,
		ActiveDegradationFlags: degradations,
	}
	response.JSON(w, r, http.StatusOK, status)
}

// ModelStatusCheck handles GET /v1/ops/model - prediction model status.
func (h *OpsHandler) ModelStatusCheck(w http.ResponseWriter, r *http.Request) {
	if h.aq == nil {
		response.ServiceUnavailable(w, r, "prediction service is not configured")
		return
	}

	status, err := h.aq.ModelStatus(r.Context())
	if err != nil {
		if errors.Is(err, airquality.ErrProviderUnavailable) {
			response.ServiceUnavailable(w, r, "prediction service is not reachable")
			return
		}
		response.InternalError(w, r, "model status lookup failed")
		return
	}

	response.JSON(w, r, http.StatusOK, models.ModelInfo{
		ModelVersion: status.ModelVersion,
		ModelType:    status.ModelType,
		TrainedAt:    models.Timestamp(status.TrainedAt),
		FeatureCount: status.FeatureCount,
		Healthy:      status.Healthy,
	})
}

func (h *OpsHandler) databaseStatus(ctx context.Context) models.SubsystemStatus {
	status := models.SubsystemStatus{Name: "postgres", Status: models.HealthStatusOK}

	if h.db == nil {
		detail := "not configured"
		status.Status = models.HealthStatusDegraded
		status.Detail = &detail
		return status
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := h.db.Ping(pingCtx); err != nil {
		detail := err.Error()
		status.Status = models.HealthStatusFail
		status.Detail = &detail
	}

	return status
}

func circuitStatus(health *resilience.ProviderHealth) models.HealthStatus {
	switch {
	case health.IsUnhealthy():
		return models.HealthStatusFail
	case health.IsDegraded():
		return models.HealthStatusDegraded
	default:
		return models.HealthStatusOK
	}
}

var statusRank = map[models.HealthStatus]int{
	models.HealthStatusOK:       0,
	models.HealthStatusDegraded: 1,
	models.HealthStatusFail:     2,
}

func worstStatus(a, b models.HealthStatus) models.HealthStatus {
	if statusRank[b] > statusRank[a] {
		return b
	}
	return a
}
