// Package api provides the HTTP API for CleanAirRoute.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/cleanairroute/cleanairroute/internal/airquality"
	"github.com/cleanairroute/cleanairroute/internal/api/handler"
	"github.com/cleanairroute/cleanairroute/internal/api/middleware"
	"github.com/cleanairroute/cleanairroute/internal/api/response"
	"github.com/cleanairroute/cleanairroute/internal/evaluation"
	"github.com/cleanairroute/cleanairroute/internal/provider/resilience"
	"github.com/cleanairroute/cleanairroute/internal/routing"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics
	Routes      *routing.Service
	Evaluator   *evaluation.Service
	AirQuality  *airquality.Service
	Providers   *resilience.Registry
	DB          *pgxpool.Pool
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Set default service name if not provided
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "cleanairroute-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.SecurityHeaders)      // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS)           // TLS enforcement (enabled via REQUIRE_TLS=true)
	r.Use(middleware.ContentTypeJSON)      // JSON content type

	// Router-level misses answer in problem+json like everything else.
	// Subrouters copy these at mount time, so they must be set before any
	// Route call.
	notFound := func(w http.ResponseWriter, req *http.Request) {
		response.NotFound(w, req, "resource not found")
	}
	methodNotAllowed := func(w http.ResponseWriter, req *http.Request) {
		response.MethodNotAllowed(w, req)
	}
	r.NotFound(notFound)
	r.MethodNotAllowed(methodNotAllowed)

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Providers, cfg.DB, cfg.AirQuality)
	routeHandler := handler.NewRouteHandler(cfg.Routes, cfg.Evaluator, cfg.Logger)
	airQualityHandler := handler.NewAirQualityHandler(cfg.AirQuality, cfg.Logger)

	// Create rate limit middleware for different endpoint categories
	expensiveRateLimit := middleware.RateLimitByIP(middleware.ExpensiveRateLimit) // 30 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)   // 100 req/min

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		r.NotFound(notFound)
		r.MethodNotAllowed(methodNotAllowed)

		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
			r.Get("/model", opsHandler.ModelStatusCheck)
		})

		// Air quality endpoints - standard rate limiting
		r.Route("/air-quality", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/current", airQualityHandler.Current)
			r.Get("/forecast", airQualityHandler.Forecast)
			r.Get("/heatmap", airQualityHandler.Heatmap)
		})

		// Route recommendation - expensive compute, strict rate limiting
		r.With(expensiveRateLimit, middleware.RequireJSON).Post("/routes:recommend", routeHandler.Recommend)
		r.With(standardRateLimit).Get("/routes", routeHandler.GetRoutes)
	})

	return r
}
