// Package main is the entry point for the CleanAirRoute API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/cleanairroute/cleanairroute/internal/airquality"
	"github.com/cleanairroute/cleanairroute/internal/airquality/predict"
	"github.com/cleanairroute/cleanairroute/internal/api"
	"github.com/cleanairroute/cleanairroute/internal/api/middleware"
	"github.com/cleanairroute/cleanairroute/internal/database"
	"github.com/cleanairroute/cleanairroute/internal/evaluation"
	"github.com/cleanairroute/cleanairroute/internal/provider/resilience"
	"github.com/cleanairroute/cleanairroute/internal/routing"
	"github.com/cleanairroute/cleanairroute/internal/routing/kakaomobility"
	"github.com/cleanairroute/cleanairroute/internal/telemetry"
)

// Build information, injected at build time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const serviceName = "cleanairroute-api"

func main() {
	// Local development convenience; the file is absent in deployment.
	_ = godotenv.Load()

	// Setup structured logging
	logger := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	// Initialize OpenTelemetry
	ctx := context.Background()
	tp, err := telemetry.Init(ctx, telemetry.ConfigFromEnv(serviceName, Version))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	// Initialize HTTP metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	// Connect to the database and make sure the reading store exists.
	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	if err := database.EnsureSchema(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("failed to ensure database schema")
	}

	logger.Info().
		Str("host", dbConfig.Host).
		Int("port", dbConfig.Port).
		Str("database", dbConfig.Database).
		Msg("database connected")

	// All upstream clients share one health registry so the ops endpoints
	// see every circuit breaker.
	registry := resilience.NewRegistry()

	kakaoKey := os.Getenv("KAKAO_REST_API_KEY")
	if kakaoKey == "" {
		logger.Warn().Msg("KAKAO_REST_API_KEY not set, route candidates will degrade to the fallback set")
	}
	kakaoClient := kakaomobility.NewClient(kakaomobility.ClientConfig{
		APIKey:   kakaoKey,
		BaseURL:  os.Getenv("KAKAO_BASE_URL"),
		Registry: registry,
		Logger:   logger,
	})

	planner := routing.NewService(routing.ServiceConfig{
		Provider: kakaoClient,
		Logger:   logger,
	})
	logger.Info().Str("provider", planner.ProviderName()).Msg("routing service initialized")

	// The prediction service doubles as the estimator for route scoring and
	// the forecast source for air quality queries.
	predictClient := predict.NewClient(predict.ClientConfig{
		BaseURL:  os.Getenv("PREDICT_BASE_URL"),
		Registry: registry,
	})

	oracle := evaluation.NewOracle(evaluation.OracleConfig{
		Estimator: predictClient,
		Logger:    logger,
	})
	evaluator := evaluation.NewService(evaluation.ServiceConfig{
		Oracle: oracle,
		Logger: logger,
	})
	logger.Info().Msg("evaluation service initialized")

	aqService := airquality.NewService(airquality.ServiceConfig{
		Repository: airquality.NewPostgresRepository(pool),
		Predictor:  predictClient,
		Logger:     logger,
	})
	logger.Info().Msg("air quality service initialized")

	router := api.NewRouter(api.RouterConfig{
		Version:     Version,
		BuildTime:   BuildTime,
		Logger:      logger,
		ServiceName: serviceName,
		Metrics:     metrics,
		Routes:      planner,
		Evaluator:   evaluator,
		AirQuality:  aqService,
		Providers:   registry,
		DB:          pool,
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine so we can handle shutdown signals.
	go func() {
		logger.Info().Str("port", port).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server exited")
}
