// Package main is the entry point for the CleanAirRoute ingestion worker.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/cleanairroute/cleanairroute/internal/airquality"
	"github.com/cleanairroute/cleanairroute/internal/airquality/predict"
	"github.com/cleanairroute/cleanairroute/internal/database"
	"github.com/cleanairroute/cleanairroute/internal/provider/resilience"
	"github.com/cleanairroute/cleanairroute/internal/worker"
)

// Build information, injected at build time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const serviceName = "cleanairroute-worker"

func main() {
	// Local development convenience; the file is absent in deployment.
	_ = godotenv.Load()

	logger := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	logger.Info().Str("build_time", BuildTime).Msg("starting ingestion worker")

	// The worker also exposes a health endpoint for Cloud Run.
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := database.Connect(ctx, database.ConfigFromEnv())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	if err := database.EnsureSchema(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("failed to ensure database schema")
	}

	// The prediction service is the only upstream the worker talks to.
	registry := resilience.NewRegistry()
	predictClient := predict.NewClient(predict.ClientConfig{
		BaseURL:  os.Getenv("PREDICT_BASE_URL"),
		Registry: registry,
	})

	job := worker.NewIngestJob(worker.IngestJobConfig{
		Logger:     logger,
		Predictor:  predictClient,
		Repository: airquality.NewPostgresRepository(pool),
	})

	// Health check server, reporting ingest metrics alongside liveness.
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "healthy",
			"version": Version,
			"ingest":  job.MetricsSnapshot(),
		})
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info().Str("port", port).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("health server failed")
		}
	}()

	// Optional Pub/Sub trigger for on-demand ingest runs.
	var pubsubHandler *worker.PubSubHandler
	projectID := os.Getenv("PUBSUB_PROJECT_ID")
	subscription := os.Getenv("PUBSUB_SUBSCRIPTION")
	if projectID != "" && subscription != "" {
		pubsubHandler, err = worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        projectID,
			SubscriptionName: subscription,
			IngestJob:        job,
			Logger:           logger,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create pubsub handler")
		}

		go func() {
			if err := pubsubHandler.Start(ctx); err != nil && ctx.Err() == nil {
				logger.Error().Err(err).Msg("pubsub handler stopped")
			}
		}()
	} else {
		logger.Info().Msg("pubsub trigger not configured, running on schedule only")
	}

	// Scheduled ingest loop. The first run happens immediately so a fresh
	// deployment has readings before the first tick.
	go func() {
		interval := ingestInterval(logger)
		logger.Info().Dur("interval", interval).Msg("ingest schedule started")

		job.Run(ctx)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				job.Run(ctx)
			}
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down worker")
	cancel()

	if pubsubHandler != nil {
		if err := pubsubHandler.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close pubsub client")
		}
	}

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("health server forced to shutdown")
	}

	logger.Info().Msg("worker stopped")
}

// ingestInterval reads the schedule interval from WORKER_INGEST_INTERVAL,
// defaulting to an hour to match the prediction service's refresh cadence.
func ingestInterval(logger zerolog.Logger) time.Duration {
	raw := os.Getenv("WORKER_INGEST_INTERVAL")
	if raw == "" {
		return time.Hour
	}

	interval, err := time.ParseDuration(raw)
	if err != nil || interval <= 0 {
		logger.Warn().Str("value", raw).Msg("invalid WORKER_INGEST_INTERVAL, defaulting to 1h")
		return time.Hour
	}

	return interval
}
