package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// PubSubHandler handles Pub/Sub messages for the worker.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	ingestJob        *IngestJob
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	IngestJob        *IngestJob
	Logger           zerolog.Logger
}

// IngestMessage represents a reading ingest job message.
type IngestMessage struct {
	JobType string `json:"job_type"`

	// Districts restricts the run to the named districts. Empty means all.
	Districts []string `json:"districts,omitempty"`
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	// Configure receive settings.
	subscriber.ReceiveSettings.MaxOutstandingMessages = 10
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		ingestJob:        cfg.IngestJob,
		logger:           cfg.Logger,
	}, nil
}

// Start begins processing Pub/Sub messages.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		h.handleMessage(ctx, msg)
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

func (h *PubSubHandler) handleMessage(ctx context.Context, msg *pubsub.Message) {
	startTime := time.Now()

	logger := h.logger.With().
		Str("message_id", msg.ID).
		Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
		Logger()

	logger.Debug().Msg("received pubsub message")

	// Parse message.
	var ingestMsg IngestMessage
	if err := json.Unmarshal(msg.Data, &ingestMsg); err != nil {
		logger.Error().Err(err).Msg("failed to parse message")
		msg.Nack()
		return
	}

	// Handle based on job type.
	var err error
	switch ingestMsg.JobType {
	case "reading_ingest":
		err = h.handleReadingIngest(ctx, ingestMsg)
	case "health_check":
		err = h.handleHealthCheck(ctx)
	default:
		logger.Warn().Str("job_type", ingestMsg.JobType).Msg("unknown job type")
		msg.Ack() // Ack unknown messages to prevent redelivery
		return
	}

	if err != nil {
		logger.Error().Err(err).Msg("job failed")
		msg.Nack()
		return
	}

	duration := time.Since(startTime)
	logger.Info().
		Str("job_type", ingestMsg.JobType).
		Dur("duration", duration).
		Msg("job completed successfully")

	msg.Ack()
}

func (h *PubSubHandler) handleReadingIngest(ctx context.Context, msg IngestMessage) error {
	h.logger.Info().
		Strs("districts", msg.Districts).
		Msg("starting reading ingest")

	job := h.ingestJob
	if len(msg.Districts) > 0 {
		job = NewIngestJob(IngestJobConfig{
			Config:     h.ingestJob.config.FilterDistricts(msg.Districts),
			Logger:     h.logger,
			Predictor:  h.ingestJob.predictor,
			Repository: h.ingestJob.repository,
		})
	}

	result := job.Run(ctx)

	h.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Int("readings_stored", result.ReadingsStored).
		Msg("reading ingest completed")

	// Consider it successful if more than half succeeded.
	if result.Failed > result.Successful {
		return fmt.Errorf("too many ingest failures: %d/%d", result.Failed, result.TotalPoints)
	}

	return nil
}

func (h *PubSubHandler) handleHealthCheck(ctx context.Context) error {
	h.logger.Debug().Msg("running health check")

	// One well-covered point is enough to verify the prediction service
	// and the database are reachable.
	singlePointConfig := IngestConfig{
		Targets: []IngestTarget{
			{
				District: "Gangnam",
				Priority: 1,
				Points:   []Point{{Lat: 37.5172, Lon: 127.0473}},
			},
		},
		Concurrency: 1,
		Timeout:     10 * time.Second,
	}

	healthCheckJob := NewIngestJob(IngestJobConfig{
		Config:     singlePointConfig,
		Logger:     h.logger,
		Predictor:  h.ingestJob.predictor,
		Repository: h.ingestJob.repository,
	})

	result := healthCheckJob.Run(ctx)

	if result.Failed > 0 {
		return fmt.Errorf("health check failed: %d errors", result.Failed)
	}

	h.logger.Debug().Msg("health check passed")
	return nil
}
