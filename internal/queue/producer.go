// Package queue hands escalation notifications to SQS so delivery can
// run outside the sweep process. Only the producing side lives here;
// delivery consumers run as a separate deployment.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"

	"github.com/petminder/petminder/internal/engine"
)

// Config holds SQS configuration.
type Config struct {
	Region   string
	QueueURL string
}

// Message is the payload sent to SQS.
type Message struct {
	ReminderID   string `json:"reminder_id"`
	PetID        string `json:"pet_id"`
	OwnerID      string `json:"owner_id"`
	Level        string `json:"level"`
	DaysUntilDue int    `json:"days_until_due"`
	Title        string `json:"title"`
	Message      string `json:"message"`
	EnqueuedAt   int64  `json:"enqueued_at"`
}

// Producer sends escalation notifications to SQS.
type Producer struct {
	client   *sqs.Client
	queueURL string
	logger   *zap.Logger
}

// NewProducer creates a new SQS producer.
func NewProducer(ctx context.Context, cfg Config, logger *zap.Logger) (*Producer, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := sqs.NewFromConfig(awsCfg)

	logger.Info("sqs producer initialized",
		zap.String("queue_url", cfg.QueueURL),
	)

	return &Producer{
		client:   client,
		queueURL: cfg.QueueURL,
		logger:   logger,
	}, nil
}

// Enqueue sends one notification payload to SQS.
// Returns the message ID for tracking.
func (p *Producer) Enqueue(ctx context.Context, payload *engine.NotificationPayload) (string, error) {
	msg := Message{
		ReminderID:   payload.ReminderID.String(),
		PetID:        payload.PetID.String(),
		OwnerID:      payload.OwnerID.String(),
		Level:        payload.Level,
		DaysUntilDue: payload.DaysUntilDue,
		Title:        payload.Title,
		Message:      payload.Message,
		EnqueuedAt:   time.Now().UnixNano(),
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
	}

	result, err := p.client.SendMessage(ctx, input)
	if err != nil {
		p.logger.Error("failed to send message to sqs",
			zap.Error(err),
			zap.String("reminder_id", payload.ReminderID.String()),
		)
		return "", fmt.Errorf("sqs send failed: %w", err)
	}

	return *result.MessageId, nil
}

// EnqueueBatch sends multiple notification payloads to SQS. Individual
// failures are logged and skipped so one bad payload does not block the
// rest of the sweep's output.
func (p *Producer) EnqueueBatch(ctx context.Context, payloads []*engine.NotificationPayload) ([]string, error) {
	if len(payloads) == 0 {
		return []string{}, nil
	}

	messageIDs := make([]string, 0, len(payloads))
	for _, payload := range payloads {
		msgID, err := p.Enqueue(ctx, payload)
		if err != nil {
			p.logger.Warn("failed to enqueue notification", zap.Error(err))
			continue
		}
		messageIDs = append(messageIDs, msgID)
	}

	return messageIDs, nil
}

// Close closes the SQS producer.
func (p *Producer) Close() {
	// AWS SDK v2 clients don't require explicit Close()
}

// Dispatcher adapts the producer to the engine's dispatcher contract,
// turning synchronous delivery into a queue handoff.
type Dispatcher struct {
	producer *Producer
}

// NewDispatcher wraps a producer for use as an engine dispatcher.
func NewDispatcher(producer *Producer) *Dispatcher {
	return &Dispatcher{producer: producer}
}

// Dispatch enqueues the payload for asynchronous delivery.
func (d *Dispatcher) Dispatch(ctx context.Context, payload *engine.NotificationPayload) error {
	_, err := d.producer.Enqueue(ctx, payload)
	return err
}
