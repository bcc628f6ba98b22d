package dispatch

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"go.uber.org/zap"

	"github.com/petminder/petminder/internal/db"
)

// SNSSender sends SMS notifications via AWS SNS direct publish.
type SNSSender struct {
	client *sns.Client
	logger *zap.Logger
}

type SNSConfig struct {
	Region string
}

// NewSNSSender creates a new SNS sender for SMS notifications
func NewSNSSender(ctx context.Context, cfg SNSConfig, logger *zap.Logger) (*SNSSender, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load default AWS config for SNS: %w", err)
	}

	return &SNSSender{
		client: sns.NewFromConfig(awsCfg),
		logger: logger,
	}, nil
}

// Send sends an SMS notification via AWS SNS
func (s *SNSSender) Send(ctx context.Context, note *Notification) error {
	if note.Channel != db.ChannelSMS {
		return fmt.Errorf("SNS sender only supports SMS, got: %s", note.Channel)
	}
	if note.Owner.Phone == "" {
		return fmt.Errorf("owner %s has no phone number", note.Owner.ID)
	}

	input := &sns.PublishInput{
		PhoneNumber: aws.String(note.Owner.Phone),
		Message:     aws.String(note.Payload.Message),
	}

	result, err := s.client.Publish(ctx, input)
	if err != nil {
		return fmt.Errorf("sns publish failed: %w", err)
	}

	s.logger.Info("SMS sent via SNS",
		zap.String("reminder_id", note.Payload.ReminderID.String()),
		zap.String("phone_number", note.Owner.Phone),
		zap.String("message_id", *result.MessageId),
	)

	return nil
}

// SupportsChannel checks if this sender supports the SMS channel
func (s *SNSSender) SupportsChannel(channel string) bool {
	return channel == db.ChannelSMS
}
