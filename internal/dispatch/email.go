package dispatch

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"go.uber.org/zap"

	"github.com/petminder/petminder/internal/db"
)

// SESSender delivers email notifications via AWS SES.
type SESSender struct {
	client *ses.Client
	from   string
	logger *zap.Logger
}

type SESConfig struct {
	Region    string
	FromEmail string
}

func NewSESSender(ctx context.Context, cfg SESConfig, logger *zap.Logger) (*SESSender, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load default AWS config: %w", err)
	}
	return &SESSender{
		client: ses.NewFromConfig(awsCfg),
		from:   cfg.FromEmail,
		logger: logger,
	}, nil
}

// Send sends an email notification via AWS SES
func (s *SESSender) Send(ctx context.Context, note *Notification) error {
	if note.Channel != db.ChannelEmail {
		return fmt.Errorf("SES sender only supports email, got: %s", note.Channel)
	}
	if note.Owner.Email == "" {
		return fmt.Errorf("owner %s has no email address", note.Owner.ID)
	}

	subject := fmt.Sprintf("PetMinder: %s", note.Payload.Title)

	input := &ses.SendEmailInput{
		Source: aws.String(s.from),
		Destination: &types.Destination{
			ToAddresses: []string{note.Owner.Email},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data:    aws.String(note.Payload.Message),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("ses send failed: %w", err)
	}

	s.logger.Info("email sent via SES",
		zap.String("reminder_id", note.Payload.ReminderID.String()),
		zap.String("to", note.Owner.Email),
		zap.String("message_id", *result.MessageId),
	)

	return nil
}

// SupportsChannel checks if this sender supports the email channel
func (s *SESSender) SupportsChannel(channel string) bool {
	return channel == db.ChannelEmail
}
