package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"go.uber.org/zap"

	"github.com/petminder/petminder/internal/db"
)

// PushSender publishes push notifications to an SNS fan-out topic. Mobile
// endpoints subscribe to the topic filtered on the owner_id attribute.
type PushSender struct {
	client   *sns.Client
	topicARN string
	logger   *zap.Logger
}

type PushConfig struct {
	Region   string
	TopicARN string
}

// pushMessage is the JSON body published to the topic.
type pushMessage struct {
	ReminderID string `json:"reminder_id"`
	PetID      string `json:"pet_id"`
	OwnerID    string `json:"owner_id"`
	Level      string `json:"level"`
	Title      string `json:"title"`
	Body       string `json:"body"`
}

// NewPushSender creates an SNS topic publisher for push notifications.
func NewPushSender(ctx context.Context, cfg PushConfig, logger *zap.Logger) (*PushSender, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for push topic: %w", err)
	}

	return &PushSender{
		client:   sns.NewFromConfig(awsCfg),
		topicARN: cfg.TopicARN,
		logger:   logger,
	}, nil
}

// Send publishes a push notification to the fan-out topic.
func (s *PushSender) Send(ctx context.Context, note *Notification) error {
	if note.Channel != db.ChannelPush {
		return fmt.Errorf("push sender only supports push, got: %s", note.Channel)
	}

	body, err := json.Marshal(pushMessage{
		ReminderID: note.Payload.ReminderID.String(),
		PetID:      note.Payload.PetID.String(),
		OwnerID:    note.Owner.ID.String(),
		Level:      note.Payload.Level,
		Title:      note.Payload.Title,
		Body:       note.Payload.Message,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal push message: %w", err)
	}

	input := &sns.PublishInput{
		TopicArn: aws.String(s.topicARN),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"owner_id": {
				DataType:    aws.String("String"),
				StringValue: aws.String(note.Owner.ID.String()),
			},
			"level": {
				DataType:    aws.String("String"),
				StringValue: aws.String(note.Payload.Level),
			},
		},
	}

	result, err := s.client.Publish(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to publish to push topic: %w", err)
	}

	s.logger.Info("push notification published",
		zap.String("reminder_id", note.Payload.ReminderID.String()),
		zap.String("owner_id", note.Owner.ID.String()),
		zap.String("message_id", *result.MessageId),
	)

	return nil
}

// SupportsChannel checks if this sender supports the push channel
func (s *PushSender) SupportsChannel(channel string) bool {
	return channel == db.ChannelPush
}
