package dispatch

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/petminder/petminder/internal/db"
	"github.com/petminder/petminder/internal/engine"
)

// Notification is a payload bound to an owner's contact details and a
// concrete delivery channel, ready for a channel sender.
type Notification struct {
	Payload *engine.NotificationPayload
	Owner   *db.Owner
	Channel string
}

// ChannelSender is the unified interface for all delivery channels.
// Implementations: email (SES), SMS (SNS), push (SNS topic), webhooks.
type ChannelSender interface {
	Send(ctx context.Context, note *Notification) error
	SupportsChannel(channel string) bool
}

// OwnerDirectory resolves an owner id to contact details.
type OwnerDirectory interface {
	GetOwner(ctx context.Context, id uuid.UUID) (*db.Owner, error)
}

// MessageEnricher optionally rewrites the templated notification text
// into friendlier wording. Failures fall back to the template.
type MessageEnricher interface {
	Enrich(ctx context.Context, title, message, level string) (string, error)
}

// MultiSender routes a notification to the first sender that supports
// its channel.
type MultiSender struct {
	senders []ChannelSender
	logger  *zap.Logger
}

// NewMultiSender creates a router over multiple channel senders.
func NewMultiSender(logger *zap.Logger, senders ...ChannelSender) *MultiSender {
	return &MultiSender{
		senders: senders,
		logger:  logger,
	}
}

// Send routes the notification to the appropriate sender based on channel.
func (m *MultiSender) Send(ctx context.Context, note *Notification) error {
	for _, sender := range m.senders {
		if sender.SupportsChannel(note.Channel) {
			m.logger.Debug("routing notification to sender",
				zap.String("channel", note.Channel),
				zap.String("reminder_id", note.Payload.ReminderID.String()),
			)
			return sender.Send(ctx, note)
		}
	}

	return fmt.Errorf("no sender found for channel: %s", note.Channel)
}

// SupportsChannel checks if any underlying sender supports the channel.
func (m *MultiSender) SupportsChannel(channel string) bool {
	for _, sender := range m.senders {
		if sender.SupportsChannel(channel) {
			return true
		}
	}
	return false
}

// Dispatcher implements engine.Dispatcher: it resolves the payload's owner,
// optionally enriches the message, and fans the notification out to every
// channel the owner has enabled. It reports failure only when no channel
// delivered; partial failures are logged and swallowed so one dead channel
// does not consume the escalation for the working ones.
type Dispatcher struct {
	owners   OwnerDirectory
	sender   ChannelSender
	enricher MessageEnricher // nil when AI enrichment is disabled
	logger   *zap.Logger
}

// NewDispatcher creates the owner-routing dispatcher.
func NewDispatcher(owners OwnerDirectory, sender ChannelSender, enricher MessageEnricher, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		owners:   owners,
		sender:   sender,
		enricher: enricher,
		logger:   logger,
	}
}

// Dispatch delivers one notification payload.
func (d *Dispatcher) Dispatch(ctx context.Context, payload *engine.NotificationPayload) error {
	owner, err := d.owners.GetOwner(ctx, payload.OwnerID)
	if err != nil {
		return fmt.Errorf("resolve owner: %w", err)
	}

	if len(owner.Channels) == 0 {
		d.logger.Warn("owner has no delivery channels enabled",
			zap.String("owner_id", owner.ID.String()),
			zap.String("reminder_id", payload.ReminderID.String()),
		)
		return fmt.Errorf("owner %s has no delivery channels", owner.ID)
	}

	if d.enricher != nil {
		if enriched, err := d.enricher.Enrich(ctx, payload.Title, payload.Message, payload.Level); err != nil {
			d.logger.Warn("message enrichment failed, using template",
				zap.Error(err),
				zap.String("reminder_id", payload.ReminderID.String()),
			)
		} else {
			payload.Message = enriched
		}
	}

	delivered := 0
	var lastErr error
	for _, channel := range owner.Channels {
		note := &Notification{
			Payload: payload,
			Owner:   owner,
			Channel: channel,
		}
		if err := d.sender.Send(ctx, note); err != nil {
			d.logger.Error("channel delivery failed",
				zap.Error(err),
				zap.String("channel", channel),
				zap.String("reminder_id", payload.ReminderID.String()),
			)
			lastErr = err
			continue
		}
		delivered++
	}

	if delivered == 0 {
		return fmt.Errorf("all channels failed for owner %s: %w", owner.ID, lastErr)
	}

	return nil
}

// LogSender is a simple sender that logs notifications (for development
// and environments without delivery credentials).
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, note *Notification) error {
	s.logger.Info("logging notification (development mode)",
		zap.String("reminder_id", note.Payload.ReminderID.String()),
		zap.String("channel", note.Channel),
		zap.String("owner_id", note.Owner.ID.String()),
		zap.String("level", note.Payload.Level),
		zap.String("message", note.Payload.Message),
	)
	return nil
}

func (s *LogSender) SupportsChannel(channel string) bool {
	// LogSender accepts all channels in development mode.
	switch channel {
	case db.ChannelEmail, db.ChannelSMS, db.ChannelPush, db.ChannelWebhook:
		return true
	default:
		return false
	}
}
