package circuitbreaker

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/petminder/petminder/internal/dispatch"
)

// ProtectedSender wraps a channel sender with a Breaker. When the
// downstream provider (SES, SNS, a webhook endpoint) starts failing,
// the breaker opens and sends fail fast instead of piling up.
type ProtectedSender struct {
	sender  dispatch.ChannelSender
	breaker *Breaker
	logger  *zap.Logger
}

// NewProtectedSender wraps a sender with breaker protection.
func NewProtectedSender(sender dispatch.ChannelSender, breaker *Breaker, logger *zap.Logger) *ProtectedSender {
	return &ProtectedSender{
		sender:  sender,
		breaker: breaker,
		logger:  logger,
	}
}

// Send delivers the notification unless the breaker is open, in which
// case it returns ErrOpen immediately.
func (p *ProtectedSender) Send(ctx context.Context, note *dispatch.Notification) error {
	if !p.breaker.Allow() {
		p.logger.Warn("circuit breaker rejected send, failing fast",
			zap.String("breaker", p.breaker.config.Name),
			zap.String("reminder_id", note.Payload.ReminderID.String()),
			zap.String("channel", note.Channel),
			zap.String("state", p.breaker.GetState().String()),
		)
		return fmt.Errorf("%w: %s sender unavailable", ErrOpen, p.breaker.config.Name)
	}

	err := p.sender.Send(ctx, note)
	if err != nil {
		p.breaker.RecordFailure()
		p.logger.Debug("circuit breaker recorded failure",
			zap.String("breaker", p.breaker.config.Name),
			zap.Error(err),
		)
		return err
	}

	p.breaker.RecordSuccess()
	return nil
}

// SupportsChannel delegates to the underlying sender.
func (p *ProtectedSender) SupportsChannel(channel string) bool {
	return p.sender.SupportsChannel(channel)
}

// Breaker exposes the underlying breaker for monitoring.
func (p *ProtectedSender) Breaker() *Breaker {
	return p.breaker
}
