package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/petminder/petminder/internal/db"
)

// WebhookSender delivers notifications to the owner's webhook URL.
type WebhookSender struct {
	client *http.Client
	logger *zap.Logger
}

type WebhookConfig struct {
	Timeout time.Duration
}

// NewWebhookSender creates a new webhook sender
func NewWebhookSender(logger *zap.Logger, cfg WebhookConfig) *WebhookSender {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &WebhookSender{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Send POSTs the notification payload as JSON to the owner's webhook URL.
func (s *WebhookSender) Send(ctx context.Context, note *Notification) error {
	if note.Channel != db.ChannelWebhook {
		return fmt.Errorf("webhook sender only supports webhooks, got: %s", note.Channel)
	}
	if note.Owner.WebhookURL == "" {
		return fmt.Errorf("owner %s has no webhook url", note.Owner.ID)
	}

	body, err := json.Marshal(note.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, note.Owner.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "PetMinder/1.0")
	req.Header.Set("X-PetMinder-Reminder-ID", note.Payload.ReminderID.String())
	req.Header.Set("X-PetMinder-Level", note.Payload.Level)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	preview, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned non-2xx status: %d, body: %s", resp.StatusCode, string(preview))
	}

	s.logger.Info("webhook delivered",
		zap.String("reminder_id", note.Payload.ReminderID.String()),
		zap.String("url", note.Owner.WebhookURL),
		zap.Int("status_code", resp.StatusCode),
	)

	return nil
}

// SupportsChannel checks if this sender supports the webhook channel
func (s *WebhookSender) SupportsChannel(channel string) bool {
	return channel == db.ChannelWebhook
}
