package ai

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Enricher rewrites the engine's templated notification text into a
// warmer message for the owner. It satisfies the dispatcher's
// MessageEnricher contract; a generation failure returns an error and
// the caller keeps the template.
type Enricher struct {
	client *Client
	logger *zap.Logger
}

// NewEnricher creates a message enricher around the OpenAI client.
func NewEnricher(client *Client, logger *zap.Logger) *Enricher {
	return &Enricher{
		client: client,
		logger: logger,
	}
}

const enrichSystemPrompt = `You are the notification writer for a pet care reminder app.
Rewrite the reminder message into one or two warm, clear sentences for the pet's owner.
Keep the care task and the timing exactly as stated. Return ONLY the rewritten message.`

// Enrich rewrites one notification message. level carries the
// escalation urgency (l1, l2, final, overdue) so the tone can match.
func (e *Enricher) Enrich(ctx context.Context, title, message, level string) (string, error) {
	userPrompt := fmt.Sprintf("Task: %s\nUrgency: %s\nMessage: %s", title, level, message)

	text, err := e.client.GenerateText(ctx, enrichSystemPrompt, userPrompt)
	if err != nil {
		return "", fmt.Errorf("enrichment failed: %w", err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("enrichment returned empty message")
	}

	e.logger.Debug("notification message enriched",
		zap.String("level", level),
		zap.Int("length", len(text)),
	)

	return text, nil
}
