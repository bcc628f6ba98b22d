package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SweepError records one item's failure inside a batch pass. Batch sweeps
// never abort on a single item; they accumulate these instead.
type SweepError struct {
	ReminderID uuid.UUID `json:"reminder_id,omitempty"`
	PetID      uuid.UUID `json:"pet_id,omitempty"`
	Stage      string    `json:"stage"` // persist, dispatch, generate
	Error      string    `json:"error"`
}

// EscalationResult summarizes one escalation pass.
type EscalationResult struct {
	Processed  int                    `json:"processed"`
	Escalated  int                    `json:"escalated"`
	Dispatched int                    `json:"dispatched"`
	Payloads   []*NotificationPayload `json:"payloads"`
	Errors     []SweepError           `json:"errors"`
}

// GenerationResult summarizes one generation pass.
type GenerationResult struct {
	PetsProcessed    int          `json:"pets_processed"`
	RemindersCreated int          `json:"reminders_created"`
	Errors           []SweepError `json:"errors"`
}

// RunEscalationSweep advances every escalatable reminder at most one level
// for the given instant and dispatches one notification per transition.
//
// The state transition and sent-history append are persisted before
// dispatch is attempted; a dispatch failure is recorded in the result and
// never rolled back or retried, so each threshold notifies at most once.
// Re-running the sweep with the same instant is a no-op.
func (s *Service) RunEscalationSweep(ctx context.Context, now time.Time) (*EscalationResult, error) {
	reminders, err := s.store.ListEscalatable(ctx)
	if err != nil {
		return nil, err
	}

	result := &EscalationResult{}

	for _, rem := range reminders {
		result.Processed++

		days := daysUntil(now, rem.DueDate)
		target, level, fired := transition(rem.Status, days, rem.Intervals)
		if !fired {
			continue
		}

		rem.Status = target
		rem.SentHistory = append(rem.SentHistory, now)

		if err := s.store.UpdateReminder(ctx, rem); err != nil {
			s.logger.Error("failed to persist escalation",
				zap.Error(err),
				zap.String("reminder_id", rem.ID.String()),
				zap.String("target_status", target),
			)
			result.Errors = append(result.Errors, SweepError{
				ReminderID: rem.ID,
				PetID:      rem.PetID,
				Stage:      "persist",
				Error:      err.Error(),
			})
			continue
		}

		payload := &NotificationPayload{
			ReminderID:   rem.ID,
			PetID:        rem.PetID,
			OwnerID:      rem.OwnerID,
			Level:        level,
			DaysUntilDue: days,
			Title:        rem.Title,
			Message:      buildMessage(rem.Title, level, days),
		}
		result.Escalated++
		result.Payloads = append(result.Payloads, payload)

		s.logger.Info("reminder escalated",
			zap.String("reminder_id", rem.ID.String()),
			zap.String("level", level),
			zap.Int("days_until_due", days),
		)

		if s.dispatcher == nil {
			continue
		}

		if err := s.dispatcher.Dispatch(ctx, payload); err != nil {
			// State has already advanced; the notification is lost,
			// not retried (fire-once semantics).
			s.logger.Error("notification dispatch failed",
				zap.Error(err),
				zap.String("reminder_id", rem.ID.String()),
				zap.String("level", level),
			)
			result.Errors = append(result.Errors, SweepError{
				ReminderID: rem.ID,
				PetID:      rem.PetID,
				Stage:      "dispatch",
				Error:      err.Error(),
			})
			continue
		}
		result.Dispatched++
	}

	return result, nil
}

// RunGenerationSweep invokes reminder generation for every active pet,
// isolating per-pet failures.
func (s *Service) RunGenerationSweep(ctx context.Context, now time.Time) (*GenerationResult, error) {
	pets, err := s.pets.ListActivePets(ctx)
	if err != nil {
		return nil, err
	}

	result := &GenerationResult{}

	for _, pet := range pets {
		created, err := s.GenerateForPet(ctx, pet.ID, now)
		result.PetsProcessed++
		result.RemindersCreated += len(created)
		if err != nil {
			s.logger.Error("reminder generation failed for pet",
				zap.Error(err),
				zap.String("pet_id", pet.ID.String()),
			)
			result.Errors = append(result.Errors, SweepError{
				PetID: pet.ID,
				Stage: "generate",
				Error: err.Error(),
			})
		}
	}

	s.logger.Info("generation sweep complete",
		zap.Int("pets_processed", result.PetsProcessed),
		zap.Int("reminders_created", result.RemindersCreated),
		zap.Int("errors", len(result.Errors)),
	)

	return result, nil
}
