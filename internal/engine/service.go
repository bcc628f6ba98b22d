package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/petminder/petminder/internal/db"
)

// CreateInput carries the fields for a directly created reminder (one not
// produced by the generator).
type CreateInput struct {
	PetID       uuid.UUID
	ScheduleID  *uuid.UUID
	Title       string
	Description string
	DueDate     time.Time
	Intervals   []int
	Metadata    map[string]string
}

// UpdateInput is a partial update; nil fields are left untouched.
type UpdateInput struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	Metadata    map[string]string
}

// Create validates the input and persists a new pending reminder. When the
// reminder is bound to a schedule definition, the one-active-reminder-per-
// schedule rule is enforced.
func (s *Service) Create(ctx context.Context, input CreateInput) (*db.Reminder, error) {
	if input.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if input.DueDate.IsZero() {
		return nil, fmt.Errorf("%w: due_date is required", ErrInvalidInput)
	}

	pet, err := s.pets.GetPet(ctx, input.PetID)
	if err != nil {
		return nil, err
	}

	if input.ScheduleID != nil {
		existing, err := s.store.FindActiveBySchedule(ctx, pet.ID, *input.ScheduleID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, fmt.Errorf("%w: pet %s already has an active reminder for schedule %s",
				ErrInvalidInput, pet.ID, *input.ScheduleID)
		}
	}

	intervals, err := NormalizeIntervals(input.Intervals)
	if err != nil {
		return nil, err
	}

	rem := &db.Reminder{
		ID:          uuid.New(),
		PetID:       pet.ID,
		OwnerID:     pet.OwnerID,
		ScheduleID:  input.ScheduleID,
		Title:       input.Title,
		Description: input.Description,
		DueDate:     input.DueDate,
		Status:      db.StatusPending,
		Intervals:   intervals,
		SentHistory: []time.Time{},
		Metadata:    input.Metadata,
	}

	if err := s.store.CreateReminder(ctx, rem); err != nil {
		return nil, err
	}

	return rem, nil
}

// Get returns a reminder by id. A missing id is an error.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*db.Reminder, error) {
	return s.store.GetReminder(ctx, id)
}

// ListByPet returns all reminders for a pet.
func (s *Service) ListByPet(ctx context.Context, petID uuid.UUID) ([]*db.Reminder, error) {
	return s.store.ListByPet(ctx, petID)
}

// ListByOwner returns all reminders for an owner.
func (s *Service) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*db.Reminder, error) {
	return s.store.ListByOwner(ctx, ownerID)
}

// ListUpcoming returns active reminders due within the given number of days.
func (s *Service) ListUpcoming(ctx context.Context, withinDays int) ([]*db.Reminder, error) {
	if withinDays <= 0 {
		return nil, fmt.Errorf("%w: within_days must be positive", ErrInvalidInput)
	}
	return s.store.ListUpcoming(ctx, s.now(), withinDays)
}

// Update applies a partial update to a reminder. Terminal reminders can
// still have their descriptive fields edited, but their status never moves.
func (s *Service) Update(ctx context.Context, id uuid.UUID, patch UpdateInput) (*db.Reminder, error) {
	rem, err := s.store.GetReminder(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		if *patch.Title == "" {
			return nil, fmt.Errorf("%w: title cannot be empty", ErrInvalidInput)
		}
		rem.Title = *patch.Title
	}
	if patch.Description != nil {
		rem.Description = *patch.Description
	}
	if patch.DueDate != nil {
		rem.DueDate = *patch.DueDate
	}
	if patch.Metadata != nil {
		if rem.Metadata == nil {
			rem.Metadata = make(map[string]string, len(patch.Metadata))
		}
		for k, v := range patch.Metadata {
			rem.Metadata[k] = v
		}
	}

	if err := s.store.UpdateReminder(ctx, rem); err != nil {
		return nil, err
	}

	return rem, nil
}

// Delete removes a reminder. Sweeps never call this; it is an explicit
// caller action.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.store.DeleteReminder(ctx, id)
}

// Complete marks a reminder done. linkedRecordID optionally links the care
// record (e.g. the administered vaccination) that satisfied it.
func (s *Service) Complete(ctx context.Context, id uuid.UUID, linkedRecordID *uuid.UUID) (*db.Reminder, error) {
	rem, err := s.store.GetReminder(ctx, id)
	if err != nil {
		return nil, err
	}

	if db.IsTerminal(rem.Status) {
		return nil, fmt.Errorf("%w: reminder %s is already %s", ErrInvalidInput, id, rem.Status)
	}

	now := s.now()
	rem.Status = db.StatusCompleted
	rem.CompletedAt = &now
	rem.SnoozedUntil = nil
	if linkedRecordID != nil {
		if rem.Metadata == nil {
			rem.Metadata = make(map[string]string, 1)
		}
		rem.Metadata["completed_record_id"] = linkedRecordID.String()
	}

	if err := s.store.UpdateReminder(ctx, rem); err != nil {
		return nil, err
	}

	s.logger.Info("reminder completed",
		zap.String("reminder_id", rem.ID.String()),
		zap.String("pet_id", rem.PetID.String()),
	)

	return rem, nil
}

// Cancel marks a reminder cancelled. Terminal, like Complete.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*db.Reminder, error) {
	rem, err := s.store.GetReminder(ctx, id)
	if err != nil {
		return nil, err
	}

	if db.IsTerminal(rem.Status) {
		return nil, fmt.Errorf("%w: reminder %s is already %s", ErrInvalidInput, id, rem.Status)
	}

	rem.Status = db.StatusCancelled
	rem.SnoozedUntil = nil

	if err := s.store.UpdateReminder(ctx, rem); err != nil {
		return nil, err
	}

	s.logger.Info("reminder cancelled", zap.String("reminder_id", rem.ID.String()))

	return rem, nil
}

// SetIntervals replaces a reminder's escalation thresholds. The list is
// validated and stored sorted descending.
func (s *Service) SetIntervals(ctx context.Context, id uuid.UUID, intervals []int) (*db.Reminder, error) {
	normalized, err := NormalizeIntervals(intervals)
	if err != nil {
		return nil, err
	}

	rem, err := s.store.GetReminder(ctx, id)
	if err != nil {
		return nil, err
	}

	rem.Intervals = normalized

	if err := s.store.UpdateReminder(ctx, rem); err != nil {
		return nil, err
	}

	return rem, nil
}

// Statistics reports reminder counts grouped by status, with zero entries
// for statuses that have no reminders.
type Statistics struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"by_status"`
}

// Statistics returns the current reminder counts for observability.
func (s *Service) Statistics(ctx context.Context) (*Statistics, error) {
	counts, err := s.store.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Statistics{ByStatus: make(map[string]int, len(db.AllStatuses))}
	for _, status := range db.AllStatuses {
		stats.ByStatus[status] = counts[status]
		stats.Total += counts[status]
	}

	return stats, nil
}
