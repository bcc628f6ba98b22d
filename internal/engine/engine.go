// Package engine implements the reminder escalation engine: due-date
// resolution from care schedules, reminder generation with deduplication,
// the escalation state machine, and the snooze/wake lifecycle. Storage,
// the pet registry, and notification delivery are consumed as interfaces.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/petminder/petminder/internal/db"
)

// ErrInvalidInput indicates a malformed request (negative intervals,
// out-of-range snooze duration, dedup violation, terminal-state mutation).
var ErrInvalidInput = errors.New("invalid input")

// ReminderStore is the persistence surface the engine requires.
type ReminderStore interface {
	CreateReminder(ctx context.Context, rem *db.Reminder) error
	GetReminder(ctx context.Context, id uuid.UUID) (*db.Reminder, error)
	ListByPet(ctx context.Context, petID uuid.UUID) ([]*db.Reminder, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*db.Reminder, error)
	FindActiveBySchedule(ctx context.Context, petID, scheduleID uuid.UUID) (*db.Reminder, error)
	ListEscalatable(ctx context.Context) ([]*db.Reminder, error)
	ListSnoozedBefore(ctx context.Context, t time.Time) ([]*db.Reminder, error)
	ListUpcoming(ctx context.Context, now time.Time, withinDays int) ([]*db.Reminder, error)
	UpdateReminder(ctx context.Context, rem *db.Reminder) error
	DeleteReminder(ctx context.Context, id uuid.UUID) error
	CountByStatus(ctx context.Context) (map[string]int, error)
}

// ScheduleProvider lists the active schedule definitions for a breed,
// including the general (scope-less) ones.
type ScheduleProvider interface {
	ActiveDefinitionsFor(ctx context.Context, breed string) ([]*db.ScheduleDefinition, error)
}

// PetRegistry resolves pets for generation sweeps.
type PetRegistry interface {
	GetPet(ctx context.Context, id uuid.UUID) (*db.Pet, error)
	ListActivePets(ctx context.Context) ([]*db.Pet, error)
}

// NotificationPayload is handed to the Dispatcher once per escalation.
type NotificationPayload struct {
	ReminderID   uuid.UUID `json:"reminder_id"`
	PetID        uuid.UUID `json:"pet_id"`
	OwnerID      uuid.UUID `json:"owner_id"`
	Level        string    `json:"level"`
	DaysUntilDue int       `json:"days_until_due"`
	Title        string    `json:"title"`
	Message      string    `json:"message"`
}

// Dispatcher delivers a notification payload through some channel.
// A dispatch failure must be returned, never panicked; the engine logs
// and counts it but does not retry (fire-once semantics).
type Dispatcher interface {
	Dispatch(ctx context.Context, payload *NotificationPayload) error
}

// Service is the engine's public surface. All state mutation goes through
// it; sweeps take the current instant explicitly so tests can drive time.
type Service struct {
	store      ReminderStore
	schedules  ScheduleProvider
	pets       PetRegistry
	dispatcher Dispatcher
	logger     *zap.Logger

	// now is the clock for single-item operations (snooze, complete).
	// Overridable in tests; sweeps receive their instant as a parameter.
	now func() time.Time
}

// NewService creates the reminder engine. dispatcher may be nil, in which
// case escalation sweeps advance state and produce payloads without
// delivering them.
func NewService(store ReminderStore, schedules ScheduleProvider, pets PetRegistry, dispatcher Dispatcher, logger *zap.Logger) *Service {
	return &Service{
		store:      store,
		schedules:  schedules,
		pets:       pets,
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}
