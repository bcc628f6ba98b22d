package db

import (
	"time"

	"github.com/google/uuid"
)

// Reminder is the central entity of the engine: a time-sensitive care task
// for a pet, escalated through reminder levels as its due date approaches.
type Reminder struct {
	ID          uuid.UUID  `json:"id"`
	PetID       uuid.UUID  `json:"pet_id"`
	OwnerID     uuid.UUID  `json:"owner_id"`
	ScheduleID  *uuid.UUID `json:"schedule_id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	DueDate     time.Time  `json:"due_date"`
	Status      string     `json:"status"`

	// Intervals holds the escalation thresholds in days-before-due,
	// sorted descending. Index 0 is the first (earliest) threshold.
	Intervals []int `json:"intervals"`

	// SentHistory records every instant a notification was produced for
	// this reminder. Append-only.
	SentHistory []time.Time `json:"sent_history"`

	CompletedAt  *time.Time        `json:"completed_at,omitempty"`
	SnoozedUntil *time.Time        `json:"snoozed_until,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// Reminder status constants
const (
	StatusPending        = "pending"
	StatusEscalatedL1    = "escalated_l1"
	StatusEscalatedL2    = "escalated_l2"
	StatusEscalatedFinal = "escalated_final"
	StatusOverdue        = "overdue"
	StatusSnoozed        = "snoozed"
	StatusCompleted      = "completed"
	StatusCancelled      = "cancelled"
)

// AllStatuses lists every reminder status, in state-machine order.
var AllStatuses = []string{
	StatusPending,
	StatusEscalatedL1,
	StatusEscalatedL2,
	StatusEscalatedFinal,
	StatusOverdue,
	StatusSnoozed,
	StatusCompleted,
	StatusCancelled,
}

// IsTerminal reports whether a status never transitions further.
func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusCancelled
}

// IsActive reports whether a reminder still counts against the
// one-active-reminder-per-schedule rule.
func IsActive(status string) bool {
	return !IsTerminal(status)
}

// EscalatableStatuses are the statuses the escalation processor considers.
// Snoozed reminders are skipped until the wake sweep returns them to
// pending; overdue and terminal reminders no longer notify.
var EscalatableStatuses = []string{
	StatusPending,
	StatusEscalatedL1,
	StatusEscalatedL2,
	StatusEscalatedFinal,
}

// Escalation level constants, carried on notification payloads.
const (
	LevelL1      = "l1"
	LevelL2      = "l2"
	LevelFinal   = "final"
	LevelOverdue = "overdue"
)

// ScheduleDefinition describes a recurring or one-time care item relative
// to a pet's age. IntervalWeeks nil means the item is one-time.
type ScheduleDefinition struct {
	ID                  uuid.UUID `json:"id"`
	Name                string    `json:"name"`
	Description         string    `json:"description,omitempty"`
	RecommendedAgeWeeks int       `json:"recommended_age_weeks"`
	IntervalWeeks       *int      `json:"interval_weeks,omitempty"`
	Scope               string    `json:"scope"` // breed name, or "general"
	Active              bool      `json:"active"`
	Priority            int       `json:"priority"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// ScopeGeneral marks schedule definitions that apply to every pet.
const ScopeGeneral = "general"

// Pet is the subject of reminders.
type Pet struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Name      string    `json:"name"`
	Species   string    `json:"species"`
	Breed     string    `json:"breed,omitempty"`
	BirthDate time.Time `json:"birth_date"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Owner holds the contact details the dispatcher routes notifications to.
type Owner struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	WebhookURL string    `json:"webhook_url,omitempty"`

	// Channels lists the delivery channels enabled for this owner
	// (email, sms, push, webhook).
	Channels  []string  `json:"channels"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Delivery channel constants
const (
	ChannelEmail   = "email"
	ChannelSMS     = "sms"
	ChannelPush    = "push"
	ChannelWebhook = "webhook"
)
