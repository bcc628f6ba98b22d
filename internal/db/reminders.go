package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a row addressed by id does not exist.
var ErrNotFound = errors.New("not found")

const reminderColumns = `
	id, pet_id, owner_id, schedule_id, title, description, due_date,
	status, intervals, sent_history, completed_at, snoozed_until,
	metadata, created_at, updated_at
`

// ReminderRepository handles database operations for reminders
type ReminderRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewReminderRepository creates a new reminder repository
func NewReminderRepository(db *DB, logger *zap.Logger) *ReminderRepository {
	return &ReminderRepository{
		db:     db,
		logger: logger,
	}
}

// CreateReminder inserts a new reminder into the database
func (r *ReminderRepository) CreateReminder(ctx context.Context, rem *Reminder) error {
	query := `
		INSERT INTO reminders (
			id, pet_id, owner_id, schedule_id, title, description,
			due_date, status, intervals, sent_history, snoozed_until, metadata
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
		RETURNING created_at, updated_at
	`

	err := r.db.Pool().QueryRow(
		ctx,
		query,
		rem.ID,
		rem.PetID,
		rem.OwnerID,
		rem.ScheduleID,
		rem.Title,
		rem.Description,
		rem.DueDate,
		rem.Status,
		rem.Intervals,
		rem.SentHistory,
		rem.SnoozedUntil,
		rem.Metadata,
	).Scan(&rem.CreatedAt, &rem.UpdatedAt)

	if err != nil {
		r.logger.Error("failed to create reminder",
			zap.Error(err),
			zap.String("reminder_id", rem.ID.String()),
		)
		return fmt.Errorf("insert reminder: %w", err)
	}

	r.logger.Info("reminder created",
		zap.String("reminder_id", rem.ID.String()),
		zap.String("pet_id", rem.PetID.String()),
		zap.Time("due_date", rem.DueDate),
	)

	return nil
}

// GetReminder retrieves a reminder by ID
func (r *ReminderRepository) GetReminder(ctx context.Context, id uuid.UUID) (*Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders WHERE id = $1`

	rem, err := scanReminder(r.db.Pool().QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("reminder %s: %w", id, ErrNotFound)
	}
	if err != nil {
		r.logger.Error("failed to get reminder",
			zap.Error(err),
			zap.String("reminder_id", id.String()),
		)
		return nil, fmt.Errorf("query reminder: %w", err)
	}

	return rem, nil
}

// ListByPet retrieves all reminders for a pet, most urgent first.
func (r *ReminderRepository) ListByPet(ctx context.Context, petID uuid.UUID) ([]*Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders WHERE pet_id = $1 ORDER BY due_date ASC`

	rows, err := r.db.Pool().Query(ctx, query, petID)
	if err != nil {
		return nil, fmt.Errorf("query reminders by pet: %w", err)
	}
	return collectReminders(rows)
}

// ListByOwner retrieves all reminders for an owner, most urgent first.
func (r *ReminderRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders WHERE owner_id = $1 ORDER BY due_date ASC`

	rows, err := r.db.Pool().Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query reminders by owner: %w", err)
	}
	return collectReminders(rows)
}

// FindActiveBySchedule returns the active (non-terminal) reminder for a
// (pet, schedule) pair, or nil when none exists. At most one is expected.
func (r *ReminderRepository) FindActiveBySchedule(ctx context.Context, petID, scheduleID uuid.UUID) (*Reminder, error) {
	query := `
		SELECT ` + reminderColumns + `
		FROM reminders
		WHERE pet_id = $1 AND schedule_id = $2
		  AND status NOT IN ('completed', 'cancelled')
		ORDER BY created_at DESC
		LIMIT 1
	`

	rem, err := scanReminder(r.db.Pool().QueryRow(ctx, query, petID, scheduleID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query active reminder: %w", err)
	}

	return rem, nil
}

// ListEscalatable returns reminders the escalation processor should consider.
func (r *ReminderRepository) ListEscalatable(ctx context.Context) ([]*Reminder, error) {
	query := `
		SELECT ` + reminderColumns + `
		FROM reminders
		WHERE status IN ('pending', 'escalated_l1', 'escalated_l2', 'escalated_final')
		ORDER BY due_date ASC
	`

	rows, err := r.db.Pool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query escalatable reminders: %w", err)
	}
	return collectReminders(rows)
}

// ListSnoozedBefore returns snoozed reminders whose snooze has expired.
func (r *ReminderRepository) ListSnoozedBefore(ctx context.Context, t time.Time) ([]*Reminder, error) {
	query := `
		SELECT ` + reminderColumns + `
		FROM reminders
		WHERE status = 'snoozed' AND snoozed_until < $1
		ORDER BY snoozed_until ASC
	`

	rows, err := r.db.Pool().Query(ctx, query, t)
	if err != nil {
		return nil, fmt.Errorf("query snoozed reminders: %w", err)
	}
	return collectReminders(rows)
}

// ListUpcoming returns active reminders due within the given number of days.
func (r *ReminderRepository) ListUpcoming(ctx context.Context, now time.Time, withinDays int) ([]*Reminder, error) {
	query := `
		SELECT ` + reminderColumns + `
		FROM reminders
		WHERE status NOT IN ('completed', 'cancelled')
		  AND due_date >= $1 AND due_date < $2
		ORDER BY due_date ASC
	`

	until := now.AddDate(0, 0, withinDays)
	rows, err := r.db.Pool().Query(ctx, query, now, until)
	if err != nil {
		return nil, fmt.Errorf("query upcoming reminders: %w", err)
	}
	return collectReminders(rows)
}

// UpdateReminder persists the mutable fields of a reminder.
func (r *ReminderRepository) UpdateReminder(ctx context.Context, rem *Reminder) error {
	query := `
		UPDATE reminders
		SET title = $1, description = $2, due_date = $3, status = $4,
		    intervals = $5, sent_history = $6, completed_at = $7,
		    snoozed_until = $8, metadata = $9, updated_at = NOW()
		WHERE id = $10
	`

	result, err := r.db.Pool().Exec(ctx, query,
		rem.Title,
		rem.Description,
		rem.DueDate,
		rem.Status,
		rem.Intervals,
		rem.SentHistory,
		rem.CompletedAt,
		rem.SnoozedUntil,
		rem.Metadata,
		rem.ID,
	)
	if err != nil {
		r.logger.Error("failed to update reminder",
			zap.Error(err),
			zap.String("reminder_id", rem.ID.String()),
		)
		return fmt.Errorf("update reminder: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("reminder %s: %w", rem.ID, ErrNotFound)
	}

	return nil
}

// DeleteReminder removes a reminder. Deletion is an explicit caller action;
// sweeps never delete.
func (r *ReminderRepository) DeleteReminder(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Pool().Exec(ctx, `DELETE FROM reminders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete reminder: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("reminder %s: %w", id, ErrNotFound)
	}

	r.logger.Info("reminder deleted", zap.String("reminder_id", id.String()))

	return nil
}

// CountByStatus returns the number of reminders in each status.
func (r *ReminderRepository) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.Pool().Query(ctx, `SELECT status, COUNT(*) FROM reminders GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count reminders by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[status] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return counts, nil
}

func scanReminder(row pgx.Row) (*Reminder, error) {
	var rem Reminder
	err := row.Scan(
		&rem.ID,
		&rem.PetID,
		&rem.OwnerID,
		&rem.ScheduleID,
		&rem.Title,
		&rem.Description,
		&rem.DueDate,
		&rem.Status,
		&rem.Intervals,
		&rem.SentHistory,
		&rem.CompletedAt,
		&rem.SnoozedUntil,
		&rem.Metadata,
		&rem.CreatedAt,
		&rem.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rem, nil
}

func collectReminders(rows pgx.Rows) ([]*Reminder, error) {
	defer rows.Close()

	var reminders []*Reminder
	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		reminders = append(reminders, rem)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return reminders, nil
}
