package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const scheduleColumns = `
	id, name, description, recommended_age_weeks, interval_weeks,
	scope, active, priority, created_at, updated_at
`

// ScheduleRepository provides schedule definitions for reminder generation.
type ScheduleRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewScheduleRepository creates a new schedule repository
func NewScheduleRepository(db *DB, logger *zap.Logger) *ScheduleRepository {
	return &ScheduleRepository{
		db:     db,
		logger: logger,
	}
}

// CreateSchedule inserts a new schedule definition.
func (r *ScheduleRepository) CreateSchedule(ctx context.Context, sched *ScheduleDefinition) error {
	query := `
		INSERT INTO schedule_definitions (
			id, name, description, recommended_age_weeks, interval_weeks,
			scope, active, priority
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`

	err := r.db.Pool().QueryRow(ctx, query,
		sched.ID,
		sched.Name,
		sched.Description,
		sched.RecommendedAgeWeeks,
		sched.IntervalWeeks,
		sched.Scope,
		sched.Active,
		sched.Priority,
	).Scan(&sched.CreatedAt, &sched.UpdatedAt)

	if err != nil {
		return fmt.Errorf("insert schedule definition: %w", err)
	}

	r.logger.Info("schedule definition created",
		zap.String("schedule_id", sched.ID.String()),
		zap.String("name", sched.Name),
		zap.String("scope", sched.Scope),
	)

	return nil
}

// GetSchedule retrieves a schedule definition by ID.
func (r *ScheduleRepository) GetSchedule(ctx context.Context, id uuid.UUID) (*ScheduleDefinition, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedule_definitions WHERE id = $1`

	sched, err := scanSchedule(r.db.Pool().QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("schedule definition %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query schedule definition: %w", err)
	}

	return sched, nil
}

// ActiveDefinitionsFor returns the active schedule definitions applicable
// to a breed: breed-scoped definitions plus the general ones, highest
// priority first.
func (r *ScheduleRepository) ActiveDefinitionsFor(ctx context.Context, breed string) ([]*ScheduleDefinition, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM schedule_definitions
		WHERE active = TRUE AND (scope = $1 OR scope = $2)
		ORDER BY priority DESC, name ASC
	`

	rows, err := r.db.Pool().Query(ctx, query, breed, ScopeGeneral)
	if err != nil {
		return nil, fmt.Errorf("query schedule definitions: %w", err)
	}
	defer rows.Close()

	var defs []*ScheduleDefinition
	for rows.Next() {
		sched, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schedule definition: %w", err)
		}
		defs = append(defs, sched)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return defs, nil
}

func scanSchedule(row pgx.Row) (*ScheduleDefinition, error) {
	var sched ScheduleDefinition
	err := row.Scan(
		&sched.ID,
		&sched.Name,
		&sched.Description,
		&sched.RecommendedAgeWeeks,
		&sched.IntervalWeeks,
		&sched.Scope,
		&sched.Active,
		&sched.Priority,
		&sched.CreatedAt,
		&sched.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sched, nil
}
