package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// PetRepository resolves pets and their owners for generation and dispatch.
type PetRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewPetRepository creates a new pet repository
func NewPetRepository(db *DB, logger *zap.Logger) *PetRepository {
	return &PetRepository{
		db:     db,
		logger: logger,
	}
}

// GetPet retrieves a pet by ID.
func (r *PetRepository) GetPet(ctx context.Context, id uuid.UUID) (*Pet, error) {
	query := `
		SELECT id, owner_id, name, species, breed, birth_date, active, created_at, updated_at
		FROM pets
		WHERE id = $1
	`

	var pet Pet
	err := r.db.Pool().QueryRow(ctx, query, id).Scan(
		&pet.ID,
		&pet.OwnerID,
		&pet.Name,
		&pet.Species,
		&pet.Breed,
		&pet.BirthDate,
		&pet.Active,
		&pet.CreatedAt,
		&pet.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("pet %s: %w", id, ErrNotFound)
	}
	if err != nil {
		r.logger.Error("failed to get pet",
			zap.Error(err),
			zap.String("pet_id", id.String()),
		)
		return nil, fmt.Errorf("query pet: %w", err)
	}

	return &pet, nil
}

// ListActivePets returns every active pet, for the daily generation sweep.
func (r *PetRepository) ListActivePets(ctx context.Context) ([]*Pet, error) {
	query := `
		SELECT id, owner_id, name, species, breed, birth_date, active, created_at, updated_at
		FROM pets
		WHERE active = TRUE
		ORDER BY created_at ASC
	`

	rows, err := r.db.Pool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query active pets: %w", err)
	}
	defer rows.Close()

	var pets []*Pet
	for rows.Next() {
		var pet Pet
		err := rows.Scan(
			&pet.ID,
			&pet.OwnerID,
			&pet.Name,
			&pet.Species,
			&pet.Breed,
			&pet.BirthDate,
			&pet.Active,
			&pet.CreatedAt,
			&pet.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan pet: %w", err)
		}
		pets = append(pets, &pet)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return pets, nil
}

// GetOwner retrieves an owner's contact details by ID.
func (r *PetRepository) GetOwner(ctx context.Context, id uuid.UUID) (*Owner, error) {
	query := `
		SELECT id, name, email, phone, webhook_url, channels, created_at, updated_at
		FROM owners
		WHERE id = $1
	`

	var owner Owner
	err := r.db.Pool().QueryRow(ctx, query, id).Scan(
		&owner.ID,
		&owner.Name,
		&owner.Email,
		&owner.Phone,
		&owner.WebhookURL,
		&owner.Channels,
		&owner.CreatedAt,
		&owner.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("owner %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query owner: %w", err)
	}

	return &owner, nil
}
