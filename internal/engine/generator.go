package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/petminder/petminder/internal/db"
)

// GenerateForPet creates pending reminders for every applicable schedule
// definition a pet has no active reminder for yet. An empty result is
// normal: all schedules covered, or nothing currently due.
func (s *Service) GenerateForPet(ctx context.Context, petID uuid.UUID, now time.Time) ([]*db.Reminder, error) {
	pet, err := s.pets.GetPet(ctx, petID)
	if err != nil {
		return nil, err
	}

	if !pet.Active {
		s.logger.Debug("skipping reminder generation for inactive pet",
			zap.String("pet_id", pet.ID.String()),
		)
		return nil, nil
	}

	defs, err := s.schedules.ActiveDefinitionsFor(ctx, pet.Breed)
	if err != nil {
		return nil, err
	}

	var created []*db.Reminder
	for _, def := range defs {
		existing, err := s.store.FindActiveBySchedule(ctx, pet.ID, def.ID)
		if err != nil {
			return created, err
		}
		if existing != nil {
			continue
		}

		due := ComputeDueDate(pet.BirthDate, def, now)
		if due == nil {
			// One-time item already past its recommended age.
			continue
		}

		scheduleID := def.ID
		rem := &db.Reminder{
			ID:          uuid.New(),
			PetID:       pet.ID,
			OwnerID:     pet.OwnerID,
			ScheduleID:  &scheduleID,
			Title:       def.Name,
			Description: def.Description,
			DueDate:     *due,
			Status:      db.StatusPending,
			Intervals:   append([]int(nil), DefaultIntervals...),
			SentHistory: []time.Time{},
		}

		if err := s.store.CreateReminder(ctx, rem); err != nil {
			return created, err
		}

		s.logger.Info("reminder generated",
			zap.String("reminder_id", rem.ID.String()),
			zap.String("pet_id", pet.ID.String()),
			zap.String("schedule", def.Name),
			zap.Time("due_date", *due),
		)

		created = append(created, rem)
	}

	return created, nil
}
