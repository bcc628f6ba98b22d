package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/petminder/petminder/internal/db"
)

// Common test errors
var (
	errStoreDown    = errors.New("database error")
	errDispatchDown = errors.New("delivery channel unavailable")
)

// mockStore is an in-memory ReminderStore for testing.
type mockStore struct {
	reminders map[uuid.UUID]*db.Reminder

	failUpdateFor map[uuid.UUID]bool
	failCreate    bool
}

func newMockStore() *mockStore {
	return &mockStore{
		reminders:     make(map[uuid.UUID]*db.Reminder),
		failUpdateFor: make(map[uuid.UUID]bool),
	}
}

func (m *mockStore) CreateReminder(ctx context.Context, rem *db.Reminder) error {
	if m.failCreate {
		return errStoreDown
	}
	rem.CreatedAt = time.Now()
	rem.UpdatedAt = rem.CreatedAt
	m.reminders[rem.ID] = rem
	return nil
}

func (m *mockStore) GetReminder(ctx context.Context, id uuid.UUID) (*db.Reminder, error) {
	rem, ok := m.reminders[id]
	if !ok {
		return nil, fmt.Errorf("reminder %s: %w", id, db.ErrNotFound)
	}
	return rem, nil
}

func (m *mockStore) ListByPet(ctx context.Context, petID uuid.UUID) ([]*db.Reminder, error) {
	var out []*db.Reminder
	for _, rem := range m.reminders {
		if rem.PetID == petID {
			out = append(out, rem)
		}
	}
	sortByDueDate(out)
	return out, nil
}

func (m *mockStore) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*db.Reminder, error) {
	var out []*db.Reminder
	for _, rem := range m.reminders {
		if rem.OwnerID == ownerID {
			out = append(out, rem)
		}
	}
	sortByDueDate(out)
	return out, nil
}

func (m *mockStore) FindActiveBySchedule(ctx context.Context, petID, scheduleID uuid.UUID) (*db.Reminder, error) {
	for _, rem := range m.reminders {
		if rem.PetID == petID && rem.ScheduleID != nil && *rem.ScheduleID == scheduleID && db.IsActive(rem.Status) {
			return rem, nil
		}
	}
	return nil, nil
}

func (m *mockStore) ListEscalatable(ctx context.Context) ([]*db.Reminder, error) {
	escalatable := map[string]bool{
		db.StatusPending:        true,
		db.StatusEscalatedL1:    true,
		db.StatusEscalatedL2:    true,
		db.StatusEscalatedFinal: true,
	}
	var out []*db.Reminder
	for _, rem := range m.reminders {
		if escalatable[rem.Status] {
			out = append(out, rem)
		}
	}
	sortByDueDate(out)
	return out, nil
}

func (m *mockStore) ListSnoozedBefore(ctx context.Context, t time.Time) ([]*db.Reminder, error) {
	var out []*db.Reminder
	for _, rem := range m.reminders {
		if rem.Status == db.StatusSnoozed && rem.SnoozedUntil != nil && rem.SnoozedUntil.Before(t) {
			out = append(out, rem)
		}
	}
	sortByDueDate(out)
	return out, nil
}

func (m *mockStore) ListUpcoming(ctx context.Context, now time.Time, withinDays int) ([]*db.Reminder, error) {
	until := now.AddDate(0, 0, withinDays)
	var out []*db.Reminder
	for _, rem := range m.reminders {
		if db.IsActive(rem.Status) && !rem.DueDate.Before(now) && rem.DueDate.Before(until) {
			out = append(out, rem)
		}
	}
	sortByDueDate(out)
	return out, nil
}

func (m *mockStore) UpdateReminder(ctx context.Context, rem *db.Reminder) error {
	if m.failUpdateFor[rem.ID] {
		return errStoreDown
	}
	if _, ok := m.reminders[rem.ID]; !ok {
		return fmt.Errorf("reminder %s: %w", rem.ID, db.ErrNotFound)
	}
	rem.UpdatedAt = time.Now()
	m.reminders[rem.ID] = rem
	return nil
}

func (m *mockStore) DeleteReminder(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.reminders[id]; !ok {
		return fmt.Errorf("reminder %s: %w", id, db.ErrNotFound)
	}
	delete(m.reminders, id)
	return nil
}

func (m *mockStore) CountByStatus(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	for _, rem := range m.reminders {
		counts[rem.Status]++
	}
	return counts, nil
}

func sortByDueDate(reminders []*db.Reminder) {
	sort.Slice(reminders, func(i, j int) bool {
		return reminders[i].DueDate.Before(reminders[j].DueDate)
	})
}

// mockRegistry is an in-memory PetRegistry.
type mockRegistry struct {
	pets []*db.Pet
}

func (m *mockRegistry) GetPet(ctx context.Context, id uuid.UUID) (*db.Pet, error) {
	for _, pet := range m.pets {
		if pet.ID == id {
			return pet, nil
		}
	}
	return nil, fmt.Errorf("pet %s: %w", id, db.ErrNotFound)
}

func (m *mockRegistry) ListActivePets(ctx context.Context) ([]*db.Pet, error) {
	var out []*db.Pet
	for _, pet := range m.pets {
		if pet.Active {
			out = append(out, pet)
		}
	}
	return out, nil
}

// mockSchedules is an in-memory ScheduleProvider.
type mockSchedules struct {
	defs []*db.ScheduleDefinition
}

func (m *mockSchedules) ActiveDefinitionsFor(ctx context.Context, breed string) ([]*db.ScheduleDefinition, error) {
	var out []*db.ScheduleDefinition
	for _, def := range m.defs {
		if def.Active && (def.Scope == breed || def.Scope == db.ScopeGeneral) {
			out = append(out, def)
		}
	}
	return out, nil
}

// mockDispatcher records payloads and can fail selected reminders.
type mockDispatcher struct {
	dispatched []*NotificationPayload
	failFor    map[uuid.UUID]bool
}

func newMockDispatcher() *mockDispatcher {
	return &mockDispatcher{failFor: make(map[uuid.UUID]bool)}
}

func (m *mockDispatcher) Dispatch(ctx context.Context, payload *NotificationPayload) error {
	if m.failFor[payload.ReminderID] {
		return errDispatchDown
	}
	m.dispatched = append(m.dispatched, payload)
	return nil
}
