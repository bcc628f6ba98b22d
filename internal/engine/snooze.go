package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/petminder/petminder/internal/db"
)

const (
	defaultSnoozeDays = 1
	maxSnoozeDays     = 90
)

// Snooze puts a reminder to sleep for the given number of days (default 1).
// Waking resets the reminder to pending, so a snoozed reminder close to its
// due date re-escalates through whatever rule matches on the next pass.
func (s *Service) Snooze(ctx context.Context, id uuid.UUID, days int) (*db.Reminder, error) {
	if days == 0 {
		days = defaultSnoozeDays
	}
	if days < 0 || days > maxSnoozeDays {
		return nil, fmt.Errorf("%w: snooze days must be between 1 and %d, got %d",
			ErrInvalidInput, maxSnoozeDays, days)
	}

	rem, err := s.store.GetReminder(ctx, id)
	if err != nil {
		return nil, err
	}

	if db.IsTerminal(rem.Status) {
		return nil, fmt.Errorf("%w: cannot snooze a %s reminder", ErrInvalidInput, rem.Status)
	}

	until := s.now().AddDate(0, 0, days)
	rem.Status = db.StatusSnoozed
	rem.SnoozedUntil = &until

	if err := s.store.UpdateReminder(ctx, rem); err != nil {
		return nil, err
	}

	s.logger.Info("reminder snoozed",
		zap.String("reminder_id", rem.ID.String()),
		zap.Int("days", days),
		zap.Time("until", until),
	)

	return rem, nil
}

// WakeSnoozed returns every reminder whose snooze expired before now back
// to pending and reports how many woke. A reminder that fails to persist
// is logged and skipped; the rest of the sweep continues.
func (s *Service) WakeSnoozed(ctx context.Context, now time.Time) (int, error) {
	reminders, err := s.store.ListSnoozedBefore(ctx, now)
	if err != nil {
		return 0, err
	}

	woken := 0
	for _, rem := range reminders {
		rem.Status = db.StatusPending
		rem.SnoozedUntil = nil

		if err := s.store.UpdateReminder(ctx, rem); err != nil {
			s.logger.Error("failed to wake snoozed reminder",
				zap.Error(err),
				zap.String("reminder_id", rem.ID.String()),
			)
			continue
		}
		woken++
	}

	if woken > 0 {
		s.logger.Info("snoozed reminders woken", zap.Int("count", woken))
	}

	return woken, nil
}
