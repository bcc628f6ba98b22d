package engine

import (
	"math"
	"time"

	"github.com/petminder/petminder/internal/db"
)

const daysPerWeek = 7

// AgeInWeeks returns a pet's age in whole weeks at the given instant.
func AgeInWeeks(birthDate, now time.Time) int {
	d := now.Sub(birthDate)
	if d < 0 {
		d = -d
	}
	return int(d.Hours() / (24 * daysPerWeek))
}

// ComputeDueDate derives the next due date for a schedule definition from
// the pet's birth date. Returns nil when no reminder should exist: a
// one-time item whose recommended age has already passed.
//
// For recurring items the next due date is the first interval boundary
// strictly after the pet's current age, anchored at the recommended age.
func ComputeDueDate(birthDate time.Time, sched *db.ScheduleDefinition, now time.Time) *time.Time {
	ageWeeks := AgeInWeeks(birthDate, now)

	if ageWeeks < sched.RecommendedAgeWeeks {
		due := birthDate.AddDate(0, 0, sched.RecommendedAgeWeeks*daysPerWeek)
		return &due
	}

	if sched.IntervalWeeks == nil || *sched.IntervalWeeks <= 0 {
		return nil
	}

	weeksSinceRecommended := ageWeeks - sched.RecommendedAgeWeeks
	intervalsPassed := weeksSinceRecommended / *sched.IntervalWeeks
	dueAgeWeeks := sched.RecommendedAgeWeeks + (intervalsPassed+1)**sched.IntervalWeeks

	due := birthDate.AddDate(0, 0, dueAgeWeeks*daysPerWeek)
	return &due
}

// daysUntil returns the whole days from now until due, rounded toward
// negative infinity so that any instant past the due date counts as
// overdue.
func daysUntil(now, due time.Time) int {
	return int(math.Floor(due.Sub(now).Hours() / 24))
}
