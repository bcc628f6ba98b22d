package engine

import (
	"testing"
	"time"

	"github.com/petminder/petminder/internal/db"
)

func intPtr(v int) *int { return &v }

func TestComputeDueDate_NotYetRecommendedAge(t *testing.T) {
	// Pet born 10 weeks ago, first dose recommended at 12 weeks:
	// due date is birth + 12 weeks regardless of the interval.
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	birth := now.AddDate(0, 0, -10*7)

	sched := &db.ScheduleDefinition{
		Name:                "Rabies",
		RecommendedAgeWeeks: 12,
		IntervalWeeks:       intPtr(52),
	}

	due := ComputeDueDate(birth, sched, now)
	if due == nil {
		t.Fatal("expected a due date, got nil")
	}

	want := birth.AddDate(0, 0, 12*7)
	if !due.Equal(want) {
		t.Errorf("expected due date %v, got %v", want, *due)
	}
}

func TestComputeDueDate_RecurringNextInterval(t *testing.T) {
	// Pet is 130 weeks old, recommended at 12 with a 52-week interval:
	// 118 weeks since recommended, 2 full intervals passed, next due at
	// age 12 + 3*52 = 168 weeks.
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	birth := now.AddDate(0, 0, -130*7)

	sched := &db.ScheduleDefinition{
		Name:                "Rabies booster",
		RecommendedAgeWeeks: 12,
		IntervalWeeks:       intPtr(52),
	}

	due := ComputeDueDate(birth, sched, now)
	if due == nil {
		t.Fatal("expected a due date, got nil")
	}

	want := birth.AddDate(0, 0, 168*7)
	if !due.Equal(want) {
		t.Errorf("expected due date %v (age 168 weeks), got %v", want, *due)
	}
}

func TestComputeDueDate_OneTimePastDue(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	birth := now.AddDate(0, 0, -40*7)

	sched := &db.ScheduleDefinition{
		Name:                "Microchip",
		RecommendedAgeWeeks: 8,
		IntervalWeeks:       nil,
	}

	if due := ComputeDueDate(birth, sched, now); due != nil {
		t.Errorf("one-time item past recommended age should yield nil, got %v", *due)
	}
}

func TestAgeInWeeks(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		birth time.Time
		want  int
	}{
		{"exact weeks", now.AddDate(0, 0, -21), 3},
		{"partial week floors", now.AddDate(0, 0, -20), 2},
		{"newborn", now, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AgeInWeeks(tt.birth, now); got != tt.want {
				t.Errorf("expected %d weeks, got %d", tt.want, got)
			}
		})
	}
}

func TestDaysUntil(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		due  time.Time
		want int
	}{
		{"a week out", now.AddDate(0, 0, 7), 7},
		{"same instant", now, 0},
		{"later today", now.Add(6 * time.Hour), 0},
		{"one hour late floors to negative", now.Add(-1 * time.Hour), -1},
		{"two days late", now.AddDate(0, 0, -2), -2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := daysUntil(now, tt.due); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}
