// Package scheduler drives the periodic sweeps: waking snoozed
// reminders, escalating due ones, and generating schedule-based
// reminders for active pets.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/petminder/petminder/internal/engine"
	"github.com/petminder/petminder/internal/metrics"
)

// Config holds the cron specs for the periodic sweeps.
type Config struct {
	// EscalationSpec schedules the wake and escalation pass, hourly by
	// default.
	EscalationSpec string
	// GenerationSpec schedules the reminder generation pass, daily by
	// default.
	GenerationSpec string
	// SweepTimeout bounds a single sweep run.
	SweepTimeout time.Duration
}

// DefaultConfig returns the production sweep cadence.
func DefaultConfig() Config {
	return Config{
		EscalationSpec: "@hourly",
		GenerationSpec: "@daily",
		SweepTimeout:   5 * time.Minute,
	}
}

// Locker serializes sweeps across instances. A nil Locker means
// single-instance mode and every run proceeds.
type Locker interface {
	Acquire(ctx context.Context, sweep string) (bool, error)
	Release(ctx context.Context, sweep string) error
}

// Scheduler owns the cron entries that run the sweeps.
type Scheduler struct {
	svc    *engine.Service
	lock   Locker
	cron   *cron.Cron
	logger *zap.Logger
	config Config
}

// New creates a scheduler around the reminder service. lock may be nil.
func New(svc *engine.Service, lock Locker, cfg Config, logger *zap.Logger) *Scheduler {
	if cfg.EscalationSpec == "" {
		cfg.EscalationSpec = "@hourly"
	}
	if cfg.GenerationSpec == "" {
		cfg.GenerationSpec = "@daily"
	}
	if cfg.SweepTimeout <= 0 {
		cfg.SweepTimeout = 5 * time.Minute
	}

	return &Scheduler{
		svc:    svc,
		lock:   lock,
		cron:   cron.New(),
		logger: logger,
		config: cfg,
	}
}

// Start registers the cron entries and begins running them.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.config.EscalationSpec, func() {
		s.runLocked("escalation", s.runEscalation)
	}); err != nil {
		return err
	}

	if _, err := s.cron.AddFunc(s.config.GenerationSpec, func() {
		s.runLocked("generation", s.runGeneration)
	}); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("scheduler started",
		zap.String("escalation_spec", s.config.EscalationSpec),
		zap.String("generation_spec", s.config.GenerationSpec),
	)
	return nil
}

// Stop halts the cron runner and waits for in-flight jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// runLocked wraps a sweep with the distributed lock when one is
// configured. A held lock means another instance is already sweeping,
// so this run is skipped rather than queued.
func (s *Scheduler) runLocked(sweep string, run func(ctx context.Context)) {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.SweepTimeout)
	defer cancel()

	if s.lock != nil {
		acquired, err := s.lock.Acquire(ctx, sweep)
		if err != nil {
			s.logger.Error("sweep lock acquire failed",
				zap.Error(err),
				zap.String("sweep", sweep),
			)
			return
		}
		if !acquired {
			s.logger.Info("sweep already running elsewhere, skipping",
				zap.String("sweep", sweep),
			)
			return
		}
		defer func() {
			if err := s.lock.Release(ctx, sweep); err != nil {
				s.logger.Warn("sweep lock release failed",
					zap.Error(err),
					zap.String("sweep", sweep),
				)
			}
		}()
	}

	start := time.Now()
	run(ctx)
	metrics.RecordSweepDuration(sweep, time.Since(start))
}

func (s *Scheduler) runEscalation(ctx context.Context) {
	now := time.Now().UTC()

	// Snoozed reminders whose deadline passed must rejoin the
	// escalatable set before the escalation pass scans it.
	woken, err := s.svc.WakeSnoozed(ctx, now)
	if err != nil {
		s.logger.Error("wake pass failed", zap.Error(err))
	} else if woken > 0 {
		s.logger.Info("woke snoozed reminders", zap.Int("count", woken))
	}

	result, err := s.svc.RunEscalationSweep(ctx, now)
	if err != nil {
		s.logger.Error("escalation sweep failed", zap.Error(err))
		return
	}

	for _, payload := range result.Payloads {
		metrics.RecordEscalation(payload.Level)
	}
	metricsDispatchOutcomes(result)
	for _, sweepErr := range result.Errors {
		metrics.RecordSweepError("escalation", sweepErr.Stage)
	}

	s.logger.Info("escalation sweep finished",
		zap.Int("processed", result.Processed),
		zap.Int("escalated", result.Escalated),
		zap.Int("dispatched", result.Dispatched),
		zap.Int("errors", len(result.Errors)),
	)

	s.syncStatusGauges(ctx)
}

func metricsDispatchOutcomes(result *engine.EscalationResult) {
	for i := 0; i < result.Dispatched; i++ {
		metrics.RecordDispatch("delivered")
	}
	for _, sweepErr := range result.Errors {
		if sweepErr.Stage == "dispatch" {
			metrics.RecordDispatch("failed")
		}
	}
}

func (s *Scheduler) runGeneration(ctx context.Context) {
	now := time.Now().UTC()

	result, err := s.svc.RunGenerationSweep(ctx, now)
	if err != nil {
		s.logger.Error("generation sweep failed", zap.Error(err))
		return
	}

	for i := 0; i < result.RemindersCreated; i++ {
		metrics.RecordReminderCreated("schedule")
	}
	for _, sweepErr := range result.Errors {
		metrics.RecordSweepError("generation", sweepErr.Stage)
	}

	s.logger.Info("generation sweep finished",
		zap.Int("pets_processed", result.PetsProcessed),
		zap.Int("reminders_created", result.RemindersCreated),
		zap.Int("errors", len(result.Errors)),
	)
}

func (s *Scheduler) syncStatusGauges(ctx context.Context) {
	stats, err := s.svc.Statistics(ctx)
	if err != nil {
		s.logger.Warn("status gauge sync failed", zap.Error(err))
		return
	}
	for status, count := range stats.ByStatus {
		metrics.SetRemindersByStatus(status, count)
	}
}
