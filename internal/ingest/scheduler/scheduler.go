// Package scheduler triggers the pipeline daily at a configured UTC time,
// with bounded retries and a run lock so overlapping deployments do not
// load concurrently.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"trialsearch/internal/ingest/runlock"
	"trialsearch/internal/platform/config"
)

// Runner executes one full pipeline pass.
type Runner func(ctx context.Context) error

type Scheduler struct {
	cfg    config.Schedule
	lock   runlock.Lock
	run    Runner
	logger *slog.Logger

	// now is injected for tests; defaults to time.Now.
	now func() time.Time
}

func New(cfg config.Schedule, lock runlock.Lock, run Runner, logger *slog.Logger) *Scheduler {
	return &Scheduler{cfg: cfg, lock: lock, run: run, logger: logger, now: time.Now}
}

// Start blocks, firing the pipeline at the configured time each day until
// the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	for {
		next, err := nextRun(s.now().UTC(), s.cfg.At)
		if err != nil {
			return err
		}
		s.logger.InfoContext(ctx, "next scheduled run", "at", next)

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		s.fire(ctx)
	}
}

// fire runs the pipeline under the run lock with bounded retries. A held
// lock means another instance is already running today's pass; that is
// not an error.
func (s *Scheduler) fire(ctx context.Context) {
	acquired, err := s.lock.Acquire(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "run lock acquire failed", "error", err)
		return
	}
	if !acquired {
		s.logger.InfoContext(ctx, "run lock held elsewhere, skipping scheduled run")
		return
	}
	defer func() {
		if err := s.lock.Release(ctx); err != nil {
			s.logger.ErrorContext(ctx, "run lock release failed", "error", err)
		}
	}()

	for attempt := 1; attempt <= s.cfg.MaxRetries; attempt++ {
		err := s.run(ctx)
		if err == nil {
			return
		}
		s.logger.ErrorContext(ctx, "scheduled run failed",
			"attempt", attempt, "max_retries", s.cfg.MaxRetries, "error", err)

		if attempt == s.cfg.MaxRetries {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.cfg.RetryDelay):
		}
	}
}

// nextRun computes the next occurrence of the "HH:MM" trigger strictly
// after now.
func nextRun(now time.Time, at string) (time.Time, error) {
	t, err := time.Parse("15:04", at)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse schedule time %q: %w", at, err)
	}
	next := time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next, nil
}
