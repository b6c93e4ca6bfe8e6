package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/EBOLABOY/FeedPilot/internal/ports"
)

// Scheduler wires the trigger driver to the pipeline and enforces the
// single-run invariant: a trigger firing while a run is still in flight
// is skipped, never queued into a second concurrent run against the same
// ledger.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	logger   *slog.Logger
	running  sync.Mutex
}

// NewScheduler returns a helper to start and stop recurring runs.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, logger *slog.Logger) *Scheduler {
	return &Scheduler{driver: driver, pipeline: pipeline, logger: logger}
}

// Start registers the pipeline with the trigger driver.
func (s *Scheduler) Start(ctx context.Context) error {
	job := func(trigger time.Time) {
		if !s.running.TryLock() {
			s.logger.Warn("previous run still in flight, skipping trigger",
				"trigger", trigger.Format(time.RFC3339))
			return
		}
		defer s.running.Unlock()

		if err := s.pipeline.Run(ctx, trigger); err != nil {
			s.logger.Error("run aborted", "error", err)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop tears down the underlying trigger driver.
func (s *Scheduler) Stop(ctx context.Context) error {
	return s.driver.Stop(ctx)
}
