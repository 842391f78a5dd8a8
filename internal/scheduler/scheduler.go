// Package scheduler triggers ingestion runs on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/couchcryptid/disaster-ingest/internal/domain"
	"github.com/couchcryptid/disaster-ingest/internal/pipeline"
)

// parser accepts standard five-field specs, an optional leading seconds
// field, and descriptors such as "@every 30m".
var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Runner triggers one ingestion run.
type Runner interface {
	Run(ctx context.Context) (domain.RunSummary, error)
}

// Scheduler runs the Runner on every tick of a cron schedule. A tick that
// lands while a run is active is logged and dropped.
type Scheduler struct {
	cron    *cron.Cron
	runner  Runner
	logger  *slog.Logger
	baseCtx context.Context
	cancel  context.CancelFunc
}

// New parses spec and registers the ingestion job.
func New(spec string, runner Runner, logger *slog.Logger) (*Scheduler, error) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:    cron.New(cron.WithParser(parser)),
		runner:  runner,
		logger:  logger,
		baseCtx: ctx,
		cancel:  cancel,
	}
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		cancel()
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) tick() {
	summary, err := s.runner.Run(s.baseCtx)
	switch {
	case errors.Is(err, pipeline.ErrRunInProgress):
		s.logger.Info("scheduled run skipped, another run is active")
	case err != nil:
		s.logger.Error("scheduled run failed", "error", err)
	default:
		s.logger.Info("scheduled run finished",
			"run_id", summary.RunID,
			"processed", summary.Processed,
			"skipped_stale", summary.SkippedStale,
		)
	}
}

// Start begins firing the schedule in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "next_run", s.Next())
}

// Next returns the next activation time, or the zero time before Start.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// Stop halts the schedule and cancels an in-flight run, then waits for the
// job to return or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	s.cancel()
	select {
	case <-done.Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for scheduled run: %w", ctx.Err())
	}
}
