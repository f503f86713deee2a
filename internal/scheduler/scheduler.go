// Package scheduler runs the pipeline on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/couchcryptid/power-outage-etl/internal/pipeline"
)

// Runner performs one pipeline run.
type Runner interface {
	Run(ctx context.Context) (*pipeline.Report, error)
}

// Scheduler wraps robfig/cron. Ticks that fire while a run is still going
// are skipped.
type Scheduler struct {
	cron   *cron.Cron
	spec   string
	runner Runner
	logger *slog.Logger
	job    cron.Job
	wg     sync.WaitGroup

	// ctx is set once by Start before any job can run.
	ctx context.Context
}

// New creates a Scheduler for a cron spec such as "@every 15m" or "*/10 * * * *".
func New(spec string, runner Runner, logger *slog.Logger) *Scheduler {
	cl := cronLogger{logger: logger}
	s := &Scheduler{
		cron:   cron.New(cron.WithLogger(cl)),
		spec:   spec,
		runner: runner,
		logger: logger,
	}
	s.job = cron.NewChain(cron.SkipIfStillRunning(cl)).Then(cron.FuncJob(s.runOnce))
	return s
}

// Start registers the job and starts the scheduler. It also runs once
// immediately so the store fills without waiting for the first tick.
// ctx bounds every run.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx = ctx
	if _, err := s.cron.AddJob(s.spec, s.job); err != nil {
		return fmt.Errorf("cron.AddJob %q: %w", s.spec, err)
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "schedule", s.spec)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.job.Run()
	}()
	return nil
}

// Stop halts the schedule and waits for the running job, if any, or for
// ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	cronDone := s.cron.Stop()
	immediateDone := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(immediateDone)
	}()

	for _, done := range []<-chan struct{}{cronDone.Done(), immediateDone} {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.logger.Info("scheduler stopped")
	return nil
}

// runOnce is wrapped in the skip chain, which the immediate run and cron
// ticks share.
func (s *Scheduler) runOnce() {
	ctx := s.ctx
	if ctx.Err() != nil {
		return
	}
	report, err := s.runner.Run(ctx)
	switch {
	case errors.Is(err, pipeline.ErrRunInProgress):
		s.logger.Warn("scheduled run skipped", "reason", err)
	case err != nil:
		s.logger.Error("scheduled run failed", "error", err)
	default:
		s.logger.Info("scheduled run finished", "run_id", report.RunID, "duration", report.Duration())
	}
}
