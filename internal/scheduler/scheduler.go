// Package scheduler runs the collector on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler wraps a cron instance whose jobs never overlap with themselves.
type Scheduler struct {
	Cron *cron.Cron
	Ctx  context.Context
	log  *slog.Logger
}

// NewScheduler creates a Scheduler. Specs include a seconds field, and
// times are interpreted in loc.
func NewScheduler(ctx context.Context, loc *time.Location, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.Local
	}
	cl := cronLogger{log: logger.With("component", "scheduler")}
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		Ctx: ctx,
		log: cl.log,
	}
}

// Register adds job under spec. The job receives the scheduler's context.
func (s *Scheduler) Register(name, spec string, job func(ctx context.Context) error) error {
	_, err := s.Cron.AddFunc(spec, func() {
		s.log.Info("running task", "task", name)
		if err := job(s.Ctx); err != nil {
			s.log.Error("task failed", "task", name, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("register %s task: %w", name, err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info("scheduler started", "entries", len(s.Cron.Entries()))
}

// Stop stops the scheduler and waits for running jobs to return.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}
