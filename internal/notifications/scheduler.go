package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/albapepper/courtwatch/internal/rules"
)

// Scheduler triggers scheduled runs on a cron spec. A tick that fires while
// the previous run is still going is skipped.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	engine *Engine
	spec   string
	logger *slog.Logger
}

// NewScheduler parses spec (standard 5-field cron or a descriptor such as
// "@every 5m").
func NewScheduler(engine *Engine, spec string, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cl := cronLogger{logger: logger}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	s := &Scheduler{cron: c, ctx: context.Background(), engine: engine, spec: spec, logger: logger}
	if _, err := c.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("parse poll schedule %q: %w", spec, err)
	}
	return s, nil
}

// Run starts the schedule and blocks until ctx is cancelled, then waits for
// a run in flight to finish. Runs inherit ctx. Intended to be called with
// `go`.
func (s *Scheduler) Run(ctx context.Context) {
	s.ctx = ctx
	s.logger.Info("Poll scheduler started", "schedule", s.spec)
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("Poll scheduler stopped")
}

func (s *Scheduler) tick() {
	result, err := s.engine.Run(s.ctx, rules.ModeScheduled)
	switch {
	case errors.Is(err, ErrRunInProgress):
		s.logger.Info("Scheduled run skipped, another run in progress")
	case err != nil:
		s.logger.Error("scheduled run failed", "error", err)
	case result.Status == rules.RunFailed:
		s.logger.Warn("scheduled run failed", "run_id", result.ID, "summary", result.Summary)
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
