// Package maintenance runs periodic background tasks as Go tickers.
// Rule runtime state and run history would otherwise grow for as long as
// the service runs.
package maintenance

import (
	"context"
	"log/slog"
	"time"
)

// Store is the state the maintenance tasks trim.
type Store interface {
	EvictBefore(ctx context.Context, cutoff time.Time) (int, error)
	PruneHistory(ctx context.Context, cutoff time.Time) (int, error)
}

// Config controls maintenance task intervals. Zero duration disables a task.
type Config struct {
	Interval  time.Duration // How often retention runs
	Retention time.Duration // Age after which fingerprints, observations and history go
}

// DefaultConfig returns sensible production defaults.
func DefaultConfig() Config {
	return Config{
		Interval:  time.Hour,
		Retention: 60 * 24 * time.Hour,
	}
}

// Start launches the retention ticker. Blocks until ctx is cancelled.
// Intended to be called with `go`.
func Start(ctx context.Context, st Store, cfg Config, logger *slog.Logger) {
	if cfg.Interval <= 0 || cfg.Retention <= 0 {
		logger.Info("Maintenance disabled")
		return
	}
	logger.Info("Maintenance ticker started",
		"interval", cfg.Interval,
		"retention", cfg.Retention)

	t := time.NewTicker(cfg.Interval)
	defer t.Stop()
	go runLoop(ctx, t.C, "retention", logger, func() {
		_, _ = Sweep(ctx, st, cfg.Retention, time.Now(), logger)
	})

	<-ctx.Done()
	logger.Info("Maintenance ticker stopped")
}

func runLoop(ctx context.Context, ch <-chan time.Time, name string, logger *slog.Logger, fn func()) {
	for {
		select {
		case <-ch:
			logger.Debug("maintenance task running", "task", name)
			fn()
		case <-ctx.Done():
			return
		}
	}
}
