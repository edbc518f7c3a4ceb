package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Result counts what one sweep removed.
type Result struct {
	Evicted int `json:"evicted"` // fingerprints and observations
	Pruned  int `json:"pruned"`  // history entries
}

// Sweep runs one retention pass: state entries and history older than
// retention (relative to now) are removed. Both steps are attempted even if
// the first fails.
func Sweep(ctx context.Context, st Store, retention time.Duration, now time.Time, logger *slog.Logger) (Result, error) {
	cutoff := now.Add(-retention)
	start := time.Now()
	var res Result

	evicted, evictErr := st.EvictBefore(ctx, cutoff)
	if evictErr != nil {
		logger.Warn("Retention: failed to evict rule state", "error", evictErr)
	} else if evicted > 0 {
		logger.Info("Retention: evicted rule state", "count", evicted)
	}
	res.Evicted = evicted

	pruned, pruneErr := st.PruneHistory(ctx, cutoff)
	if pruneErr != nil {
		logger.Warn("Retention: failed to prune history", "error", pruneErr)
	} else if pruned > 0 {
		logger.Info("Retention: pruned history", "count", pruned)
	}
	res.Pruned = pruned

	logger.Debug("retention sweep done", "cutoff", cutoff, "duration", time.Since(start).Round(time.Millisecond))

	switch {
	case evictErr != nil:
		return res, fmt.Errorf("evict rule state: %w", evictErr)
	case pruneErr != nil:
		return res, fmt.Errorf("prune history: %w", pruneErr)
	}
	return res, nil
}
