package semcache

import (
	"context"
	"time"

	"resume-qa-be/internal/pkg/logger"
	"resume-qa-be/pkg/index"
	"resume-qa-be/pkg/metrics"
)

// Janitor periodically purges expired and stale-snapshot records.
type Janitor struct {
	cache     *Cache
	snapshots *index.SnapshotProvider
	interval  time.Duration
	metrics   *metrics.Metrics
	logger    logger.ILogger
}

func NewJanitor(cache *Cache, snapshots *index.SnapshotProvider, interval time.Duration, log logger.ILogger) *Janitor {
	return &Janitor{cache: cache, snapshots: snapshots, interval: interval, logger: log}
}

func (j *Janitor) WithMetrics(m *metrics.Metrics) *Janitor {
	j.metrics = m
	return j
}

// Run sweeps once immediately and then every interval until ctx ends.
func (j *Janitor) Run(ctx context.Context) error {
	j.Sweep(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}

func (j *Janitor) Sweep(ctx context.Context) int64 {
	snap, err := j.snapshots.Current(ctx)
	if err != nil {
		// without a snapshot every record would look stale
		j.logger.Warn(module, "Janitor skipped, corpus snapshot unavailable", map[string]interface{}{"error": err.Error()})
		return 0
	}
	removed, err := j.cache.Purge(ctx, snap)
	if err != nil {
		j.logger.Error(module, "Janitor purge failed", map[string]interface{}{"error": err.Error()})
		return 0
	}
	j.metrics.Purged(removed)
	if removed > 0 {
		j.logger.Info(module, "Purged stale cached answers", map[string]interface{}{
			"removed":  removed,
			"snapshot": snap.Id,
		})
	}
	return removed
}

// Refresh drops the memoized snapshot and sweeps against a fresh count.
// Called when the corpus is known to have changed.
func (j *Janitor) Refresh(ctx context.Context) int64 {
	j.snapshots.Invalidate()
	return j.Sweep(ctx)
}
