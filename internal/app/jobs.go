package app

import (
	"context"
	"time"

	"github.com/garyellow/realestate-linebot-go/internal/config"
	"github.com/garyellow/realestate-linebot-go/internal/region"
	"github.com/garyellow/realestate-linebot-go/internal/warmup"
)

// preload loads the segmentation dictionary and, when caching is on, both
// city tables, then marks the service ready. Failures are logged; queries
// load on demand either way.
func (a *Application) preload(ctx context.Context) {
	a.logger.Debug("Preload job started")
	defer a.logger.Debug("Preload job stopped")
	defer a.readinessState.MarkReady()

	if err := a.tokenizer.Load(); err != nil {
		a.logger.WithError(err).Warn("Failed to load segmentation dictionary")
	}

	if !a.data.Enabled() {
		a.logger.Info("Cache disabled; skipping data preload")
		return
	}

	preloadCtx, cancel := context.WithTimeout(ctx, config.PreloadTimeout)
	defer cancel()

	stats, err := warmup.Preload(preloadCtx, a.data, region.Cities, a.logger)
	entry := a.logger.WithField("records", stats.Records).
		WithField("duration_ms", stats.Duration.Milliseconds())
	if err != nil {
		entry.WithError(err).WithField("failed", stats.Failed).Error("Data preload incomplete")
		return
	}
	entry.Info("Data preload completed")
}

// updateCacheMetrics periodically records cached row counts to Prometheus.
func (a *Application) updateCacheMetrics(ctx context.Context) {
	a.logger.Debug("Cache metrics job started")
	defer a.logger.Debug("Cache metrics job stopped")

	ticker := time.NewTicker(config.MetricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.recordCacheMetrics()
		}
	}
}

func (a *Application) recordCacheMetrics() {
	for key, st := range a.data.Status() {
		records := st.Records
		if !st.Valid {
			records = 0
		}
		a.metrics.SetCacheRecords(key, records)
	}
}

// pruneMemory deletes conversation turns older than the retention window,
// once at startup and then every MemoryPruneInterval.
func (a *Application) pruneMemory(ctx context.Context) {
	a.logger.Debug("Memory prune job started")
	defer a.logger.Debug("Memory prune job stopped")

	a.runMemoryPrune(ctx)

	ticker := time.NewTicker(config.MemoryPruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.runMemoryPrune(ctx)
		}
	}
}

func (a *Application) runMemoryPrune(ctx context.Context) {
	start := time.Now()
	deleted, err := a.memoryPruner.Prune(ctx, a.cfg.MemoryRetention)
	if err != nil {
		if ctx.Err() == nil {
			a.logger.WithError(err).Error("Failed to prune conversation memory")
		}
		return
	}

	entry := a.logger.WithField("deleted", deleted).
		WithField("duration_ms", time.Since(start).Milliseconds())
	if sessions, err := a.memoryPruner.CountSessions(ctx); err == nil {
		entry = entry.WithField("sessions", sessions)
	}
	entry.Info("Conversation memory pruned")
}
