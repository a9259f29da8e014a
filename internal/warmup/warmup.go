// Package warmup preloads transaction tables at startup so the first
// queries do not pay the CSV parse cost.
package warmup

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/garyellow/realestate-linebot-go/internal/dataset"
	"github.com/garyellow/realestate-linebot-go/internal/logger"
)

// Loader loads the table of one city.
type Loader interface {
	Load(ctx context.Context, city string) (*dataset.Table, error)
}

// Stats summarizes one preload run.
type Stats struct {
	Records  map[string]int
	Failed   []string
	Duration time.Duration
}

// Preload loads every city concurrently. Failures are collected per city;
// the returned error joins them and Stats still reports the cities that
// loaded.
func Preload(ctx context.Context, loader Loader, cities []string, log *logger.Logger) (Stats, error) {
	if log == nil {
		log = logger.Discard()
	}
	log = log.WithModule("warmup")
	start := time.Now()

	var (
		mu    sync.Mutex
		stats = Stats{Records: make(map[string]int, len(cities))}
		errs  []error
	)

	// Errors are collected rather than returned so one city cannot cancel
	// the others.
	g, gctx := errgroup.WithContext(ctx)
	for _, city := range cities {
		g.Go(func() error {
			table, err := loader.Load(gctx, city)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				stats.Failed = append(stats.Failed, city)
				errs = append(errs, fmt.Errorf("%s: %w", city, err))
				log.WithError(err).WithField("city", city).Warn("Preload failed")
				return nil
			}
			stats.Records[city] = table.Len()
			return nil
		})
	}
	_ = g.Wait()

	stats.Duration = time.Since(start)
	log.WithFields(map[string]any{
		"records":     stats.Records,
		"failed":      stats.Failed,
		"duration_ms": stats.Duration.Milliseconds(),
	}).Info("Preload finished")

	if len(errs) > 0 {
		return stats, fmt.Errorf("preload: %w", errors.Join(errs...))
	}
	return stats, nil
}
