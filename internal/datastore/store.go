// Package datastore caches the per-city transaction tables.
//
// Entries are soft-TTL snapshots: an entry is served only while caching is
// enabled and it is younger than the TTL. Concurrent loads of the same key
// share a single read.
package datastore

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/garyellow/realestate-linebot-go/internal/dataset"
	apperrors "github.com/garyellow/realestate-linebot-go/internal/errors"
	"github.com/garyellow/realestate-linebot-go/internal/logger"
	"github.com/garyellow/realestate-linebot-go/internal/metrics"
	"github.com/garyellow/realestate-linebot-go/internal/region"
)

// KeyAll selects the merged table of both cities.
const KeyAll = "all"

// Options configures a Store.
type Options struct {
	Files   map[string]string // city → file name
	TTL     time.Duration
	Enabled bool
	Now     func() time.Time
	Logger  *logger.Logger
	Metrics *metrics.Metrics
}

// DefaultFiles maps each city to its export file.
var DefaultFiles = map[string]string{
	region.Taipei:    "TP_Sales.csv",
	region.NewTaipei: "NTP_Sales.csv",
}

type entry struct {
	table    *dataset.Table
	loadedAt time.Time
}

// Status describes one cache entry.
type Status struct {
	Records    int     `json:"records"`
	AgeSeconds float64 `json:"age_seconds"`
	Valid      bool    `json:"valid"`
}

// Store loads and caches transaction tables.
type Store struct {
	src     dataset.Source
	files   map[string]string
	ttl     time.Duration
	now     func() time.Time
	log     *logger.Logger
	metrics *metrics.Metrics

	mu      sync.RWMutex
	enabled bool
	entries map[string]entry

	group singleflight.Group
}

// New creates a Store reading from src.
func New(src dataset.Source, opts Options) *Store {
	if opts.Files == nil {
		opts.Files = DefaultFiles
	}
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	return &Store{
		src:     src,
		files:   opts.Files,
		ttl:     opts.TTL,
		now:     opts.Now,
		log:     opts.Logger.WithModule("datastore"),
		metrics: opts.Metrics,
		enabled: opts.Enabled,
		entries: make(map[string]entry),
	}
}

// Load returns the table for city, which is 台北市, 新北市 (aliases
// accepted) or KeyAll.
func (s *Store) Load(ctx context.Context, city string) (*dataset.Table, error) {
	key := city
	if key != KeyAll {
		key = region.NormalizeCity(city)
		if !region.IsValidCity(key) {
			return nil, apperrors.NewValidationError("city", fmt.Sprintf("unsupported city %q", city))
		}
	}

	if t, ok := s.cached(key); ok {
		s.metrics.RecordCache(key, "hit")
		return t, nil
	}
	s.metrics.RecordCache(key, "miss")

	v, err, _ := s.group.Do(key, func() (any, error) {
		if key == KeyAll {
			return s.loadAll(ctx)
		}
		return s.loadCity(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	return v.(*dataset.Table), nil
}

func (s *Store) loadCity(ctx context.Context, city string) (*dataset.Table, error) {
	name, ok := s.files[city]
	if !ok {
		return nil, fmt.Errorf("%w: no data file for %s", apperrors.ErrNotFound, city)
	}

	start := s.now()
	t, err := dataset.Load(ctx, s.src, name, dataset.ReadOptions{City: city})
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", city, err)
	}

	s.log.WithFields(map[string]any{
		"city":     city,
		"records":  t.Len(),
		"duration": s.now().Sub(start).String(),
	}).Info("Transaction table loaded")
	s.store(city, t)
	return t, nil
}

// loadAll merges both cities, reusing valid city entries.
func (s *Store) loadAll(ctx context.Context) (*dataset.Table, error) {
	parts := make([]*dataset.Table, 0, len(region.Cities))
	for _, city := range region.Cities {
		t, ok := s.cached(city)
		if !ok {
			var err error
			if t, err = s.loadCity(ctx, city); err != nil {
				return nil, err
			}
		}
		parts = append(parts, t)
	}
	merged := dataset.Concat(parts...)
	s.store(KeyAll, merged)
	return merged, nil
}

func (s *Store) cached(key string) (*dataset.Table, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok || !s.validLocked(e) {
		return nil, false
	}
	return e.table, true
}

func (s *Store) validLocked(e entry) bool {
	return s.enabled && s.now().Sub(e.loadedAt) < s.ttl
}

func (s *Store) store(key string, t *dataset.Table) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.enabled {
		return
	}
	s.entries[key] = entry{table: t, loadedAt: s.now()}
	s.metrics.RecordCache(key, "load")
	s.metrics.SetCacheRecords(key, t.Len())
}

// Enable turns caching on or off. Disabling keeps existing entries but
// stops serving them.
func (s *Store) Enable(enabled bool) {
	s.mu.Lock()
	s.enabled = enabled
	s.mu.Unlock()
	s.log.Info("Data cache toggled", slog.Bool("enabled", enabled))
}

// Enabled reports whether caching is on.
func (s *Store) Enabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled
}

// Clear drops the entry for city, or every entry when city is empty.
// Clearing a single city also drops the merged entry.
func (s *Store) Clear(city string) error {
	key := city
	if key != "" && key != KeyAll {
		key = region.NormalizeCity(city)
		if !region.IsValidCity(key) {
			return apperrors.NewValidationError("city", fmt.Sprintf("unsupported city %q", city))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var cleared []string
	if key == "" {
		cleared = slices.Collect(maps.Keys(s.entries))
	} else {
		cleared = []string{key}
		if key != KeyAll {
			cleared = append(cleared, KeyAll)
		}
	}
	for _, k := range cleared {
		delete(s.entries, k)
		s.metrics.RecordCache(k, "clear")
		s.metrics.SetCacheRecords(k, 0)
	}
	return nil
}

// Status reports every cached entry.
func (s *Store) Status() map[string]Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	out := make(map[string]Status, len(s.entries))
	for k, e := range s.entries {
		out[k] = Status{
			Records:    e.table.Len(),
			AgeSeconds: now.Sub(e.loadedAt).Seconds(),
			Valid:      s.validLocked(e),
		}
	}
	return out
}
