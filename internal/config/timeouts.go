// Package config provides centralized timeout constants for the application.
//
// A query can involve up to three language model calls (parameter
// extraction, routing tie-break, response combination) plus one listing
// scrape, so the per-query budget is sized for the slow path.
package config

import "time"

// HTTP server timeouts
const (
	// HTTPRead is the HTTP server read timeout. Requests are small JSON bodies.
	HTTPRead = 10 * time.Second

	// HTTPWrite must cover QueryProcessing plus response serialization.
	HTTPWrite = 95 * time.Second

	// HTTPIdle is the keep-alive idle timeout.
	HTTPIdle = 120 * time.Second
)

// Query pipeline timeouts
const (
	// QueryProcessing is the default budget for one query turn.
	QueryProcessing = 90 * time.Second

	// LLMCall bounds a single language model request, including retries
	// against the same provider.
	LLMCall = 30 * time.Second
)

// Scraper timeouts
const (
	// ScraperRequest is the timeout for a single HTTP request to the listing site.
	ScraperRequest = 30 * time.Second

	// ScraperRetryInitial is the initial delay before retrying a failed request.
	// Exponential backoff: 2s -> 4s -> 8s
	ScraperRetryInitial = 2 * time.Second
)

// Lifecycle timeouts
const (
	// GracefulShutdown is how long the server waits for in-flight requests.
	GracefulShutdown = 20 * time.Second

	// BackgroundDrain is how long shutdown waits for async LINE event processing.
	BackgroundDrain = 10 * time.Second

	// ErrorFlush is how long buffered error reports may take to send on exit.
	ErrorFlush = 2 * time.Second
)

// Readiness
const (
	// PreloadGracePeriod is how long /ready and the LINE callback wait for
	// the startup preload before serving anyway.
	PreloadGracePeriod = 2 * time.Minute

	// PreloadTimeout bounds the startup preload of both city tables.
	PreloadTimeout = 5 * time.Minute
)

// Background job intervals
const (
	MetricsUpdateInterval      = 30 * time.Second
	MemoryPruneInterval        = 6 * time.Hour
	RateLimiterCleanupInterval = 5 * time.Minute
)
