// Package sentry wires error tracking through the Sentry SDK. Events are
// shipped to Better Stack's Sentry-compatible ingest endpoint.
package sentry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/garyellow/realestate-linebot-go/internal/buildinfo"
	"github.com/garyellow/realestate-linebot-go/internal/config"
)

// Config holds error tracking settings.
type Config struct {
	// Token is the Better Stack Errors application token.
	Token string
	// Host is the ingest host, e.g. "errors.betterstack.com".
	Host        string
	Environment string
	Release     string
	// SampleRate is 0..1; zero means 1.
	SampleRate float64
	Debug      bool
}

// FromConfig derives a Config from the application config.
func FromConfig(cfg *config.Config) Config {
	return Config{
		Token:       cfg.ErrorTrackingToken,
		Host:        cfg.ErrorTrackingHost,
		Environment: cfg.Environment,
		Release:     buildinfo.Release(),
	}
}

// Initialize sets up the SDK. An empty token leaves tracking disabled.
// The DSN has the form https://TOKEN@HOST/1.
func Initialize(cfg Config) error {
	if cfg.Token == "" {
		return nil
	}
	if cfg.Host == "" {
		return errors.New("sentry host is required when token is provided")
	}

	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = 1.0
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              fmt.Sprintf("https://%s@%s/1", cfg.Token, cfg.Host),
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		SampleRate:       sampleRate,
		Debug:            cfg.Debug,
		AttachStacktrace: true,
	})
}

// Flush waits up to timeout for buffered events. It reports whether the
// buffer drained.
func Flush(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}

// IsEnabled reports whether a client is bound to the current hub.
func IsEnabled() bool {
	return sentry.CurrentHub().Client() != nil
}

// CaptureQueryFailure reports err tagged with the session and handler
// route. It is a no-op when tracking is disabled.
func CaptureQueryFailure(ctx context.Context, err error, sessionID, route string) {
	if err == nil || !IsEnabled() {
		return
	}
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub().Clone()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		if sessionID != "" {
			scope.SetUser(sentry.User{ID: sessionID})
		}
		if route != "" {
			scope.SetTag("route", route)
		}
		hub.CaptureException(err)
	})
}
