package sentry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/garyellow/realestate-linebot-go/internal/config"
)

func TestFromConfig(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		ErrorTrackingToken: "tok",
		ErrorTrackingHost:  "errors.betterstack.com",
		Environment:        "staging",
	}
	got := FromConfig(cfg)
	if got.Token != "tok" || got.Host != "errors.betterstack.com" || got.Environment != "staging" {
		t.Errorf("FromConfig() = %+v", got)
	}
	if got.Release == "" {
		t.Error("Release should never be empty")
	}
}

func TestInitialize_MissingHost(t *testing.T) {
	t.Parallel()

	if err := Initialize(Config{Token: "test-token"}); err == nil {
		t.Error("expected an error when host is missing")
	}
}

// The remaining tests touch the global hub and run sequentially.

func TestInitialize_EmptyToken(t *testing.T) {
	if err := Initialize(Config{}); err != nil {
		t.Errorf("Initialize() error = %v", err)
	}
	// Must not panic without a client.
	CaptureQueryFailure(context.Background(), errors.New("boom"), "U1", "price")
}

func TestInitialize_ValidConfig(t *testing.T) {
	err := Initialize(Config{
		Token:       "test-token",
		Host:        "errors.betterstack.com",
		Environment: "test",
	})
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if !IsEnabled() {
		t.Error("IsEnabled() = false after Initialize")
	}

	CaptureQueryFailure(context.Background(), nil, "U1", "price")
	Flush(time.Second)
}
