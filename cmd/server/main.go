// Package main provides the query assistant server entry point.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/garyellow/realestate-linebot-go/internal/app"
	"github.com/garyellow/realestate-linebot-go/internal/config"
	"github.com/garyellow/realestate-linebot-go/internal/sentry"
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := sentry.Initialize(sentry.FromConfig(cfg)); err != nil {
		return fmt.Errorf("failed to initialize error tracking: %w", err)
	}

	application, err := app.Initialize(context.Background(), cfg)
	if err != nil {
		sentry.Flush(config.ErrorFlush)
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return application.Run()
}
