package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/garyellow/realestate-linebot-go/internal/metrics"
)

// Chain tries its completers in order. Each completer is retried on
// transient errors before the chain falls back to the next one.
type Chain struct {
	completers  []Completer
	retryConfig RetryConfig
	metrics     *metrics.Metrics
}

// NewChain creates a Chain over completers.
func NewChain(cfg RetryConfig, m *metrics.Metrics, completers ...Completer) *Chain {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	return &Chain{completers: completers, retryConfig: cfg, metrics: m}
}

// Complete implements Completer.
func (c *Chain) Complete(ctx context.Context, messages []Message, opts Options) (string, error) {
	if c == nil || len(c.completers) == 0 {
		return "", errors.New("no completer configured")
	}
	op := opts.Operation
	if op == "" {
		op = "complete"
	}

	start := time.Now()
	var lastErr error
	for i, comp := range c.completers {
		if i > 0 {
			slog.InfoContext(ctx, "falling back to next model",
				"from", c.completers[i-1].Provider(),
				"to", comp.Provider(),
				"operation", op)
		}

		text, err := c.completeWithRetry(ctx, comp, messages, opts, op)
		if err == nil {
			if i > 0 {
				c.metrics.RecordLLMFallback(string(c.completers[0].Provider()), string(comp.Provider()), op)
			}
			return text, nil
		}
		lastErr = err

		if ClassifyError(err) == ActionFail || ctx.Err() != nil {
			break
		}
	}

	slog.WarnContext(ctx, "all completers failed",
		"operation", op,
		"chain_size", len(c.completers),
		"duration", time.Since(start),
		"error", lastErr)
	return "", fmt.Errorf("all providers failed: %w", lastErr)
}

func (c *Chain) completeWithRetry(ctx context.Context, comp Completer, messages []Message, opts Options, op string) (string, error) {
	var lastErr error
	for attempt := range c.retryConfig.MaxAttempts {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		start := time.Now()
		text, err := comp.Complete(ctx, messages, opts)
		c.metrics.RecordLLM(string(comp.Provider()), op, statusLabel(err), time.Since(start).Seconds())
		if err == nil {
			return text, nil
		}
		lastErr = err

		if ClassifyError(err) != ActionRetry || attempt == c.retryConfig.MaxAttempts-1 {
			break
		}

		backoff := CalculateBackoff(attempt+1, c.retryConfig.InitialDelay, c.retryConfig.MaxDelay)
		if !HasSufficientBudget(ctx, backoff) {
			return "", fmt.Errorf("timeout during retry: %w", lastErr)
		}
		slog.DebugContext(ctx, "retrying completion",
			"provider", comp.Provider(),
			"attempt", attempt+1,
			"backoff", backoff,
			"error", err)
		if err := Sleep(ctx, backoff); err != nil {
			return "", err
		}
	}
	return "", lastErr
}

// Provider returns the primary provider.
func (c *Chain) Provider() Provider {
	if c == nil || len(c.completers) == 0 {
		return ""
	}
	return c.completers[0].Provider()
}

// Len returns the number of completers in the chain.
func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.completers)
}

// Close closes every completer.
func (c *Chain) Close() error {
	if c == nil {
		return nil
	}
	var errs []error
	for _, comp := range c.completers {
		if err := comp.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
