package genai

import (
	"context"
	"log/slog"

	"github.com/garyellow/realestate-linebot-go/internal/metrics"
)

// NewFromConfig builds a Chain over every configured provider's models, in
// provider order. It returns nil when no provider has an API key.
func NewFromConfig(ctx context.Context, cfg LLMConfig, m *metrics.Metrics) *Chain {
	if len(cfg.Providers) == 0 {
		cfg.Providers = DefaultProviders
	}

	var completers []Completer
	for _, p := range cfg.ConfiguredProviders() {
		pc := cfg.providerConfig(p)
		models := pc.Models
		if len(models) == 0 {
			models = defaultModels(p)
		}
		for _, model := range models {
			var (
				comp Completer
				err  error
			)
			if p == ProviderGemini {
				comp, err = newGeminiCompleter(ctx, pc.APIKey, model)
			} else {
				comp, err = newOpenAICompleter(p, pc.APIKey, model)
			}
			if err != nil {
				slog.WarnContext(ctx, "failed to create completer", "provider", p, "model", model, "error", err)
				continue
			}
			completers = append(completers, comp)
		}
	}

	if len(completers) == 0 {
		slog.InfoContext(ctx, "no LLM provider configured")
		return nil
	}
	if cfg.RetryConfig.MaxAttempts == 0 {
		cfg.RetryConfig = DefaultRetryConfig()
	}

	slog.InfoContext(ctx, "LLM chain configured",
		"primary", completers[0].Provider(),
		"chain_size", len(completers))
	return NewChain(cfg.RetryConfig, m, completers...)
}
