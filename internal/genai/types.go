// Package genai wraps the language-model providers behind one Completer
// interface.
//
// Gemini uses google.golang.org/genai; Groq and Cerebras are reached through
// their OpenAI-compatible endpoints with github.com/openai/openai-go/v3.
// A Chain tries each configured model with retry and backoff before
// falling back to the next one.
package genai

import (
	"context"
	"time"
)

// Provider represents an LLM provider.
type Provider string

const (
	ProviderGemini   Provider = "gemini"
	ProviderGroq     Provider = "groq"
	ProviderCerebras Provider = "cerebras"
)

// ProviderEndpoint holds base URLs of OpenAI-compatible providers.
var ProviderEndpoint = map[Provider]string{
	ProviderGroq:     "https://api.groq.com/openai/v1/",
	ProviderCerebras: "https://api.cerebras.ai/v1/",
}

// IsOpenAICompatible reports whether the provider is reached via the
// OpenAI-compatible client.
func (p Provider) IsOpenAICompatible() bool {
	_, ok := ProviderEndpoint[p]
	return ok
}

func (p Provider) String() string {
	return string(p)
}

// Role tags a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged chat message.
type Message struct {
	Role    Role
	Content string
}

// SystemMessage returns a system message.
func SystemMessage(content string) Message { return Message{Role: RoleSystem, Content: content} }

// UserMessage returns a user message.
func UserMessage(content string) Message { return Message{Role: RoleUser, Content: content} }

// AssistantMessage returns an assistant message.
func AssistantMessage(content string) Message { return Message{Role: RoleAssistant, Content: content} }

// Options tunes one completion.
type Options struct {
	// Operation labels metrics and logs, e.g. "extract" or "route".
	Operation   string
	Temperature float64
	MaxTokens   int
	// JSON asks the provider for a JSON object when it supports that.
	JSON bool
}

// Completer turns a conversation into the model's reply text.
type Completer interface {
	Complete(ctx context.Context, messages []Message, opts Options) (string, error)
	Provider() Provider
	Close() error
}

// RetryConfig defines retry behavior for a single model.
type RetryConfig struct {
	// MaxAttempts includes the initial attempt.
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// ProviderConfig holds one provider's key and model chain.
type ProviderConfig struct {
	APIKey string
	// Models are tried in order; the first one is primary.
	Models []string
}

// LLMConfig holds configuration for all providers.
type LLMConfig struct {
	// Providers is the fallback order. Providers without a key are skipped.
	Providers   []Provider
	Gemini      ProviderConfig
	Groq        ProviderConfig
	Cerebras    ProviderConfig
	RetryConfig RetryConfig
}

// Default model chains.
var (
	DefaultGeminiModels   = []string{"gemini-2.5-flash", "gemini-2.5-flash-lite"}
	DefaultGroqModels     = []string{"llama-3.3-70b-versatile", "llama-3.1-8b-instant"}
	DefaultCerebrasModels = []string{"llama-3.3-70b", "llama-3.1-8b"}

	DefaultProviders = []Provider{ProviderGemini, ProviderGroq, ProviderCerebras}
)

// Retry defaults.
const (
	DefaultMaxRetryAttempts  = 2
	DefaultInitialRetryDelay = 500 * time.Millisecond
	DefaultMaxRetryDelay     = 3 * time.Second
)

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  DefaultMaxRetryAttempts,
		InitialDelay: DefaultInitialRetryDelay,
		MaxDelay:     DefaultMaxRetryDelay,
	}
}

// HasProvider reports whether p has an API key.
func (c *LLMConfig) HasProvider(p Provider) bool {
	pc := c.providerConfig(p)
	return pc != nil && pc.APIKey != ""
}

// ConfiguredProviders returns providers with API keys in fallback order.
func (c *LLMConfig) ConfiguredProviders() []Provider {
	out := make([]Provider, 0, len(c.Providers))
	for _, p := range c.Providers {
		if c.HasProvider(p) {
			out = append(out, p)
		}
	}
	return out
}

func (c *LLMConfig) providerConfig(p Provider) *ProviderConfig {
	switch p {
	case ProviderGemini:
		return &c.Gemini
	case ProviderGroq:
		return &c.Groq
	case ProviderCerebras:
		return &c.Cerebras
	}
	return nil
}

func defaultModels(p Provider) []string {
	switch p {
	case ProviderGemini:
		return DefaultGeminiModels
	case ProviderGroq:
		return DefaultGroqModels
	case ProviderCerebras:
		return DefaultCerebrasModels
	}
	return nil
}
