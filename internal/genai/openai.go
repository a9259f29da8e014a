package genai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// openaiCompleter calls one model on an OpenAI-compatible endpoint
// (Groq, Cerebras).
type openaiCompleter struct {
	client   openai.Client
	model    string
	provider Provider
}

func newOpenAICompleter(provider Provider, apiKey, model string, opts ...option.RequestOption) (*openaiCompleter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%s: missing api key", provider)
	}
	baseURL, ok := ProviderEndpoint[provider]
	if !ok {
		return nil, fmt.Errorf("unsupported OpenAI-compatible provider: %s", provider)
	}

	opts = append([]option.RequestOption{
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
		// Chain owns retries.
		option.WithMaxRetries(0),
	}, opts...)

	return &openaiCompleter{
		client:   openai.NewClient(opts...),
		model:    model,
		provider: provider,
	}, nil
}

// Complete implements Completer.
func (o *openaiCompleter) Complete(ctx context.Context, messages []Message, opts Options) (string, error) {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			msgs = append(msgs, openai.SystemMessage(m.Content))
		case RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:       o.model,
		Messages:    msgs,
		Temperature: openai.Float(opts.Temperature),
	}
	if opts.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(opts.MaxTokens))
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", wrapError(fmt.Errorf("chat completion: %w", err), o.provider, o.model)
	}
	if len(resp.Choices) == 0 {
		return "", wrapError(errors.New("no choices returned"), o.provider, o.model)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", wrapError(errors.New("empty response"), o.provider, o.model)
	}
	return text, nil
}

func (o *openaiCompleter) Provider() Provider {
	return o.provider
}

func (o *openaiCompleter) Close() error {
	return nil
}
