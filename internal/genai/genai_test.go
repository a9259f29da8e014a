package genai

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

type fakeCompleter struct {
	provider Provider
	errs     []error
	reply    string
	calls    atomic.Int32
}

func (f *fakeCompleter) Complete(_ context.Context, _ []Message, _ Options) (string, error) {
	n := int(f.calls.Add(1)) - 1
	if n < len(f.errs) && f.errs[n] != nil {
		return "", f.errs[n]
	}
	return f.reply, nil
}

func (f *fakeCompleter) Provider() Provider { return f.provider }
func (f *fakeCompleter) Close() error       { return nil }

var fastRetry = RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

func TestClassifyError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want ErrorAction
	}{
		{"nil", nil, ActionFail},
		{"canceled", context.Canceled, ActionFail},
		{"deadline", context.DeadlineExceeded, ActionRetry},
		{"status 429", &LLMError{Err: errors.New("x"), StatusCode: http.StatusTooManyRequests}, ActionRetry},
		{"status 503", &LLMError{Err: errors.New("x"), StatusCode: http.StatusServiceUnavailable}, ActionRetry},
		{"status 401", &LLMError{Err: errors.New("x"), StatusCode: http.StatusUnauthorized}, ActionFallback},
		{"status 404", &LLMError{Err: errors.New("x"), StatusCode: http.StatusNotFound}, ActionFallback},
		{"quota message", errors.New("Quota exceeded for model"), ActionFallback},
		{"rate limit message", errors.New("rate limit reached"), ActionRetry},
		{"overloaded", errors.New("model overloaded"), ActionRetry},
		{"invalid key", errors.New("invalid api key"), ActionFallback},
		{"unknown", errors.New("something odd"), ActionRetry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ClassifyError(tt.err); got != tt.want {
				t.Errorf("ClassifyError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCalculateBackoff(t *testing.T) {
	t.Parallel()

	if got := CalculateBackoff(0, time.Second, time.Minute); got != 0 {
		t.Errorf("attempt 0 = %v, want 0", got)
	}
	for attempt := 1; attempt <= 70; attempt++ {
		got := CalculateBackoff(attempt, 100*time.Millisecond, time.Second)
		if got < 0 || got >= time.Second {
			t.Fatalf("attempt %d = %v, out of range", attempt, got)
		}
	}
}

func TestSleep_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("Sleep() = %v, want context.Canceled", err)
	}
}

func TestChain_RetriesThenSucceeds(t *testing.T) {
	t.Parallel()

	primary := &fakeCompleter{provider: ProviderGemini, errs: []error{errors.New("503 unavailable")}, reply: "ok"}
	chain := NewChain(fastRetry, nil, primary)

	got, err := chain.Complete(context.Background(), []Message{UserMessage("hi")}, Options{})
	if err != nil || got != "ok" {
		t.Fatalf("Complete() = %q, %v", got, err)
	}
	if primary.calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", primary.calls.Load())
	}
}

func TestChain_FallsBack(t *testing.T) {
	t.Parallel()

	quota := errors.New("quota exhausted")
	primary := &fakeCompleter{provider: ProviderGemini, errs: []error{quota, quota}}
	secondary := &fakeCompleter{provider: ProviderGroq, reply: "from groq"}
	chain := NewChain(fastRetry, nil, primary, secondary)

	got, err := chain.Complete(context.Background(), []Message{UserMessage("hi")}, Options{Operation: "route"})
	if err != nil || got != "from groq" {
		t.Fatalf("Complete() = %q, %v", got, err)
	}
	if primary.calls.Load() != 1 {
		t.Errorf("quota errors should not be retried, calls = %d", primary.calls.Load())
	}
	if chain.Provider() != ProviderGemini || chain.Len() != 2 {
		t.Errorf("Provider() = %s, Len() = %d", chain.Provider(), chain.Len())
	}
}

func TestChain_AllFail(t *testing.T) {
	t.Parallel()

	boom := errors.New("500 internal server error")
	chain := NewChain(fastRetry, nil,
		&fakeCompleter{provider: ProviderGroq, errs: []error{boom, boom}},
		&fakeCompleter{provider: ProviderCerebras, errs: []error{boom, boom}},
	)
	if _, err := chain.Complete(context.Background(), nil, Options{}); !errors.Is(err, boom) {
		t.Errorf("Complete() error = %v, want wrapped boom", err)
	}

	var empty *Chain
	if _, err := empty.Complete(context.Background(), nil, Options{}); err == nil {
		t.Error("nil chain should fail")
	}
}

func TestCompleteAsync(t *testing.T) {
	t.Parallel()

	reply := <-CompleteAsync(context.Background(), &fakeCompleter{reply: "async"}, nil, Options{})
	if reply.Err != nil || reply.Text != "async" {
		t.Errorf("reply = %+v", reply)
	}
}

func TestLLMConfig_ConfiguredProviders(t *testing.T) {
	t.Parallel()

	cfg := LLMConfig{
		Providers: []Provider{ProviderGroq, ProviderGemini, ProviderCerebras},
		Gemini:    ProviderConfig{APIKey: "g"},
		Cerebras:  ProviderConfig{APIKey: "c"},
	}
	got := cfg.ConfiguredProviders()
	if len(got) != 2 || got[0] != ProviderGemini || got[1] != ProviderCerebras {
		t.Errorf("ConfiguredProviders() = %v", got)
	}
	if NewFromConfig(context.Background(), LLMConfig{}, nil) != nil {
		t.Error("no keys should yield a nil chain")
	}
}

func TestParseJSON(t *testing.T) {
	t.Parallel()

	type out struct {
		City string `json:"city"`
	}
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"plain", `{"city":"台北市"}`, "台北市", true},
		{"fenced", "結果如下：\n```json\n{\"city\": \"新北市\"}\n```", "新北市", true},
		{"bare fence", "```\n{\"city\": \"新北市\"}\n```", "新北市", true},
		{"embedded", `好的 {"city": "台北市", "note": "a } in string"} 謝謝`, "台北市", true},
		{"broken", "not json at all", "", false},
		{"empty", "  ", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var v out
			err := ParseJSON(tt.input, &v)
			if (err == nil) != tt.ok {
				t.Fatalf("ParseJSON() error = %v, ok = %v", err, tt.ok)
			}
			if v.City != tt.want {
				t.Errorf("City = %q, want %q", v.City, tt.want)
			}
		})
	}
}
