package genai

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/openai/openai-go/v3"
)

// ErrorAction is what a Chain does after a failed call.
type ErrorAction int

const (
	// ActionRetry retries the same model after a backoff.
	ActionRetry ErrorAction = iota
	// ActionFallback moves on to the next model.
	ActionFallback
	// ActionFail stops the chain.
	ActionFail
)

func (a ErrorAction) String() string {
	switch a {
	case ActionRetry:
		return "retry"
	case ActionFallback:
		return "fallback"
	case ActionFail:
		return "fail"
	default:
		return "unknown"
	}
}

// LLMError carries the provider and HTTP status of a failed call.
type LLMError struct {
	Err        error
	StatusCode int
	Provider   Provider
	Model      string
}

func (e *LLMError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Provider))
	if e.Model != "" {
		b.WriteString("/" + e.Model)
	}
	b.WriteString(": " + e.Err.Error())
	if e.StatusCode > 0 {
		b.WriteString(" (status: " + strconv.Itoa(e.StatusCode) + ")")
	}
	return b.String()
}

func (e *LLMError) Unwrap() error {
	return e.Err
}

// wrapError annotates err with provider, model and, when the SDK exposes
// one, the HTTP status code.
func wrapError(err error, provider Provider, model string) error {
	if err == nil {
		return nil
	}
	status := 0
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		status = apiErr.StatusCode
	}
	return &LLMError{Err: err, StatusCode: status, Provider: provider, Model: model}
}

// ClassifyError decides how a Chain reacts to err:
//   - transient failures (429, 5xx, timeouts, network) are retried
//   - quota exhaustion and permanent model errors fall back to the next model
//   - context cancellation fails the whole chain
func ClassifyError(err error) ErrorAction {
	if err == nil || errors.Is(err, context.Canceled) {
		return ActionFail
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ActionRetry
	}

	var llmErr *LLMError
	if errors.As(err, &llmErr) && llmErr.StatusCode > 0 {
		return classifyStatusCode(llmErr.StatusCode)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "quota", "daily limit", "monthly limit", "billing"):
		return ActionFallback
	case containsAny(msg, "rate limit", "too many requests", "resource_exhausted", "429"):
		return ActionRetry
	case containsAny(msg, "unavailable", "overloaded", "capacity", "internal server error",
		"bad gateway", "gateway timeout", "500", "502", "503", "504"):
		return ActionRetry
	case containsAny(msg, "timeout", "deadline", "connection", "408", "409"):
		return ActionRetry
	case containsAny(msg, "401", "403", "unauthorized", "unauthenticated", "permission denied",
		"invalid api key", "404", "not found", "400", "bad request", "invalid", "422"):
		return ActionFallback
	}
	return ActionRetry
}

func classifyStatusCode(code int) ErrorAction {
	switch {
	case code == http.StatusTooManyRequests,
		code == http.StatusRequestTimeout,
		code == http.StatusConflict,
		code >= 500 && code < 600:
		return ActionRetry
	case code >= 400 && code < 500:
		// A different model or provider may still accept the request.
		return ActionFallback
	default:
		return ActionRetry
	}
}

// statusLabel maps an error to a metrics status label.
func statusLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}

	var llmErr *LLMError
	if errors.As(err, &llmErr) {
		switch code := llmErr.StatusCode; {
		case code == http.StatusTooManyRequests:
			return "rate_limit"
		case code >= 500:
			return "server_error"
		case code == http.StatusUnauthorized || code == http.StatusForbidden:
			return "auth_error"
		case code == http.StatusBadRequest:
			return "invalid_request"
		}
	}
	if ClassifyError(err) == ActionFallback {
		return "quota_exhausted"
	}
	return "error"
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
