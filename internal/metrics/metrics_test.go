package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew(t *testing.T) {
	t.Parallel()

	m := New(prometheus.NewRegistry())
	if m == nil {
		t.Fatal("New() returned nil")
	}
	if m.QueriesTotal == nil || m.LLMTotal == nil || m.CacheOperationsTotal == nil || m.WebhookTotal == nil {
		t.Error("expected metric vectors to be initialized")
	}
}

func TestRecordHelpers(t *testing.T) {
	t.Parallel()

	m := New(prometheus.NewRegistry())

	m.RecordQuery("price", "success", 0.2)
	m.RecordQuery("price", "success", 0.4)
	m.RecordCache("台北市", "hit")
	m.SetCacheRecords("all", 42)
	m.RecordLLMFallback("gemini", "groq", "complete")

	if got := testutil.ToFloat64(m.QueriesTotal.WithLabelValues("price", "success")); got != 2 {
		t.Errorf("queries = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.CacheOperationsTotal.WithLabelValues("台北市", "hit")); got != 1 {
		t.Errorf("cache hits = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.CacheRecords.WithLabelValues("all")); got != 42 {
		t.Errorf("cache records = %v, want 42", got)
	}
	if got := testutil.ToFloat64(m.LLMFallbackTotal.WithLabelValues("gemini", "groq", "complete")); got != 1 {
		t.Errorf("fallbacks = %v, want 1", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.RecordQuery("other", "error", 1)
	m.RecordRouterDecision("llm", "other")
	m.RecordLLM("gemini", "complete", "success", 1)
	m.RecordScraperRequest("sinyi", "success", 1)
	m.RecordCache("all", "miss")
	m.SetCacheRecords("all", 1)
	m.RecordWebhook("message", "success")
	m.RecordRateLimiterDrop("session")
}
