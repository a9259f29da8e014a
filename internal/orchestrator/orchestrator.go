// Package orchestrator runs a query through extraction, routing and the
// matching handler, and keeps the per-session conversation log.
//
// Every exported entry point returns a Result. Handler failures, panics
// included, become an apology Result with Success false; nothing is
// propagated to the caller as an error.
package orchestrator

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/garyellow/realestate-linebot-go/internal/analysis"
	"github.com/garyellow/realestate-linebot-go/internal/chart"
	"github.com/garyellow/realestate-linebot-go/internal/ctxutil"
	"github.com/garyellow/realestate-linebot-go/internal/dataset"
	apperrors "github.com/garyellow/realestate-linebot-go/internal/errors"
	"github.com/garyellow/realestate-linebot-go/internal/extractor"
	"github.com/garyellow/realestate-linebot-go/internal/genai"
	"github.com/garyellow/realestate-linebot-go/internal/logger"
	"github.com/garyellow/realestate-linebot-go/internal/memory"
	"github.com/garyellow/realestate-linebot-go/internal/metrics"
	"github.com/garyellow/realestate-linebot-go/internal/router"
	"github.com/garyellow/realestate-linebot-go/internal/scraper"
)

// Route names the handler that produced a Result.
type Route string

const (
	RoutePrice     Route = "price"
	RoutePlot      Route = "plot"
	RouteWebSearch Route = "web_search"
	RouteOther     Route = "other"
	RouteMulti     Route = "multi"
	RouteRejected  Route = "rejected"
)

// Result is the tagged outcome of one query turn. Text is always set and
// is what the user sees.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Text    string `json:"result"`
	Route   Route  `json:"route"`

	Table       *analysis.DisplayTable `json:"table,omitempty"`
	Chart       *chart.Artifact        `json:"-"`
	Listings    []scraper.Listing      `json:"listings,omitempty"`
	SearchURL   string                 `json:"search_url,omitempty"`
	Explanation string                 `json:"explanation,omitempty"`

	Params         *extractor.Params       `json:"params,omitempty"`
	Classification *router.Classification `json:"classification,omitempty"`
	Plan           *router.ToolPlan        `json:"plan,omitempty"`

	// Err is the failure behind an unsuccessful Result. Its user message,
	// when it carries one, is Text.
	Err error `json:"-"`
}

// HasChart reports whether a chart is attached.
func (r Result) HasChart() bool { return r.Chart != nil && len(r.Chart.Data) > 0 }

func failure(message, text string) Result {
	return Result{Success: false, Message: message, Text: text}
}

// errorResult reports err with the user message it carries, or the
// generic apology when it has none.
func errorResult(message string, err error) Result {
	res := failure(message, apperrors.GetUserMessage(err))
	res.Err = err
	return res
}

var (
	loadErr  = apperrors.NewWrapper("orchestrator", "load_table")
	priceErr = apperrors.NewWrapper("orchestrator", "price_query")
	plotErr  = apperrors.NewWrapper("orchestrator", "plot_query")
	multiErr = apperrors.NewWrapper("orchestrator", "combine")
)

// TableLoader returns the transaction table of a city.
type TableLoader interface {
	Load(ctx context.Context, city string) (*dataset.Table, error)
}

// Options wires an Orchestrator.
type Options struct {
	Data      TableLoader
	Extractor *extractor.Extractor
	Router    *router.Router
	Trends    *analysis.TrendBuilder

	Searcher    scraper.Searcher // nil disables listing search
	LLM         genai.Completer  // nil selects the statistics fallbacks
	Memory      memory.Store     // defaults to an in-process store
	History     int              // messages handed to the model, default memory.DefaultHistory
	MaxListings int              // default 10

	Logger  *logger.Logger
	Metrics *metrics.Metrics
}

// Orchestrator is safe for concurrent use.
type Orchestrator struct {
	data        TableLoader
	extractor   *extractor.Extractor
	router      *router.Router
	trends      *analysis.TrendBuilder
	searcher    scraper.Searcher
	llm         genai.Completer
	memory      memory.Store
	history     int
	maxListings int
	log         *logger.Logger
	metrics     *metrics.Metrics
}

// New creates an Orchestrator. Data, Extractor, Router and Trends are
// required.
func New(opts Options) *Orchestrator {
	if opts.Memory == nil {
		opts.Memory = memory.NewInMemory()
	}
	if opts.History <= 0 {
		opts.History = memory.DefaultHistory
	}
	if opts.MaxListings <= 0 {
		opts.MaxListings = 10
	}
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	return &Orchestrator{
		data:        opts.Data,
		extractor:   opts.Extractor,
		router:      opts.Router,
		trends:      opts.Trends,
		searcher:    opts.Searcher,
		llm:         opts.LLM,
		memory:      opts.Memory,
		history:     opts.History,
		maxListings: opts.MaxListings,
		log:         opts.Logger.WithModule("orchestrator"),
		metrics:     opts.Metrics,
	}
}

// Memory returns the conversation store.
func (o *Orchestrator) Memory() memory.Store { return o.memory }

// LLMEnabled reports whether a language model is configured.
func (o *Orchestrator) LLMEnabled() bool { return o.llm != nil }

const emptyQueryText = "請輸入您想查詢的問題，例如「台北市大安區的平均房價」。"

// Process answers text with a single handler chosen by the router.
func (o *Orchestrator) Process(ctx context.Context, sessionID, text string) Result {
	return o.turn(ctx, sessionID, text, o.process)
}

func (o *Orchestrator) process(ctx context.Context, text string, history []memory.Message) Result {
	params := o.extractor.Extract(ctx, text)
	c := o.router.Classify(ctx, text, router.Place{City: params.City, District: params.District})

	var res Result
	switch c.Intent {
	case router.IntentPrice:
		res = o.handlePrice(ctx, params, c)
		res.Route = RoutePrice
	case router.IntentPlot:
		res = o.handlePlot(ctx, text, params, c)
		res.Route = RoutePlot
	case router.IntentWebSearch:
		res = o.searchListings(ctx, text)
		res.Route = RouteWebSearch
	default:
		res = o.handleOther(ctx, text, params, c, history)
		res.Route = RouteOther
	}
	res.Params = &params
	res.Classification = &c
	return res
}

type pipeline func(ctx context.Context, text string, history []memory.Message) Result

// turn wraps a pipeline with validation, panic recovery, metrics and the
// memory bookkeeping shared by Process and ProcessMulti.
func (o *Orchestrator) turn(ctx context.Context, sessionID, text string, run pipeline) (res Result) {
	start := time.Now()
	text = strings.TrimSpace(text)
	if sessionID != "" {
		ctx = ctxutil.WithSessionID(ctx, sessionID)
	}
	log := o.log.WithSessionID(sessionID)

	if text == "" {
		res = failure("查詢內容為空", emptyQueryText)
		res.Route = RouteRejected
		o.metrics.RecordQuery(string(res.Route), "rejected", time.Since(start).Seconds())
		return res
	}

	history := o.recent(ctx, sessionID)

	defer func() {
		if r := recover(); r != nil {
			logPanic(log, r, "Query pipeline panicked")
			route := res.Route
			res = errorResult("處理查詢時發生錯誤", fmt.Errorf("pipeline panic: %v", r))
			res.Route = route
		}
		if res.Text == "" {
			res.Text = apperrors.GenericApology
		}

		status := "success"
		if !res.Success {
			status = "failure"
			if res.Err != nil {
				log.WithError(res.Err).Debug("Query failed")
			}
		}
		o.metrics.RecordQuery(string(res.Route), status, time.Since(start).Seconds())
		log.WithFields(map[string]any{
			"route":       res.Route,
			"success":     res.Success,
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("Query processed")

		o.remember(ctx, sessionID, text, res.Text)
	}()

	return run(ctx, text, history)
}

func logPanic(log *logger.Logger, r any, msg string) {
	log.WithFields(map[string]any{
		"panic": fmt.Sprint(r),
		"stack": string(debug.Stack()),
	}).Error(msg)
}

// complete asks the model for a reply and gives up as soon as ctx ends,
// even if the provider call has not returned yet. It returns
// ErrLLMUnavailable when no model is configured.
func (o *Orchestrator) complete(ctx context.Context, messages []genai.Message, opts genai.Options) (string, error) {
	if o.llm == nil {
		return "", apperrors.ErrLLMUnavailable
	}
	select {
	case reply := <-genai.CompleteAsync(ctx, o.llm, messages, opts):
		return strings.TrimSpace(reply.Text), reply.Err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (o *Orchestrator) recent(ctx context.Context, sessionID string) []memory.Message {
	if sessionID == "" {
		return nil
	}
	msgs, err := o.memory.Recent(ctx, sessionID, o.history)
	if err != nil {
		o.log.WithError(err).Warn("Failed to read conversation history")
		return nil
	}
	return msgs
}

func (o *Orchestrator) remember(ctx context.Context, sessionID, question, answer string) {
	if sessionID == "" {
		return
	}
	// The turn is finished; a cancelled request still records it.
	ctx = context.WithoutCancel(ctx)
	if err := o.memory.Append(ctx, sessionID, memory.RoleUser, question); err != nil {
		o.log.WithError(err).Warn("Failed to record user message")
		return
	}
	if err := o.memory.Append(ctx, sessionID, memory.RoleAssistant, answer); err != nil {
		o.log.WithError(err).Warn("Failed to record assistant message")
	}
}

// historyMessages converts stored turns into model messages.
func historyMessages(history []memory.Message) []genai.Message {
	out := make([]genai.Message, 0, len(history))
	for _, m := range history {
		if m.Role == memory.RoleAssistant {
			out = append(out, genai.AssistantMessage(m.Content))
		} else {
			out = append(out, genai.UserMessage(m.Content))
		}
	}
	return out
}
