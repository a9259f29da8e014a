// Package router decides which capability answers a query.
//
// Classification is layered: an ordered table of keyword and pattern rules
// handles the common case without any model call, and the language model
// is consulted only when no rule fires.
package router

import (
	"context"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/garyellow/realestate-linebot-go/internal/genai"
	"github.com/garyellow/realestate-linebot-go/internal/logger"
	"github.com/garyellow/realestate-linebot-go/internal/metrics"
	"github.com/garyellow/realestate-linebot-go/internal/region"
	"github.com/garyellow/realestate-linebot-go/internal/stringutil"
)

// Intent is the capability chosen for a query.
type Intent string

const (
	IntentPrice     Intent = "price"
	IntentPlot      Intent = "plot"
	IntentWebSearch Intent = "web_search"
	IntentOther     Intent = "other"
)

// Stage records which layer produced a Classification.
type Stage string

const (
	StagePlotKeyword  Stage = "plot_keyword"
	StagePriceKeyword Stage = "price_keyword"
	StagePricePattern Stage = "price_pattern"
	StageShortQuery   Stage = "short_query"
	StageLLM          Stage = "llm"
	StageDefault      Stage = "default"
)

// Place is the city and district already known for a query.
type Place struct {
	City     string
	District string
}

// IsZero reports whether neither field is set.
func (p Place) IsZero() bool { return p.City == "" && p.District == "" }

// Classification is the router's answer.
type Classification struct {
	Intent    Intent `json:"intent"`
	Reasoning string `json:"reasoning"`
	Stage     Stage  `json:"stage"`
	City      string `json:"city,omitempty"`
	District  string `json:"district,omitempty"`
}

// Options configures a Router.
type Options struct {
	LLM     genai.Completer // optional tie-breaker
	Logger  *logger.Logger
	Metrics *metrics.Metrics
}

// Router classifies queries.
type Router struct {
	llm     genai.Completer
	log     *logger.Logger
	metrics *metrics.Metrics
}

// New creates a Router.
func New(opts Options) *Router {
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	return &Router{
		llm:     opts.LLM,
		log:     opts.Logger.WithModule("router"),
		metrics: opts.Metrics,
	}
}

// Classify returns the intent for text. place carries the city and
// district the extractor already found; when zero they are looked up in
// the text.
func (r *Router) Classify(ctx context.Context, text string, place Place) Classification {
	c, ok := MatchRules(text, place)
	if !ok && r.llm != nil {
		if llmc, err := r.classifyWithLLM(ctx, text); err != nil {
			r.log.WithError(err).Warn("Routing model call failed, keeping default route")
		} else {
			llmc.City, llmc.District = c.City, c.District
			c = llmc
		}
	}
	r.metrics.RecordRouterDecision(string(c.Stage), string(c.Intent))
	r.log.WithFields(map[string]any{
		"intent": c.Intent,
		"stage":  c.Stage,
	}).Debug("Query classified")
	return c
}

// MatchRules applies the rule table. It is a pure function of its inputs;
// ok is false when no rule fired and the result is the OTHER default.
func MatchRules(text string, place Place) (c Classification, ok bool) {
	if place.IsZero() {
		place = Place{City: region.FindCity(text), District: region.FindDistrict(text)}
	}
	hasPlace := !place.IsZero()
	c = Classification{City: place.City, District: place.District}

	switch {
	case stringutil.ContainsAny(text, PlotKeywords...):
		c.Intent, c.Stage, c.Reasoning = IntentPlot, StagePlotKeyword, "查詢包含圖表或趨勢關鍵字"
	case hasPlace && stringutil.ContainsAny(text, PriceKeywords...):
		c.Intent, c.Stage, c.Reasoning = IntentPrice, StagePriceKeyword, "查詢包含地點與價格關鍵字"
	case slices.ContainsFunc(pricePatterns, func(re *regexp.Regexp) bool { return re.MatchString(text) }):
		c.Intent, c.Stage, c.Reasoning = IntentPrice, StagePricePattern, "查詢符合地點與價格的句型"
	case hasPlace && stringutil.RuneLen(strings.TrimSpace(text)) < shortQueryRunes:
		c.Intent, c.Stage, c.Reasoning = IntentPrice, StageShortQuery, "簡短查詢且包含地點，視為價格查詢"
	default:
		c.Intent, c.Stage, c.Reasoning = IntentOther, StageDefault, "沒有符合的規則"
		return c, false
	}
	return c, true
}

const classifyPrompt = `你是房地產查詢助手的路由器。請判斷使用者問題應該交給哪一種功能處理，只輸出一個 JSON 物件：
{"intent": "price" | "plot" | "web_search" | "other", "reasoning": "簡短理由"}

- price：詢問某地區的平均房價、單價、行情
- plot：想看房價趨勢、走勢、圖表
- web_search：想找正在出售的物件，例如公寓、套房、有車位的房子
- other：其他關於房地產資料的問題`

type llmClassification struct {
	Intent    string `json:"intent"`
	Reasoning string `json:"reasoning"`
}

func (r *Router) classifyWithLLM(ctx context.Context, text string) (Classification, error) {
	start := time.Now()
	reply, err := r.llm.Complete(ctx, []genai.Message{
		genai.SystemMessage(classifyPrompt),
		genai.UserMessage(text),
	}, genai.Options{Operation: "route", JSON: true})
	if err != nil {
		return Classification{}, err
	}

	var out llmClassification
	if err := genai.ParseJSON(reply, &out); err != nil {
		return Classification{}, err
	}
	intent := Intent(strings.ToLower(strings.TrimSpace(out.Intent)))
	switch intent {
	case IntentPrice, IntentPlot, IntentWebSearch, IntentOther:
	default:
		intent = IntentOther
	}
	r.log.WithField("duration_ms", time.Since(start).Milliseconds()).Debug("Routing model answered")
	return Classification{Intent: intent, Stage: StageLLM, Reasoning: out.Reasoning}, nil
}
