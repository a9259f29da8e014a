package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/garyellow/realestate-linebot-go/internal/ctxutil"
	apperrors "github.com/garyellow/realestate-linebot-go/internal/errors"
	"github.com/garyellow/realestate-linebot-go/internal/genai"
	"github.com/garyellow/realestate-linebot-go/internal/memory"
	"github.com/garyellow/realestate-linebot-go/internal/router"
	"github.com/garyellow/realestate-linebot-go/internal/stringutil"
)

// complexQueryRunes is the length above which a query is combined by the
// model even when only one tool answered.
const complexQueryRunes = 50

const combinePrompt = `你是房地產助手，請把以下工具的結果整合成一段完整、自然的繁體中文回答。
保留所有數字與網址，不要加入結果中沒有的資訊。`

// ProcessMulti plans which tools the query needs, runs them concurrently
// and merges their answers into one reply.
func (o *Orchestrator) ProcessMulti(ctx context.Context, sessionID, text string) Result {
	return o.turn(ctx, sessionID, text, o.processMulti)
}

func (o *Orchestrator) processMulti(ctx context.Context, text string, history []memory.Message) Result {
	plan := o.router.PlanTools(ctx, text)

	var data, web *Result
	g, gctx := errgroup.WithContext(ctx)
	if plan.Uses(router.ToolDataAnalysis) {
		g.Go(o.tool(gctx, &data, router.ToolDataAnalysis, func() Result {
			return o.dataTool(gctx, text, history)
		}))
	}
	if plan.Uses(router.ToolWebSearch) {
		g.Go(o.tool(gctx, &web, router.ToolWebSearch, func() Result {
			return o.searchListings(gctx, text)
		}))
	}
	_ = g.Wait()

	res := o.combine(ctx, text, data, web)
	res.Route = RouteMulti
	res.Plan = &plan
	return res
}

// tool runs one tool for the errgroup and stores its Result in dst. A
// panic becomes a failed Result, since the turn's recover cannot see
// other goroutines.
func (o *Orchestrator) tool(ctx context.Context, dst **Result, name router.Tool, run func() Result) func() error {
	return func() error {
		defer func() {
			if r := recover(); r != nil {
				log := o.log.WithSessionID(ctxutil.GetSessionID(ctx)).WithField("tool", string(name))
				logPanic(log, r, "Tool panicked")
				res := errorResult("處理查詢時發生錯誤", fmt.Errorf("%s panic: %v", name, r))
				*dst = &res
			}
		}()
		res := run()
		*dst = &res
		return nil
	}
}

// dataTool answers from the transaction records: a chart when the query
// asks for one, price statistics otherwise.
func (o *Orchestrator) dataTool(ctx context.Context, text string, history []memory.Message) Result {
	params := o.extractor.Extract(ctx, text)
	c := router.Classification{Intent: router.IntentPrice, City: params.City, District: params.District}

	var res Result
	switch {
	case stringutil.ContainsAny(text, router.PlotKeywords...):
		res = o.handlePlot(ctx, text, params, c)
	case params.HasPlace():
		res = o.handlePrice(ctx, params, c)
	default:
		res = o.handleOther(ctx, text, params, c, history)
	}
	res.Params = &params
	return res
}

func (o *Orchestrator) combine(ctx context.Context, text string, data, web *Result) Result {
	dataOK := data != nil && data.Success
	webOK := web != nil && web.Success

	var res Result
	switch {
	case !dataOK && !webOK:
		res = errorResult("所有工具皆未能提供結果", multiErr.Wrap(toolsErr(data, web),
			"抱歉，我無法找到相關的資訊。請嘗試更具體的問題，例如指定城市、行政區或房屋條件。"))
	case dataOK && webOK, isComplex(text):
		res = Result{
			Success: true,
			Message: "成功整合多項查詢結果",
			Text:    o.synthesize(ctx, text, data, web),
		}
	case dataOK:
		res = Result{Success: true, Message: data.Message, Text: data.Text}
	default:
		res = Result{Success: true, Message: web.Message, Text: web.Text}
	}

	if data != nil {
		res.Table = data.Table
		res.Chart = data.Chart
		res.Params = data.Params
	}
	if web != nil {
		res.Listings = web.Listings
		res.SearchURL = web.SearchURL
		res.Explanation = web.Explanation
	}
	return res
}

// toolsErr joins the tool failures, or ErrNoData when no tool ran.
func toolsErr(results ...*Result) error {
	var errs []error
	for _, r := range results {
		if r != nil && r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	if len(errs) == 0 {
		return apperrors.ErrNoData
	}
	return errors.Join(errs...)
}

func isComplex(text string) bool {
	return stringutil.RuneLen(text) > complexQueryRunes || strings.ContainsAny(text, "，。、")
}

// sections lists the successful tool answers under their headings.
func sections(data, web *Result) []string {
	var out []string
	if data != nil && data.Success {
		out = append(out, "📊 數據分析結果：\n"+data.Text)
	}
	if web != nil && web.Success {
		out = append(out, "🏠 物件搜尋結果：\n"+web.Text)
	}
	return out
}

// synthesize asks the model to merge the tool answers and concatenates them
// when it cannot.
func (o *Orchestrator) synthesize(ctx context.Context, text string, data, web *Result) string {
	parts := sections(data, web)
	joined := strings.Join(parts, "\n\n")

	messages := []genai.Message{
		genai.SystemMessage(combinePrompt),
		genai.UserMessage("使用者問題：" + text + "\n\n" + joined),
	}
	reply, err := o.complete(ctx, messages, genai.Options{Operation: "combine", Temperature: 0.3})
	if err != nil || stringutil.RuneLen(reply) < minNarrativeRunes {
		if err != nil && !errors.Is(err, apperrors.ErrLLMUnavailable) {
			o.log.WithError(err).Warn("Failed to combine tool results, concatenating")
		}
		return joined
	}
	return reply
}
