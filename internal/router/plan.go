package router

import (
	"context"
	"slices"
	"strings"

	"github.com/garyellow/realestate-linebot-go/internal/genai"
	"github.com/garyellow/realestate-linebot-go/internal/region"
	"github.com/garyellow/realestate-linebot-go/internal/stringutil"
)

// Tool is a capability the multi-tool pipeline can run.
type Tool string

const (
	ToolDataAnalysis Tool = "data_analysis"
	ToolWebSearch    Tool = "web_search"
)

// Query types reported in a ToolPlan.
const (
	QueryTypeDataAnalysis = "data_analysis"
	QueryTypeWebSearch    = "web_search"
	QueryTypeBoth         = "both"
	QueryTypeGeneral      = "general"
)

// ToolPlan lists the tools to run for a query.
type ToolPlan struct {
	Tools     []Tool `json:"tools_to_use"`
	Reasoning string `json:"reasoning"`
	QueryType string `json:"query_type"`
}

// Uses reports whether the plan includes tool.
func (p ToolPlan) Uses(tool Tool) bool {
	return slices.Contains(p.Tools, tool)
}

// BothTools is the conservative plan used when routing is inconclusive.
func BothTools(reasoning string) ToolPlan {
	return ToolPlan{
		Tools:     []Tool{ToolDataAnalysis, ToolWebSearch},
		Reasoning: reasoning,
		QueryType: QueryTypeBoth,
	}
}

// PlanTools chooses tools by keywords first and asks the model only when
// no keyword matched. A failed or empty model answer selects both tools.
func (r *Router) PlanTools(ctx context.Context, text string) ToolPlan {
	if plan, ok := PlanByKeywords(text); ok {
		r.metrics.RecordRouterDecision("plan_keyword", plan.QueryType)
		return plan
	}
	if r.llm == nil {
		plan := BothTools("沒有符合的關鍵字，同時使用兩種工具")
		r.metrics.RecordRouterDecision("plan_default", plan.QueryType)
		return plan
	}

	plan, err := r.planWithLLM(ctx, text)
	if err != nil {
		r.log.WithError(err).Warn("Tool planning failed, using both tools")
		plan = BothTools("規劃失敗，同時使用兩種工具")
	}
	r.metrics.RecordRouterDecision("plan_llm", plan.QueryType)
	return plan
}

// PlanByKeywords is the keyword half of PlanTools. ok is false when the
// text matched neither keyword set.
func PlanByKeywords(text string) (ToolPlan, bool) {
	data := stringutil.ContainsAny(text, PriceKeywords...) || stringutil.ContainsAny(text, PlotKeywords...)
	web := stringutil.ContainsAny(text, WebSearchKeywords...)

	if region.FindCity(text) != "" || region.FindDistrict(text) != "" {
		web = web || stringutil.ContainsAny(text, webBoostWords...)
		data = data || stringutil.ContainsAny(text, dataBoostWords...)
	}

	var plan ToolPlan
	if data {
		plan.Tools = append(plan.Tools, ToolDataAnalysis)
	}
	if web {
		plan.Tools = append(plan.Tools, ToolWebSearch)
	}
	switch {
	case data && web:
		plan.QueryType = QueryTypeBoth
	case data:
		plan.QueryType = QueryTypeDataAnalysis
	case web:
		plan.QueryType = QueryTypeWebSearch
	default:
		return ToolPlan{}, false
	}
	plan.Reasoning = "依查詢中的關鍵字判斷"
	return plan, true
}

const planPrompt = `你是房地產助手的查詢路由器，請判斷要使用哪些工具。

可用工具：
1. data_analysis：分析實價登錄資料、產生房價統計與趨勢圖
2. web_search：搜尋信義房屋網站上正在出售的物件

只輸出一個 JSON 物件，欄位如下：
- "tools_to_use"：要使用的工具名稱陣列
- "reasoning"：簡短說明
- "query_type"："data_analysis"、"web_search"、"both" 或 "general"

範例：
- 「台北市大安區的平均房價是多少？」→ data_analysis
- 「幫我找新北市3房2廳有車位的房子」→ web_search
- 「台北市松山區最近五年的房價趨勢，並幫我找近捷運站的物件」→ both`

func (r *Router) planWithLLM(ctx context.Context, text string) (ToolPlan, error) {
	reply, err := r.llm.Complete(ctx, []genai.Message{
		genai.SystemMessage(planPrompt),
		genai.UserMessage(text),
	}, genai.Options{Operation: "plan", JSON: true})
	if err != nil {
		return ToolPlan{}, err
	}

	var raw struct {
		Tools     []string `json:"tools_to_use"`
		Reasoning string   `json:"reasoning"`
		QueryType string   `json:"query_type"`
	}
	if err := genai.ParseJSON(reply, &raw); err != nil {
		return ToolPlan{}, err
	}

	plan := ToolPlan{Reasoning: raw.Reasoning, QueryType: strings.TrimSpace(raw.QueryType)}
	for _, t := range raw.Tools {
		switch tool := Tool(strings.TrimSpace(t)); tool {
		case ToolDataAnalysis, ToolWebSearch:
			if !plan.Uses(tool) {
				plan.Tools = append(plan.Tools, tool)
			}
		}
	}
	if len(plan.Tools) == 0 {
		return BothTools(plan.Reasoning), nil
	}
	if plan.QueryType == "" {
		plan.QueryType = QueryTypeGeneral
	}
	return plan, nil
}
