package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/garyellow/realestate-linebot-go/internal/analysis"
	"github.com/garyellow/realestate-linebot-go/internal/chart"
	"github.com/garyellow/realestate-linebot-go/internal/dataset"
	apperrors "github.com/garyellow/realestate-linebot-go/internal/errors"
	"github.com/garyellow/realestate-linebot-go/internal/extractor"
	"github.com/garyellow/realestate-linebot-go/internal/genai"
	"github.com/garyellow/realestate-linebot-go/internal/memory"
	"github.com/garyellow/realestate-linebot-go/internal/region"
	"github.com/garyellow/realestate-linebot-go/internal/router"
	"github.com/garyellow/realestate-linebot-go/internal/stringutil"
)

const (
	missingCityMessage = "未能識別查詢的城市，請指定一個城市，例如「台北市」。"
	missingCityText    = "抱歉，我無法理解您查詢的城市。請明確指定您想查詢的城市，例如「台北市大安區的平均房價」。"
)

// defaultCity is used by the chart and general handlers when the query
// names no city.
const defaultCity = region.Taipei

// place merges what the extractor and the router found. The extractor
// wins; a district alone implies its city.
func place(p extractor.Params, c router.Classification) (city, district string) {
	city, district = p.City, p.District
	if city == "" {
		city = c.City
	}
	if district == "" {
		district = c.District
	}
	if city == "" && district != "" {
		city = region.CityOf(district)
	}
	return city, district
}

// loadTable returns the city table, or a failed Result when it cannot be
// loaded or holds no rows.
func (o *Orchestrator) loadTable(ctx context.Context, city string) (*dataset.Table, *Result) {
	table, err := o.data.Load(ctx, city)
	if err != nil {
		o.log.WithError(err).WithField("city", city).Warn("Failed to load transactions")
	} else if table == nil || table.Len() == 0 {
		err = apperrors.ErrNoData
	}
	if err != nil {
		res := errorResult(fmt.Sprintf("無法加載 %s 的數據或數據為空", city),
			loadErr.Wrapf(err, "抱歉，我找不到 %s 的房價數據。", city))
		return nil, &res
	}
	return table, nil
}

func (o *Orchestrator) handlePrice(ctx context.Context, p extractor.Params, c router.Classification) Result {
	city, district := place(p, c)
	if city == "" {
		return errorResult(missingCityMessage, priceErr.Wrap(apperrors.ErrMissingCity, missingCityText))
	}

	table, fail := o.loadTable(ctx, city)
	if fail != nil {
		return *fail
	}

	filters := p.Filters()
	stats := analysis.CalculateAveragePrice(table, district, filters)
	out := analysis.FormatPrice(stats, city, filters)
	return Result{
		Success: out.Success,
		Message: out.Message,
		Text:    out.Text,
		Table:   out.Table,
	}
}

// chartType reads the requested chart style from the query text.
func chartType(text string) string {
	if stringutil.ContainsAny(text, "長條圖", "柱狀圖", "直條圖", "bar") {
		return string(chart.Bar)
	}
	return string(chart.Line)
}

func (o *Orchestrator) handlePlot(ctx context.Context, text string, p extractor.Params, c router.Classification) Result {
	city, district := place(p, c)
	if city == "" {
		city = defaultCity
	}

	table, fail := o.loadTable(ctx, city)
	if fail != nil {
		return *fail
	}

	tr := o.trends.Build(ctx, table, analysis.TrendRequest{
		City:      city,
		District:  district,
		ChartType: chartType(text),
		TimeRange: p.TimeRange,
	})

	if !tr.Success {
		res := errorResult(tr.Err, plotErr.Wrap(tr.Cause(), tr.Text))
		res.Table = tr.Display()
		return res
	}
	return Result{
		Success: true,
		Message: "成功生成房價趨勢圖",
		Text:    tr.Text,
		Table:   tr.Display(),
		Chart:   tr.Chart,
	}
}

const generalPrompt = `你是台灣房地產實價登錄資料的分析助手。請根據提供的資料摘要與先前的對話，以繁體中文簡潔回答使用者的問題。
只使用摘要中的數字，不要捏造資料；資料不足時請直接說明。`

// minNarrativeRunes is the reply length under which a model answer is
// treated as empty.
const minNarrativeRunes = 10

func (o *Orchestrator) handleOther(ctx context.Context, text string, p extractor.Params, c router.Classification, history []memory.Message) Result {
	city, district := place(p, c)
	if city == "" {
		city = defaultCity
	}

	table, fail := o.loadTable(ctx, city)
	if fail != nil {
		return *fail
	}
	if district != "" && !table.HasDistrict(district) {
		district = ""
	}

	stats := analysis.CalculateAveragePrice(table, district, nil)
	basic := analysis.FormatBasicStats(stats)
	fallback := Result{
		Success: true,
		Message: "成功處理房地產數據查詢",
		Text:    "無法生成詳細分析，但這裡是基本統計信息：\n\n" + basic,
	}

	summary := analysis.FormatPrice(stats, city, nil)
	var b strings.Builder
	fmt.Fprintf(&b, "資料範圍：%s%s\n\n%s\n", city, district, basic)
	if summary.Success {
		b.WriteString("\n" + summary.Text + "\n")
	}
	if summary.Table != nil {
		b.WriteString("\n各行政區平均每坪價格：\n")
		for i, row := range summary.Table.Rows {
			if i == 10 {
				break
			}
			fmt.Fprintf(&b, "%v: %v 元/坪\n", row[0], row[1])
		}
	}

	messages := []genai.Message{genai.SystemMessage(generalPrompt)}
	messages = append(messages, historyMessages(history)...)
	messages = append(messages, genai.UserMessage(b.String()+"\n問題："+text))

	reply, err := o.complete(ctx, messages, genai.Options{Operation: "analyze", Temperature: 0.1})
	switch {
	case errors.Is(err, apperrors.ErrLLMUnavailable):
		return fallback
	case err != nil:
		o.log.WithError(err).Warn("General analysis model call failed, using statistics")
		return fallback
	case stringutil.RuneLen(reply) < minNarrativeRunes:
		return fallback
	}
	return Result{Success: true, Message: "成功處理房地產數據查詢", Text: reply}
}
