package analysis

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/garyellow/realestate-linebot-go/internal/dataset"
	"github.com/garyellow/realestate-linebot-go/internal/filter"
)

// DisplayTable is a small table for chat or UI display.
type DisplayTable struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Outcome is a formatted, user-facing analysis result.
type Outcome struct {
	Success bool
	Message string
	Text    string
	Table   *DisplayTable
}

// missingValue is shown in place of a statistic with no underlying data.
const missingValue = "無資料"

func printer() *message.Printer {
	return message.NewPrinter(language.TraditionalChinese)
}

// FormatPrice renders stats as the multi-line price summary.
func FormatPrice(stats PriceStats, city string, filters filter.Filters) Outcome {
	cond := Conditions(stats.District, filters)

	if stats.AvgPrice == nil {
		return Outcome{
			Success: false,
			Message: fmt.Sprintf("找不到 %s%s 的數據或數據為空", city, cond),
			Text:    fmt.Sprintf("抱歉，找不到 %s%s 的房價數據。", city, cond),
		}
	}

	p := printer()
	var b strings.Builder
	b.WriteString(p.Sprintf("基於 %d 筆交易記錄，%s%s 的平均房價數據如下：\n", stats.Count, city, cond))
	b.WriteString("- 每坪平均價格: " + wan(*stats.AvgPrice) + "\n")
	b.WriteString("- 平均房屋總價: " + wanGrouped(stats.AvgTotalPrice) + "\n")
	b.WriteString("- 平均房屋大小: " + ping(stats.AvgSizePing))
	if !math.IsNaN(stats.Median) {
		b.WriteString("\n- 中位數每坪房價: " + wan(stats.Median))
	}

	out := Outcome{
		Success: true,
		Message: "成功處理房地產數據查詢",
		Text:    b.String(),
	}
	if len(stats.DistrictRanking) > 0 {
		t := &DisplayTable{Columns: []string{"行政區", "平均每坪價格"}}
		for _, d := range stats.DistrictRanking {
			t.Rows = append(t.Rows, []any{d.District, d.AvgPrice})
		}
		out.Table = t
	}
	return out
}

// Conditions renders district and filters as 大安區、近5年、3房、有電梯.
func Conditions(district string, filters filter.Filters) string {
	var parts []string
	if district != "" {
		parts = append(parts, district)
	}
	if y, ok := filters[filter.KeyTimeRange].(filter.Years); ok && y.Description != "" {
		parts = append(parts, y.Description)
	}

	suffixes := []struct {
		column string
		suffix string
	}{
		{dataset.ColRooms, "房"},
		{dataset.ColLivingRooms, "廳"},
		{dataset.ColBathrooms, "衛"},
	}
	for _, s := range suffixes {
		if e, ok := filters[s.column].(filter.Exact); ok && valueText(e.Value) != "" {
			parts = append(parts, valueText(e.Value)+s.suffix)
		}
	}

	if e, ok := filters[dataset.ColElevator].(filter.Exact); ok && valueText(e.Value) != "" {
		if valueText(e.Value) == "有" {
			parts = append(parts, "有電梯")
		} else {
			parts = append(parts, "無電梯")
		}
	}

	switch age := filters[dataset.ColAge].(type) {
	case filter.Exact:
		if v := valueText(age.Value); v != "" {
			parts = append(parts, v+"年屋齡")
		}
	case filter.Range:
		switch {
		case age.Min != nil && age.Max != nil:
			parts = append(parts, fmt.Sprintf("%s-%s年屋齡", formatNumber(*age.Min), formatNumber(*age.Max)))
		case age.Min != nil:
			parts = append(parts, formatNumber(*age.Min)+"年以上屋齡")
		case age.Max != nil:
			parts = append(parts, formatNumber(*age.Max)+"年以下屋齡")
		}
	}

	return strings.Join(parts, "、")
}

func valueText(v any) string {
	switch n := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(n)
	case float64:
		return formatNumber(n)
	case *int:
		if n == nil {
			return ""
		}
		return strconv.Itoa(*n)
	}
	return fmt.Sprint(v)
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// wan converts 元 to 萬元 with one decimal.
func wan(v float64) string {
	if math.IsNaN(v) {
		return missingValue
	}
	return fmt.Sprintf("%.1f 萬元", v/10000)
}

// wanGrouped converts 元 to whole 萬元 with thousands separators.
func wanGrouped(v float64) string {
	if math.IsNaN(v) {
		return missingValue
	}
	return printer().Sprintf("%d 萬元", int64(math.Round(v/10000)))
}

func ping(v float64) string {
	if math.IsNaN(v) {
		return missingValue
	}
	return fmt.Sprintf("%.1f 坪", v)
}

// FormatBasicStats renders the short statistics block used when no model
// narrative is available.
func FormatBasicStats(stats PriceStats) string {
	if stats.AvgPrice == nil {
		return "數據基本統計：\n數據筆數: 0"
	}
	p := printer()
	return p.Sprintf("數據基本統計：\n均價: %.2f 元/坪\n最低價: %.2f 元/坪\n最高價: %.2f 元/坪\n數據筆數: %d",
		*stats.AvgPrice, stats.Min, stats.Max, stats.Count)
}
