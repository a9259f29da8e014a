package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/garyellow/realestate-linebot-go/internal/chart"
	"github.com/garyellow/realestate-linebot-go/internal/dataset"
	apperrors "github.com/garyellow/realestate-linebot-go/internal/errors"
	"github.com/garyellow/realestate-linebot-go/internal/filter"
)

func tx(district string, date time.Time, unit, total, area float64) dataset.Transaction {
	nan := math.NaN()
	return dataset.Transaction{
		City:         "台北市",
		District:     district,
		RawTradeDate: date.Format("2006-01-02"),
		TradeDate:    date,
		TradeYear:    float64(date.Year()),
		UnitPrice:    unit,
		TotalPrice:   total,
		AreaPing:     area,
		UnitPriceSqm: nan,
		Age:          nan,
		Rooms:        nan,
		LivingRooms:  nan,
		Bathrooms:    nan,
	}
}

func day(y, m int) time.Time {
	return time.Date(y, time.Month(m), 1, 0, 0, 0, 0, time.UTC)
}

func TestCalculateAveragePrice(t *testing.T) {
	t.Parallel()

	table := dataset.NewTable([]dataset.Transaction{
		tx("大安區", day(2023, 1), 1_000_000, 30_000_000, 30),
		tx("大安區", day(2023, 2), 800_000, 20_000_000, 25),
		tx("信義區", day(2023, 3), 900_000, 27_000_000, 30),
		tx("大安區", day(2023, 4), math.NaN(), 10_000_000, math.NaN()),
	}, nil)

	stats := CalculateAveragePrice(table, "大安區", nil)
	if stats.Count != 3 {
		t.Fatalf("Count = %d, want 3", stats.Count)
	}
	if stats.AvgPrice == nil || *stats.AvgPrice != 900_000 {
		t.Errorf("AvgPrice = %v, want 900000", stats.AvgPrice)
	}
	if stats.AvgTotalPrice != 20_000_000 {
		t.Errorf("AvgTotalPrice = %v", stats.AvgTotalPrice)
	}
	if stats.AvgSizePing != 27.5 {
		t.Errorf("AvgSizePing = %v", stats.AvgSizePing)
	}
	if stats.Median != 900_000 || stats.Min != 800_000 || stats.Max != 1_000_000 {
		t.Errorf("median/min/max = %v/%v/%v", stats.Median, stats.Min, stats.Max)
	}
	if math.Abs(stats.Std-100_000) > 0.01 {
		t.Errorf("Std = %v", stats.Std)
	}
	if stats.DistrictRanking != nil {
		t.Error("ranking only applies without a district")
	}
}

// The row count for a present district equals the rows in that district.
func TestCalculateAveragePrice_DistrictCount(t *testing.T) {
	t.Parallel()

	var rows []dataset.Transaction
	for i := range 30 {
		d := []string{"大安區", "信義區", "文山區"}[i%3]
		rows = append(rows, tx(d, day(2020+i%5, 1), float64(500_000+i*10_000), 1, 1))
	}
	table := dataset.NewTable(rows, nil)

	for _, d := range table.Districts() {
		want := table.Where(func(t *dataset.Transaction) bool { return t.District == d }).Len()
		if got := CalculateAveragePrice(table, d, nil).Count; got != want {
			t.Errorf("Count(%s) = %d, want %d", d, got, want)
		}
	}

	all := CalculateAveragePrice(table, "", nil)
	if len(all.DistrictRanking) != 3 {
		t.Fatalf("ranking rows = %d, want 3", len(all.DistrictRanking))
	}
	for i := 1; i < len(all.DistrictRanking); i++ {
		if all.DistrictRanking[i-1].AvgPrice < all.DistrictRanking[i].AvgPrice {
			t.Errorf("ranking not descending: %+v", all.DistrictRanking)
		}
	}
}

func TestCalculateAveragePrice_NoMatch(t *testing.T) {
	t.Parallel()

	table := dataset.NewTable([]dataset.Transaction{
		tx("大安區", day(2023, 1), 1_000_000, 1, 1),
	}, nil)

	tests := []struct {
		name     string
		district string
		filters  filter.Filters
	}{
		{"absent district", "北投區", nil},
		{"filters exclude all", "大安區", filter.Filters{filter.KeyTimeRange: filter.Years{Start: 2010, End: 2012}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			stats := CalculateAveragePrice(table, tt.district, tt.filters)
			if stats.Count != 0 || stats.AvgPrice != nil || stats.Err != ErrNoPriceData {
				t.Errorf("stats = %+v, want empty with error marker", stats)
			}
		})
	}
}

func TestFormatPrice(t *testing.T) {
	t.Parallel()

	avg := 853_210.0
	stats := PriceStats{
		Count:         12345,
		District:      "大安區",
		AvgPrice:      &avg,
		AvgTotalPrice: 23_456_789,
		AvgSizePing:   32.44,
		Median:        812_340,
	}
	rooms := 3
	filters := filter.Filters{
		filter.KeyTimeRange:    filter.Years{Start: 2020, End: 2025, Description: "近5年"},
		dataset.ColRooms:       filter.Exact{Value: &rooms},
		dataset.ColElevator:    filter.Exact{Value: "有"},
		dataset.ColAge:         filter.Range{Min: ptr(0), Max: ptr(10)},
		dataset.ColLivingRooms: filter.Exact{Value: ""},
	}

	out := FormatPrice(stats, "台北市", filters)
	want := "基於 12,345 筆交易記錄，台北市大安區、近5年、3房、有電梯、0-10年屋齡 的平均房價數據如下：\n" +
		"- 每坪平均價格: 85.3 萬元\n" +
		"- 平均房屋總價: 2,346 萬元\n" +
		"- 平均房屋大小: 32.4 坪\n" +
		"- 中位數每坪房價: 81.2 萬元"
	if !out.Success || out.Text != want {
		t.Errorf("FormatPrice() text =\n%s\nwant\n%s", out.Text, want)
	}
}

func TestFormatPrice_Failure(t *testing.T) {
	t.Parallel()

	out := FormatPrice(PriceStats{District: "北投區", Err: ErrNoPriceData}, "台北市", nil)
	if out.Success {
		t.Error("expected failure")
	}
	if out.Text != "抱歉，找不到 台北市北投區 的房價數據。" {
		t.Errorf("Text = %q", out.Text)
	}
}

func TestFormatBasicStats(t *testing.T) {
	t.Parallel()

	avg := 612_345.678
	got := FormatBasicStats(PriceStats{Count: 1500, AvgPrice: &avg, Min: 120_000, Max: 2_450_000.5})
	want := "數據基本統計：\n均價: 612,345.68 元/坪\n最低價: 120,000.00 元/坪\n最高價: 2,450,000.50 元/坪\n數據筆數: 1,500"
	if got != want {
		t.Errorf("FormatBasicStats() =\n%s\nwant\n%s", got, want)
	}
	if got := FormatBasicStats(PriceStats{}); !strings.HasSuffix(got, "數據筆數: 0") {
		t.Errorf("FormatBasicStats(empty) = %q", got)
	}
}

func ptr(f float64) *float64 { return &f }

type stubRenderer struct {
	err    error
	kind   chart.Kind
	series chart.Series
}

func (s *stubRenderer) Render(_ context.Context, series chart.Series, kind chart.Kind) (chart.Artifact, error) {
	s.kind = kind
	s.series = series
	if s.err != nil {
		return chart.Artifact{}, s.err
	}
	return chart.Artifact{Data: []byte(series.Title), ContentType: "text/plain"}, nil
}

func yearlyTable() *dataset.Table {
	return dataset.NewTable([]dataset.Transaction{
		tx("大安區", day(2020, 3), 800_000, 1, 1),
		tx("大安區", day(2020, 9), 820_000, 1, 1),
		tx("大安區", day(2021, 5), 780_000, 1, 1),
		tx("大安區", day(2022, 5), 1_000_000, 1, 1),
		tx("信義區", day(2022, 6), 2_000_000, 1, 1),
		tx("大安區", day(2023, 7), math.NaN(), 1, 1),
	}, nil)
}

func TestTrendBuilder_Yearly(t *testing.T) {
	t.Parallel()

	r := &stubRenderer{}
	b := NewTrendBuilder(r, 2025, 10, nil)
	res := b.Build(context.Background(), yearlyTable(), TrendRequest{
		City:      "台北市",
		District:  "大安區",
		ChartType: "bar",
		TimeRange: dataset.TimeRange{StartYear: 2020, EndYear: 2024},
	})

	if !res.Success {
		t.Fatalf("Build() failed: %s / %s", res.Err, res.Text)
	}
	if res.Monthly {
		t.Error("expected yearly buckets")
	}
	// 2023 has no valid price and is dropped.
	if len(res.Points) != 3 {
		t.Fatalf("points = %+v", res.Points)
	}
	if res.Points[0].Label != "2020年" || res.Points[0].AvgPrice != 810_000 || res.Points[0].Count != 2 {
		t.Errorf("first point = %+v", res.Points[0])
	}
	if res.Direction != TrendUp {
		t.Errorf("Direction = %s, want %s", res.Direction, TrendUp)
	}
	wantHead := "台北市大安區的房價在2020年至2024年整體呈上升趨勢，變化幅度約 23.46%。"
	if !strings.HasPrefix(res.Text, wantHead) {
		t.Errorf("Text = %q", res.Text)
	}
	for _, line := range []string{
		"起始平均每坪單價: 810,000 元",
		"最終平均每坪單價: 1,000,000 元",
		"期間最高點出現在 2022年，價格為 1,000,000 元/坪",
		"期間最低點出現在 2021年，價格為 780,000 元/坪",
	} {
		if !strings.Contains(res.Text, line) {
			t.Errorf("Text missing %q", line)
		}
	}
	if !res.HasChart || res.Chart == nil || r.kind != chart.Bar {
		t.Errorf("chart not attached: %+v kind=%s", res.Chart, r.kind)
	}
	if p := r.series.Points[0]; p.Label != "2020年" || p.Tick != "2020" {
		t.Errorf("first chart point = %+v", p)
	}

	d := res.Display()
	if d.Columns[0] != "年份" || d.Rows[0][0] != 2020 || d.Rows[0][1] != int64(810_000) {
		t.Errorf("Display() = %+v", d)
	}
}

func TestTrendBuilder_SingleYearMonthly(t *testing.T) {
	t.Parallel()

	table := dataset.NewTable([]dataset.Transaction{
		tx("大安區", day(2024, 1), 900_000, 1, 1),
		tx("大安區", day(2024, 1), 920_000, 1, 1),
		tx("大安區", day(2024, 6), 915_000, 1, 1),
	}, nil)

	res := NewTrendBuilder(nil, 2025, 10, nil).Build(context.Background(), table, TrendRequest{
		City:      "台北市",
		TimeRange: dataset.TimeRange{StartYear: 2024, EndYear: 2024},
	})
	if !res.Success {
		t.Fatalf("Build() failed: %s", res.Text)
	}
	if !res.Monthly || res.Points[0].Label != "1月" || res.Points[1].Label != "6月" {
		t.Errorf("points = %+v", res.Points)
	}
	if res.Direction != TrendFlat {
		t.Errorf("Direction = %s, want %s", res.Direction, TrendFlat)
	}
	if res.RangeText != "2024年" {
		t.Errorf("RangeText = %q", res.RangeText)
	}
	if res.HasChart {
		t.Error("no renderer configured")
	}
	if got := res.Display().Columns[0]; got != "月份" {
		t.Errorf("first column = %q", got)
	}
}

func TestTrendBuilder_Failures(t *testing.T) {
	t.Parallel()

	b := NewTrendBuilder(&stubRenderer{}, 2025, 10, nil)
	ctx := context.Background()

	noDate := dataset.NewTable(nil, []string{dataset.ColDistrict})
	if res := b.Build(ctx, noDate, TrendRequest{City: "台北市"}); res.Success || res.Text != "無法生成趨勢圖：數據格式不正確" {
		t.Errorf("missing date column: %+v", res)
	}

	res := b.Build(ctx, yearlyTable(), TrendRequest{City: "台北市", District: "北投區"})
	if res.Success || res.Text != "找不到 台北市北投區 的房價資料。" {
		t.Errorf("unknown district: %q", res.Text)
	}

	res = b.Build(ctx, yearlyTable(), TrendRequest{City: "台北市", TimeRange: dataset.TimeRange{StartYear: 2010, EndYear: 2012}})
	if res.Err != ErrTrendNoRange || res.Text != "找不到 台北市 2010年至2012年 的房價資料。" {
		t.Errorf("empty range: %+v", res)
	}

	res = b.Build(ctx, yearlyTable(), TrendRequest{City: "台北市", District: "信義區"})
	if res.Err != ErrTrendInsufficient || len(res.Points) != 1 {
		t.Errorf("single bucket: %+v", res)
	}
	if res.Text != fmt.Sprintf("台北市信義區 %s 的資料點不足以分析趨勢。", dataset.DefaultTimeRange(2025, 10).Description) {
		t.Errorf("insufficient text = %q", res.Text)
	}
}

func TestTrendBuilder_ChartFailureKeepsNarrative(t *testing.T) {
	t.Parallel()

	b := NewTrendBuilder(&stubRenderer{err: errors.New("boom")}, 2025, 10, nil)
	res := b.Build(context.Background(), yearlyTable(), TrendRequest{City: "台北市", District: "大安區"})
	if !res.Success || res.HasChart || res.Text == "" {
		t.Errorf("chart failure result = %+v", res)
	}
}

func TestDirection(t *testing.T) {
	t.Parallel()

	tests := map[float64]string{10: TrendUp, 5: TrendFlat, 0: TrendFlat, -5: TrendFlat, -5.01: TrendDown}
	for pct, want := range tests {
		if got := direction(pct); got != want {
			t.Errorf("direction(%v) = %s, want %s", pct, got, want)
		}
	}
}

func TestDescriptiveStats(t *testing.T) {
	t.Parallel()

	even := []float64{4, 1, 3, 2}
	if got := median(even); got != 2.5 {
		t.Errorf("median(%v) = %v, want 2.5", even, got)
	}
	if even[0] != 4 {
		t.Error("median must not reorder its input")
	}
	for name, got := range map[string]float64{
		"mean":      mean(nil),
		"median":    median(nil),
		"min":       minOf(nil),
		"max":       maxOf(nil),
		"sampleStd": sampleStd([]float64{1}),
	} {
		if !math.IsNaN(got) {
			t.Errorf("%s of too few values = %v, want NaN", name, got)
		}
	}
}

func TestConditions_OpenAgeRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		age  filter.Range
		want string
	}{
		{"Both bounds", filter.Range{Min: ptr(5), Max: ptr(10)}, "大安區、5-10年屋齡"},
		{"Min only", filter.Range{Min: ptr(20)}, "大安區、20年以上屋齡"},
		{"Max only", filter.Range{Max: ptr(5)}, "大安區、5年以下屋齡"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Conditions("大安區", filter.Filters{dataset.ColAge: tt.age}); got != tt.want {
				t.Errorf("Conditions() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTrendBuilder_ZeroPricesIgnored(t *testing.T) {
	t.Parallel()

	b := NewTrendBuilder(nil, 2025, 10, nil)
	ctx := context.Background()
	req := TrendRequest{City: "台北市", TimeRange: dataset.TimeRange{StartYear: 2020, EndYear: 2022}}

	onlyZeroFirst := dataset.NewTable([]dataset.Transaction{
		tx("大安區", day(2020, 3), 0, 1, 1),
		tx("大安區", day(2021, 3), 500_000, 1, 1),
	}, nil)
	res := b.Build(ctx, onlyZeroFirst, req)
	if res.Success || res.Err != ErrTrendInsufficient {
		t.Errorf("zero-priced first year: success=%v err=%q text=%q", res.Success, res.Err, res.Text)
	}
	if strings.Contains(res.Text, "Inf") {
		t.Errorf("Text = %q", res.Text)
	}

	mixed := dataset.NewTable([]dataset.Transaction{
		tx("大安區", day(2020, 3), 0, 1, 1),
		tx("大安區", day(2020, 4), 500_000, 1, 1),
		tx("大安區", day(2022, 3), 550_000, 1, 1),
	}, nil)
	res = b.Build(ctx, mixed, req)
	if !res.Success {
		t.Fatalf("Build() failed: %s", res.Text)
	}
	if res.Points[0].AvgPrice != 500_000 || res.Points[0].Count != 2 {
		t.Errorf("first point = %+v", res.Points[0])
	}
	if math.Abs(res.ChangePercent-10) > 1e-9 || res.Direction != TrendUp {
		t.Errorf("change = %v %s", res.ChangePercent, res.Direction)
	}
}

func TestTrendResult_Cause(t *testing.T) {
	t.Parallel()

	tests := []struct {
		res  TrendResult
		want error
	}{
		{TrendResult{Success: true}, nil},
		{TrendResult{Err: ErrTrendInsufficient}, apperrors.ErrInsufficientData},
		{TrendResult{Err: ErrTrendFormat}, apperrors.ErrInvalidInput},
		{TrendResult{Err: ErrTrendNoRange}, apperrors.ErrNoData},
	}
	for _, tt := range tests {
		if got := tt.res.Cause(); !errors.Is(got, tt.want) || (tt.want == nil && got != nil) {
			t.Errorf("Cause(%q) = %v, want %v", tt.res.Err, got, tt.want)
		}
	}
}
