package analysis

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strconv"

	"github.com/garyellow/realestate-linebot-go/internal/chart"
	"github.com/garyellow/realestate-linebot-go/internal/dataset"
	apperrors "github.com/garyellow/realestate-linebot-go/internal/errors"
	"github.com/garyellow/realestate-linebot-go/internal/logger"
)

// Trend directions.
const (
	TrendUp   = "上升"
	TrendDown = "下降"
	TrendFlat = "持平"
)

// Trend failure markers.
const (
	ErrTrendFormat       = "數據缺少必要的交易年月日欄位"
	ErrTrendNoRange      = "指定時間範圍內無資料"
	ErrTrendInsufficient = "資料點不足以產生趨勢"
)

// trendDeadband is the absolute percent change below which prices are 持平.
const trendDeadband = 5.0

// TrendRequest selects the area and span of a trend.
type TrendRequest struct {
	City      string
	District  string
	ChartType string
	TimeRange dataset.TimeRange
}

// TrendPoint is one time bucket. Month is zero for yearly buckets.
type TrendPoint struct {
	Label    string
	Year     int
	Month    int
	AvgPrice float64
	Count    int
}

// TrendResult is the outcome of BuildTrend.
type TrendResult struct {
	Success       bool
	Err           string
	Text          string
	RangeText     string
	Monthly       bool
	Points        []TrendPoint
	Direction     string
	ChangePercent float64
	ChartKind     chart.Kind
	Chart         *chart.Artifact
	HasChart      bool
}

// TrendBuilder buckets prices over time and renders a chart.
type TrendBuilder struct {
	renderer    chart.Renderer
	currentYear int
	spanYears   int
	log         *logger.Logger
}

// NewTrendBuilder creates a TrendBuilder. Unset time ranges resolve to the
// last spanYears years up to currentYear.
func NewTrendBuilder(renderer chart.Renderer, currentYear, spanYears int, log *logger.Logger) *TrendBuilder {
	if log == nil {
		log = logger.Discard()
	}
	return &TrendBuilder{
		renderer:    renderer,
		currentYear: currentYear,
		spanYears:   spanYears,
		log:         log.WithModule("trend"),
	}
}

// Build produces the trend narrative, display points and chart for req.
// Failures are returned as a TrendResult with Success false.
func (b *TrendBuilder) Build(ctx context.Context, table *dataset.Table, req TrendRequest) TrendResult {
	if !table.HasColumn(dataset.ColTradeDate) {
		return TrendResult{Err: ErrTrendFormat, Text: "無法生成趨勢圖：數據格式不正確"}
	}

	area := req.City
	if req.District != "" {
		table = table.Where(func(t *dataset.Transaction) bool { return t.District == req.District })
		area = req.City + req.District
		if table.Len() == 0 {
			return TrendResult{
				Err:  fmt.Sprintf("找不到 %s 的資料", req.District),
				Text: fmt.Sprintf("找不到 %s 的房價資料。", area),
			}
		}
	}

	tr := req.TimeRange.Resolve(b.currentYear, b.spanYears)
	rangeText := tr.Text()
	rows := table.Where(func(t *dataset.Transaction) bool {
		if t.TradeDate.IsZero() {
			return false
		}
		y := t.TradeDate.Year()
		return y >= tr.StartYear && y <= tr.EndYear
	}).Rows()
	if len(rows) == 0 {
		return TrendResult{
			Err:       ErrTrendNoRange,
			Text:      fmt.Sprintf("找不到 %s %s 的房價資料。", area, rangeText),
			RangeText: rangeText,
		}
	}

	points, monthly := bucket(rows)
	if rangeText == "" {
		if monthly {
			rangeText = fmt.Sprintf("%d年各月份", points[0].Year)
		} else {
			rangeText = fmt.Sprintf("%d年至%d年", points[0].Year, points[len(points)-1].Year)
		}
	}

	res := TrendResult{
		RangeText: rangeText,
		Monthly:   monthly,
		Points:    points,
		ChartKind: chart.ParseKind(req.ChartType),
	}
	if len(points) < 2 {
		res.Err = ErrTrendInsufficient
		res.Text = fmt.Sprintf("%s %s 的資料點不足以分析趨勢。", area, rangeText)
		return res
	}

	first, last := points[0].AvgPrice, points[len(points)-1].AvgPrice
	if first <= 0 {
		res.Err = ErrTrendInsufficient
		res.Text = fmt.Sprintf("%s %s 的資料點不足以分析趨勢。", area, rangeText)
		return res
	}
	res.ChangePercent = (last - first) / first * 100
	res.Direction = direction(res.ChangePercent)

	hi := slices.MaxFunc(points, func(a, b TrendPoint) int { return cmpPrice(a, b) })
	lo := slices.MinFunc(points, func(a, b TrendPoint) int { return cmpPrice(a, b) })

	p := printer()
	res.Text = fmt.Sprintf("%s的房價在%s整體呈%s趨勢，變化幅度約 %.2f%%。\n\n", area, rangeText, res.Direction, math.Abs(res.ChangePercent)) +
		p.Sprintf("起始平均每坪單價: %.0f 元\n", first) +
		p.Sprintf("最終平均每坪單價: %.0f 元\n\n", last) +
		p.Sprintf("期間最高點出現在 %s，價格為 %.0f 元/坪\n", hi.Label, hi.AvgPrice) +
		p.Sprintf("期間最低點出現在 %s，價格為 %.0f 元/坪", lo.Label, lo.AvgPrice)
	res.Success = true

	if b.renderer == nil {
		return res
	}
	art, err := b.renderer.Render(ctx, b.series(area, rangeText, res), res.ChartKind)
	if err != nil {
		b.log.WithError(err).Warn("Chart rendering failed, returning narrative only")
		return res
	}
	res.Chart = &art
	res.HasChart = true
	return res
}

func (b *TrendBuilder) series(area, rangeText string, res TrendResult) chart.Series {
	s := chart.Series{
		Title:  fmt.Sprintf("%s房價趨勢 (%s)", area, rangeText),
		XLabel: "年份",
		YLabel: "平均每坪單價 (元)",
	}
	if res.Monthly {
		s.XLabel = fmt.Sprintf("%d年月份", res.Points[0].Year)
	}
	for _, pt := range res.Points {
		tick := strconv.Itoa(pt.Year)
		if res.Monthly {
			tick = fmt.Sprintf("%d-%02d", pt.Year, pt.Month)
		}
		s.Points = append(s.Points, chart.Point{Label: pt.Label, Tick: tick, Value: pt.AvgPrice})
	}
	return s
}

// bucket groups rows by month when they span one year, else by year.
// Buckets without any positive unit price are dropped.
func bucket(rows []dataset.Transaction) ([]TrendPoint, bool) {
	years := make(map[int]bool)
	for i := range rows {
		years[rows[i].TradeDate.Year()] = true
	}
	monthly := len(years) == 1

	type acc struct {
		sum   float64
		n     int
		count int
	}
	groups := make(map[[2]int]*acc)
	for i := range rows {
		r := &rows[i]
		key := [2]int{r.TradeDate.Year(), 0}
		if monthly {
			key[1] = int(r.TradeDate.Month())
		}
		a, ok := groups[key]
		if !ok {
			a = &acc{}
			groups[key] = a
		}
		a.count++
		// Zero prices are non-residential deals such as parking spaces.
		if !math.IsNaN(r.UnitPrice) && r.UnitPrice > 0 {
			a.sum += r.UnitPrice
			a.n++
		}
	}

	points := make([]TrendPoint, 0, len(groups))
	for key, a := range groups {
		if a.n == 0 {
			continue
		}
		pt := TrendPoint{Year: key[0], Month: key[1], AvgPrice: a.sum / float64(a.n), Count: a.count}
		if monthly {
			pt.Label = fmt.Sprintf("%d月", pt.Month)
		} else {
			pt.Label = fmt.Sprintf("%d年", pt.Year)
		}
		points = append(points, pt)
	}
	slices.SortFunc(points, func(a, b TrendPoint) int {
		if a.Year != b.Year {
			return a.Year - b.Year
		}
		return a.Month - b.Month
	})
	return points, monthly
}

func direction(pct float64) string {
	switch {
	case pct > trendDeadband:
		return TrendUp
	case pct < -trendDeadband:
		return TrendDown
	default:
		return TrendFlat
	}
}

// cmpPrice orders by price; ties keep the earlier bucket as the extreme.
func cmpPrice(a, b TrendPoint) int {
	switch {
	case a.AvgPrice < b.AvgPrice:
		return -1
	case a.AvgPrice > b.AvgPrice:
		return 1
	}
	return 0
}

// Cause maps a failed result to the matching sentinel error; it is nil on
// success.
func (r TrendResult) Cause() error {
	switch {
	case r.Success:
		return nil
	case r.Err == ErrTrendInsufficient:
		return apperrors.ErrInsufficientData
	case r.Err == ErrTrendFormat:
		return apperrors.ErrInvalidInput
	default:
		return apperrors.ErrNoData
	}
}

// Display returns the bucket table: 年份 or 月份, rounded 平均每坪單價, 交易數量.
func (r TrendResult) Display() *DisplayTable {
	if len(r.Points) == 0 {
		return nil
	}
	first := "年份"
	if r.Monthly {
		first = "月份"
	}
	t := &DisplayTable{Columns: []string{first, "平均每坪單價", "交易數量"}}
	for _, pt := range r.Points {
		period := pt.Year
		if r.Monthly {
			period = pt.Month
		}
		t.Rows = append(t.Rows, []any{period, int64(math.Round(pt.AvgPrice)), pt.Count})
	}
	return t
}
