package chart

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"slices"

	"github.com/golang/freetype/truetype"
	gochart "github.com/wcharczuk/go-chart/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ContentTypePNG is the media type of PNGRenderer output.
const ContentTypePNG = "image/png"

const (
	defaultWidth  = 1024
	defaultHeight = 576
	maxBarWidth   = 60
)

// PNGRenderer draws charts as PNG images.
type PNGRenderer struct {
	Width  int
	Height int

	// Font renders the title, axis names and Chinese tick labels. The
	// bundled font has no CJK glyphs, so without one only ASCII ticks and
	// values are drawn.
	Font *truetype.Font
}

// LoadFont parses a TrueType font file.
func LoadFont(path string) (*truetype.Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("chart: read font: %w", err)
	}
	font, err := truetype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("chart: parse font %s: %w", path, err)
	}
	return font, nil
}

// Render implements Renderer.
func (r PNGRenderer) Render(ctx context.Context, s Series, kind Kind) (Artifact, error) {
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}
	if len(s.Points) == 0 {
		return Artifact{}, ErrEmptySeries
	}
	for _, p := range s.Points {
		if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
			return Artifact{}, fmt.Errorf("chart: invalid value for %q", p.Label)
		}
	}

	var (
		buf bytes.Buffer
		err error
	)
	switch kind {
	case Bar:
		bc := r.barChart(s)
		err = bc.Render(gochart.PNG, &buf)
	default:
		lc := r.lineChart(s)
		err = lc.Render(gochart.PNG, &buf)
	}
	if err != nil {
		return Artifact{}, fmt.Errorf("chart: render %s: %w", kind, err)
	}
	return Artifact{Data: buf.Bytes(), ContentType: ContentTypePNG}, nil
}

func (r PNGRenderer) size() (int, int) {
	w, h := r.Width, r.Height
	if w <= 0 {
		w = defaultWidth
	}
	if h <= 0 {
		h = defaultHeight
	}
	return w, h
}

// label picks the tick text the configured font can draw.
func (r PNGRenderer) label(p Point) string {
	if r.Font != nil || p.Tick == "" {
		return p.Label
	}
	return p.Tick
}

// text hides Chinese captions when no CJK font is loaded.
func (r PNGRenderer) text(s string) string {
	if r.Font == nil {
		return ""
	}
	return s
}

func (r PNGRenderer) lineChart(s Series) gochart.Chart {
	w, h := r.size()
	n := len(s.Points)
	xs := make([]float64, n)
	ys := make([]float64, n)
	ticks := make([]gochart.Tick, n)
	for i, p := range s.Points {
		xs[i], ys[i] = float64(i), p.Value
		ticks[i] = gochart.Tick{Value: float64(i), Label: r.label(p)}
	}

	series := []gochart.Series{
		gochart.ContinuousSeries{
			Name:    r.text(s.YLabel),
			XValues: xs,
			YValues: ys,
			Style: gochart.Style{
				StrokeWidth: 3,
				DotWidth:    5,
			},
		},
	}
	if n > 1 {
		hi, lo := extremes(ys)
		series = append(series, gochart.AnnotationSeries{
			Annotations: []gochart.Value2{
				{XValue: xs[hi], YValue: ys[hi], Label: formatValue(ys[hi])},
				{XValue: xs[lo], YValue: ys[lo], Label: formatValue(ys[lo])},
			},
		})
	}

	return gochart.Chart{
		Title:  r.text(s.Title),
		Width:  w,
		Height: h,
		Font:   r.Font,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 50, Left: 20, Right: 40, Bottom: 20},
		},
		XAxis: gochart.XAxis{
			Name:  r.text(s.XLabel),
			Ticks: ticks,
			Range: xRange(n),
		},
		YAxis: gochart.YAxis{
			Name:           r.text(s.YLabel),
			ValueFormatter: valueFormatter,
			Range:          yRange(ys),
		},
		Series: series,
	}
}

func (r PNGRenderer) barChart(s Series) gochart.BarChart {
	w, h := r.size()
	bars := make([]gochart.Value, len(s.Points))
	top := 0.0
	for i, p := range s.Points {
		bars[i] = gochart.Value{Value: p.Value, Label: r.label(p)}
		top = max(top, p.Value)
	}
	if top == 0 {
		top = 1
	}
	return gochart.BarChart{
		Title:    r.text(s.Title),
		Width:    w,
		Height:   h,
		Font:     r.Font,
		BarWidth: barWidth(w, len(bars)),
		Background: gochart.Style{
			Padding: gochart.Box{Top: 50, Left: 20, Right: 20, Bottom: 20},
		},
		YAxis: gochart.YAxis{
			Name:           r.text(s.YLabel),
			ValueFormatter: valueFormatter,
			Range:          &gochart.ContinuousRange{Min: 0, Max: top * 1.1},
		},
		Bars: bars,
	}
}

// go-chart refuses an axis whose range is zero wide, so a single point or
// a flat series gets an explicit one.

func xRange(n int) gochart.Range {
	if n > 1 {
		return nil
	}
	return &gochart.ContinuousRange{Min: -1, Max: 1}
}

func yRange(values []float64) gochart.Range {
	lo, hi := slices.Min(values), slices.Max(values)
	if hi > lo {
		return nil
	}
	pad := math.Abs(hi) * 0.1
	if pad == 0 {
		pad = 1
	}
	return &gochart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}

// barWidth fits n bars with equal gaps into the plot width.
func barWidth(width, n int) int {
	if n <= 0 {
		return maxBarWidth
	}
	return max(4, min(maxBarWidth, (width-160)/(2*n)))
}

// extremes returns the indexes of the first maximum and first minimum.
func extremes(values []float64) (hi, lo int) {
	for i, v := range values {
		if v > values[hi] {
			hi = i
		}
		if v < values[lo] {
			lo = i
		}
	}
	return hi, lo
}

var numbers = message.NewPrinter(language.TraditionalChinese)

func formatValue(v float64) string {
	return numbers.Sprintf("%.0f", v)
}

func valueFormatter(v any) string {
	if f, ok := v.(float64); ok {
		return formatValue(f)
	}
	return fmt.Sprint(v)
}
