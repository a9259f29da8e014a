package chart

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"math"
	"testing"
)

func TestParseKind(t *testing.T) {
	t.Parallel()

	tests := map[string]Kind{
		"bar":   Bar,
		" BAR ": Bar,
		"line":  Line,
		"trend": Line,
		"":      Line,
	}
	for in, want := range tests {
		if got := ParseKind(in); got != want {
			t.Errorf("ParseKind(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPNGRenderer_Render(t *testing.T) {
	t.Parallel()

	series := Series{
		Title:  "台北市大安區房價趨勢 (2020年至2022年)",
		XLabel: "年份",
		YLabel: "平均每坪單價 (元)",
		Points: []Point{
			{Label: "2020年", Tick: "2020", Value: 800000},
			{Label: "2021年", Tick: "2021", Value: 850000},
			{Label: "2022年", Tick: "2022", Value: 1020000},
		},
	}

	for _, kind := range []Kind{Line, Bar} {
		t.Run(string(kind), func(t *testing.T) {
			t.Parallel()
			r := PNGRenderer{Width: 640, Height: 360}
			art, err := r.Render(context.Background(), series, kind)
			if err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			if art.ContentType != ContentTypePNG {
				t.Errorf("ContentType = %q", art.ContentType)
			}
			img, err := png.Decode(bytes.NewReader(art.Data))
			if err != nil {
				t.Fatalf("output is not a png: %v", err)
			}
			if b := img.Bounds(); b.Dx() != 640 || b.Dy() != 360 {
				t.Errorf("size = %dx%d, want 640x360", b.Dx(), b.Dy())
			}
		})
	}
}

func TestPNGRenderer_FlatAndSinglePoint(t *testing.T) {
	t.Parallel()

	tests := map[string][]Point{
		"flat":   {{Tick: "2020", Value: 500000}, {Tick: "2021", Value: 500000}},
		"single": {{Tick: "2024-03", Value: 700000}},
		"zeros":  {{Tick: "2020", Value: 0}, {Tick: "2021", Value: 0}},
	}
	for name, points := range tests {
		for _, kind := range []Kind{Line, Bar} {
			t.Run(name+"/"+string(kind), func(t *testing.T) {
				t.Parallel()
				art, err := PNGRenderer{Width: 320, Height: 200}.Render(context.Background(), Series{Points: points}, kind)
				if err != nil {
					t.Fatalf("Render() error = %v", err)
				}
				if _, err := png.Decode(bytes.NewReader(art.Data)); err != nil {
					t.Errorf("output is not a png: %v", err)
				}
			})
		}
	}
}

func TestYRange(t *testing.T) {
	t.Parallel()

	if r := yRange([]float64{1, 2}); r != nil {
		t.Errorf("yRange(varied) = %v, want nil", r)
	}
	r := yRange([]float64{100, 100})
	if r == nil || r.GetMin() != 90 || r.GetMax() != 110 {
		t.Errorf("yRange(flat) = %v, want 90..110", r)
	}
	r = yRange([]float64{0})
	if r == nil || r.GetMin() != -1 || r.GetMax() != 1 {
		t.Errorf("yRange(zero) = %v, want -1..1", r)
	}
}

func TestPNGRenderer_Errors(t *testing.T) {
	t.Parallel()

	r := PNGRenderer{}
	if _, err := r.Render(context.Background(), Series{}, Line); !errors.Is(err, ErrEmptySeries) {
		t.Errorf("empty series error = %v", err)
	}

	nan := Series{Points: []Point{{Label: "1月", Value: math.NaN()}}}
	if _, err := r.Render(context.Background(), nan, Line); err == nil {
		t.Error("expected error for NaN value")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Render(ctx, Series{Points: []Point{{Label: "1月", Value: 1}}}, Line); !errors.Is(err, context.Canceled) {
		t.Errorf("canceled ctx error = %v", err)
	}
}

func TestPNGRenderer_Labels(t *testing.T) {
	t.Parallel()

	p := Point{Label: "3月", Tick: "2024-03"}
	if got := (PNGRenderer{}).label(p); got != "2024-03" {
		t.Errorf("label without font = %q, want ASCII tick", got)
	}
	if got := (PNGRenderer{}).label(Point{Label: "2020"}); got != "2020" {
		t.Errorf("label without tick = %q", got)
	}
	if got := (PNGRenderer{}).text("年份"); got != "" {
		t.Errorf("caption without font = %q, want empty", got)
	}
}

func TestBarWidth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		width, n, want int
	}{
		{1024, 3, maxBarWidth},
		{1024, 24, 18},
		{1024, 500, 4},
		{1024, 0, maxBarWidth},
	}
	for _, tt := range tests {
		if got := barWidth(tt.width, tt.n); got != tt.want {
			t.Errorf("barWidth(%d, %d) = %d, want %d", tt.width, tt.n, got, tt.want)
		}
	}
}

func TestExtremes(t *testing.T) {
	t.Parallel()

	hi, lo := extremes([]float64{3, 9, 1, 9, 1})
	if hi != 1 || lo != 2 {
		t.Errorf("extremes() = %d, %d, want 1, 2", hi, lo)
	}
}
