// Package chart renders price series into image artifacts.
package chart

import (
	"context"
	"errors"
	"strings"
)

// Kind selects the chart style.
type Kind string

const (
	Line Kind = "line"
	Bar  Kind = "bar"
)

// ParseKind maps a requested chart type to a Kind. "trend" and unknown
// values render as a line chart.
func ParseKind(s string) Kind {
	if strings.EqualFold(strings.TrimSpace(s), string(Bar)) {
		return Bar
	}
	return Line
}

// Point is one labeled value. Tick is an ASCII label used when the
// renderer has no CJK font.
type Point struct {
	Label string
	Tick  string
	Value float64
}

// Series is a labeled time series.
type Series struct {
	Title  string
	XLabel string
	YLabel string
	Points []Point
}

// Artifact is an encoded image.
type Artifact struct {
	Data        []byte
	ContentType string
}

// Renderer draws a series.
type Renderer interface {
	Render(ctx context.Context, s Series, kind Kind) (Artifact, error)
}

// ErrEmptySeries is returned when there is nothing to draw.
var ErrEmptySeries = errors.New("chart: empty series")
