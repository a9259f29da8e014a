// Package filter narrows a transaction table by attribute constraints.
// Filtering never fails and never mutates its input: constraints that cannot
// be evaluated simply match nothing.
package filter

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/garyellow/realestate-linebot-go/internal/dataset"
)

// KeyTimeRange is the loose-value key holding a year range.
const KeyTimeRange = "時間範圍"

// Constraint restricts one column.
type Constraint interface {
	match(value any, ok bool) bool
	empty() bool
}

// Filters maps column names to constraints. All entries must hold (AND).
type Filters map[string]Constraint

// Exact requires equality. Integer-typed columns compare numerically.
type Exact struct {
	Value any
}

// Range is a closed interval. A nil bound is open.
type Range struct {
	Min *float64
	Max *float64
}

// OneOf requires membership.
type OneOf struct {
	Values []any
}

// Years is a closed interval of trade years applied to 交易年度.
type Years struct {
	Start       int
	End         int
	Description string
}

// Apply returns the rows of table satisfying every non-empty constraint.
func Apply(table *dataset.Table, filters Filters) *dataset.Table {
	active := make(map[string]Constraint, len(filters))
	for col, c := range filters {
		if c == nil || c.empty() {
			continue
		}
		if _, ok := c.(Years); ok {
			col = dataset.ColTradeYear
		}
		active[col] = c
	}
	if len(active) == 0 {
		return table
	}

	return table.Where(func(t *dataset.Transaction) bool {
		for col, c := range active {
			v, ok := t.Field(col)
			if !c.match(v, ok) {
				return false
			}
		}
		return true
	})
}

func (e Exact) empty() bool { return isEmptyValue(e.Value) }

func (e Exact) match(v any, ok bool) bool {
	if !ok {
		return false
	}
	if f, isNum := v.(float64); isNum {
		want, err := toFloat(e.Value)
		if err != nil {
			return false
		}
		return f == want
	}
	return v == stringify(e.Value)
}

func (r Range) empty() bool { return r.Min == nil && r.Max == nil }

func (r Range) match(v any, ok bool) bool {
	f, isNum := v.(float64)
	if !ok || !isNum {
		return false
	}
	if r.Min != nil && f < *r.Min {
		return false
	}
	if r.Max != nil && f > *r.Max {
		return false
	}
	return true
}

func (o OneOf) empty() bool { return len(o.Values) == 0 }

func (o OneOf) match(v any, ok bool) bool {
	for _, want := range o.Values {
		if (Exact{Value: want}).match(v, ok) {
			return true
		}
	}
	return false
}

func (y Years) empty() bool { return y.Start == 0 && y.End == 0 }

func (y Years) match(v any, ok bool) bool {
	f, isNum := v.(float64)
	if !ok || !isNum {
		return false
	}
	if y.Start != 0 && f < float64(y.Start) {
		return false
	}
	if y.End != 0 && f > float64(y.End) {
		return false
	}
	return true
}

// FromValues converts loosely typed values, as produced by the parameter
// extractor, into Filters. Nil, empty strings, empty lists and empty ranges
// are dropped.
func FromValues(values map[string]any) Filters {
	out := make(Filters, len(values))
	for key, v := range values {
		if c := constraintOf(key, v); c != nil && !c.empty() {
			out[key] = c
		}
	}
	return out
}

func constraintOf(key string, v any) Constraint {
	switch val := v.(type) {
	case nil:
		return nil
	case Constraint:
		return val
	case dataset.TimeRange:
		return Years{Start: val.StartYear, End: val.EndYear, Description: val.Description}
	case []any:
		return OneOf{Values: dropEmpty(val)}
	case []string:
		items := make([]any, len(val))
		for i, s := range val {
			items[i] = s
		}
		return OneOf{Values: dropEmpty(items)}
	case map[string]any:
		if key == KeyTimeRange {
			start, _ := toFloat(val["start_year"])
			end, _ := toFloat(val["end_year"])
			desc, _ := val["description"].(string)
			return Years{Start: int(start), End: int(end), Description: desc}
		}
		return Range{Min: optionalFloat(val["min"]), Max: optionalFloat(val["max"])}
	}
	if isEmptyValue(v) {
		return nil
	}
	return Exact{Value: v}
}

func dropEmpty(items []any) []any {
	out := items[:0:0]
	for _, it := range items {
		if !isEmptyValue(it) {
			out = append(out, it)
		}
	}
	return out
}

func optionalFloat(v any) *float64 {
	f, err := toFloat(v)
	if err != nil {
		return nil
	}
	return &f
}

func isEmptyValue(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case *int:
		return val == nil
	case *float64:
		return val == nil
	}
	return false
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case *int:
		if n != nil {
			return float64(*n), nil
		}
	case *float64:
		if n != nil {
			return *n, nil
		}
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err == nil && !math.IsNaN(f) {
			return f, nil
		}
		return 0, fmt.Errorf("not a number: %q", n)
	}
	return 0, fmt.Errorf("not a number: %v", v)
}

func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case fmt.Stringer:
		return s.String()
	}
	return fmt.Sprint(v)
}
