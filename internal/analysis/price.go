// Package analysis computes price statistics and price trends over
// transaction tables and formats them as user-facing Chinese text.
package analysis

import (
	"cmp"
	"math"
	"slices"

	"github.com/montanaflynn/stats"

	"github.com/garyellow/realestate-linebot-go/internal/dataset"
	"github.com/garyellow/realestate-linebot-go/internal/filter"
)

// ErrNoPriceData is the error marker of an empty PriceStats.
const ErrNoPriceData = "找不到相關數據"

// rankingMinRows is the row count above which a district ranking is added.
const rankingMinRows = 10

// PriceStats summarizes 每坪單價 over a filtered table.
type PriceStats struct {
	Count    int
	District string

	// AvgPrice is nil when no rows matched.
	AvgPrice      *float64
	AvgTotalPrice float64
	AvgSizePing   float64
	Median        float64
	Min           float64
	Max           float64
	Std           float64

	DistrictRanking []DistrictPrice
	Err             string
}

// DistrictPrice is one row of the district ranking.
type DistrictPrice struct {
	District string
	AvgPrice float64
}

// CalculateAveragePrice narrows table to district (when given) and filters,
// then computes price statistics. A district absent from the table matches
// no rows. It never fails: an empty result carries Count 0, a nil AvgPrice
// and ErrNoPriceData.
func CalculateAveragePrice(table *dataset.Table, district string, filters filter.Filters) PriceStats {
	if district != "" {
		table = table.Where(func(t *dataset.Transaction) bool { return t.District == district })
	}
	table = filter.Apply(table, filters)

	if table.Len() == 0 {
		return PriceStats{District: district, Err: ErrNoPriceData}
	}

	rows := table.Rows()
	unit := column(rows, func(t *dataset.Transaction) float64 { return t.UnitPrice })
	avg := mean(unit)

	stats := PriceStats{
		Count:         len(rows),
		District:      district,
		AvgPrice:      &avg,
		AvgTotalPrice: mean(column(rows, func(t *dataset.Transaction) float64 { return t.TotalPrice })),
		AvgSizePing:   mean(column(rows, func(t *dataset.Transaction) float64 { return t.AreaPing })),
		Median:        median(unit),
		Min:           minOf(unit),
		Max:           maxOf(unit),
		Std:           sampleStd(unit),
	}
	if district == "" && stats.Count > rankingMinRows {
		stats.DistrictRanking = rankDistricts(rows)
	}
	return stats
}

func rankDistricts(rows []dataset.Transaction) []DistrictPrice {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for i := range rows {
		r := &rows[i]
		if r.District == "" || math.IsNaN(r.UnitPrice) {
			continue
		}
		sums[r.District] += r.UnitPrice
		counts[r.District]++
	}

	out := make([]DistrictPrice, 0, len(sums))
	for d, sum := range sums {
		out = append(out, DistrictPrice{District: d, AvgPrice: round(sum/float64(counts[d]), 2)})
	}
	slices.SortFunc(out, func(a, b DistrictPrice) int {
		if c := cmp.Compare(b.AvgPrice, a.AvgPrice); c != 0 {
			return c
		}
		return cmp.Compare(a.District, b.District)
	})
	return out
}

// column collects the non-NaN values of one numeric field.
func column(rows []dataset.Transaction, get func(*dataset.Transaction) float64) []float64 {
	out := make([]float64, 0, len(rows))
	for i := range rows {
		if v := get(&rows[i]); !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// describe applies a statistic to xs, yielding NaN when xs is empty.
func describe(f func(stats.Float64Data) (float64, error), xs []float64) float64 {
	v, err := f(xs)
	if err != nil {
		return math.NaN()
	}
	return v
}

func mean(xs []float64) float64   { return describe(stats.Mean, xs) }
func median(xs []float64) float64 { return describe(stats.Median, xs) }
func minOf(xs []float64) float64  { return describe(stats.Min, xs) }
func maxOf(xs []float64) float64  { return describe(stats.Max, xs) }

// sampleStd is the n-1 standard deviation; it needs two values.
func sampleStd(xs []float64) float64 {
	if len(xs) < 2 {
		return math.NaN()
	}
	return describe(stats.StandardDeviationSample, xs)
}

func round(x float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(x*p) / p
}
