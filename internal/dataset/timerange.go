package dataset

import "fmt"

// TimeRange is an inclusive span of trade years. Zero years are unset.
type TimeRange struct {
	StartYear   int    `json:"start_year,omitempty"`
	EndYear     int    `json:"end_year,omitempty"`
	Description string `json:"description,omitempty"`
}

// IsZero reports whether neither bound is set.
func (r TimeRange) IsZero() bool {
	return r.StartYear == 0 && r.EndYear == 0
}

// DefaultTimeRange returns the last spanYears years up to currentYear,
// described as 近N年（S年至E年）.
func DefaultTimeRange(currentYear, spanYears int) TimeRange {
	start := currentYear - spanYears
	return TimeRange{
		StartYear:   start,
		EndYear:     currentYear,
		Description: fmt.Sprintf("近%d年（%d年至%d年）", spanYears, start, currentYear),
	}
}

// Resolve fills missing bounds and orders them. An unset range becomes the
// default span; a range with one bound borrows the other from the default.
func (r TimeRange) Resolve(currentYear, spanYears int) TimeRange {
	if r.IsZero() {
		return DefaultTimeRange(currentYear, spanYears)
	}
	if r.StartYear == 0 {
		r.StartYear = min(r.EndYear, currentYear-spanYears)
	}
	if r.EndYear == 0 {
		r.EndYear = max(r.StartYear, currentYear)
	}
	if r.StartYear > r.EndYear {
		r.StartYear, r.EndYear = r.EndYear, r.StartYear
	}
	return r
}

// Text returns the description, or a generated 2020年 / 2020年至2024年 label.
func (r TimeRange) Text() string {
	switch {
	case r.Description != "":
		return r.Description
	case r.IsZero():
		return ""
	case r.StartYear == r.EndYear:
		return fmt.Sprintf("%d年", r.StartYear)
	default:
		return fmt.Sprintf("%d年至%d年", r.StartYear, r.EndYear)
	}
}
