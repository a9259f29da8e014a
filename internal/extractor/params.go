// Package extractor turns a free-text real-estate question into structured
// query parameters, using a language model when one is configured and
// keyword rules otherwise.
package extractor

import (
	"github.com/garyellow/realestate-linebot-go/internal/dataset"
	"github.com/garyellow/realestate-linebot-go/internal/filter"
)

// Elevator is the 電梯 attribute of a query. The zero value means the
// query did not mention it.
type Elevator string

const (
	ElevatorUnset   Elevator = ""
	ElevatorPresent Elevator = "有"
	ElevatorAbsent  Elevator = "無"
)

// AgeRange bounds the building age in years. Either bound may be nil.
type AgeRange struct {
	Min *int `json:"min,omitempty"`
	Max *int `json:"max,omitempty"`
}

// Params is one turn's extracted query. TimeRange is always resolved.
type Params struct {
	City        string            `json:"city,omitempty"`
	District    string            `json:"district,omitempty"`
	TimeRange   dataset.TimeRange `json:"time_range"`
	Rooms       *int              `json:"rooms,omitempty"`
	LivingRooms *int              `json:"living_rooms,omitempty"`
	Bathrooms   *int              `json:"bathrooms,omitempty"`
	Elevator    Elevator          `json:"elevator,omitempty"`
	Age         *int              `json:"age,omitempty"`
	AgeRange    *AgeRange         `json:"age_range,omitempty"`
}

// HasPlace reports whether a city or district was recognized.
func (p Params) HasPlace() bool {
	return p.City != "" || p.District != ""
}

// Filters converts p into attribute filters. City and district are not
// included; callers select the city table and pass the district separately.
func (p Params) Filters() filter.Filters {
	f := filter.Filters{}
	if !p.TimeRange.IsZero() {
		f[filter.KeyTimeRange] = filter.Years{
			Start:       p.TimeRange.StartYear,
			End:         p.TimeRange.EndYear,
			Description: p.TimeRange.Description,
		}
	}
	counts := []struct {
		column string
		value  *int
	}{
		{dataset.ColRooms, p.Rooms},
		{dataset.ColLivingRooms, p.LivingRooms},
		{dataset.ColBathrooms, p.Bathrooms},
	}
	for _, c := range counts {
		if c.value != nil {
			f[c.column] = filter.Exact{Value: *c.value}
		}
	}
	if p.Elevator != ElevatorUnset {
		f[dataset.ColElevator] = filter.Exact{Value: string(p.Elevator)}
	}
	switch {
	case p.Age != nil:
		f[dataset.ColAge] = filter.Exact{Value: *p.Age}
	case p.AgeRange != nil && (p.AgeRange.Min != nil || p.AgeRange.Max != nil):
		f[dataset.ColAge] = filter.Range{Min: floatPtr(p.AgeRange.Min), Max: floatPtr(p.AgeRange.Max)}
	}
	return f
}

func floatPtr(n *int) *float64 {
	if n == nil {
		return nil
	}
	f := float64(*n)
	return &f
}
