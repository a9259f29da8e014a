// Package dataset defines the in-memory transaction table and loads it from
// the actual-price-registration CSV exports.
package dataset

import (
	"math"
	"time"
)

// Column names as they appear in the source files.
const (
	ColCity         = "縣市"
	ColDistrict     = "鄉鎮市區"
	ColAddress      = "地址"
	ColTradeDate    = "交易年月日"
	ColTradeYear    = "交易年度"
	ColTradeType    = "交易類別"
	ColTotalPrice   = "總價元"
	ColUnitPriceSqm = "單價元平方公尺"
	ColUnitPrice    = "每坪單價"
	ColBuildingType = "建物型態"
	ColElevator     = "電梯"
	ColAge          = "屋齡"
	ColAreaPing     = "建物移轉總坪數"
	ColRooms        = "建物現況格局-房"
	ColLivingRooms  = "建物現況格局-廳"
	ColBathrooms    = "建物現況格局-衛"
	ColTarget       = "交易標的"
)

// SquareMetersPerPing converts 平方公尺 to 坪.
const SquareMetersPerPing = 3.30579

// Transaction is one registered sale. Missing numeric values are NaN.
type Transaction struct {
	City         string
	District     string
	Address      string
	RawTradeDate string
	TradeDate    time.Time // zero when RawTradeDate could not be parsed
	TradeYear    float64
	TradeType    string
	TotalPrice   float64
	UnitPriceSqm float64
	UnitPrice    float64 // per ping
	BuildingType string
	Elevator     string // 有, 無 or empty
	Age          float64
	AreaPing     float64
	Rooms        float64
	LivingRooms  float64
	Bathrooms    float64
	Target       string
}

// Field returns the value stored under a column name: a string for text
// columns and a float64 for numeric ones. ok is false for unknown columns
// and for missing values.
func (t *Transaction) Field(column string) (value any, ok bool) {
	switch column {
	case ColCity:
		return text(t.City)
	case ColDistrict:
		return text(t.District)
	case ColAddress:
		return text(t.Address)
	case ColTradeDate:
		return text(t.RawTradeDate)
	case ColTradeType:
		return text(t.TradeType)
	case ColBuildingType:
		return text(t.BuildingType)
	case ColElevator:
		return text(t.Elevator)
	case ColTarget:
		return text(t.Target)
	case ColTradeYear:
		return number(t.TradeYear)
	case ColTotalPrice:
		return number(t.TotalPrice)
	case ColUnitPriceSqm:
		return number(t.UnitPriceSqm)
	case ColUnitPrice:
		return number(t.UnitPrice)
	case ColAge:
		return number(t.Age)
	case ColAreaPing:
		return number(t.AreaPing)
	case ColRooms:
		return number(t.Rooms)
	case ColLivingRooms:
		return number(t.LivingRooms)
	case ColBathrooms:
		return number(t.Bathrooms)
	}
	return nil, false
}

// IsNumericColumn reports whether Field returns float64 for column.
func IsNumericColumn(column string) bool {
	switch column {
	case ColTradeYear, ColTotalPrice, ColUnitPriceSqm, ColUnitPrice, ColAge,
		ColAreaPing, ColRooms, ColLivingRooms, ColBathrooms:
		return true
	}
	return false
}

func text(s string) (any, bool) {
	return s, s != ""
}

func number(f float64) (any, bool) {
	return f, !math.IsNaN(f)
}
