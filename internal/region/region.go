// Package region holds the administrative vocabulary for 台北市 and 新北市:
// canonical city names, district lists, short-form normalization and the
// postal codes used by listing-site URLs.
package region

import (
	"slices"
	"strings"
)

// Canonical city names.
const (
	Taipei    = "台北市"
	NewTaipei = "新北市"
)

// Cities lists the supported cities in display order.
var Cities = []string{Taipei, NewTaipei}

// TaipeiDistricts are the districts offered to the parameter extractor for 台北市.
var TaipeiDistricts = []string{
	"大安區", "信義區", "中正區", "松山區", "大同區", "萬華區",
	"文山區", "南港區", "內湖區", "士林區", "北投區",
}

// NewTaipeiDistricts are the districts offered to the parameter extractor for 新北市.
var NewTaipeiDistricts = []string{
	"板橋區", "三重區", "中和區", "永和區", "新莊區", "新店區", "土城區", "蘆洲區",
	"汐止區", "樹林區", "淡水區", "三峽區", "鶯歌區", "林口區", "五股區", "泰山區",
	"瑞芳區", "八里區", "深坑區", "石碇區", "三芝區", "金山區", "萬里區", "平溪區",
	"雙溪區", "貢寮區", "坪林區", "石門區", "烏來區",
}

// extraDistricts are recognized for normalization and URLs but are not part
// of the extractor's valid list.
var extraDistricts = map[string]string{
	"中山區": Taipei,
}

var (
	districtCity = map[string]string{}
	shortToFull  = map[string]string{}
	cityAliases  = map[string]string{
		"台北市": Taipei, "臺北市": Taipei, "台北": Taipei, "臺北": Taipei, "北市": Taipei,
		"新北市": NewTaipei, "新北": NewTaipei, "臺北縣": NewTaipei, "台北縣": NewTaipei,
	}
)

func init() {
	register := func(full, city string) {
		districtCity[full] = city
		shortToFull[strings.TrimSuffix(full, "區")] = full
	}
	for _, d := range TaipeiDistricts {
		register(d, Taipei)
	}
	for _, d := range NewTaipeiDistricts {
		register(d, NewTaipei)
	}
	for d, c := range extraDistricts {
		register(d, c)
	}
}

// NormalizeCity maps spelling variants (臺北市, 台北, 新北) to the canonical
// city name. Unknown names are returned trimmed and unchanged.
func NormalizeCity(name string) string {
	name = strings.TrimSpace(name)
	if c, ok := cityAliases[name]; ok {
		return c
	}
	return name
}

// IsValidCity reports whether name is a supported canonical city.
func IsValidCity(name string) bool {
	return slices.Contains(Cities, name)
}

// NormalizeDistrict maps a short form ("板橋") to its full name ("板橋區").
// Full names pass through; unknown names are returned trimmed and unchanged.
func NormalizeDistrict(name string) string {
	name = strings.TrimSpace(name)
	if _, ok := districtCity[name]; ok {
		return name
	}
	if full, ok := shortToFull[name]; ok {
		return full
	}
	return name
}

// IsKnownDistrict reports whether name (short or full) is a known district.
func IsKnownDistrict(name string) bool {
	_, ok := districtCity[NormalizeDistrict(name)]
	return ok
}

// CityOf returns the city a district belongs to, or "" when unknown.
func CityOf(district string) string {
	return districtCity[NormalizeDistrict(district)]
}

// DistrictsOf returns the extractor-facing district list for a city.
func DistrictsOf(city string) []string {
	switch NormalizeCity(city) {
	case Taipei:
		return TaipeiDistricts
	case NewTaipei:
		return NewTaipeiDistricts
	}
	return nil
}

// FindCity returns the first city alias mentioned in text, canonicalized.
func FindCity(text string) string {
	best, bestIdx, bestLen := "", -1, 0
	for alias, city := range cityAliases {
		idx := strings.Index(text, alias)
		if idx < 0 {
			continue
		}
		if bestIdx < 0 || idx < bestIdx || (idx == bestIdx && len(alias) > bestLen) {
			best, bestIdx, bestLen = city, idx, len(alias)
		}
	}
	return best
}

// FindDistrict returns the earliest district mentioned in text, as a full
// name. Full names win over short forms at the same position.
func FindDistrict(text string) string {
	// The broker brand name contains a district name.
	text = strings.ReplaceAll(text, "信義房屋", "")
	best, bestIdx, bestLen := "", -1, 0
	consider := func(token, full string) {
		idx := strings.Index(text, token)
		if idx < 0 {
			return
		}
		if bestIdx < 0 || idx < bestIdx || (idx == bestIdx && len(token) > bestLen) {
			best, bestIdx, bestLen = full, idx, len(token)
		}
	}
	for full := range districtCity {
		consider(full, full)
	}
	for short, full := range shortToFull {
		consider(short, full)
	}
	return best
}
