// Package urlbuilder maps listing-search parameters onto the Sinyi
// buy-list URL grammar. Every function here is pure.
package urlbuilder

import (
	"regexp"
	"slices"
	"strings"

	"github.com/garyellow/realestate-linebot-go/internal/region"
)

// BaseURL is the listing site's buy-list root.
const BaseURL = "https://www.sinyi.com.tw/buy/list"

// DefaultURL is returned when a search cannot be built from a query.
const DefaultURL = BaseURL + "/" + region.DefaultCityCode + "/1"

const (
	parkingYesSegment = "plane-auto-mix-mechanical-firstfloor-tower-other-yesparking"
	parkingNoSegment  = "noparking"
	exclude4FSegment  = "4f-exclude"
	sortSegment       = "default-desc"
	firstPage         = "1"
	mrtTag            = "17"
)

// TypeCodes maps property-type words to site codes.
var TypeCodes = map[string]string{
	"公寓": "apartment",
	"大樓": "dalou",
	"套房": "flat",
	"別墅": "townhouse-villa",
	"透天": "townhouse-villa",
	"辦公": "office",
}

// TypeWords lists the keys of TypeCodes in a stable order.
var TypeWords = []string{"公寓", "大樓", "套房", "別墅", "透天", "辦公"}

// Amenity is a searchable amenity tag.
type Amenity struct {
	Name string
	Code string
}

// Amenities is the ordered amenity tag table.
var Amenities = []Amenity{
	{"近學校", "16"},
	{"近公園", "19"},
	{"有游泳池", "9"},
	{"有健身房", "8"},
	{"近捷運站", "17"},
	{"近市場", "18"},
	{"有陽台", "4"},
	{"有警衛管理", "12"},
}

var mrtKeywordPattern = regexp.MustCompile(`捷運([\p{L}\p{N}_]+站|[\p{L}\p{N}_]+線)`)

// Build returns the search URL for p. query is the user's original text,
// used for amenity and station hints the parameters may have missed.
// Parameters that do not map onto the grammar are omitted.
func Build(p SearchParams, query string) string {
	parts := make([]string, 0, 14)
	add := func(seg string) {
		if seg != "" {
			parts = append(parts, seg)
		}
	}

	add(priceSegment(p.PriceRange))
	add(typeSegment(p.Types))
	switch p.Parking {
	case ParkingYes:
		add(parkingYesSegment)
	case ParkingNo:
		add(parkingNoSegment)
	}
	add(rangeSegment(p.AreaRange, SuffixArea))
	add(rangeSegment(p.Age, SuffixYear))
	add(rangeSegment(p.Rooms, SuffixRoom))
	if p.Exclude4F {
		add(exclude4FSegment)
	}

	tags := Tags(p, query)
	if len(tags) > 0 {
		add(strings.Join(tags, "-") + "-tags")
	}
	add(keywordSegment(p, query, tags))
	add(rangeSegment(p.Floor, SuffixFloor))

	add(region.CityCode(p.City))
	if p.District != "" {
		if zip, ok := region.ZipCode(p.District); ok {
			add(zip + "-zip")
		}
	}
	add(sortSegment)
	add(firstPage)

	return BaseURL + "/" + strings.Join(parts, "/")
}

func typeSegment(types []string) string {
	var codes []string
	for _, t := range types {
		if code, ok := TypeCodes[t]; ok && !slices.Contains(codes, code) {
			codes = append(codes, code)
		}
	}
	if len(codes) == 0 {
		return ""
	}
	return strings.Join(codes, "-") + "-type"
}

// Tags returns the amenity tag codes requested by p or hinted at by query,
// in table order.
func Tags(p SearchParams, query string) []string {
	var tags []string
	upper := strings.ToUpper(query)
	for _, a := range Amenities {
		found := false
		for _, want := range p.Amenities {
			if strings.Contains(a.Name, want) || strings.Contains(want, a.Name) {
				found = true
				break
			}
		}
		if !found {
			switch a.Name {
			case "近捷運站":
				found = strings.Contains(query, "捷運") || strings.Contains(upper, "MRT")
			case "有游泳池":
				found = strings.Contains(query, "游泳池")
			case "有健身房":
				found = strings.Contains(query, "健身")
			}
		}
		if found {
			tags = append(tags, a.Code)
		}
	}
	return tags
}

func keywordSegment(p SearchParams, query string, tags []string) string {
	if strings.Contains(query, "捷運") && !slices.Contains(tags, mrtTag) {
		if m := mrtKeywordPattern.FindString(query); m != "" {
			return m + "-keyword"
		}
		return "捷運-keyword"
	}
	if p.Keyword != "" {
		return p.Keyword + "-keyword"
	}
	return ""
}

// Explain describes p for the user, e.g. "搜尋：台北市、大安區、公寓".
func Explain(p SearchParams) string {
	var parts []string
	add := func(s string) {
		if s != "" {
			parts = append(parts, s)
		}
	}
	add(p.City)
	add(p.District)
	add(strings.Join(p.Types, "、"))
	add(strings.Join(p.Amenities, "、"))
	if p.Keyword != "" {
		add("關鍵字「" + p.Keyword + "」")
	}
	if p.PriceRange != "" {
		add("價格 " + p.PriceRange)
	}
	if p.AreaRange != "" {
		add("坪數 " + p.AreaRange)
	}
	if p.Exclude4F {
		add("排除4樓")
	}
	add(p.Parking)

	if len(parts) == 0 {
		return "搜尋全部房屋"
	}
	return "搜尋：" + strings.Join(parts, "、")
}
