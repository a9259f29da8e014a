package urlbuilder

import (
	"fmt"
	"strings"

	"github.com/garyellow/realestate-linebot-go/internal/region"
	"github.com/garyellow/realestate-linebot-go/internal/sliceutil"
)

// Parking values.
const (
	ParkingYes = "有車位"
	ParkingNo  = "無車位"
)

// SearchParams are the listing-search parameters. Range-valued fields hold
// the user's wording ("500-1000萬", "3房以上") and are parsed on Build.
type SearchParams struct {
	City       string   `json:"城市,omitempty"`
	District   string   `json:"行政區,omitempty"`
	Types      []string `json:"房屋類型,omitempty"`
	PriceRange string   `json:"價格範圍,omitempty"`
	AreaRange  string   `json:"坪數範圍,omitempty"`
	Rooms      string   `json:"房間數,omitempty"`
	Floor      string   `json:"樓層,omitempty"`
	Age        string   `json:"屋齡,omitempty"`
	Amenities  []string `json:"設施標籤,omitempty"`
	Keyword    string   `json:"關鍵字,omitempty"`
	Parking    string   `json:"車位,omitempty"`
	Exclude4F  bool     `json:"排除4樓,omitempty"`
}

// IsZero reports whether no parameter is set.
func (p SearchParams) IsZero() bool {
	return p.City == "" && p.District == "" && len(p.Types) == 0 &&
		p.PriceRange == "" && p.AreaRange == "" && p.Rooms == "" &&
		p.Floor == "" && p.Age == "" && len(p.Amenities) == 0 &&
		p.Keyword == "" && p.Parking == "" && !p.Exclude4F
}

// Normalize canonicalizes city and district names and fills in the city
// from the district when it is missing.
func (p SearchParams) Normalize() SearchParams {
	if p.City != "" {
		p.City = region.NormalizeCity(p.City)
	}
	if p.District != "" {
		p.District = region.NormalizeDistrict(p.District)
		if p.City == "" {
			p.City = region.CityOf(p.District)
		}
	}
	p.Types = sliceutil.DeduplicateStrings(p.Types)
	p.Amenities = sliceutil.DeduplicateStrings(p.Amenities)
	return p
}

// MapLLMParams converts the model's English-keyed answer into SearchParams.
// Unknown keys are ignored.
func MapLLMParams(raw map[string]any) SearchParams {
	var p SearchParams
	for key, v := range raw {
		switch key {
		case "city":
			p.City = text(v)
		case "district":
			p.District = text(v)
		case "property_type":
			p.Types = list(v)
		case "price_range":
			p.PriceRange = text(v)
		case "area_range", "area":
			p.AreaRange = text(v)
		case "rooms":
			p.Rooms = text(v)
		case "floor":
			p.Floor = text(v)
		case "year", "age":
			p.Age = text(v)
		case "amenities":
			p.Amenities = list(v)
		case "keyword", "keywords":
			if kw := list(v); len(kw) > 0 {
				p.Keyword = kw[0]
			}
		case "special_conditions":
			for _, cond := range list(v) {
				switch {
				case strings.Contains(cond, "無車位"), strings.Contains(cond, "不含車位"):
					p.Parking = ParkingNo
				case strings.Contains(cond, "有車位"), strings.Contains(cond, "含車位"):
					p.Parking = ParkingYes
				case strings.Contains(cond, "排除4樓"), strings.Contains(cond, "不要4樓"):
					p.Exclude4F = true
				}
			}
		}
	}
	return p.Normalize()
}

func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	case []any:
		if len(t) > 0 {
			return text(t[0])
		}
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

func list(v any) []string {
	var out []string
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			if s := text(item); s != "" {
				out = append(out, s)
			}
		}
	case []string:
		for _, s := range t {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	default:
		if s := text(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}
