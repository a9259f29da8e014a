package urlbuilder

import (
	"reflect"
	"testing"
)

func TestMapLLMParams(t *testing.T) {
	t.Parallel()
	raw := map[string]any{
		"city":               "臺北市",
		"district":           "大安",
		"property_type":      "公寓",
		"price_range":        "1000-2000萬",
		"area_range":         "20坪以上",
		"rooms":              float64(3),
		"floor":              "5樓以下",
		"year":               "10年以下",
		"special_conditions": []any{"有車位", "排除4樓"},
		"amenities":          []any{"近捷運", "", "近公園"},
		"keyword":            "大安森林公園",
		"unknown":            "ignored",
	}
	want := SearchParams{
		City:       "台北市",
		District:   "大安區",
		Types:      []string{"公寓"},
		PriceRange: "1000-2000萬",
		AreaRange:  "20坪以上",
		Rooms:      "3",
		Floor:      "5樓以下",
		Age:        "10年以下",
		Amenities:  []string{"近捷運", "近公園"},
		Keyword:    "大安森林公園",
		Parking:    ParkingYes,
		Exclude4F:  true,
	}
	if got := MapLLMParams(raw); !reflect.DeepEqual(got, want) {
		t.Errorf("MapLLMParams() =\n%+v\nwant\n%+v", got, want)
	}
}

func TestMapLLMParams_Parking(t *testing.T) {
	t.Parallel()
	tests := []struct {
		cond string
		want string
	}{
		{"有車位", ParkingYes},
		{"含車位", ParkingYes},
		{"無車位", ParkingNo},
		{"不含車位", ParkingNo},
		{"高樓層", ""},
	}
	for _, tt := range tests {
		got := MapLLMParams(map[string]any{"special_conditions": []any{tt.cond}})
		if got.Parking != tt.want {
			t.Errorf("special_conditions %q: Parking = %q, want %q", tt.cond, got.Parking, tt.want)
		}
	}
}

func TestSearchParams_Normalize(t *testing.T) {
	t.Parallel()
	p := SearchParams{District: "板橋", Types: []string{"公寓", "公寓"}}.Normalize()
	if p.City != "新北市" || p.District != "板橋區" {
		t.Errorf("Normalize() city/district = %q/%q", p.City, p.District)
	}
	if len(p.Types) != 1 {
		t.Errorf("Normalize() types = %v", p.Types)
	}
	if (SearchParams{}).IsZero() != true || p.IsZero() {
		t.Error("IsZero mismatch")
	}
}
