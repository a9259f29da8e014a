package extractor

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/garyellow/realestate-linebot-go/internal/genai"
	"github.com/garyellow/realestate-linebot-go/internal/region"
	"github.com/garyellow/realestate-linebot-go/internal/stringutil"
	"github.com/garyellow/realestate-linebot-go/internal/urlbuilder"
)

var (
	priceSpanPattern  = regexp.MustCompile(`(\d+)\s*萬?\s*(?:到|至|-|~)\s*(\d+)\s*萬`)
	priceBoundPattern = regexp.MustCompile(`(\d+)\s*萬\s*(以上|以下|以內)`)
	budgetPattern     = regexp.MustCompile(`預算\s*(\d+)\s*萬`)
	areaSpanPattern   = regexp.MustCompile(`(\d+)\s*坪?\s*(?:到|至|-|~)\s*(\d+)\s*坪`)
	areaBoundPattern  = regexp.MustCompile(`(\d+)\s*坪\s*(以上|以下)`)
	roomsBoundPattern = regexp.MustCompile(`([0-9]+|[` + cnDigits + `]+)\s*房\s*(以上|以下)?`)
	floorBoundPattern = regexp.MustCompile(`(\d+)\s*樓\s*(以上|以下)`)
	webAgePattern     = regexp.MustCompile(`屋齡\s*(\d+)\s*年?\s*(以上|以下|以內|內)`)
)

// keywordMarkers pick a search keyword out of tokens: station names,
// school districts and the like.
var keywordMarkers = []string{"站", "學區", "國小", "國中", "商圈", "重劃區"}

// amenityWords maps the word a user types to its amenity tag name.
var amenityWords = []struct {
	word    string
	amenity string
}{
	{"學校", "近學校"},
	{"公園", "近公園"},
	{"游泳池", "有游泳池"},
	{"健身", "有健身房"},
	{"捷運", "近捷運站"},
	{"市場", "近市場"},
	{"陽台", "有陽台"},
	{"警衛", "有警衛管理"},
	{"管理員", "有警衛管理"},
}

// ExtractWebParams extracts listing-search parameters. The model is asked
// first; an empty or failed answer falls back to keyword rules.
func (e *Extractor) ExtractWebParams(ctx context.Context, text string) urlbuilder.SearchParams {
	if e.llm != nil {
		messages := []genai.Message{
			genai.SystemMessage(webPrompt),
			genai.UserMessage(text),
		}
		reply, err := e.llm.Complete(ctx, messages, genai.Options{Operation: "web_params", JSON: true})
		if err == nil {
			var raw map[string]any
			if err = genai.ParseJSON(reply, &raw); err == nil {
				if p := urlbuilder.MapLLMParams(raw); !p.IsZero() {
					return p
				}
			}
		}
		if err != nil {
			e.log.WithError(err).Warn("Search parameter extraction failed, using keyword rules")
		}
	}
	return e.webParamsByRules(text)
}

func (e *Extractor) webParamsByRules(text string) urlbuilder.SearchParams {
	p := urlbuilder.SearchParams{
		City:     region.FindCity(text),
		District: region.FindDistrict(text),
		Types:    stringutil.MatchedKeywords(text, urlbuilder.TypeWords),
	}

	lower := strings.ToLower(text)
	if strings.Contains(text, "捷運") || strings.Contains(lower, "mrt") {
		p.Keyword = "捷運"
	}

	switch {
	case stringutil.ContainsAny(text, "無車位", "不含車位", "不要車位", "沒有車位"):
		p.Parking = urlbuilder.ParkingNo
	case stringutil.ContainsAny(text, "有車位", "含車位", "要車位", "附車位"):
		p.Parking = urlbuilder.ParkingYes
	}
	if stringutil.ContainsAny(text, "排除4樓", "不要4樓", "不要四樓", "排除四樓") {
		p.Exclude4F = true
	}

	switch {
	case priceSpanPattern.MatchString(text):
		m := priceSpanPattern.FindStringSubmatch(text)
		p.PriceRange = m[1] + "-" + m[2] + "萬"
	case priceBoundPattern.MatchString(text):
		m := priceBoundPattern.FindStringSubmatch(text)
		p.PriceRange = m[1] + "萬" + boundWord(m[2])
	case budgetPattern.MatchString(text):
		p.PriceRange = budgetPattern.FindStringSubmatch(text)[1] + "萬以下"
	}

	switch {
	case areaSpanPattern.MatchString(text):
		m := areaSpanPattern.FindStringSubmatch(text)
		p.AreaRange = m[1] + "-" + m[2] + "坪"
	case areaBoundPattern.MatchString(text):
		m := areaBoundPattern.FindStringSubmatch(text)
		p.AreaRange = m[1] + "坪" + m[2]
	}

	if m := roomsBoundPattern.FindStringSubmatch(text); m != nil {
		if n, ok := parseCount(m[1]); ok && n > 0 {
			p.Rooms = strconv.Itoa(n) + m[2]
		}
	}
	if m := floorBoundPattern.FindStringSubmatch(text); m != nil {
		p.Floor = m[1] + "樓" + m[2]
	}
	if m := webAgePattern.FindStringSubmatch(text); m != nil {
		p.Age = m[1] + "年" + boundWord(m[2])
	}

	for _, a := range amenityWords {
		if strings.Contains(text, a.word) {
			p.Amenities = append(p.Amenities, a.amenity)
		}
	}

	if kw := e.keywordFromTokens(text); kw != "" && (p.Keyword == "" || p.Keyword == "捷運") {
		p.Keyword = kw
	}
	return p.Normalize()
}

// keywordFromTokens returns the first token naming a station, school
// district or similar landmark.
func (e *Extractor) keywordFromTokens(text string) string {
	if e.tokenizer == nil {
		return ""
	}
	for _, tok := range e.tokenizer.Cut(text) {
		tok = strings.TrimSpace(tok)
		if stringutil.RuneLen(tok) < 2 || region.IsKnownDistrict(tok) {
			continue
		}
		for _, marker := range keywordMarkers {
			if strings.HasSuffix(tok, marker) && tok != marker {
				return tok
			}
		}
	}
	return ""
}

func boundWord(w string) string {
	if w == "以內" || w == "內" {
		return "以下"
	}
	return w
}
