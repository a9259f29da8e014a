package extractor

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/garyellow/realestate-linebot-go/internal/dataset"
	"github.com/garyellow/realestate-linebot-go/internal/region"
)

const cnDigits = "零一二兩三四五六七八九十"

var (
	recentYearsPattern = regexp.MustCompile(`近\s*([0-9]+|[` + cnDigits + `]+)\s*年`)
	yearSpanPattern    = regexp.MustCompile(`(\d{3,4})\s*年?\s*(?:到|至|-|~)\s*(\d{3,4})\s*年`)
	singleYearPattern  = regexp.MustCompile(`(\d{4})\s*年`)

	roomsPattern       = regexp.MustCompile(`([0-9]+|[` + cnDigits + `]+)\s*房`)
	livingRoomsPattern = regexp.MustCompile(`([0-9]+|[` + cnDigits + `]+)\s*廳`)
	bathroomsPattern   = regexp.MustCompile(`([0-9]+|[` + cnDigits + `]+)\s*(?:衛|衛浴|套衛)`)

	ageBelowPattern = regexp.MustCompile(`屋齡\s*(\d+)\s*年?\s*(?:以下|以內|內)`)
	ageAbovePattern = regexp.MustCompile(`屋齡\s*(\d+)\s*年?\s*以上`)
	ageRangePattern = regexp.MustCompile(`屋齡\s*(\d+)\s*(?:到|至|-|~)\s*(\d+)\s*年`)
	ageExactPattern = regexp.MustCompile(`屋齡\s*(\d+)\s*年?`)
)

// extractByRules is the keyword path used when no language model is
// configured. It only fills fields the text states outright.
func (e *Extractor) extractByRules(text string) Params {
	p := Params{
		City:     region.FindCity(text),
		District: region.FindDistrict(text),
	}
	if p.City == "" && p.District != "" {
		p.City = region.CityOf(p.District)
	}

	tr, _ := timeRangeFromText(text, e.currentYear)
	p.TimeRange = e.resolve(tr)

	p.Rooms = countFrom(roomsPattern, text)
	p.LivingRooms = countFrom(livingRoomsPattern, text)
	p.Bathrooms = countFrom(bathroomsPattern, text)

	switch {
	case strings.Contains(text, "無電梯"), strings.Contains(text, "沒有電梯"),
		strings.Contains(text, "沒電梯"), strings.Contains(text, "不要電梯"):
		p.Elevator = ElevatorAbsent
	case strings.Contains(text, "有電梯"), strings.Contains(text, "電梯大樓"):
		p.Elevator = ElevatorPresent
	}

	p.Age, p.AgeRange = ageFromText(text)
	return p
}

// timeRangeFromText reads 近N年, 2018到2022年 and 2020年 forms.
func timeRangeFromText(text string, currentYear int) (dataset.TimeRange, bool) {
	if m := recentYearsPattern.FindStringSubmatch(text); m != nil {
		if n, ok := parseCount(m[1]); ok && n > 0 {
			start := currentYear - n + 1
			return dataset.TimeRange{
				StartYear:   start,
				EndYear:     currentYear,
				Description: m[0] + "（" + strconv.Itoa(start) + "年至" + strconv.Itoa(currentYear) + "年）",
			}, true
		}
	}
	if m := yearSpanPattern.FindStringSubmatch(text); m != nil {
		start, _ := strconv.Atoi(m[1])
		end, _ := strconv.Atoi(m[2])
		start, end = westernYear(start), westernYear(end)
		if start > end {
			start, end = end, start
		}
		return dataset.TimeRange{StartYear: start, EndYear: end}, true
	}
	if m := singleYearPattern.FindStringSubmatch(text); m != nil {
		y, _ := strconv.Atoi(m[1])
		return dataset.TimeRange{StartYear: y, EndYear: y}, true
	}
	return dataset.TimeRange{}, false
}

func ageFromText(text string) (*int, *AgeRange) {
	if m := ageRangePattern.FindStringSubmatch(text); m != nil {
		lo, _ := strconv.Atoi(m[1])
		hi, _ := strconv.Atoi(m[2])
		return nil, &AgeRange{Min: &lo, Max: &hi}
	}
	if m := ageBelowPattern.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		return nil, &AgeRange{Max: &n}
	}
	if m := ageAbovePattern.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		return nil, &AgeRange{Min: &n}
	}
	if m := ageExactPattern.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		return &n, nil
	}
	return nil, nil
}

func countFrom(re *regexp.Regexp, text string) *int {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	n, ok := parseCount(m[1])
	if !ok {
		return nil
	}
	return &n
}

// parseCount reads an Arabic number or a small Chinese numeral (一 to 九十九).
func parseCount(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}

	digit := func(r rune) (int, bool) {
		switch r {
		case '零':
			return 0, true
		case '一':
			return 1, true
		case '二', '兩':
			return 2, true
		case '三':
			return 3, true
		case '四':
			return 4, true
		case '五':
			return 5, true
		case '六':
			return 6, true
		case '七':
			return 7, true
		case '八':
			return 8, true
		case '九':
			return 9, true
		}
		return 0, false
	}

	runes := []rune(s)
	tens := -1
	for i, r := range runes {
		if r == '十' {
			tens = i
			break
		}
	}
	if tens < 0 {
		if len(runes) != 1 {
			return 0, false
		}
		return digit(runes[0])
	}

	high := 1
	if tens > 0 {
		d, ok := digit(runes[0])
		if !ok || tens != 1 {
			return 0, false
		}
		high = d
	}
	low := 0
	switch rest := runes[tens+1:]; len(rest) {
	case 0:
	case 1:
		d, ok := digit(rest[0])
		if !ok {
			return 0, false
		}
		low = d
	default:
		return 0, false
	}
	return high*10 + low, true
}

// westernYear converts ROC years (民國) to Western years.
func westernYear(y int) int {
	if y > 0 && y < 1000 {
		return y + 1911
	}
	return y
}
