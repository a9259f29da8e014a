package urlbuilder

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/garyellow/realestate-linebot-go/internal/stringutil"
)

// Shape is the form of a range value.
type Shape int

const (
	// Above is "N以上".
	Above Shape = iota + 1
	// Below is "N以下".
	Below
	// Between is "A-B".
	Between
)

// Segment suffixes used by the listing site.
const (
	SuffixPrice = "price"
	SuffixArea  = "area"
	SuffixYear  = "year"
	SuffixRoom  = "room"
	SuffixFloor = "floor"
)

// Range is a parsed range parameter. Low holds the single bound for Above
// and Below.
type Range struct {
	Shape  Shape
	Low    int
	High   int
	Suffix string
}

var (
	numberPattern = regexp.MustCompile(`\d+`)
	rangePattern  = regexp.MustCompile(`(\d+)\s*[-~到至]\s*(\d+)`)
)

// ParseRange reads "10坪以上", "5年以下", "500-1000萬" or a bare number.
// A bare number means "up to N" for rooms and "N or more" otherwise.
func ParseRange(value, suffix string) (Range, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Range{}, false
	}

	switch {
	case strings.Contains(value, "以上"):
		if n, ok := firstNumber(value); ok {
			return Range{Shape: Above, Low: n, Suffix: suffix}, true
		}
		return Range{}, false
	case strings.Contains(value, "以下"):
		if n, ok := firstNumber(value); ok {
			return Range{Shape: Below, Low: n, Suffix: suffix}, true
		}
		return Range{}, false
	}

	if m := rangePattern.FindStringSubmatch(value); m != nil {
		lo, _ := strconv.Atoi(m[1])
		hi, _ := strconv.Atoi(m[2])
		return Range{Shape: Between, Low: lo, High: hi, Suffix: suffix}, true
	}

	if stringutil.IsNumeric(value) {
		n, err := strconv.Atoi(value)
		if err != nil {
			return Range{}, false
		}
		if suffix == SuffixRoom {
			return Range{Shape: Between, Low: 1, High: n, Suffix: suffix}, true
		}
		return Range{Shape: Above, Low: n, Suffix: suffix}, true
	}
	return Range{}, false
}

// FormatRange renders r back into the text form ParseRange accepts.
func FormatRange(r Range) string {
	switch r.Shape {
	case Above:
		return fmt.Sprintf("%d以上", r.Low)
	case Below:
		return fmt.Sprintf("%d以下", r.Low)
	case Between:
		return fmt.Sprintf("%d-%d", r.Low, r.High)
	}
	return ""
}

// Segment returns the URL path segment for r, e.g. "10-up-area".
func (r Range) Segment() string {
	switch r.Shape {
	case Above:
		return fmt.Sprintf("%d-up-%s", r.Low, r.Suffix)
	case Below:
		return fmt.Sprintf("%d-down-%s", r.Low, r.Suffix)
	case Between:
		return fmt.Sprintf("%d-%d-%s", r.Low, r.High, r.Suffix)
	}
	return ""
}

// rangeSegment parses value and returns its segment, or "" when unparseable.
func rangeSegment(value, suffix string) string {
	r, ok := ParseRange(value, suffix)
	if !ok {
		return ""
	}
	return r.Segment()
}

// priceSegment follows ParseRange but never treats a bare number as a range.
func priceSegment(value string) string {
	if stringutil.IsNumeric(strings.TrimSpace(value)) {
		return ""
	}
	return rangeSegment(value, SuffixPrice)
}

func firstNumber(s string) (int, bool) {
	m := numberPattern.FindString(s)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	return n, err == nil
}
