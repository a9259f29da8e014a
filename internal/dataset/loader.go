package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/transform"
)

// ReadOptions controls CSV parsing.
type ReadOptions struct {
	// City fills 縣市 for files that do not carry the column.
	City string
}

// headerAliases maps legacy or raw export headers to canonical column names.
var headerAliases = map[string]string{
	"土地位置建物門牌": ColAddress,
	"總價":       ColTotalPrice,
	"格局-房":     ColRooms,
	"格局-廳":     ColLivingRooms,
	"格局-衛":     ColBathrooms,
	"有無電梯":     ColElevator,
}

// Area headers in square meters, converted to 坪 when 建物移轉總坪數 is absent.
var sqmAreaHeaders = []string{"建物移轉總面積平方公尺", "建物面積平方公尺"}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Read parses a transaction CSV. Big5 input is detected and decoded.
// District, transaction type and building type are always kept as text.
func Read(r io.Reader, opts ReadOptions) (*Table, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if !utf8.Valid(raw) {
		decoded, _, err := transform.Bytes(traditionalchinese.Big5.NewDecoder(), raw)
		if err != nil {
			return nil, fmt.Errorf("decode big5: %w", err)
		}
		raw = decoded
	}

	cr := csv.NewReader(bytes.NewReader(raw))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return NewTable(nil, nil), nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if canonical, ok := headerAliases[h]; ok {
			if _, taken := index[canonical]; !taken {
				index[canonical] = i
			}
			continue
		}
		index[h] = i
	}

	sqmAreaIdx := -1
	if _, ok := index[ColAreaPing]; !ok {
		for _, h := range sqmAreaHeaders {
			if i, ok := index[h]; ok {
				sqmAreaIdx = i
				break
			}
		}
	}

	var rows []Transaction
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}

		get := func(col string) string {
			if i, ok := index[col]; ok && i < len(rec) {
				return strings.TrimSpace(rec[i])
			}
			return ""
		}

		t := Transaction{
			City:         get(ColCity),
			District:     get(ColDistrict),
			Address:      get(ColAddress),
			RawTradeDate: get(ColTradeDate),
			TradeType:    get(ColTradeType),
			BuildingType: get(ColBuildingType),
			Elevator:     get(ColElevator),
			Target:       get(ColTarget),
			TradeYear:    parseFloat(get(ColTradeYear)),
			TotalPrice:   parseFloat(get(ColTotalPrice)),
			UnitPriceSqm: parseFloat(get(ColUnitPriceSqm)),
			UnitPrice:    parseFloat(get(ColUnitPrice)),
			Age:          parseFloat(get(ColAge)),
			AreaPing:     parseFloat(get(ColAreaPing)),
			Rooms:        parseFloat(get(ColRooms)),
			LivingRooms:  parseFloat(get(ColLivingRooms)),
			Bathrooms:    parseFloat(get(ColBathrooms)),
		}
		if t.City == "" {
			t.City = opts.City
		}
		if sqmAreaIdx >= 0 && sqmAreaIdx < len(rec) {
			t.AreaPing = parseFloat(rec[sqmAreaIdx]) / SquareMetersPerPing
		}
		if math.IsNaN(t.UnitPrice) && !math.IsNaN(t.UnitPriceSqm) {
			t.UnitPrice = t.UnitPriceSqm * SquareMetersPerPing
		}
		if d, ok := ParseTradeDate(t.RawTradeDate); ok {
			t.TradeDate = d
			if math.IsNaN(t.TradeYear) {
				t.TradeYear = float64(d.Year())
			}
		}
		rows = append(rows, t)
	}

	columns := make([]string, 0, len(index)+3)
	for col := range index {
		columns = append(columns, col)
	}
	if opts.City != "" {
		columns = append(columns, ColCity)
	}
	if sqmAreaIdx >= 0 {
		columns = append(columns, ColAreaPing)
	}
	if _, ok := index[ColUnitPriceSqm]; ok {
		columns = append(columns, ColUnitPrice)
	}
	if _, ok := index[ColTradeDate]; ok {
		columns = append(columns, ColTradeYear)
	}
	return NewTable(rows, columns), nil
}

func parseFloat(s string) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006-01-02 15:04:05",
	"2006/1/2",
	"2006-1-2",
	"20060102",
}

// ParseTradeDate parses Gregorian dates in common layouts and ROC-calendar
// dates such as 1120512 (民國112年5月12日).
func ParseTradeDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if isDigits(s) && (len(s) == 6 || len(s) == 7) {
		rocYear, err := strconv.Atoi(s[:len(s)-4])
		if err != nil {
			return time.Time{}, false
		}
		s = fmt.Sprintf("%04d%s", rocYear+1911, s[len(s)-4:])
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
