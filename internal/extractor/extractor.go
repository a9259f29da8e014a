package extractor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/garyellow/realestate-linebot-go/internal/dataset"
	"github.com/garyellow/realestate-linebot-go/internal/genai"
	"github.com/garyellow/realestate-linebot-go/internal/logger"
	"github.com/garyellow/realestate-linebot-go/internal/region"
)

// Options configures an Extractor.
type Options struct {
	// LLM answers the extraction prompts. Nil selects the keyword rules.
	LLM         genai.Completer
	CurrentYear int
	SpanYears   int
	Tokenizer   Tokenizer
	Logger      *logger.Logger
}

// Extractor turns query text into Params and listing-search parameters.
type Extractor struct {
	llm         genai.Completer
	currentYear int
	spanYears   int
	tokenizer   Tokenizer
	log         *logger.Logger
}

// New creates an Extractor.
func New(opts Options) *Extractor {
	if opts.CurrentYear == 0 {
		opts.CurrentYear = time.Now().Year()
	}
	if opts.SpanYears <= 0 {
		opts.SpanYears = 10
	}
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	return &Extractor{
		llm:         opts.LLM,
		currentYear: opts.CurrentYear,
		spanYears:   opts.SpanYears,
		tokenizer:   opts.Tokenizer,
		log:         opts.Logger.WithModule("extractor"),
	}
}

// DefaultParams is the record returned when extraction fails: the default
// time span and nothing else.
func (e *Extractor) DefaultParams() Params {
	return Params{TimeRange: dataset.DefaultTimeRange(e.currentYear, e.spanYears)}
}

// Extract never fails. Model errors and malformed answers are logged and
// yield DefaultParams.
func (e *Extractor) Extract(ctx context.Context, text string) Params {
	if e.llm == nil {
		return e.extractByRules(text)
	}

	messages := []genai.Message{
		genai.SystemMessage(buildQueryPrompt(e.currentYear)),
		genai.UserMessage("使用者問題：" + text),
	}
	reply, err := e.llm.Complete(ctx, messages, genai.Options{Operation: "extract", JSON: true})
	if err != nil {
		e.log.WithError(err).Warn("Parameter extraction failed, using default time range")
		return e.DefaultParams()
	}

	var raw map[string]any
	if err := genai.ParseJSON(reply, &raw); err != nil {
		e.log.WithError(err).Warn("Unparseable extraction reply, using default time range")
		return e.DefaultParams()
	}
	p, err := e.fromRaw(raw)
	if err != nil {
		e.log.WithError(err).Warn("Invalid extraction reply, using default time range")
		return e.DefaultParams()
	}
	e.log.WithFields(map[string]any{
		"city":       p.City,
		"district":   p.District,
		"time_range": p.TimeRange.Text(),
	}).Debug("Parameters extracted")
	return p
}

// fromRaw validates and normalizes the model's answer.
func (e *Extractor) fromRaw(raw map[string]any) (Params, error) {
	var p Params
	var err error

	if p.City, err = stringField(raw, fieldCity); err != nil {
		return Params{}, err
	}
	if p.City != "" {
		p.City = region.NormalizeCity(p.City)
		if !region.IsValidCity(p.City) {
			p.City = ""
		}
	}
	if p.District, err = stringField(raw, fieldDistrict); err != nil {
		return Params{}, err
	}
	if p.District != "" {
		p.District = region.NormalizeDistrict(p.District)
		if p.City == "" {
			p.City = region.CityOf(p.District)
		}
	}

	tr, err := e.timeRange(raw[fieldTimeRange])
	if err != nil {
		return Params{}, err
	}
	p.TimeRange = e.resolve(tr)

	if p.Rooms, err = intField(raw, fieldRooms); err != nil {
		return Params{}, err
	}
	if p.LivingRooms, err = intField(raw, fieldLivingRooms); err != nil {
		return Params{}, err
	}
	if p.Bathrooms, err = intField(raw, fieldBathrooms); err != nil {
		return Params{}, err
	}
	p.Elevator = elevatorOf(raw[fieldElevator])
	if p.Age, p.AgeRange, err = ageOf(raw[fieldAge]); err != nil {
		return Params{}, err
	}
	return p, nil
}

// resolve applies the default span to a missing range and labels ranges
// that came without a description.
func (e *Extractor) resolve(tr dataset.TimeRange) dataset.TimeRange {
	tr = tr.Resolve(e.currentYear, e.spanYears)
	if tr.Description == "" {
		tr.Description = tr.Text()
	}
	return tr
}

// timeRange accepts an object, a JSON string holding an object, or a
// phrase such as 近3年.
func (e *Extractor) timeRange(v any) (dataset.TimeRange, error) {
	switch t := v.(type) {
	case nil:
		return dataset.TimeRange{}, nil
	case map[string]any:
		return timeRangeFromMap(t)
	case string:
		s := strings.TrimSpace(t)
		if s == "" || strings.EqualFold(s, "null") || strings.EqualFold(s, "none") {
			return dataset.TimeRange{}, nil
		}
		var m map[string]any
		if err := genai.ParseJSON(s, &m); err == nil {
			return timeRangeFromMap(m)
		}
		if err := genai.ParseJSON(strings.ReplaceAll(s, "'", `"`), &m); err == nil {
			return timeRangeFromMap(m)
		}
		if tr, ok := timeRangeFromText(s, e.currentYear); ok {
			return tr, nil
		}
		return dataset.TimeRange{}, fmt.Errorf("unreadable %s: %q", fieldTimeRange, s)
	}
	return dataset.TimeRange{}, fmt.Errorf("unexpected %s type %T", fieldTimeRange, v)
}

func timeRangeFromMap(m map[string]any) (dataset.TimeRange, error) {
	var tr dataset.TimeRange
	for key, dst := range map[string]*int{"start_year": &tr.StartYear, "end_year": &tr.EndYear} {
		n, err := toInt(m[key])
		if err != nil {
			return dataset.TimeRange{}, fmt.Errorf("%s.%s: %w", fieldTimeRange, key, err)
		}
		if n != nil {
			*dst = westernYear(*n)
		}
	}
	if d, ok := m["description"].(string); ok {
		tr.Description = strings.TrimSpace(d)
	}
	if tr.StartYear < 0 || tr.EndYear < 0 {
		return dataset.TimeRange{}, errors.New("negative year")
	}
	return tr, nil
}

func stringField(raw map[string]any, key string) (string, error) {
	switch v := raw[key].(type) {
	case nil:
		return "", nil
	case string:
		s := strings.TrimSpace(v)
		if strings.EqualFold(s, "null") {
			return "", nil
		}
		return s, nil
	default:
		return "", fmt.Errorf("%s: want string, got %T", key, v)
	}
}

func intField(raw map[string]any, key string) (*int, error) {
	n, err := toInt(raw[key])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

// toInt accepts JSON numbers, digit strings and strings such as "3房".
func toInt(v any) (*int, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case float64:
		if math.IsNaN(t) || t != math.Trunc(t) {
			return nil, fmt.Errorf("not an integer: %v", t)
		}
		n := int(t)
		return &n, nil
	case int:
		return &t, nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" || strings.EqualFold(s, "null") {
			return nil, nil
		}
		if n, err := strconv.Atoi(s); err == nil {
			return &n, nil
		}
		digits := strings.TrimRightFunc(s, func(r rune) bool { return !strings.ContainsRune("0123456789"+cnDigits, r) })
		if n, ok := parseCount(digits); ok {
			return &n, nil
		}
		return nil, fmt.Errorf("not an integer: %q", s)
	}
	return nil, fmt.Errorf("not an integer: %T", v)
}

func elevatorOf(v any) Elevator {
	switch t := v.(type) {
	case bool:
		if t {
			return ElevatorPresent
		}
		return ElevatorAbsent
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		switch s {
		case "有", "有電梯", "是", "true", "yes":
			return ElevatorPresent
		case "無", "無電梯", "沒有", "沒有電梯", "否", "false", "no":
			return ElevatorAbsent
		}
	}
	return ElevatorUnset
}

// ageOf reads 屋齡 as a number, a {min,max} object or a phrase such as
// "10年以下".
func ageOf(v any) (*int, *AgeRange, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil, nil
	case map[string]any:
		lo, err := toInt(t["min"])
		if err != nil {
			return nil, nil, fmt.Errorf("%s.min: %w", fieldAge, err)
		}
		hi, err := toInt(t["max"])
		if err != nil {
			return nil, nil, fmt.Errorf("%s.max: %w", fieldAge, err)
		}
		if lo == nil && hi == nil {
			return nil, nil, nil
		}
		return nil, &AgeRange{Min: lo, Max: hi}, nil
	case string:
		if age, r := ageFromText("屋齡" + strings.TrimSpace(t)); age != nil || r != nil {
			return age, r, nil
		}
	}
	n, err := toInt(v)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", fieldAge, err)
	}
	return n, nil, nil
}
