package genai

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	fencedJSON = regexp.MustCompile("(?s)```json\\s*(.+?)\\s*```")
	fencedAny  = regexp.MustCompile("(?s)```\\s*(.+?)\\s*```")
)

// ParseJSON decodes a JSON object from model output. It tries the whole
// text, then a fenced ```json block, then the first balanced {...} span.
func ParseJSON(text string, v any) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return errors.New("empty model output")
	}

	if err := json.Unmarshal([]byte(text), v); err == nil {
		return nil
	}
	for _, re := range []*regexp.Regexp{fencedJSON, fencedAny} {
		if m := re.FindStringSubmatch(text); len(m) > 1 {
			if err := json.Unmarshal([]byte(m[1]), v); err == nil {
				return nil
			}
		}
	}
	if start := strings.IndexByte(text, '{'); start >= 0 {
		if obj := balancedObject(text[start:]); obj != "" {
			if err := json.Unmarshal([]byte(obj), v); err == nil {
				return nil
			}
		}
	}
	return fmt.Errorf("no JSON object in model output: %.80q", text)
}

// balancedObject returns the prefix of s up to the brace closing s[0],
// ignoring braces inside strings.
func balancedObject(s string) string {
	depth := 0
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{':
			depth++
		case ch == '}':
			depth--
			if depth == 0 {
				return s[:i+1]
			}
		}
	}
	return ""
}
