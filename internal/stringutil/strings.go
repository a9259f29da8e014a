// Package stringutil provides common string manipulation utilities.
package stringutil

import (
	"strings"
	"unicode/utf8"
)

// IsNumeric checks if a string contains only digits.
// Returns false for empty strings.
func IsNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ContainsAny reports whether s contains at least one of the substrings.
// Empty substrings are ignored.
func ContainsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// MatchedKeywords returns the keywords found in s, in keyword order.
func MatchedKeywords(s string, keywords []string) []string {
	var found []string
	for _, kw := range keywords {
		if kw != "" && strings.Contains(s, kw) {
			found = append(found, kw)
		}
	}
	return found
}

// RuneLen returns the number of characters (not bytes) in s.
// Chinese text is measured this way throughout the query pipeline.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}

// Truncate shortens s to at most n characters, appending "..." when cut.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}
