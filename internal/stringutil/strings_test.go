package stringutil

import (
	"slices"
	"testing"
)

func TestIsNumeric(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"Valid digits", "123456", true},
		{"Single digit", "3", true},
		{"Empty string", "", false},
		{"Contains letter", "123a456", false},
		{"Contains space", "123 456", false},
		{"Chinese numeral", "三", false},
		{"Range", "10-20", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsNumeric(tt.input)
			if got != tt.want {
				t.Errorf("IsNumeric(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestContainsAny(t *testing.T) {
	tests := []struct {
		name string
		s    string
		subs []string
		want bool
	}{
		{"One present", "大安區房價", []string{"行情", "房價"}, true},
		{"None present", "大安區", []string{"行情", "房價"}, false},
		{"Empty subs ignored", "大安區", []string{""}, false},
		{"No subs", "大安區", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ContainsAny(tt.s, tt.subs...); got != tt.want {
				t.Errorf("ContainsAny(%q, %v) = %v, want %v", tt.s, tt.subs, got, tt.want)
			}
		})
	}
}

func TestMatchedKeywords(t *testing.T) {
	got := MatchedKeywords("找大安區的公寓或套房", []string{"大樓", "公寓", "套房"})
	if !slices.Equal(got, []string{"公寓", "套房"}) {
		t.Errorf("MatchedKeywords = %v", got)
	}
	if got := MatchedKeywords("", []string{"公寓"}); got != nil {
		t.Errorf("MatchedKeywords on empty text = %v, want nil", got)
	}
}

func TestRuneLenAndTruncate(t *testing.T) {
	if n := RuneLen("台北市大安區"); n != 6 {
		t.Errorf("RuneLen = %d, want 6", n)
	}
	tests := []struct {
		s    string
		n    int
		want string
	}{
		{"台北市大安區", 3, "台北市..."},
		{"台北市", 3, "台北市"},
		{"台北市", 0, ""},
	}
	for _, tt := range tests {
		if got := Truncate(tt.s, tt.n); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.s, tt.n, got, tt.want)
		}
	}
}
