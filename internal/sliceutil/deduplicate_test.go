package sliceutil

import (
	"slices"
	"testing"
)

type listing struct {
	URL  string
	Name string
}

func TestDeduplicate(t *testing.T) {
	t.Parallel()
	byURL := func(l listing) string { return l.URL }
	tests := []struct {
		name  string
		items []listing
		want  []listing
	}{
		{
			name:  "No duplicates",
			items: []listing{{URL: "/a", Name: "A"}, {URL: "/b", Name: "B"}},
			want:  []listing{{URL: "/a", Name: "A"}, {URL: "/b", Name: "B"}},
		},
		{
			name:  "Keeps first occurrence",
			items: []listing{{URL: "/a", Name: "A"}, {URL: "/b", Name: "B"}, {URL: "/a", Name: "A2"}},
			want:  []listing{{URL: "/a", Name: "A"}, {URL: "/b", Name: "B"}},
		},
		{
			name:  "Empty",
			items: []listing{},
			want:  []listing{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Deduplicate(tt.items, byURL)
			if !slices.Equal(got, tt.want) {
				t.Errorf("Deduplicate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDeduplicateStrings(t *testing.T) {
	t.Parallel()
	got := DeduplicateStrings([]string{"公寓", "套房", "公寓"})
	if !slices.Equal(got, []string{"公寓", "套房"}) {
		t.Errorf("DeduplicateStrings() = %v", got)
	}
}
