package buildinfo

import "testing"

// Not parallel: the variables are package globals.
func TestRelease(t *testing.T) {
	defer func(v, c string) { Version, Commit = v, c }(Version, Commit)

	tests := []struct {
		version, commit, want string
	}{
		{"v1.2.0", "abcdef123456", "v1.2.0"},
		{"", "abcdef123456", "abcdef1"},
		{"", "abc", "abc"},
		{"", "", "dev"},
	}
	for _, tt := range tests {
		Version, Commit = tt.version, tt.commit
		if got := Release(); got != tt.want {
			t.Errorf("Release() with %q/%q = %q, want %q", tt.version, tt.commit, got, tt.want)
		}
	}
}
