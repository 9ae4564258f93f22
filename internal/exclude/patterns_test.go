package exclude

import "testing"

func TestMatcher_IsExcluded(t *testing.T) {
	m := New([]string{"logs/", "*.crc", "raw/2023", " "}, true)

	tests := []struct {
		rel   string
		isDir bool
		want  bool
	}{
		{"logs", true, true},
		{"logs/app.log", false, true},
		{"part-00000", false, false},
		{"part-00000.crc", false, true},
		{"nested/.part-00000.crc", false, true},
		{"raw/2023", true, true},
		{"raw/2023/01/a", false, true},
		{"raw/2024/01/a", false, false},
		{"job/_temporary", true, true},
		{"job/_temporary/0/part", false, true},
		{"job/_SUCCESS", false, true},
		{"file._COPYING_", false, true},
		{"", true, false},
		{"/logs/x", false, true},
	}

	for _, tt := range tests {
		if got := m.IsExcluded(tt.rel, tt.isDir); got != tt.want {
			t.Errorf("IsExcluded(%q, %v) = %v, want %v", tt.rel, tt.isDir, got, tt.want)
		}
	}
}

func TestMatcher_NoDefaults(t *testing.T) {
	m := New(nil, false)
	if m.IsExcluded("job/_SUCCESS", false) {
		t.Error("matcher without patterns excluded _SUCCESS")
	}
	if len(m.Patterns()) != 0 {
		t.Errorf("Patterns() = %v, want none", m.Patterns())
	}

	var nilMatcher *Matcher
	if nilMatcher.IsExcluded("a", false) {
		t.Error("nil matcher excluded a path")
	}
}
