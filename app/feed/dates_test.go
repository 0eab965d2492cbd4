package feed

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
		ok    bool
	}{
		{"2024-03-01T07:30:00Z", time.Date(2024, 3, 1, 7, 30, 0, 0, time.UTC), true},
		{"2024-03-01T08:30:00+01:00", time.Date(2024, 3, 1, 7, 30, 0, 0, time.UTC), true},
		{"Mon, 03 Jul 2023 10:00:00 GMT", time.Date(2023, 7, 3, 10, 0, 0, 0, time.UTC), true},
		{"", time.Time{}, false},
		{"unknown", time.Time{}, false},
	}

	for _, tt := range tests {
		got, ok := ParseDate(tt.input)
		if ok != tt.ok {
			t.Errorf("ParseDate(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			continue
		}
		if ok && !got.Equal(tt.want) {
			t.Errorf("ParseDate(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}

	if s := FormatTimestamp(time.Date(2024, 3, 1, 8, 30, 0, 0, time.FixedZone("CET", 3600))); s != "2024-03-01T07:30:00Z" {
		t.Errorf("Unexpected timestamp %s", s)
	}
}
