package validate

import (
	"strings"
	"testing"
)

func TestText(t *testing.T) {
	tests := []struct {
		in    string
		valid bool
		msg   string
	}{
		{"", false, "Message is required"},
		{"   \n", false, "Message is required"},
		{"hello", true, ""},
		{strings.Repeat("a", 10), true, ""},
		{strings.Repeat("a", 11), false, "Message must be 10 characters or fewer"},
		{strings.Repeat("é", 10), true, ""},
	}
	for _, tt := range tests {
		got := Text(tt.in, "Message", 10)
		if got.Valid != tt.valid || got.Error != tt.msg {
			t.Errorf("Text(%q) = %+v, want valid=%v msg=%q", tt.in, got, tt.valid, tt.msg)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("héllo world", 5); got != "héllo" {
		t.Errorf("Truncate = %q", got)
	}
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("Truncate = %q", got)
	}
}

func TestIntRange(t *testing.T) {
	if !IntRange(5, 1, 5, "Count").Valid {
		t.Error("upper bound should be valid")
	}
	if r := IntRange(0, 1, 5, "Count"); r.Valid || r.Error != "Count must be between 1 and 5" {
		t.Errorf("unexpected result %+v", r)
	}
}
