package ui

import (
	"strings"
	"testing"

	"github.com/amonks/ledger/internal/ids"
)

func TestPrefixLength(t *testing.T) {
	tests := []struct {
		name   string
		length map[string]int
		id     string
		want   int
	}{
		{
			name:   "case insensitive lookup",
			length: map[string]int{"abc123": 4},
			id:     "ABC123",
			want:   4,
		},
		{
			name:   "missing id",
			length: map[string]int{"abc123": 4},
			id:     "",
			want:   0,
		},
		{
			name:   "nil map",
			length: nil,
			id:     "ABC123",
			want:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PrefixLength(tt.length, tt.id); got != tt.want {
				t.Fatalf("PrefixLength() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestHighlightIDWithoutTerminal(t *testing.T) {
	withANSI(t, false)

	lengths := ids.UniquePrefixLengths([]string{"AB12", "AC34"})

	if got := HighlightID("AB12", PrefixLength(lengths, "AB12")); got != "AB12" {
		t.Fatalf("expected plain token, got %q", got)
	}
}

func TestHighlightIDWithTerminal(t *testing.T) {
	withANSI(t, true)

	got := HighlightID("AB12", 2)

	if !strings.HasSuffix(got, "12") || !strings.Contains(got, "AB") {
		t.Fatalf("expected highlighted prefix, got %q", got)
	}
	if displayWidth(got) != 4 {
		t.Fatalf("expected highlighting to keep width 4, got %d", displayWidth(got))
	}
}

func TestFormatStatusWithoutTerminal(t *testing.T) {
	withANSI(t, false)

	if got := FormatStatus("ready", "🟢 ready"); got != "🟢 ready" {
		t.Fatalf("expected plain label, got %q", got)
	}
	if got := Muted("-"); got != "-" {
		t.Fatalf("expected plain muted text, got %q", got)
	}
}

func withANSI(t *testing.T, enabled bool) {
	t.Helper()
	original := ansiEnabled
	ansiEnabled = func() bool { return enabled }
	t.Cleanup(func() {
		ansiEnabled = original
	})
}
