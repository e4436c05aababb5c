package editor

import (
	"reflect"
	"testing"
)

func TestCommand(t *testing.T) {
	tests := []struct {
		name   string
		visual string
		editor string
		want   []string
	}{
		{name: "fallback", want: []string{"vi"}},
		{name: "editor", editor: "nano", want: []string{"nano"}},
		{name: "visual wins", visual: "code --wait", editor: "nano", want: []string{"code", "--wait"}},
		{name: "blank visual", visual: "  ", editor: "ed", want: []string{"ed"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("VISUAL", tt.visual)
			t.Setenv("EDITOR", tt.editor)

			if got := Command(); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestEditReportsExitStatus(t *testing.T) {
	t.Setenv("VISUAL", "false")

	if err := Edit(t.TempDir() + "/item.md"); err == nil {
		t.Fatal("expected a failing editor to abort the edit")
	}
}
