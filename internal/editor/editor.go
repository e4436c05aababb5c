// Package editor edits ledger items as TOML in the user's $EDITOR.
package editor

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/term"
)

// ErrNoEditor is returned when no editor command can be resolved.
var ErrNoEditor = errors.New("no editor configured")

// IsInteractive reports whether stdin is a terminal.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Command returns the editor command line: $VISUAL, then $EDITOR, then vi.
// The value may carry arguments, as in "code --wait".
func Command() []string {
	for _, name := range []string{"VISUAL", "EDITOR"} {
		if fields := strings.Fields(os.Getenv(name)); len(fields) > 0 {
			return fields
		}
	}
	return []string{"vi"}
}

// Edit opens path in the editor and waits for it to exit. A non-zero exit
// status aborts the edit.
func Edit(path string) error {
	command := Command()
	if len(command) == 0 {
		return ErrNoEditor
	}

	cmd := exec.Command(command[0], append(command[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("editor exited with status %d; item left unchanged", exitErr.ExitCode())
		}
		return fmt.Errorf("run editor %s: %w", command[0], err)
	}
	return nil
}
