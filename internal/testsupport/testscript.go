package testsupport

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"
)

var (
	buildOnce sync.Once
	ldgPath   string
	buildErr  error
)

// BuildLdg builds the ldg binary once and returns its path.
func BuildLdg(t testing.TB) string {
	t.Helper()

	buildOnce.Do(func() {
		moduleRoot, err := findModuleRoot()
		if err != nil {
			buildErr = err
			return
		}

		binDir, err := os.MkdirTemp("", "ldg-bin-")
		if err != nil {
			buildErr = err
			return
		}

		ldgPath = filepath.Join(binDir, "ldg")
		cmd := exec.Command("go", "build", "-o", ldgPath, "./cmd/ldg")
		cmd.Dir = moduleRoot
		output, err := cmd.CombinedOutput()
		if err != nil {
			buildErr = fmt.Errorf("build ldg: %w: %s", err, strings.TrimSpace(string(output)))
		}
	})

	if buildErr != nil {
		t.Fatalf("%v", buildErr)
	}

	return ldgPath
}

// SetupScriptEnv configures common environment variables for testscript.
func SetupScriptEnv(t testing.TB, env *testscript.Env) error {
	t.Helper()

	env.Setenv("LDG", BuildLdg(t))

	homeDir := filepath.Join(env.WorkDir, "home")
	if err := EnsureHomeDirs(homeDir); err != nil {
		return err
	}
	env.Setenv("HOME", homeDir)
	env.Setenv("NO_COLOR", "1")
	env.Setenv("EDITOR", "")
	env.Setenv("VISUAL", "")
	return nil
}

// CmdEnvSet stores the trimmed contents of a file in an env var.
func CmdEnvSet(ts *testscript.TestScript, neg bool, args []string) {
	if neg {
		ts.Fatalf("envset does not support negation")
	}
	if len(args) != 2 {
		ts.Fatalf("usage: envset VAR FILE")
	}

	value := strings.TrimSpace(ts.ReadFile(args[1]))
	ts.Setenv(args[0], value)
}

// CmdJSONField reads a top-level string field from a JSON object file and
// stores it in an env var.
func CmdJSONField(ts *testscript.TestScript, neg bool, args []string) {
	if neg {
		ts.Fatalf("jsonfield does not support negation")
	}
	if len(args) != 3 {
		ts.Fatalf("usage: jsonfield FILE FIELD VAR")
	}

	var object map[string]any
	data := ts.ReadFile(args[0])
	if err := json.Unmarshal([]byte(data), &object); err != nil {
		ts.Fatalf("parse %s: %v", args[0], err)
	}

	value, ok := object[args[1]].(string)
	if !ok {
		ts.Fatalf("field %q not found in %s", args[1], args[0])
	}
	ts.Setenv(args[2], value)
}

func findModuleRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("could not find module root (go.mod)")
		}
		dir = parent
	}
}
