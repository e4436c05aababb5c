package config_test

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/amonks/ledger/internal/config"
	"github.com/amonks/ledger/internal/testsupport"
)

func TestLoad_NotFound(t *testing.T) {
	testsupport.SetupTestHome(t)
	tmpDir := t.TempDir()

	cfg, err := config.Load(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg == nil {
		t.Fatal("expected non-nil config")
	}
	if cfg.DocumentPath() != filepath.Join(tmpDir, "LEDGER.md") {
		t.Errorf("DocumentPath = %q", cfg.DocumentPath())
	}
	if cfg.ClaimsPath() != filepath.Join(tmpDir, ".ledger", "claims.json") {
		t.Errorf("ClaimsPath = %q", cfg.ClaimsPath())
	}
	if cfg.TaskSection() != "Tasks" || cfg.BugSection() != "Bugs" {
		t.Errorf("unexpected sections %q/%q", cfg.TaskSection(), cfg.BugSection())
	}
	if cfg.MirrorSection() != "Ledger Mirror" {
		t.Errorf("MirrorSection = %q", cfg.MirrorSection())
	}
	if targets := cfg.MirrorTargets(); len(targets) != 0 {
		t.Errorf("expected no mirror targets, got %v", targets)
	}
	if ttl, err := cfg.TTL(); err != nil || ttl != 2*time.Hour {
		t.Errorf("TTL = %s, %v", ttl, err)
	}
}

func TestLoad_Full(t *testing.T) {
	testsupport.SetupTestHome(t)
	tmpDir := t.TempDir()

	configContent := `
[ledger]
document = "docs/ROADMAP.md"
task-section = "Work"
bug-section = "Defects"
claims-file = "/var/tmp/claims.json"
claim-ttl = "90m"

[mirror]
targets = ["../shared/STATUS.md", "/abs/MIRROR.md"]
section = "Upstream"
`

	writeFile(t, filepath.Join(tmpDir, "ledger.toml"), configContent)

	cfg, err := config.Load(tmpDir)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.DocumentPath() != filepath.Join(tmpDir, "docs", "ROADMAP.md") {
		t.Errorf("DocumentPath = %q", cfg.DocumentPath())
	}
	if cfg.ClaimsPath() != "/var/tmp/claims.json" {
		t.Errorf("ClaimsPath = %q", cfg.ClaimsPath())
	}
	if cfg.TaskSection() != "Work" || cfg.BugSection() != "Defects" {
		t.Errorf("unexpected sections %q/%q", cfg.TaskSection(), cfg.BugSection())
	}
	if ttl, err := cfg.TTL(); err != nil || ttl != 90*time.Minute {
		t.Errorf("TTL = %s, %v", ttl, err)
	}
	wantTargets := []string{filepath.Join(filepath.Dir(tmpDir), "shared", "STATUS.md"), "/abs/MIRROR.md"}
	if got := cfg.MirrorTargets(); !reflect.DeepEqual(got, wantTargets) {
		t.Errorf("MirrorTargets = %v, expected %v", got, wantTargets)
	}
	if cfg.MirrorSection() != "Upstream" {
		t.Errorf("MirrorSection = %q", cfg.MirrorSection())
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	testsupport.SetupTestHome(t)
	tmpDir := t.TempDir()

	writeFile(t, filepath.Join(tmpDir, "ledger.toml"), "[ledger\ndocument = ")

	if _, err := config.Load(tmpDir); err == nil {
		t.Fatal("expected error for invalid TOML")
	}
}

func TestLoad_UnknownKey(t *testing.T) {
	testsupport.SetupTestHome(t)
	tmpDir := t.TempDir()

	writeFile(t, filepath.Join(tmpDir, "ledger.toml"), "[ledger]\ndocumnet = \"typo.md\"\n")

	_, err := config.Load(tmpDir)
	if err == nil || !strings.Contains(err.Error(), "documnet") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestLoad_InvalidTTL(t *testing.T) {
	testsupport.SetupTestHome(t)

	for _, value := range []string{"soon", "-1h", "0s"} {
		t.Run(value, func(t *testing.T) {
			tmpDir := t.TempDir()
			writeFile(t, filepath.Join(tmpDir, "ledger.toml"), "[ledger]\nclaim-ttl = \""+value+"\"\n")

			if _, err := config.Load(tmpDir); err == nil {
				t.Fatalf("expected error for claim-ttl %q", value)
			}
		})
	}
}

func TestLoadFile_ExplicitPath(t *testing.T) {
	testsupport.SetupTestHome(t)
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "conf", "custom.toml")
	writeFile(t, path, "[ledger]\ndocument = \"BACKLOG.md\"\n")

	cfg, err := config.LoadFile(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.DocumentPath() != filepath.Join(tmpDir, "conf", "BACKLOG.md") {
		t.Errorf("DocumentPath = %q", cfg.DocumentPath())
	}
}

func TestLoad_UsesGlobalWhenProjectMissing(t *testing.T) {
	homeDir := testsupport.SetupTestHome(t)

	writeFile(t, filepath.Join(homeDir, ".config", "ledger", "config.toml"), `
[ledger]
claim-ttl = "30m"

[mirror]
targets = ["/shared/MIRROR.md"]
`)

	repoDir := t.TempDir()
	cfg, err := config.Load(repoDir)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if ttl, _ := cfg.TTL(); ttl != 30*time.Minute {
		t.Errorf("TTL = %s, expected 30m", ttl)
	}
	if got := cfg.MirrorTargets(); len(got) != 1 || got[0] != "/shared/MIRROR.md" {
		t.Fatalf("expected global mirror targets to load, got %v", got)
	}
}

func TestLoad_ProjectOverridesGlobal(t *testing.T) {
	homeDir := testsupport.SetupTestHome(t)

	writeFile(t, filepath.Join(homeDir, ".config", "ledger", "config.toml"), `
[ledger]
document = "GLOBAL.md"
claim-ttl = "30m"

[mirror]
targets = ["/global/MIRROR.md"]
`)

	repoDir := t.TempDir()
	writeFile(t, filepath.Join(repoDir, "ledger.toml"), `
[ledger]
document = "PROJECT.md"

[mirror]
targets = []
`)

	cfg, err := config.Load(repoDir)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.DocumentPath() != filepath.Join(repoDir, "PROJECT.md") {
		t.Errorf("DocumentPath = %q", cfg.DocumentPath())
	}
	if ttl, _ := cfg.TTL(); ttl != 30*time.Minute {
		t.Errorf("expected global TTL to survive, got %s", ttl)
	}
	if got := cfg.MirrorTargets(); len(got) != 0 {
		t.Fatalf("expected empty project targets to override global, got %v", got)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}
