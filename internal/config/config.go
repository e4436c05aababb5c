// Package config handles loading ledger.toml configuration files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/amonks/ledger/internal/paths"
)

// FileName is the project configuration file.
const FileName = "ledger.toml"

const (
	DefaultDocument      = "LEDGER.md"
	DefaultTaskSection   = "Tasks"
	DefaultBugSection    = "Bugs"
	DefaultClaimsFile    = ".ledger/claims.json"
	DefaultClaimTTL      = 2 * time.Hour
	DefaultMirrorSection = "Ledger Mirror"
)

// Config represents the ledger.toml configuration file.
type Config struct {
	Ledger Ledger `toml:"ledger"`
	Mirror Mirror `toml:"mirror"`

	// Root is the directory relative paths resolve against: the directory
	// holding the project config, or the directory passed to Load.
	Root string `toml:"-"`
}

// Ledger contains document and claim settings.
type Ledger struct {
	// Document is the path of the ledger document.
	Document string `toml:"document"`

	TaskSection string `toml:"task-section"`
	BugSection  string `toml:"bug-section"`

	// ClaimsFile is where the claim registry is kept.
	ClaimsFile string `toml:"claims-file"`

	// ClaimTTL is a duration string like "2h" or "90m".
	ClaimTTL string `toml:"claim-ttl"`
}

// Mirror contains side-channel mirror settings.
type Mirror struct {
	// Targets are documents that receive a copy of each changed row.
	Targets []string `toml:"targets"`
	Section string   `toml:"section"`
}

// Load loads configuration from root/ledger.toml and the global config file.
// Returns defaults if no config files exist.
func Load(root string) (*Config, error) {
	return LoadFile(filepath.Join(root, FileName))
}

// LoadFile loads configuration from an explicit project config path and the
// global config file. A missing project file is not an error.
func LoadFile(projectPath string) (*Config, error) {
	globalPath, err := globalConfigPath()
	if err != nil {
		return nil, err
	}

	globalCfg, globalMeta, err := loadConfigFile(globalPath)
	if err != nil {
		return nil, err
	}

	projectCfg, projectMeta, err := loadConfigFile(projectPath)
	if err != nil {
		return nil, err
	}

	merged := mergeConfigs(globalCfg, projectCfg, globalMeta, projectMeta)
	root, err := filepath.Abs(filepath.Dir(projectPath))
	if err != nil {
		return nil, fmt.Errorf("resolve config root: %w", err)
	}
	merged.Root = root

	if _, err := merged.TTL(); err != nil {
		return nil, err
	}
	return merged, nil
}

func globalConfigPath() (string, error) {
	dir, err := paths.DefaultConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

func loadConfigFile(path string) (*Config, toml.MetaData, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Config{}, toml.MetaData{}, nil
	}
	if err != nil {
		return nil, toml.MetaData{}, fmt.Errorf("read config file %s: %w", path, err)
	}

	var cfg Config
	meta, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, toml.MetaData{}, fmt.Errorf("parse config file %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, toml.MetaData{}, fmt.Errorf("parse config file %s: unknown key %s", path, undecoded[0])
	}

	return &cfg, meta, nil
}

func mergeConfigs(globalCfg, projectCfg *Config, globalMeta, projectMeta toml.MetaData) *Config {
	if globalCfg == nil {
		globalCfg = &Config{}
	}
	if projectCfg == nil {
		projectCfg = &Config{}
	}

	merged := Config{}
	merged.Ledger.Document = mergeString(projectMeta.IsDefined("ledger", "document"), projectCfg.Ledger.Document, globalCfg.Ledger.Document)
	merged.Ledger.TaskSection = mergeString(projectMeta.IsDefined("ledger", "task-section"), projectCfg.Ledger.TaskSection, globalCfg.Ledger.TaskSection)
	merged.Ledger.BugSection = mergeString(projectMeta.IsDefined("ledger", "bug-section"), projectCfg.Ledger.BugSection, globalCfg.Ledger.BugSection)
	merged.Ledger.ClaimsFile = mergeString(projectMeta.IsDefined("ledger", "claims-file"), projectCfg.Ledger.ClaimsFile, globalCfg.Ledger.ClaimsFile)
	merged.Ledger.ClaimTTL = mergeString(projectMeta.IsDefined("ledger", "claim-ttl"), projectCfg.Ledger.ClaimTTL, globalCfg.Ledger.ClaimTTL)
	merged.Mirror.Section = mergeString(projectMeta.IsDefined("mirror", "section"), projectCfg.Mirror.Section, globalCfg.Mirror.Section)
	if projectMeta.IsDefined("mirror", "targets") {
		merged.Mirror.Targets = append([]string(nil), projectCfg.Mirror.Targets...)
	} else if globalMeta.IsDefined("mirror", "targets") {
		merged.Mirror.Targets = append([]string(nil), globalCfg.Mirror.Targets...)
	}

	return &merged
}

func mergeString(projectDefined bool, projectValue, globalValue string) string {
	value := globalValue
	if projectDefined {
		value = projectValue
	}
	return strings.TrimSpace(value)
}

// DocumentPath returns the absolute path of the ledger document.
func (c *Config) DocumentPath() string {
	return paths.Resolve(c.Root, orDefault(c.Ledger.Document, DefaultDocument))
}

// ClaimsPath returns the absolute path of the claim registry.
func (c *Config) ClaimsPath() string {
	return paths.Resolve(c.Root, orDefault(c.Ledger.ClaimsFile, DefaultClaimsFile))
}

// TaskSection returns the heading of the Tasks table.
func (c *Config) TaskSection() string {
	return orDefault(c.Ledger.TaskSection, DefaultTaskSection)
}

// BugSection returns the heading of the Bugs table.
func (c *Config) BugSection() string {
	return orDefault(c.Ledger.BugSection, DefaultBugSection)
}

// MirrorSection returns the heading prefix used in mirror targets.
func (c *Config) MirrorSection() string {
	return orDefault(c.Mirror.Section, DefaultMirrorSection)
}

// MirrorTargets returns the mirror target paths resolved against Root.
func (c *Config) MirrorTargets() []string {
	targets := make([]string, 0, len(c.Mirror.Targets))
	for _, target := range c.Mirror.Targets {
		if target = strings.TrimSpace(target); target != "" {
			targets = append(targets, paths.Resolve(c.Root, target))
		}
	}
	return targets
}

// TTL parses the claim TTL.
func (c *Config) TTL() (time.Duration, error) {
	if c.Ledger.ClaimTTL == "" {
		return DefaultClaimTTL, nil
	}
	ttl, err := time.ParseDuration(c.Ledger.ClaimTTL)
	if err != nil {
		return 0, fmt.Errorf("parse claim-ttl %q: %w", c.Ledger.ClaimTTL, err)
	}
	if ttl <= 0 {
		return 0, fmt.Errorf("parse claim-ttl %q: must be positive", c.Ledger.ClaimTTL)
	}
	return ttl, nil
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
