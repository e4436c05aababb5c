package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/amonks/ledger/internal/config"
	"github.com/amonks/ledger/internal/paths"
	"github.com/amonks/ledger/ledger"
	"github.com/spf13/cobra"
)

// session is one load of the configured ledger.
type session struct {
	cfg    *config.Config
	store  *ledger.FileStore
	engine *ledger.Engine
	ttl    time.Duration
	logger *slog.Logger
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadConfig reads --config, or the nearest ledger.toml above the working
// directory, falling back to defaults rooted at the working directory.
func loadConfig() (*config.Config, error) {
	if rootConfig != "" {
		return config.LoadFile(rootConfig)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}
	root, err := paths.FindUp(cwd, config.FileName)
	if errors.Is(err, paths.ErrNotFound) {
		root = cwd
	} else if err != nil {
		return nil, err
	}
	return config.Load(root)
}

// prepareSession resolves configuration and the file store without loading
// the document.
func prepareSession(cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	ttl, err := cfg.TTL()
	if err != nil {
		return nil, err
	}

	documentPath := cfg.DocumentPath()
	if rootFile != "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("get working directory: %w", err)
		}
		documentPath = paths.Resolve(cwd, rootFile)
	}

	logger := newLogger(cmd.ErrOrStderr(), rootVerbose)
	logger.Debug("resolved ledger", "document", documentPath, "claims", cfg.ClaimsPath(), "config_root", cfg.Root)

	return &session{
		cfg:    cfg,
		store:  ledger.NewFileStore(documentPath, cfg.ClaimsPath()),
		ttl:    ttl,
		logger: logger,
	}, nil
}

func (s *session) open() error {
	var mirror ledger.Mirror
	targets := s.cfg.MirrorTargets()
	if len(targets) > 0 {
		mirror = ledger.DocumentMirror{Section: s.cfg.MirrorSection()}
	}

	engine, err := ledger.Open(ledger.Options{
		Documents:     s.store,
		Claims:        s.store,
		Mirror:        mirror,
		MirrorTargets: targets,
		Sections:      ledger.Sections{Tasks: s.cfg.TaskSection(), Bugs: s.cfg.BugSection()},
		TTL:           s.ttl,
		Logger:        s.logger,
	})
	if err != nil {
		return err
	}
	s.engine = engine
	return nil
}

// readLedger loads the ledger for a command that does not change it.
func readLedger(cmd *cobra.Command) (*session, error) {
	s, err := prepareSession(cmd)
	if err != nil {
		return nil, err
	}
	if err := s.open(); err != nil {
		return nil, err
	}
	return s, nil
}

// mutateLedger runs fn under the document lock and saves what it changed.
// Nothing is saved if fn fails.
func mutateLedger(cmd *cobra.Command, fn func(*session) error) error {
	s, err := prepareSession(cmd)
	if err != nil {
		return err
	}
	return s.store.WithLock(func() error {
		if err := s.open(); err != nil {
			return err
		}
		if err := fn(s); err != nil {
			return err
		}
		return s.engine.Save()
	})
}
