package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/amonks/ledger/ledger"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a new ledger document",
	Long: `Create a new ledger document with empty Tasks and Bugs tables.

Fails if the document already exists.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

var initTitle string

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVar(&initTitle, "title", "", "Document heading (default \"Ledger\")")
}

func runInit(cmd *cobra.Command, args []string) error {
	s, err := prepareSession(cmd)
	if err != nil {
		return err
	}

	return s.store.WithLock(func() error {
		if _, err := os.Stat(s.store.DocumentPath); err == nil {
			return fmt.Errorf("%s already exists", s.store.DocumentPath)
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("stat document: %w", err)
		}

		sections := ledger.Sections{Tasks: s.cfg.TaskSection(), Bugs: s.cfg.BugSection()}
		if err := s.store.SaveDocument(ledger.NewDocument(initTitle, sections)); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Initialized ledger at %s\n", s.store.DocumentPath)
		return nil
	})
}
