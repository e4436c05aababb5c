// Package main implements the ldg CLI tool.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/amonks/ledger/ledger"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exitErr interface{ ExitCode() int }
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "ldg",
	Short:         "Ledger - a dependency-aware task and bug ledger kept in a markdown document",
	SilenceErrors: true,
	SilenceUsage:  true,
}

var (
	rootFile    string
	rootConfig  string
	rootVerbose bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootFile, "file", "f", "", "Ledger document (default from ledger.toml, else LEDGER.md)")
	rootCmd.PersistentFlags().StringVar(&rootConfig, "config", "", "Project config file (default: nearest ledger.toml)")
	rootCmd.PersistentFlags().BoolVarP(&rootVerbose, "verbose", "v", false, "Log debug output to stderr")
}

// printError writes err with its ledger error code.
func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "error [%s]: %v\n", ledger.CodeOf(err), err)
}

// exitError ends the process with a status code without printing anything
// further.
type exitError struct {
	code int
}

func (e exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func (e exitError) ExitCode() int {
	return e.code
}
