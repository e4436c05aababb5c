package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/amonks/ledger/ledger"
	"github.com/spf13/cobra"
)

func hasChangedFlags(cmd *cobra.Command, flags ...string) bool {
	for _, flag := range flags {
		if cmd.Flags().Changed(flag) {
			return true
		}
	}
	return false
}

func shouldUseEditor(hasFlags bool, editFlag bool, noEditFlag bool, interactive bool) bool {
	if editFlag {
		return true
	}
	if noEditFlag {
		return false
	}
	if hasFlags {
		return false
	}
	return interactive
}

// resolveDescriptionFromStdin reads the description from reader when it
// is "-".
func resolveDescriptionFromStdin(description string, reader io.Reader) (string, error) {
	if description != "-" {
		return description, nil
	}

	input, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read description from stdin: %w", err)
	}

	return strings.TrimRight(string(input), "\r\n"), nil
}

// stringSliceFlag returns a pointer to values when the flag was set, so an
// explicit empty value clears the field.
func stringSliceFlag(cmd *cobra.Command, name string, values []string) *[]string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	cleared := make([]string, 0, len(values))
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" && value != "-" {
			cleared = append(cleared, value)
		}
	}
	return &cleared
}

// parseStatusFlag parses a status flag value; empty means unset.
func parseStatusFlag(value string) (ledger.Status, error) {
	if strings.TrimSpace(value) == "" {
		return "", nil
	}
	return ledger.ParseStatus(value)
}

// parsePriorityFlag parses a priority flag value; empty means unset.
func parsePriorityFlag(value string) (ledger.Priority, error) {
	if strings.TrimSpace(value) == "" {
		return "", nil
	}
	return ledger.ParsePriority(value)
}
