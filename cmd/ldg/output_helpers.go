package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/amonks/ledger/internal/listflags"
	"gopkg.in/yaml.v3"
)

func encodeJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func encodeYAML(w io.Writer, value any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(value); err != nil {
		return err
	}
	return enc.Close()
}

// encodeStructured writes value as JSON or YAML. It reports false for the
// table format so the caller prints its own table.
func encodeStructured(w io.Writer, format listflags.Format, value any) (bool, error) {
	switch format {
	case listflags.FormatJSON:
		return true, encodeJSON(w, value)
	case listflags.FormatYAML:
		return true, encodeYAML(w, value)
	case listflags.FormatTable:
		return false, nil
	default:
		return false, fmt.Errorf("unknown output format %q", format)
	}
}
