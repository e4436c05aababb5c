// Package listflags defines flags shared by commands that print item lists.
package listflags

import "github.com/spf13/cobra"

// AddAllFlag adds a shared --all flag to list commands.
func AddAllFlag(cmd *cobra.Command, target *bool) {
	if target == nil {
		cmd.Flags().Bool("all", false, "Include all statuses")
		return
	}

	cmd.Flags().BoolVar(target, "all", false, "Include all statuses")
}

// Format selects how a command prints its result.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// OutputFlags holds the --json and --yaml switches.
type OutputFlags struct {
	JSON bool
	YAML bool
}

// AddOutputFlags adds mutually exclusive --json and --yaml flags.
func AddOutputFlags(cmd *cobra.Command, target *OutputFlags) {
	cmd.Flags().BoolVar(&target.JSON, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&target.YAML, "yaml", false, "Output as YAML")
	cmd.MarkFlagsMutuallyExclusive("json", "yaml")
}

// Format returns the selected output format.
func (f OutputFlags) Format() Format {
	switch {
	case f.JSON:
		return FormatJSON
	case f.YAML:
		return FormatYAML
	default:
		return FormatTable
	}
}
