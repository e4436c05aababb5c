package main

import (
	"fmt"

	"github.com/amonks/ledger/internal/listflags"
	"github.com/amonks/ledger/internal/ui"
	"github.com/amonks/ledger/ledger"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Report inconsistencies in the ledger",
	Long: `Report unresolved task references, dependency cycles, and claims that
disagree with item statuses. Exits with status 2 when problems are found.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

var checkOutput listflags.OutputFlags

func init() {
	rootCmd.AddCommand(checkCmd)
	listflags.AddOutputFlags(checkCmd, &checkOutput)
}

func runCheck(cmd *cobra.Command, args []string) error {
	s, err := readLedger(cmd)
	if err != nil {
		return err
	}

	problems := s.engine.Check()
	if problems == nil {
		problems = []ledger.Problem{}
	}
	handled, err := encodeStructured(cmd.OutOrStdout(), checkOutput.Format(), problems)
	if err != nil {
		return err
	}
	if !handled {
		if len(problems) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No problems found.")
			return nil
		}
		builder := ui.NewTableBuilder([]string{"KIND", "ITEM", "PROBLEM"}, len(problems))
		for _, problem := range problems {
			builder.AddRow([]string{string(problem.Kind), problem.Ref, problem.Message})
		}
		fmt.Fprint(cmd.OutOrStdout(), builder.String())
	}
	if len(problems) > 0 {
		return exitError{code: 2}
	}
	return nil
}
