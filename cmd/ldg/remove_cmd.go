package main

import (
	"github.com/spf13/cobra"
)

var removeCmd = &cobra.Command{
	Use:   "rm <id>...",
	Short: "Remove tasks or bugs",
	Long: `Remove tasks or bugs.

Removing a bug is how it is resolved: items that depended on it reopen once
their remaining dependencies are met. References to a removed item are
dropped from every dependency list, and any claim on it ends.`,
	Aliases: []string{"remove", "resolve"},
	Args:    cobra.MinimumNArgs(1),
	RunE:    runRemove,
}

func init() {
	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
	return mutateLedger(cmd, func(s *session) error {
		for _, id := range args {
			result, err := s.engine.RemoveItem(id)
			if err != nil {
				return err
			}
			printChangeSet(cmd.OutOrStdout(), "Removed", result)
		}
		return nil
	})
}
