package main

import (
	"github.com/amonks/ledger/ledger"
	"github.com/spf13/cobra"
)

var treeCmd = &cobra.Command{
	Use:   "tree <id>",
	Short: "Show what an item depends on, recursively",
	Args:  cobra.ExactArgs(1),
	RunE:  runTree,
}

var treeDepth int

func init() {
	rootCmd.AddCommand(treeCmd)
	treeCmd.Flags().IntVar(&treeDepth, "depth", ledger.DefaultTreeDepth, "Maximum depth below the root")
}

func runTree(cmd *cobra.Command, args []string) error {
	s, err := readLedger(cmd)
	if err != nil {
		return err
	}

	tree, err := s.engine.BuildDependencyTree(args[0], treeDepth)
	if err != nil {
		return err
	}
	printDepTree(cmd.OutOrStdout(), tree, "", true, true)
	return nil
}
