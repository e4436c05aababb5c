package main

import (
	"fmt"
	"time"

	"github.com/amonks/ledger/internal/listflags"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <id>...",
	Short: "Show detailed information about tasks or bugs",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runShow,
}

var showOutput listflags.OutputFlags

func init() {
	rootCmd.AddCommand(showCmd)
	listflags.AddOutputFlags(showCmd, &showOutput)
}

func runShow(cmd *cobra.Command, args []string) error {
	s, err := readLedger(cmd)
	if err != nil {
		return err
	}

	details := make([]itemDetail, 0, len(args))
	for _, id := range args {
		item, err := s.engine.FindByID(id)
		if err != nil {
			return err
		}
		details = append(details, buildItemDetail(s.engine.Ledger(), s.engine.Claims(), item))
	}

	if handled, err := encodeStructured(cmd.OutOrStdout(), showOutput.Format(), details); handled || err != nil {
		return err
	}

	now := time.Now()
	for i, detail := range details {
		if i > 0 {
			fmt.Fprintln(cmd.OutOrStdout())
		}
		printItemDetail(cmd.OutOrStdout(), detail, s.ttl, now)
	}
	return nil
}
