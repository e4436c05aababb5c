package main

import (
	"fmt"
	"time"

	"github.com/amonks/ledger/internal/listflags"
	"github.com/amonks/ledger/internal/ui"
	"github.com/amonks/ledger/ledger"
	"github.com/spf13/cobra"
)

var claimCmd = &cobra.Command{
	Use:   "claim <id>",
	Short: "Claim an item for editing",
	Long: `Claim an item for editing and print its lease token.

While claimed, the item's status is claimed and only edits that present the
token are accepted. Claims expire after the configured TTL (default 2h).
Expired claims are swept before the new claim is granted.`,
	Args: cobra.ExactArgs(1),
	RunE: runClaim,
}

var claimOutput listflags.OutputFlags

var releaseCmd = &cobra.Command{
	Use:   "release <token>",
	Short: "Release a claim and restore the item's status",
	Args:  cobra.ExactArgs(1),
	RunE:  runRelease,
}

var releaseOutput listflags.OutputFlags

var claimsCmd = &cobra.Command{
	Use:   "claims",
	Short: "List claims",
	Args:  cobra.NoArgs,
	RunE:  runClaims,
}

var claimsOutput listflags.OutputFlags

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Release every expired claim",
	Args:  cobra.NoArgs,
	RunE:  runSweep,
}

func init() {
	rootCmd.AddCommand(claimCmd, releaseCmd, claimsCmd, sweepCmd)
	listflags.AddOutputFlags(claimCmd, &claimOutput)
	listflags.AddOutputFlags(releaseCmd, &releaseOutput)
	listflags.AddOutputFlags(claimsCmd, &claimsOutput)
}

func runClaim(cmd *cobra.Command, args []string) error {
	return mutateLedger(cmd, func(s *session) error {
		s.engine.SweepExpired()

		claim, err := s.engine.Claim(args[0])
		if err != nil {
			return err
		}
		if handled, err := encodeStructured(cmd.OutOrStdout(), claimOutput.Format(), claim); handled || err != nil {
			return err
		}
		ref, _ := claim.Ref()
		fmt.Fprintf(cmd.OutOrStdout(), "Claimed %s with token %s (expires in %s)\n",
			ref, claim.Token, ui.FormatDurationShort(s.ttl))
		return nil
	})
}

func runRelease(cmd *cobra.Command, args []string) error {
	return mutateLedger(cmd, func(s *session) error {
		claim, err := s.engine.Release(args[0])
		if err != nil {
			return err
		}
		if handled, err := encodeStructured(cmd.OutOrStdout(), releaseOutput.Format(), claim); handled || err != nil {
			return err
		}
		ref, _ := claim.Ref()
		fmt.Fprintf(cmd.OutOrStdout(), "Released %s (restored %s)\n", ref, claim.StatusBeforeClaim)
		return nil
	})
}

func runClaims(cmd *cobra.Command, args []string) error {
	s, err := readLedger(cmd)
	if err != nil {
		return err
	}

	claims := s.engine.Claims()
	if claims == nil {
		claims = []ledger.Claim{}
	}
	if handled, err := encodeStructured(cmd.OutOrStdout(), claimsOutput.Format(), claims); handled || err != nil {
		return err
	}

	if len(claims) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No claims.")
		return nil
	}
	fmt.Fprint(cmd.OutOrStdout(), formatClaimTable(claims, s.ttl, time.Now(), ui.HighlightID))
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	return mutateLedger(cmd, func(s *session) error {
		swept := s.engine.SweepExpired()
		if len(swept) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No expired claims.")
			return nil
		}
		for _, claim := range swept {
			ref, _ := claim.Ref()
			fmt.Fprintf(cmd.OutOrStdout(), "Swept %s on %s (restored %s)\n", claim.Token, ref, claim.StatusBeforeClaim)
		}
		return nil
	})
}
