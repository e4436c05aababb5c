package main

import (
	"fmt"
	"io"
	"os"

	"github.com/amonks/ledger/internal/editor"
	"github.com/amonks/ledger/ledger"
	"github.com/spf13/cobra"
)

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Edit a task or bug",
	Long: `Edit a task or bug.

Status changes propagate: blocking an item blocks everything that depends on
it, and finishing one reopens dependents whose dependencies are now met.

A claimed item can only be edited with its lease token (--lease). Changing
the status of a claimed item ends the claim.

With no edit flags and an interactive terminal, opens $EDITOR on a TOML
representation of the item.`,
	Aliases: []string{"update"},
	Args:    cobra.ExactArgs(1),
	RunE:    runEdit,
}

var (
	editStatus      string
	editPriority    string
	editDescription string
	editDomain      []string
	editLayer       []string
	editMVP         bool
	editSpec        []string
	editImpl        []string
	editDeps        []string
	editAddDeps     []string
	editRemoveDeps  []string
	editLease       string
	editEdit        bool
	editNoEdit      bool
)

var editFieldFlags = []string{"status", "priority", "description", "domain", "layer", "mvp", "spec", "impl", "deps", "add-dep", "remove-dep"}

func init() {
	rootCmd.AddCommand(editCmd)
	addDescriptionFlagAliases(editCmd)
	addLeaseFlagAliases(editCmd)

	editCmd.Flags().StringVarP(&editStatus, "status", "s", "", "New status (ready, partial, open, broken, review, done)")
	editCmd.Flags().StringVarP(&editPriority, "priority", "p", "", "New priority (high, medium, low)")
	editCmd.Flags().StringVarP(&editDescription, "description", "d", "", "New description (use '-' to read from stdin)")
	editCmd.Flags().StringSliceVar(&editDomain, "domain", nil, "Replace domains")
	editCmd.Flags().StringSliceVar(&editLayer, "layer", nil, "Replace layers")
	editCmd.Flags().BoolVar(&editMVP, "mvp", false, "Set the MVP flag (--mvp=false clears it)")
	editCmd.Flags().StringSliceVar(&editSpec, "spec", nil, "Replace spec references")
	editCmd.Flags().StringSliceVar(&editImpl, "impl", nil, "Replace implementation references")
	editCmd.Flags().StringSliceVar(&editDeps, "deps", nil, "Replace dependencies")
	editCmd.Flags().StringSliceVar(&editAddDeps, "add-dep", nil, "Add dependencies")
	editCmd.Flags().StringSliceVar(&editRemoveDeps, "remove-dep", nil, "Remove dependencies")
	editCmd.Flags().StringVarP(&editLease, "lease", "l", "", "Lease token of the claim on this item")
	editCmd.Flags().BoolVarP(&editEdit, "edit", "e", false, "Open $EDITOR (default if interactive and no edit flags)")
	editCmd.Flags().BoolVar(&editNoEdit, "no-edit", false, "Do not open $EDITOR")
}

func runEdit(cmd *cobra.Command, args []string) error {
	description, err := resolveDescriptionFromStdin(editDescription, os.Stdin)
	if err != nil {
		return err
	}

	changes, err := editChangesFromFlags(cmd, description)
	if err != nil {
		return err
	}

	useEditor := shouldUseEditor(hasChangedFlags(cmd, editFieldFlags...), editEdit, editNoEdit, editor.IsInteractive())
	if useEditor {
		// The editor session happens outside the lock; the edit is applied
		// to whatever the document holds when it closes.
		s, err := readLedger(cmd)
		if err != nil {
			return err
		}
		existing, err := s.engine.FindByID(args[0])
		if err != nil {
			return err
		}
		parsed, err := editor.EditItem(existing)
		if err != nil {
			return err
		}
		changes = parsed.ToChanges(existing)
	}

	return mutateLedger(cmd, func(s *session) error {
		result, err := s.engine.EditItem(args[0], changes, editLease)
		if err != nil {
			return err
		}
		printChangeSet(cmd.OutOrStdout(), "Updated", result)
		return nil
	})
}

func editChangesFromFlags(cmd *cobra.Command, description string) (ledger.Changes, error) {
	var changes ledger.Changes
	if cmd.Flags().Changed("status") {
		status, err := ledger.ParseStatus(editStatus)
		if err != nil {
			return changes, err
		}
		changes.Status = &status
	}
	if cmd.Flags().Changed("priority") {
		priority, err := ledger.ParsePriority(editPriority)
		if err != nil {
			return changes, err
		}
		changes.Priority = &priority
	}
	if cmd.Flags().Changed("description") {
		changes.Description = &description
	}
	if cmd.Flags().Changed("mvp") {
		mvp := editMVP
		changes.MVP = &mvp
	}
	changes.Domain = stringSliceFlag(cmd, "domain", editDomain)
	changes.Layer = stringSliceFlag(cmd, "layer", editLayer)
	changes.SpecRefs = stringSliceFlag(cmd, "spec", editSpec)
	changes.ImplRefs = stringSliceFlag(cmd, "impl", editImpl)
	changes.Deps = stringSliceFlag(cmd, "deps", editDeps)
	changes.AddDeps = editAddDeps
	changes.RemoveDeps = editRemoveDeps
	return changes, nil
}

func printChangeSet(w io.Writer, verb string, result ledger.ChangeSet) {
	ref := result.Item.Ref()
	fmt.Fprintf(w, "%s %s %s: %s\n", verb, ref, result.Item.ItemStatus().Cell(), result.Item.ItemDescription())
	if result.Released != nil {
		fmt.Fprintf(w, "Released claim %s\n", result.Released.Token)
	}
	var others []ledger.Ref
	for _, changed := range result.Changed {
		if changed != ref {
			others = append(others, changed)
		}
	}
	if len(others) > 0 {
		fmt.Fprintf(w, "Also changed: %s\n", formatRefList(others))
	}
}
