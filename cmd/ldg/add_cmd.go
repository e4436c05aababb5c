package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/amonks/ledger/internal/editor"
	"github.com/amonks/ledger/ledger"
	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add [description]...",
	Short: "Add tasks or bugs",
	Long: `Add one task or bug per description argument.

Every item in one invocation shares the given flags and is added together:
if any item is rejected, none are added.

With no descriptions and an interactive terminal, opens $EDITOR on a TOML
representation of a new item. Use --edit to force the editor, or
--no-edit to skip it.`,
	RunE: runAdd,
}

var (
	addBug         bool
	addStatus      string
	addPriority    string
	addDescription string
	addDomain      []string
	addLayer       []string
	addMVP         bool
	addDeps        []string
	addSpec        []string
	addImpl        []string
	addEdit        bool
	addNoEdit      bool
)

func init() {
	rootCmd.AddCommand(addCmd)
	addDescriptionFlagAliases(addCmd)

	addCmd.Flags().BoolVar(&addBug, "bug", false, "Add a bug instead of a task")
	addCmd.Flags().StringVarP(&addStatus, "status", "s", "", "Initial status (default open)")
	addCmd.Flags().StringVarP(&addPriority, "priority", "p", "", "Priority: high, medium, low (default medium)")
	addCmd.Flags().StringVarP(&addDescription, "description", "d", "", "Description (use '-' to read from stdin)")
	addCmd.Flags().StringSliceVar(&addDomain, "domain", nil, "Domains (comma-separated)")
	addCmd.Flags().StringSliceVar(&addLayer, "layer", nil, "Layers (comma-separated)")
	addCmd.Flags().BoolVar(&addMVP, "mvp", false, "Mark as MVP")
	addCmd.Flags().StringSliceVar(&addDeps, "deps", nil, "Dependencies, e.g. #3,b1")
	addCmd.Flags().StringSliceVar(&addSpec, "spec", nil, "Spec references")
	addCmd.Flags().StringSliceVar(&addImpl, "impl", nil, "Implementation references")
	addCmd.Flags().BoolVarP(&addEdit, "edit", "e", false, "Open $EDITOR (default if interactive and no descriptions)")
	addCmd.Flags().BoolVar(&addNoEdit, "no-edit", false, "Do not open $EDITOR")
}

func runAdd(cmd *cobra.Command, args []string) error {
	description, err := resolveDescriptionFromStdin(addDescription, os.Stdin)
	if err != nil {
		return err
	}

	descriptions := append([]string(nil), args...)
	if cmd.Flags().Changed("description") {
		descriptions = append(descriptions, description)
	}

	status, err := parseStatusFlag(addStatus)
	if err != nil {
		return err
	}
	priority, err := parsePriorityFlag(addPriority)
	if err != nil {
		return err
	}

	var inputs []ledger.NewItem
	useEditor := shouldUseEditor(len(descriptions) > 0, addEdit, addNoEdit, editor.IsInteractive())
	if useEditor {
		data := editor.DefaultCreateData(addBug)
		if status != "" {
			data.Status = string(status)
		}
		if priority != "" {
			data.Priority = string(priority)
		}
		data.Domain = addDomain
		data.Layer = addLayer
		data.MVP = addMVP
		data.Deps = addDeps
		data.SpecRefs = addSpec
		data.ImplRefs = addImpl
		data.Description = strings.Join(descriptions, " ")

		parsed, err := editor.EditItemWithData(data)
		if err != nil {
			return err
		}
		inputs = append(inputs, parsed.ToNewItem(addBug))
	} else {
		if len(descriptions) == 0 {
			return fmt.Errorf("%w (pass it as an argument or use --edit)", ledger.ErrEmptyDescription)
		}
		for _, description := range descriptions {
			inputs = append(inputs, ledger.NewItem{
				Bug:         addBug,
				Status:      status,
				Priority:    priority,
				Description: description,
				Domain:      addDomain,
				Layer:       addLayer,
				MVP:         addMVP,
				Deps:        addDeps,
				SpecRefs:    addSpec,
				ImplRefs:    addImpl,
			})
		}
	}

	return mutateLedger(cmd, func(s *session) error {
		refs, err := s.engine.AddItems(inputs)
		if err != nil {
			return err
		}
		for _, ref := range refs {
			item, _ := s.engine.Ledger().Lookup(ref)
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s %s: %s\n", ref, item.ItemStatus().Cell(), item.ItemDescription())
		}
		return nil
	})
}
