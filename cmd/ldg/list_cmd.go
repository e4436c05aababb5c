package main

import (
	"fmt"
	"strings"

	"github.com/amonks/ledger/internal/listflags"
	"github.com/amonks/ledger/ledger"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List tasks and bugs",
	Long:    `List tasks and bugs, ordered by status, then priority, then ID. Done items are hidden unless --all or --status done is given.`,
	Aliases: []string{"ls"},
	Args:    cobra.NoArgs,
	RunE:    runList,
}

var (
	listStatuses    []string
	listPriority    string
	listTasks       bool
	listBugs        bool
	listDomain      string
	listLayer       string
	listMVP         bool
	listDescription string
	listAll         bool
	listOutput      listflags.OutputFlags
)

var readyCmd = &cobra.Command{
	Use:   "ready",
	Short: "List tasks that can be picked up now",
	Long:  `List tasks that are not done, blocked, or claimed and whose dependencies are all met.`,
	Args:  cobra.NoArgs,
	RunE:  runReady,
}

var (
	readyLimit  int
	readyOutput listflags.OutputFlags
)

func init() {
	rootCmd.AddCommand(listCmd, readyCmd)
	addDescriptionFlagAliases(listCmd)

	listCmd.Flags().StringSliceVar(&listStatuses, "status", nil, "Filter by status (comma-separated)")
	listCmd.Flags().StringVarP(&listPriority, "priority", "p", "", "Filter by priority")
	listCmd.Flags().BoolVar(&listTasks, "tasks", false, "Only tasks")
	listCmd.Flags().BoolVar(&listBugs, "bugs", false, "Only bugs")
	listCmd.Flags().StringVar(&listDomain, "domain", "", "Filter tasks by domain")
	listCmd.Flags().StringVar(&listLayer, "layer", "", "Filter tasks by layer")
	listCmd.Flags().BoolVar(&listMVP, "mvp", false, "Only MVP tasks")
	listCmd.Flags().StringVarP(&listDescription, "description", "d", "", "Filter by description substring")
	listCmd.MarkFlagsMutuallyExclusive("tasks", "bugs")
	listflags.AddAllFlag(listCmd, &listAll)
	listflags.AddOutputFlags(listCmd, &listOutput)

	readyCmd.Flags().IntVarP(&readyLimit, "limit", "n", 20, "Maximum number of tasks to show (0 for all)")
	listflags.AddOutputFlags(readyCmd, &readyOutput)
}

func buildListFilter() (ledger.ListFilter, error) {
	filter := ledger.ListFilter{
		Domain:               strings.TrimSpace(listDomain),
		Layer:                strings.TrimSpace(listLayer),
		MVPOnly:              listMVP,
		DescriptionSubstring: strings.TrimSpace(listDescription),
		IncludeDone:          listAll,
	}
	for _, value := range listStatuses {
		status, err := ledger.ParseStatus(value)
		if err != nil {
			return filter, err
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	priority, err := parsePriorityFlag(listPriority)
	if err != nil {
		return filter, err
	}
	if priority != "" {
		filter.Priority = &priority
	}
	switch {
	case listTasks:
		filter.Kind = ledger.RefTask
	case listBugs:
		filter.Kind = ledger.RefBug
	}
	return filter, nil
}

func runList(cmd *cobra.Command, args []string) error {
	filter, err := buildListFilter()
	if err != nil {
		return err
	}
	s, err := readLedger(cmd)
	if err != nil {
		return err
	}

	items := s.engine.SortAndFilter(filter.Match, nil)
	if items == nil {
		items = []ledger.Item{}
	}
	if handled, err := encodeStructured(cmd.OutOrStdout(), listOutput.Format(), items); handled || err != nil {
		return err
	}

	if len(items) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No items found.")
		return nil
	}
	fmt.Fprint(cmd.OutOrStdout(), formatItemTable(items))
	return nil
}

func runReady(cmd *cobra.Command, args []string) error {
	s, err := readLedger(cmd)
	if err != nil {
		return err
	}

	tasks := s.engine.Ready(readyLimit)
	if tasks == nil {
		tasks = []*ledger.Task{}
	}
	if handled, err := encodeStructured(cmd.OutOrStdout(), readyOutput.Format(), tasks); handled || err != nil {
		return err
	}

	if len(tasks) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No ready tasks.")
		return nil
	}
	items := make([]ledger.Item, 0, len(tasks))
	for _, task := range tasks {
		items = append(items, task)
	}
	fmt.Fprint(cmd.OutOrStdout(), formatItemTable(items))
	return nil
}
