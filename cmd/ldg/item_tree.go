package main

import (
	"fmt"
	"io"

	"github.com/amonks/ledger/internal/ui"
	"github.com/amonks/ledger/ledger"
)

// printDepTree prints a dependency tree with box-drawing connectors.
func printDepTree(w io.Writer, node *ledger.DepTreeNode, prefix string, isLast bool, root bool) {
	connector := "├── "
	if isLast {
		connector = "└── "
	}
	if root {
		connector = ""
	}

	fmt.Fprintf(w, "%s%s%s\n", prefix, connector, depTreeLabel(node))

	childPrefix := prefix
	if !root {
		if isLast {
			childPrefix += "    "
		} else {
			childPrefix += "│   "
		}
	}

	for i, child := range node.Children {
		printDepTree(w, child, childPrefix, i == len(node.Children)-1, false)
	}
}

func depTreeLabel(node *ledger.DepTreeNode) string {
	if node.Item == nil {
		if node.Ref.IsBug() {
			return fmt.Sprintf("%s %s", node.Ref, ui.Muted("(resolved)"))
		}
		return fmt.Sprintf("%s %s", node.Ref, ui.Warning("(missing)"))
	}

	label := fmt.Sprintf("%s %s %s", node.Ref, statusLabel(node.Item.ItemStatus()), ui.TruncateTableCell(node.Item.ItemDescription()))
	switch {
	case node.Cycle:
		label += " " + ui.Warning("(cycle)")
	case node.Truncated:
		label += " " + ui.Muted("(...)")
	}
	return label
}
