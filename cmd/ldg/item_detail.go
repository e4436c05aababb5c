package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/amonks/ledger/internal/markdown"
	"github.com/amonks/ledger/internal/ui"
	"github.com/amonks/ledger/ledger"
)

const itemDetailLineWidth = 80

// itemDetail is the structured form of ldg show.
type itemDetail struct {
	Item       ledger.Item   `json:"item" yaml:"item"`
	Unmet      []ledger.Ref  `json:"unmet_deps,omitempty" yaml:"unmet_deps,omitempty"`
	Dependents []ledger.Ref  `json:"dependents,omitempty" yaml:"dependents,omitempty"`
	Claim      *ledger.Claim `json:"claim,omitempty" yaml:"claim,omitempty"`
}

func buildItemDetail(l *ledger.Ledger, claims []ledger.Claim, item ledger.Item) itemDetail {
	detail := itemDetail{Item: item, Unmet: l.UnmetDependencies(item)}
	for _, dependent := range l.Dependents(item.Ref()) {
		detail.Dependents = append(detail.Dependents, dependent.Ref())
	}
	for _, claim := range claims {
		if claim.ItemID == item.Ref().Key() {
			detail.Claim = &claim
			break
		}
	}
	return detail
}

// printItemDetail prints detailed information about an item.
func printItemDetail(w io.Writer, detail itemDetail, ttl time.Duration, now time.Time) {
	item := detail.Item
	fmt.Fprintf(w, "ID:       %s\n", item.Ref())
	fmt.Fprintf(w, "Status:   %s\n", statusLabel(item.ItemStatus()))
	fmt.Fprintf(w, "Priority: %s\n", item.ItemPriority())

	if task, ok := item.(*ledger.Task); ok {
		mvp := "no"
		if task.MVP {
			mvp = "yes"
		}
		fmt.Fprintf(w, "MVP:      %s\n", mvp)
		fmt.Fprintf(w, "Domain:   %s\n", formatList(task.Domain))
		fmt.Fprintf(w, "Layer:    %s\n", formatList(task.Layer))
		printWrappedField(w, "Spec:     ", task.SpecRefs)
		printWrappedField(w, "Impl:     ", task.ImplRefs)
	}

	fmt.Fprintf(w, "Deps:     %s\n", formatDepsWithState(item.Dependencies(), detail.Unmet))
	fmt.Fprintf(w, "Blocks:   %s\n", formatRefList(detail.Dependents))

	if claim := detail.Claim; claim != nil {
		fmt.Fprintf(w, "Claim:    %s (granted %s, %s, was %s)\n",
			claim.Token,
			ui.FormatTimeAgo(claim.GrantedAt(), now),
			ui.FormatRemaining(claim.GrantedAt(), ttl, now),
			claim.StatusBeforeClaim)
	}

	fmt.Fprintf(w, "\nDescription:\n%s\n", formatItemDescription(item.ItemDescription()))
}

func formatDepsWithState(deps, unmet []ledger.Ref) string {
	if len(deps) == 0 {
		return "-"
	}
	open := make(map[ledger.Ref]bool, len(unmet))
	for _, ref := range unmet {
		open[ref] = true
	}
	parts := make([]string, 0, len(deps))
	for _, dep := range deps {
		mark := "✓"
		if open[dep] {
			mark = "✗"
		}
		parts = append(parts, dep.String()+" "+mark)
	}
	return strings.Join(parts, ", ")
}

func printWrappedField(w io.Writer, label string, values []string) {
	if len(values) == 0 {
		fmt.Fprintf(w, "%s-\n", label)
		return
	}
	wrapped := markdown.Wrap(itemDetailLineWidth, len(label), strings.Join(values, ", "))
	fmt.Fprintf(w, "%s%s\n", label, strings.TrimLeft(wrapped, " "))
}

func formatItemDescription(value string) string {
	rendered := markdown.SafeRender(itemDetailLineWidth, 2, []byte(value))
	if len(rendered) == 0 {
		return "  -"
	}
	return string(rendered)
}
