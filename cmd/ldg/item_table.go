package main

import (
	"strings"
	"time"

	"github.com/amonks/ledger/internal/ids"
	"github.com/amonks/ledger/internal/ui"
	"github.com/amonks/ledger/ledger"
)

// formatItemTable renders items as an aligned table.
func formatItemTable(items []ledger.Item) string {
	builder := ui.NewTableBuilder([]string{"ID", "STATUS", "PRI", "MVP", "DEPS", "DESCRIPTION"}, len(items))

	for _, item := range items {
		mvp := "-"
		if task, ok := item.(*ledger.Task); ok && task.MVP {
			mvp = "✓"
		}
		builder.AddRow([]string{
			item.Ref().String(),
			statusLabel(item.ItemStatus()),
			string(item.ItemPriority()),
			mvp,
			formatRefList(item.Dependencies()),
			ui.TruncateTableCell(item.ItemDescription()),
		})
	}

	return builder.String()
}

// formatClaimTable renders claims with their unique token prefixes
// highlighted.
func formatClaimTable(claims []ledger.Claim, ttl time.Duration, now time.Time, highlight func(string, int) string) string {
	tokens := make([]string, 0, len(claims))
	for _, claim := range claims {
		tokens = append(tokens, claim.Token)
	}
	prefixLengths := ids.UniquePrefixLengths(tokens)

	builder := ui.NewTableBuilder([]string{"TOKEN", "ITEM", "BEFORE", "AGE", "REMAINING"}, len(claims))
	for _, claim := range claims {
		item := claim.ItemID
		if ref, err := claim.Ref(); err == nil {
			item = ref.String()
		}
		remaining := ui.FormatRemaining(claim.GrantedAt(), ttl, now)
		if claim.Expired(now, ttl) {
			remaining = ui.Warning(remaining)
		}
		builder.AddRow([]string{
			highlight(claim.Token, ui.PrefixLength(prefixLengths, claim.Token)),
			item,
			string(claim.StatusBeforeClaim),
			ui.FormatTimeAgo(claim.GrantedAt(), now),
			remaining,
		})
	}
	return builder.String()
}

func statusLabel(status ledger.Status) string {
	return ui.FormatStatus(string(status), status.Cell())
}

func formatRefList(refs []ledger.Ref) string {
	if len(refs) == 0 {
		return "-"
	}
	return strings.Join(ledger.RefStrings(refs), ", ")
}

func formatList(values []string) string {
	if len(values) == 0 {
		return "-"
	}
	return strings.Join(values, ", ")
}
