package mdtable

import (
	"strings"

	"github.com/muesli/reflow/ansi"
)

// Align is a column alignment.
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

// Column describes one column of a table schema.
type Column struct {
	Name  string
	Align Align
}

const minSeparatorDashes = 3

func alignFromSeparator(cell string) Align {
	left := strings.HasPrefix(cell, ":")
	right := strings.HasSuffix(cell, ":")
	switch {
	case left && right:
		return AlignCenter
	case right:
		return AlignRight
	default:
		return AlignLeft
	}
}

// separator renders the alignment marker for a column of the given width.
func (a Align) separator(width int) string {
	switch a {
	case AlignCenter:
		return ":" + strings.Repeat("-", width-2) + ":"
	case AlignRight:
		return strings.Repeat("-", width-1) + ":"
	default:
		return ":" + strings.Repeat("-", width-1)
	}
}

func (a Align) minWidth() int {
	if a == AlignCenter {
		return minSeparatorDashes + 2
	}
	return minSeparatorDashes + 1
}

func (a Align) pad(value string, width int) string {
	gap := width - displayWidth(value)
	if gap <= 0 {
		return value
	}
	switch a {
	case AlignRight:
		return strings.Repeat(" ", gap) + value
	case AlignCenter:
		left := gap / 2
		return strings.Repeat(" ", left) + value + strings.Repeat(" ", gap-left)
	default:
		return value + strings.Repeat(" ", gap)
	}
}

// Build renders rows as an aligned table. Cells are escaped; rows shorter
// than the schema are padded with empty cells and extra cells are dropped.
// The result ends with a newline.
func Build(columns []Column, rows [][]string) string {
	escaped := make([][]string, 0, len(rows))
	for _, row := range rows {
		cells := make([]string, len(columns))
		for i := range columns {
			if i < len(row) {
				cells[i] = EscapeCell(row[i])
			}
		}
		escaped = append(escaped, cells)
	}

	widths := make([]int, len(columns))
	for i, column := range columns {
		widths[i] = max(displayWidth(column.Name), column.Align.minWidth())
	}
	for _, row := range escaped {
		for i, cell := range row {
			widths[i] = max(widths[i], displayWidth(cell))
		}
	}

	var builder strings.Builder
	writeRow := func(cells []string) {
		builder.WriteString("|")
		for _, cell := range cells {
			builder.WriteString(" ")
			builder.WriteString(cell)
			builder.WriteString(" |")
		}
		builder.WriteByte('\n')
	}

	header := make([]string, len(columns))
	separator := make([]string, len(columns))
	for i, column := range columns {
		header[i] = column.Align.pad(EscapeCell(column.Name), widths[i])
		separator[i] = column.Align.separator(widths[i])
	}
	writeRow(header)
	writeRow(separator)

	for _, row := range escaped {
		padded := make([]string, len(row))
		for i, cell := range row {
			padded[i] = columns[i].Align.pad(cell, widths[i])
		}
		writeRow(padded)
	}

	return builder.String()
}

// Replace writes table into the section named by marker, replacing any
// table already there. Every other line of the document is preserved. When
// the section does not exist it is appended as a level-two heading.
func Replace(document, marker, table string) string {
	lines := splitLines(document)
	tableLines := strings.Split(strings.TrimRight(table, "\n"), "\n")

	loc, ok := locate(lines, marker)
	if !ok {
		trimmed := strings.TrimRight(strings.Join(lines, "\n"), "\n")
		var builder strings.Builder
		if trimmed != "" {
			builder.WriteString(trimmed)
			builder.WriteString("\n\n")
		}
		builder.WriteString("## ")
		builder.WriteString(marker)
		builder.WriteString("\n\n")
		builder.WriteString(strings.Join(tableLines, "\n"))
		builder.WriteString("\n")
		return builder.String()
	}

	var out []string
	if loc.first >= 0 {
		out = append(out, lines[:loc.first]...)
		out = append(out, tableLines...)
		out = append(out, lines[loc.last+1:]...)
		return strings.Join(out, "\n")
	}

	out = append(out, lines[:loc.heading+1]...)
	out = append(out, "")
	out = append(out, tableLines...)
	rest := lines[loc.heading+1:]
	for len(rest) > 0 && strings.TrimSpace(rest[0]) == "" {
		rest = rest[1:]
	}
	if len(rest) > 0 {
		out = append(out, "")
		out = append(out, rest...)
	} else {
		out = append(out, "")
	}
	return strings.Join(out, "\n")
}

// displayWidth measures terminal columns, so wide status symbols keep the
// pipes aligned.
func displayWidth(value string) int {
	return ansi.PrintableRuneWidth(value)
}
