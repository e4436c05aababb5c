// Package mdtable reads and writes pipe-delimited tables embedded in text
// documents.
//
// A table belongs to a section: the first heading below the document title
// whose text equals the section marker, or failing that one whose text
// contains it. A title that equals the marker is the last resort. The table
// is the first run of lines starting with "|" after that heading, and ends at the first line that does not start with "|" or at
// the next heading.
package mdtable

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	internalstrings "github.com/amonks/ledger/internal/strings"
)

// EmptyCell is the literal written for cells without a value.
const EmptyCell = "-"

var (
	// ErrTableNotFound is returned when a section or its table is absent.
	ErrTableNotFound = errors.New("table not found")

	// ErrMalformedTable is returned when a table lacks a valid alignment row.
	ErrMalformedTable = errors.New("malformed table")
)

// LineError attaches a 1-based document line number to an error.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// Row is one parsed table row.
type Row struct {
	// Line is the 1-based line number of the row in the source document.
	Line int

	// Cells holds the trimmed, unescaped cell values.
	Cells []string
}

// Table is a parsed table.
type Table struct {
	Header Row
	Aligns []Align
	Rows   []Row
}

var separatorCell = regexp.MustCompile(`^:?-{3,}:?$`)

// Parse locates the table in the section named by marker and splits it into
// rows. The header and alignment rows are returned separately from the data
// rows.
func Parse(document, marker string) (*Table, error) {
	lines := splitLines(document)
	loc, ok := locate(lines, marker)
	if !ok || loc.first < 0 {
		return nil, fmt.Errorf("%w: %q", ErrTableNotFound, marker)
	}

	if loc.last == loc.first {
		return nil, &LineError{Line: loc.first + 1, Err: fmt.Errorf("%w: missing alignment row", ErrMalformedTable)}
	}

	table := &Table{
		Header: Row{Line: loc.first + 1, Cells: SplitRow(lines[loc.first])},
	}

	separator := SplitRow(lines[loc.first+1])
	table.Aligns = make([]Align, 0, len(separator))
	for _, cell := range separator {
		if !separatorCell.MatchString(cell) {
			return nil, &LineError{Line: loc.first + 2, Err: fmt.Errorf("%w: bad alignment cell %q", ErrMalformedTable, cell)}
		}
		table.Aligns = append(table.Aligns, alignFromSeparator(cell))
	}

	for i := loc.first + 2; i <= loc.last; i++ {
		table.Rows = append(table.Rows, Row{Line: i + 1, Cells: SplitRow(lines[i])})
	}

	return table, nil
}

// SplitRow splits a table row into trimmed cells. An escaped pipe (`\|`) is a
// literal pipe inside a cell.
func SplitRow(line string) []string {
	value := strings.TrimSpace(line)
	value = strings.TrimPrefix(value, "|")
	if strings.HasSuffix(value, "|") && !strings.HasSuffix(value, `\|`) {
		value = value[:len(value)-1]
	}

	var cells []string
	var cell strings.Builder
	for i := 0; i < len(value); i++ {
		char := value[i]
		if char == '\\' && i+1 < len(value) && value[i+1] == '|' {
			cell.WriteByte('|')
			i++
			continue
		}
		if char == '|' {
			cells = append(cells, strings.TrimSpace(cell.String()))
			cell.Reset()
			continue
		}
		cell.WriteByte(char)
	}
	return append(cells, strings.TrimSpace(cell.String()))
}

// EscapeCell prepares a value for writing into a cell.
func EscapeCell(value string) string {
	value = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "\t", " ").Replace(value)
	return strings.ReplaceAll(strings.TrimSpace(value), "|", `\|`)
}

// JoinList renders a multi-valued cell.
func JoinList(values []string) string {
	var kept []string
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value != "" {
			kept = append(kept, value)
		}
	}
	if len(kept) == 0 {
		return EmptyCell
	}
	return strings.Join(kept, ", ")
}

// SplitList parses a multi-valued cell. The empty token yields nil.
func SplitList(cell string) []string {
	cell = strings.TrimSpace(cell)
	if cell == "" || cell == EmptyCell {
		return nil
	}
	var values []string
	for _, part := range strings.Split(cell, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			values = append(values, part)
		}
	}
	return values
}

// OrEmpty returns value, or the empty token when value is blank.
func OrEmpty(value string) string {
	if strings.TrimSpace(value) == "" {
		return EmptyCell
	}
	return value
}

// FromEmpty reverses OrEmpty.
func FromEmpty(cell string) string {
	if cell == EmptyCell {
		return ""
	}
	return cell
}

type location struct {
	heading int
	first   int
	last    int
}

func locate(lines []string, marker string) (location, bool) {
	loc := location{heading: -1, first: -1, last: -1}
	for _, match := range []func(string, string) bool{isExactSection, isSectionMarker, isTitleSection} {
		for i, line := range lines {
			if match(line, marker) {
				loc.heading = i
				break
			}
		}
		if loc.heading >= 0 {
			break
		}
	}
	if loc.heading < 0 {
		return loc, false
	}

	for i := loc.heading + 1; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if isHeading(trimmed) {
			break
		}
		if strings.HasPrefix(trimmed, "|") {
			if loc.first < 0 {
				loc.first = i
			}
			loc.last = i
			continue
		}
		if loc.first >= 0 {
			break
		}
	}
	return loc, true
}

func isHeading(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "#")
}

// headingText returns the text and level of a heading line.
func headingText(line string) (string, int, bool) {
	trimmed := strings.TrimSpace(line)
	if !isHeading(trimmed) {
		return "", 0, false
	}
	text := strings.TrimLeft(trimmed, "#")
	return strings.ToLower(strings.TrimSpace(text)), len(trimmed) - len(text), true
}

func isExactSection(line, marker string) bool {
	text, level, ok := headingText(line)
	return ok && level > 1 && text == strings.ToLower(strings.TrimSpace(marker))
}

// isSectionMarker matches a heading containing marker. The document title
// is skipped: a title like "Tasks and Bugs" names no single table.
func isSectionMarker(line, marker string) bool {
	text, level, ok := headingText(line)
	return ok && level > 1 && strings.Contains(text, strings.ToLower(strings.TrimSpace(marker)))
}

// isTitleSection lets a document titled exactly after a marker keep its
// table directly under the title.
func isTitleSection(line, marker string) bool {
	text, level, ok := headingText(line)
	return ok && level == 1 && text == strings.ToLower(strings.TrimSpace(marker))
}

func splitLines(document string) []string {
	return strings.Split(internalstrings.NormalizeNewlines(document), "\n")
}
