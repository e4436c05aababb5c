package ledger

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/amonks/ledger/internal/mdtable"
)

// Sections names the headings that introduce the ledger tables.
type Sections struct {
	Tasks string
	Bugs  string
}

// DefaultSections returns the standard section markers.
func DefaultSections() Sections {
	return Sections{Tasks: "Tasks", Bugs: "Bugs"}
}

func (s Sections) withDefaults() Sections {
	defaults := DefaultSections()
	if strings.TrimSpace(s.Tasks) == "" {
		s.Tasks = defaults.Tasks
	}
	if strings.TrimSpace(s.Bugs) == "" {
		s.Bugs = defaults.Bugs
	}
	return s
}

// TaskColumns is the Tasks table schema.
var TaskColumns = []mdtable.Column{
	{Name: "#", Align: mdtable.AlignRight},
	{Name: "Status", Align: mdtable.AlignCenter},
	{Name: "Domain", Align: mdtable.AlignLeft},
	{Name: "Layer", Align: mdtable.AlignLeft},
	{Name: "Description", Align: mdtable.AlignLeft},
	{Name: "Priority", Align: mdtable.AlignCenter},
	{Name: "MVP?", Align: mdtable.AlignCenter},
	{Name: "Deps", Align: mdtable.AlignLeft},
	{Name: "Spec", Align: mdtable.AlignLeft},
	{Name: "Impl", Align: mdtable.AlignLeft},
}

// BugColumns is the Bugs table schema.
var BugColumns = []mdtable.Column{
	{Name: "b#", Align: mdtable.AlignRight},
	{Name: "Status", Align: mdtable.AlignCenter},
	{Name: "Description", Align: mdtable.AlignLeft},
	{Name: "Priority", Align: mdtable.AlignCenter},
	{Name: "Deps", Align: mdtable.AlignLeft},
}

const mvpMark = "✓"

// Decode parses the Tasks table (required) and the Bugs table (optional)
// out of document. Any malformed row aborts the whole decode with a
// *ParseError carrying its line number.
func Decode(document string, sections Sections) (*Ledger, error) {
	sections = sections.withDefaults()
	ledger := New()

	taskTable, err := parseTable(document, sections.Tasks)
	if err != nil {
		return nil, err
	}
	if taskTable == nil {
		return nil, fmt.Errorf("%w: %q", ErrTableNotFound, sections.Tasks)
	}
	for _, row := range taskTable.Rows {
		task, err := decodeTask(row)
		if err != nil {
			return nil, err
		}
		if err := ledger.insertTask(task); err != nil {
			return nil, &ParseError{Line: row.Line, Err: err}
		}
	}

	bugTable, err := parseTable(document, sections.Bugs)
	if err != nil {
		return nil, err
	}
	if bugTable != nil {
		ledger.hasBugSection = true
		for _, row := range bugTable.Rows {
			bug, err := decodeBug(row)
			if err != nil {
				return nil, err
			}
			if err := ledger.insertBug(bug); err != nil {
				return nil, &ParseError{Line: row.Line, Err: err}
			}
		}
	}

	return ledger, nil
}

// parseTable returns nil when the section or its table is absent.
func parseTable(document, marker string) (*mdtable.Table, error) {
	table, err := mdtable.Parse(document, marker)
	if errors.Is(err, mdtable.ErrTableNotFound) {
		return nil, nil
	}
	var lineErr *mdtable.LineError
	if errors.As(err, &lineErr) {
		return nil, &ParseError{Line: lineErr.Line, Err: fmt.Errorf("%w: %v", ErrInvalidRow, lineErr.Err)}
	}
	if err != nil {
		return nil, err
	}
	return table, nil
}

func checkWidth(row mdtable.Row, columns []mdtable.Column) error {
	if len(row.Cells) < len(columns) {
		return &ParseError{
			Line: row.Line,
			Err:  fmt.Errorf("%w: expected %d cells, got %d", ErrInvalidRow, len(columns), len(row.Cells)),
		}
	}
	return nil
}

func decodeTask(row mdtable.Row) (*Task, error) {
	if err := checkWidth(row, TaskColumns); err != nil {
		return nil, err
	}
	cells := row.Cells
	fail := func(err error) (*Task, error) {
		return nil, &ParseError{Line: row.Line, Err: err}
	}

	id, err := parseRefNumber(strings.TrimPrefix(cells[0], "#"))
	if err != nil {
		return fail(fmt.Errorf("%w: %q", ErrInvalidID, cells[0]))
	}
	status, err := ParseStatus(cells[1])
	if err != nil {
		return fail(err)
	}
	priority, err := decodePriority(cells[5])
	if err != nil {
		return fail(err)
	}
	deps, err := ParseRefs(mdtable.SplitList(cells[7]))
	if err != nil {
		return fail(err)
	}

	return &Task{
		ID:          id,
		Status:      status,
		Domain:      mdtable.SplitList(cells[2]),
		Layer:       mdtable.SplitList(cells[3]),
		Description: mdtable.FromEmpty(cells[4]),
		Priority:    priority,
		MVP:         decodeMVP(cells[6]),
		Deps:        deps,
		SpecRefs:    mdtable.SplitList(cells[8]),
		ImplRefs:    mdtable.SplitList(cells[9]),
		SourceLine:  row.Line,
	}, nil
}

func decodeBug(row mdtable.Row) (*Bug, error) {
	if err := checkWidth(row, BugColumns); err != nil {
		return nil, err
	}
	cells := row.Cells
	fail := func(err error) (*Bug, error) {
		return nil, &ParseError{Line: row.Line, Err: err}
	}

	ref, err := ParseRef(cells[0])
	if err != nil || !ref.IsBug() {
		return fail(fmt.Errorf("%w: %q", ErrInvalidBugID, cells[0]))
	}
	status, err := ParseStatus(cells[1])
	if err != nil {
		return fail(err)
	}
	priority, err := decodePriority(cells[3])
	if err != nil {
		return fail(err)
	}
	deps, err := ParseRefs(mdtable.SplitList(cells[4]))
	if err != nil {
		return fail(err)
	}

	return &Bug{
		ID:          ref.ID,
		Status:      status,
		Description: mdtable.FromEmpty(cells[2]),
		Priority:    priority,
		Deps:        deps,
		SourceLine:  row.Line,
	}, nil
}

func decodePriority(cell string) (Priority, error) {
	if value := mdtable.FromEmpty(cell); value != "" {
		return ParsePriority(value)
	}
	return PriorityMedium, nil
}

func decodeMVP(cell string) bool {
	switch strings.ToLower(strings.TrimSpace(cell)) {
	case mvpMark, "✅", "x", "y", "yes", "true":
		return true
	default:
		return false
	}
}

// Encode writes the ledger's tables back into document, replacing the
// existing tables and preserving every other line. The Bugs table is
// written only when the document had one or the ledger holds bugs.
func Encode(document string, ledger *Ledger, sections Sections) string {
	sections = sections.withDefaults()

	document = mdtable.Replace(document, sections.Tasks, mdtable.Build(TaskColumns, taskRows(ledger.Tasks())))

	bugs := ledger.Bugs()
	if ledger.hasBugSection || len(bugs) > 0 {
		document = mdtable.Replace(document, sections.Bugs, mdtable.Build(BugColumns, bugRows(bugs)))
	}
	return document
}

func taskRows(tasks []*Task) [][]string {
	rows := make([][]string, 0, len(tasks))
	for _, task := range tasks {
		rows = append(rows, TaskCells(task))
	}
	return rows
}

func bugRows(bugs []*Bug) [][]string {
	rows := make([][]string, 0, len(bugs))
	for _, bug := range bugs {
		rows = append(rows, BugCells(bug))
	}
	return rows
}

// TaskCells renders one task as a row matching TaskColumns.
func TaskCells(task *Task) []string {
	mvp := mdtable.EmptyCell
	if task.MVP {
		mvp = mvpMark
	}
	return []string{
		strconv.Itoa(task.ID),
		task.Status.Cell(),
		mdtable.JoinList(task.Domain),
		mdtable.JoinList(task.Layer),
		mdtable.OrEmpty(task.Description),
		string(task.Priority),
		mvp,
		mdtable.JoinList(RefStrings(task.Deps)),
		mdtable.JoinList(task.SpecRefs),
		mdtable.JoinList(task.ImplRefs),
	}
}

// BugCells renders one bug as a row matching BugColumns.
func BugCells(bug *Bug) []string {
	return []string{
		bug.Ref().String(),
		bug.Status.Cell(),
		mdtable.OrEmpty(bug.Description),
		string(bug.Priority),
		mdtable.JoinList(RefStrings(bug.Deps)),
	}
}

// NewDocument returns a document with empty Tasks and Bugs tables.
func NewDocument(title string, sections Sections) string {
	sections = sections.withDefaults()
	if strings.TrimSpace(title) == "" {
		title = "Ledger"
	}
	var builder strings.Builder
	builder.WriteString("# " + title + "\n")
	for _, section := range []struct {
		marker  string
		columns []mdtable.Column
	}{
		{sections.Tasks, TaskColumns},
		{sections.Bugs, BugColumns},
	} {
		builder.WriteString("\n## " + section.marker + "\n\n")
		builder.WriteString(mdtable.Build(section.columns, nil))
	}
	return builder.String()
}
