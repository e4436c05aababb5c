package ledger

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/amonks/ledger/internal/mdtable"
)

// MirrorOp is the kind of change mirrored into another document.
type MirrorOp string

const (
	MirrorAdd    MirrorOp = "add"
	MirrorUpdate MirrorOp = "update"
	MirrorRemove MirrorOp = "remove"
)

// Mirror copies a single item into another document. Failures are
// reported to the engine, which logs and ignores them.
type Mirror interface {
	MirrorItem(item Item, target string, op MirrorOp) error
}

// DocumentMirror keeps a table of mirrored items in a section of each
// target document. Tasks and bugs go into separate tables under the
// section heading, named "<section> Tasks" and "<section> Bugs".
type DocumentMirror struct {
	Section string
}

// DefaultMirrorSection is the section used when none is configured.
const DefaultMirrorSection = "Ledger Mirror"

// MirrorItem upserts or removes item's row in target.
func (m DocumentMirror) MirrorItem(item Item, target string, op MirrorOp) error {
	data, err := os.ReadFile(target)
	if errors.Is(err, os.ErrNotExist) {
		if op == MirrorRemove {
			return nil
		}
		data = nil
	} else if err != nil {
		return fmt.Errorf("read mirror target: %w", err)
	}

	marker, columns, cells := m.layout(item)
	document := string(data)

	var rows [][]string
	table, err := mdtable.Parse(document, marker)
	switch {
	case errors.Is(err, mdtable.ErrTableNotFound):
	case err != nil:
		return fmt.Errorf("parse mirror table: %w", err)
	default:
		for _, row := range table.Rows {
			if len(row.Cells) > 0 && sameRef(row.Cells[0], item.Ref()) {
				continue
			}
			rows = append(rows, row.Cells)
		}
	}

	if op != MirrorRemove {
		rows = append(rows, cells)
	} else if table == nil {
		return nil
	}

	updated := mdtable.Replace(document, marker, mdtable.Build(columns, rows))
	if err := writeFileAtomic(target, []byte(updated)); err != nil {
		return fmt.Errorf("write mirror target: %w", err)
	}
	return nil
}

func (m DocumentMirror) layout(item Item) (string, []mdtable.Column, []string) {
	section := strings.TrimSpace(m.Section)
	if section == "" {
		section = DefaultMirrorSection
	}
	switch item := item.(type) {
	case *Bug:
		return section + " Bugs", BugColumns, BugCells(item)
	case *Task:
		return section + " Tasks", TaskColumns, TaskCells(item)
	default:
		return section, nil, nil
	}
}

func sameRef(cell string, ref Ref) bool {
	parsed, err := ParseRef(cell)
	return err == nil && parsed == ref
}
