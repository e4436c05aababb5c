// Package ledger implements a dependency-aware task and bug ledger stored as
// pipe-delimited tables in a plain-text document.
//
// A single load/mutate/save cycle reads the document, decodes the Tasks and
// Bugs tables into a Ledger, applies one or more operations, and writes the
// re-encoded tables back. The public API mirrors the CLI commands:
//   - AddItems, EditItem, RemoveItem for the item lifecycle
//   - Claim, Release, SweepExpired, ValidateClaim for editing leases
//   - FindByID, SortAndFilter, Ready, BuildDependencyTree, Check for querying
package ledger

import (
	"strings"
)

// Status is the state of a task or bug.
type Status string

const (
	// StatusReady indicates the item can be picked up now.
	StatusReady Status = "ready"

	// StatusPartial indicates the item is partly implemented.
	StatusPartial Status = "partial"

	// StatusOpen indicates the item has not been started.
	StatusOpen Status = "open"

	// StatusBroken indicates the item was done but regressed.
	StatusBroken Status = "broken"

	// StatusReview indicates the item awaits review.
	StatusReview Status = "review"

	// StatusBlocked indicates a dependency is unsatisfied. Derived by propagation.
	StatusBlocked Status = "blocked"

	// StatusClaimed indicates an active editing lease. Derived by claims.
	StatusClaimed Status = "claimed"

	// StatusDone indicates the item is complete.
	StatusDone Status = "done"
)

// ValidStatuses returns all statuses in display order.
func ValidStatuses() []Status {
	return []Status{StatusReady, StatusPartial, StatusOpen, StatusBroken, StatusReview, StatusBlocked, StatusClaimed, StatusDone}
}

var statusSymbols = map[Status]string{
	StatusReady:   "🟢",
	StatusPartial: "🟡",
	StatusOpen:    "⚪",
	StatusBroken:  "🔴",
	StatusReview:  "🔍",
	StatusBlocked: "⛔",
	StatusClaimed: "🔒",
	StatusDone:    "✅",
}

// IsValid returns true if the status is a known value.
func (s Status) IsValid() bool {
	_, ok := statusSymbols[s]
	return ok
}

// IsDerived reports whether the status may only be reached through
// propagation or claims.
func (s Status) IsDerived() bool {
	return s == StatusBlocked || s == StatusClaimed
}

// Rank returns the display priority; lower ranks sort first.
func (s Status) Rank() int {
	for i, status := range ValidStatuses() {
		if s == status {
			return i + 1
		}
	}
	return len(statusSymbols) + 1
}

// Symbol returns the table symbol for the status.
func (s Status) Symbol() string {
	if symbol, ok := statusSymbols[s]; ok {
		return symbol
	}
	return string(s)
}

// Cell renders the status as written in a table: symbol, then name.
func (s Status) Cell() string {
	if symbol, ok := statusSymbols[s]; ok {
		return symbol + " " + string(s)
	}
	return string(s)
}

// ParseStatus accepts a status name (any case) or its table symbol.
func ParseStatus(value string) (Status, error) {
	value = strings.TrimSpace(value)
	normalized := Status(strings.ToLower(value))
	if normalized.IsValid() {
		return normalized, nil
	}
	for status, symbol := range statusSymbols {
		if value == symbol || strings.HasPrefix(value, symbol+" ") {
			return status, nil
		}
	}
	return "", statusError(value)
}

// Priority is the importance of an item.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium" // default
	PriorityLow    Priority = "low"
)

// ValidPriorities returns all priorities from most to least important.
func ValidPriorities() []Priority {
	return []Priority{PriorityHigh, PriorityMedium, PriorityLow}
}

// IsValid returns true if the priority is a known value.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

// Rank returns the sort rank for a priority.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

// ParsePriority accepts a priority name in any case.
func ParsePriority(value string) (Priority, error) {
	priority := Priority(strings.ToLower(strings.TrimSpace(value)))
	if !priority.IsValid() {
		return "", priorityError(value)
	}
	return priority, nil
}

// Task is a row of the Tasks table.
type Task struct {
	ID          int      `json:"id" yaml:"id"`
	Status      Status   `json:"status" yaml:"status"`
	Domain      []string `json:"domain,omitempty" yaml:"domain,omitempty"`
	Layer       []string `json:"layer,omitempty" yaml:"layer,omitempty"`
	Description string   `json:"description" yaml:"description"`
	Priority    Priority `json:"priority" yaml:"priority"`
	MVP         bool     `json:"mvp" yaml:"mvp"`
	Deps        []Ref    `json:"deps,omitempty" yaml:"deps,omitempty"`
	SpecRefs    []string `json:"spec_refs,omitempty" yaml:"spec_refs,omitempty"`
	ImplRefs    []string `json:"impl_refs,omitempty" yaml:"impl_refs,omitempty"`

	// SourceLine is the document line the task was read from, or 0 for
	// tasks added in this session.
	SourceLine int `json:"source_line,omitempty" yaml:"source_line,omitempty"`
}

// Bug is a row of the Bugs table. A bug blocks its dependents for as long
// as it exists; resolving a bug means removing it.
type Bug struct {
	ID          int      `json:"-" yaml:"-"`
	Status      Status   `json:"status" yaml:"status"`
	Description string   `json:"description" yaml:"description"`
	Priority    Priority `json:"priority" yaml:"priority"`
	Deps        []Ref    `json:"deps,omitempty" yaml:"deps,omitempty"`
	SourceLine  int      `json:"source_line,omitempty" yaml:"source_line,omitempty"`
}

// Item is the common view of tasks and bugs.
type Item interface {
	// Ref returns the reference that names the item.
	Ref() Ref
	ItemStatus() Status
	ItemDescription() string
	ItemPriority() Priority
	Dependencies() []Ref
}

func (t *Task) Ref() Ref                { return TaskRef(t.ID) }
func (t *Task) ItemStatus() Status      { return t.Status }
func (t *Task) ItemDescription() string { return t.Description }
func (t *Task) ItemPriority() Priority  { return t.Priority }
func (t *Task) Dependencies() []Ref     { return t.Deps }

func (b *Bug) Ref() Ref                { return BugRef(b.ID) }
func (b *Bug) ItemStatus() Status      { return b.Status }
func (b *Bug) ItemDescription() string { return b.Description }
func (b *Bug) ItemPriority() Priority  { return b.Priority }
func (b *Bug) Dependencies() []Ref     { return b.Deps }

func (t *Task) clone() *Task {
	copied := *t
	copied.Domain = cloneStrings(t.Domain)
	copied.Layer = cloneStrings(t.Layer)
	copied.Deps = cloneRefs(t.Deps)
	copied.SpecRefs = cloneStrings(t.SpecRefs)
	copied.ImplRefs = cloneStrings(t.ImplRefs)
	return &copied
}

func (b *Bug) clone() *Bug {
	copied := *b
	copied.Deps = cloneRefs(b.Deps)
	return &copied
}

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}
	return append([]string(nil), values...)
}

func cloneRefs(refs []Ref) []Ref {
	if refs == nil {
		return nil
	}
	return append([]Ref(nil), refs...)
}
