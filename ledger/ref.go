package ledger

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// RefKind tags what a reference points at.
type RefKind int

const (
	RefTask RefKind = iota + 1
	RefBug
)

// Ref is a parsed reference token: "#7" or "7" name task 7, "b3" names bug 3.
type Ref struct {
	Kind RefKind
	ID   int
}

// TaskRef returns a reference to a task.
func TaskRef(id int) Ref {
	return Ref{Kind: RefTask, ID: id}
}

// BugRef returns a reference to a bug.
func BugRef(id int) Ref {
	return Ref{Kind: RefBug, ID: id}
}

// ParseRef normalizes a reference token. It is the only place the textual
// forms are interpreted.
func ParseRef(token string) (Ref, error) {
	value := strings.TrimSpace(token)
	switch {
	case value == "":
		return Ref{}, fmt.Errorf("%w: empty reference", ErrInvalidRef)
	case value[0] == 'b' || value[0] == 'B':
		id, err := parseRefNumber(value[1:])
		if err != nil {
			return Ref{}, fmt.Errorf("%w: %q", ErrInvalidRef, token)
		}
		return BugRef(id), nil
	default:
		id, err := parseRefNumber(strings.TrimPrefix(value, "#"))
		if err != nil {
			return Ref{}, fmt.Errorf("%w: %q", ErrInvalidRef, token)
		}
		return TaskRef(id), nil
	}
}

// ParseRefs parses a list of tokens, stopping at the first invalid one.
func ParseRefs(tokens []string) ([]Ref, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	refs := make([]Ref, 0, len(tokens))
	for _, token := range tokens {
		ref, err := ParseRef(token)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func parseRefNumber(value string) (int, error) {
	if value == "" {
		return 0, strconv.ErrSyntax
	}
	for _, char := range value {
		if char < '0' || char > '9' {
			return 0, strconv.ErrSyntax
		}
	}
	id, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, strconv.ErrRange
	}
	return id, nil
}

// IsTask reports whether r names a task.
func (r Ref) IsTask() bool {
	return r.Kind == RefTask
}

// IsBug reports whether r names a bug.
func (r Ref) IsBug() bool {
	return r.Kind == RefBug
}

// String renders the canonical token.
func (r Ref) String() string {
	switch r.Kind {
	case RefTask:
		return "#" + strconv.Itoa(r.ID)
	case RefBug:
		return "b" + strconv.Itoa(r.ID)
	default:
		return "?"
	}
}

// Key renders the form used in claim registries: "7" for tasks, "b3" for bugs.
func (r Ref) Key() string {
	if r.Kind == RefTask {
		return strconv.Itoa(r.ID)
	}
	return r.String()
}

// MarshalText implements encoding.TextMarshaler.
func (r Ref) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Ref) UnmarshalText(text []byte) error {
	parsed, err := ParseRef(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// RefStrings renders refs as tokens.
func RefStrings(refs []Ref) []string {
	if len(refs) == 0 {
		return nil
	}
	values := make([]string, 0, len(refs))
	for _, ref := range refs {
		values = append(values, ref.String())
	}
	return values
}

func containsRef(refs []Ref, target Ref) bool {
	for _, ref := range refs {
		if ref == target {
			return true
		}
	}
	return false
}

func withoutRef(refs []Ref, target Ref) ([]Ref, bool) {
	kept := refs[:0:0]
	removed := false
	for _, ref := range refs {
		if ref == target {
			removed = true
			continue
		}
		kept = append(kept, ref)
	}
	if len(kept) == 0 {
		kept = nil
	}
	return kept, removed
}

type bugView struct {
	ID          string   `json:"id" yaml:"id"`
	Status      Status   `json:"status" yaml:"status"`
	Description string   `json:"description" yaml:"description"`
	Priority    Priority `json:"priority" yaml:"priority"`
	Deps        []Ref    `json:"deps,omitempty" yaml:"deps,omitempty"`
}

func (b Bug) view() bugView {
	return bugView{
		ID:          BugRef(b.ID).String(),
		Status:      b.Status,
		Description: b.Description,
		Priority:    b.Priority,
		Deps:        b.Deps,
	}
}

// MarshalJSON renders the bug with its prefixed ID.
func (b Bug) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.view())
}

// MarshalYAML renders the bug with its prefixed ID.
func (b Bug) MarshalYAML() (any, error) {
	return b.view(), nil
}
