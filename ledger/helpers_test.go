package ledger

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/amonks/ledger/internal/mdtable"
)

type memoryDocuments struct {
	text  string
	saves int
}

func (m *memoryDocuments) LoadDocument() (string, error) {
	if m.text == "" {
		return "", ErrFileNotFound
	}
	return m.text, nil
}

func (m *memoryDocuments) SaveDocument(text string) error {
	m.text = text
	m.saves++
	return nil
}

type memoryClaims struct {
	registry *Registry
}

func (m *memoryClaims) LoadClaims() (*Registry, error) {
	if m.registry == nil {
		return NewRegistry(), nil
	}
	return m.registry.Clone(), nil
}

func (m *memoryClaims) SaveClaims(registry *Registry) error {
	m.registry = registry.Clone()
	return nil
}

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time {
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

// sequenceTokens hands out tokens in order, then repeats the last one.
func sequenceTokens(tokens ...string) func() string {
	i := 0
	return func() string {
		token := tokens[min(i, len(tokens)-1)]
		i++
		return token
	}
}

type testEngine struct {
	*Engine
	documents *memoryDocuments
	claims    *memoryClaims
	clock     *testClock
}

func openTestEngine(t *testing.T, document string, tokens ...string) *testEngine {
	t.Helper()

	if len(tokens) == 0 {
		tokens = []string{"AAAA", "BBBB", "CCCC", "DDDD", "EEEE"}
	}
	documents := &memoryDocuments{text: document}
	claims := &memoryClaims{}
	clock := &testClock{now: time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)}

	engine, err := Open(Options{
		Documents: documents,
		Claims:    claims,
		Now:       clock.Now,
		Token:     sequenceTokens(tokens...),
	})
	if err != nil {
		t.Fatalf("open engine: %v", err)
	}
	return &testEngine{Engine: engine, documents: documents, claims: claims, clock: clock}
}

// taskRow renders a task row with the given status and dependency cell.
func taskRow(id int, status Status, deps string) string {
	return fmt.Sprintf("| %d | %s | - | - | Task %d | medium | - | %s | - | - |", id, status.Cell(), id, deps)
}

func bugRow(id int, status Status, deps string) string {
	return fmt.Sprintf("| b%d | %s | Bug %d | high | %s |", id, status.Cell(), id, deps)
}

func testDocument(tasks []string, bugs []string) string {
	var builder strings.Builder
	builder.WriteString("# Project\n\n## Tasks\n\n")
	builder.WriteString(mdtable.Build(TaskColumns, nil))
	for _, row := range tasks {
		builder.WriteString(row + "\n")
	}
	if bugs != nil {
		builder.WriteString("\n## Bugs\n\n")
		builder.WriteString(mdtable.Build(BugColumns, nil))
		for _, row := range bugs {
			builder.WriteString(row + "\n")
		}
	}
	return builder.String()
}

func mustTask(t *testing.T, l *Ledger, id int) *Task {
	t.Helper()
	task, ok := l.Task(id)
	if !ok {
		t.Fatalf("task %d not found", id)
	}
	return task
}

func expectStatus(t *testing.T, l *Ledger, ref Ref, want Status) {
	t.Helper()
	item, ok := l.Lookup(ref)
	if !ok {
		t.Fatalf("%s not found", ref)
	}
	if got := item.ItemStatus(); got != want {
		t.Fatalf("expected %s to be %s, got %s", ref, want, got)
	}
}

func expectCode(t *testing.T, err error, want Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	if got := CodeOf(err); got != want {
		t.Fatalf("expected code %s, got %s (%v)", want, got, err)
	}
}

func statusPtr(status Status) *Status {
	return &status
}

func decodeTest(t *testing.T, document string) *Ledger {
	t.Helper()
	l, err := Decode(document, DefaultSections())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return l
}

var errMirror = errors.New("mirror unavailable")
