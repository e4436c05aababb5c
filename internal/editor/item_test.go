package editor

import (
	"errors"
	"os"
	"reflect"
	"strings"
	"testing"

	"github.com/amonks/ledger/ledger"
)

func TestRenderItemTOML_Create(t *testing.T) {
	content, err := RenderItemTOML(DefaultCreateData(false))
	if err != nil {
		t.Fatalf("RenderItemTOML failed: %v", err)
	}

	if !strings.Contains(content, `status = "open"`) {
		t.Error("expected default status open")
	}
	if !strings.Contains(content, `priority = "medium"`) {
		t.Error("expected default priority medium")
	}
	if !strings.Contains(content, "domain = []") {
		t.Error("expected empty domain list")
	}
	if strings.Contains(content, "description =") {
		t.Error("expected description to be in body")
	}
	if strings.HasPrefix(content, "#") {
		t.Error("expected no ref header for create")
	}
	if strings.Contains(content, "blocked") || strings.Contains(content, "claimed") {
		t.Error("expected derived statuses to be left out of the hint")
	}
}

func TestRenderItemTOML_UpdateTask(t *testing.T) {
	task := &ledger.Task{
		ID:          4,
		Status:      ledger.StatusPartial,
		Domain:      []string{"core"},
		Description: "Parse tables",
		Priority:    ledger.PriorityHigh,
		MVP:         true,
		Deps:        []ledger.Ref{ledger.TaskRef(1), ledger.BugRef(2)},
		SpecRefs:    []string{"§4.1"},
	}

	content, err := RenderItemTOML(DataFromItem(task))
	if err != nil {
		t.Fatalf("RenderItemTOML failed: %v", err)
	}

	for _, want := range []string{
		"# #4\n",
		`status = "partial"`,
		`priority = "high"`,
		`domain = ["core"]`,
		"mvp = true",
		`deps = ["#1", "b2"]`,
		`spec = ["§4.1"]`,
		"---\nParse tables\n",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("expected %q in:\n%s", want, content)
		}
	}
}

func TestRenderItemTOML_BugOmitsTaskFields(t *testing.T) {
	bug := &ledger.Bug{ID: 3, Status: ledger.StatusBroken, Description: "Crash", Priority: ledger.PriorityHigh}

	content, err := RenderItemTOML(DataFromItem(bug))
	if err != nil {
		t.Fatalf("RenderItemTOML failed: %v", err)
	}

	for _, key := range []string{"domain", "layer", "mvp", "spec", "impl"} {
		if strings.Contains(content, key+" =") {
			t.Errorf("expected no %s field for a bug:\n%s", key, content)
		}
	}
	if !strings.HasPrefix(content, "# b3\n") {
		t.Errorf("expected bug ref header, got:\n%s", content)
	}
}

func TestParseItemTOML(t *testing.T) {
	content := `
status = "🟢"
priority = "LOW"
domain = ["core", "cli"]
mvp = true
deps = ["3", "b1"]
---
Render the
dependency tree
`

	parsed, err := ParseItemTOML(content, false)
	if err != nil {
		t.Fatalf("ParseItemTOML failed: %v", err)
	}

	if parsed.Status != ledger.StatusReady {
		t.Errorf("expected ready, got %s", parsed.Status)
	}
	if parsed.Priority != ledger.PriorityLow {
		t.Errorf("expected low, got %s", parsed.Priority)
	}
	if !reflect.DeepEqual(parsed.Domain, []string{"core", "cli"}) {
		t.Errorf("unexpected domain %v", parsed.Domain)
	}
	if parsed.Description != "Render the dependency tree" {
		t.Errorf("expected description joined to one line, got %q", parsed.Description)
	}

	item := parsed.ToNewItem(false)
	if item.Bug || !item.MVP || !reflect.DeepEqual(item.Deps, []string{"3", "b1"}) {
		t.Errorf("unexpected new item %+v", item)
	}
}

func TestParseItemTOML_Defaults(t *testing.T) {
	parsed, err := ParseItemTOML("---\nJust a description\n", true)
	if err != nil {
		t.Fatalf("ParseItemTOML failed: %v", err)
	}
	if parsed.Status != ledger.StatusOpen || parsed.Priority != ledger.PriorityMedium {
		t.Fatalf("expected open/medium defaults, got %s/%s", parsed.Status, parsed.Priority)
	}
}

func TestParseItemTOML_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		bug     bool
		code    ledger.Code
	}{
		{name: "bad status", content: "status = \"someday\"\n---\nx\n", code: ledger.CodeInvalidStatus},
		{name: "bad priority", content: "priority = \"urgent\"\n---\nx\n", code: ledger.CodeInvalidPriority},
		{name: "empty description", content: "status = \"open\"\n---\n  \n", code: ledger.CodeEmptyDescription},
		{name: "unknown key", content: "title = \"x\"\n---\nx\n", code: ledger.CodeInvalidField},
		{name: "task field on bug", content: "mvp = true\n---\nx\n", bug: true, code: ledger.CodeInvalidField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseItemTOML(tt.content, tt.bug)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := ledger.CodeOf(err); got != tt.code {
				t.Fatalf("expected %s, got %s (%v)", tt.code, got, err)
			}
		})
	}
}

func TestParseItemTOML_InvalidTOML(t *testing.T) {
	_, err := ParseItemTOML("status = \n---\nx\n", false)
	if err == nil || errors.Is(err, ledger.ErrInvalidStatus) {
		t.Fatalf("expected TOML syntax error, got %v", err)
	}
}

func TestToChanges_OnlyChangedFields(t *testing.T) {
	task := &ledger.Task{
		ID:          2,
		Status:      ledger.StatusClaimed,
		Domain:      []string{"core"},
		Description: "Parse tables",
		Priority:    ledger.PriorityMedium,
		Deps:        []ledger.Ref{ledger.TaskRef(1)},
	}
	content, err := RenderItemTOML(DataFromItem(task))
	if err != nil {
		t.Fatalf("RenderItemTOML failed: %v", err)
	}
	content = strings.Replace(content, `priority = "medium"`, `priority = "high"`, 1)

	parsed, err := ParseItemTOML(content, false)
	if err != nil {
		t.Fatalf("ParseItemTOML failed: %v", err)
	}
	changes := parsed.ToChanges(task)

	if changes.Status != nil {
		t.Errorf("expected claimed status to be left alone, got %s", *changes.Status)
	}
	if changes.Priority == nil || *changes.Priority != ledger.PriorityHigh {
		t.Errorf("expected priority change, got %v", changes.Priority)
	}
	if changes.Description != nil || changes.Deps != nil || changes.Domain != nil || changes.MVP != nil {
		t.Errorf("expected untouched fields to stay nil, got %+v", changes)
	}
}

func TestCreateItemTempFileExtension(t *testing.T) {
	file, err := createItemTempFile()
	if err != nil {
		t.Fatalf("createItemTempFile failed: %v", err)
	}
	t.Cleanup(func() {
		os.Remove(file.Name())
	})

	if !strings.HasSuffix(file.Name(), ".md") {
		t.Errorf("expected temp file to end with .md, got %q", file.Name())
	}
}
