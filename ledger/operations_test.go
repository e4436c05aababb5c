package ledger

import (
	"bytes"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"testing"
)

func TestAddItems_AssignsSequentialIDs(t *testing.T) {
	engine := openTestEngine(t, NewDocument("Empty", DefaultSections()))

	refs, err := engine.AddItems([]NewItem{
		{Description: "First"},
		{Description: "Second", Deps: []string{"#1"}},
		{Description: "A bug", Bug: true, Priority: PriorityHigh},
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	want := []Ref{TaskRef(1), TaskRef(2), BugRef(1)}
	if !reflect.DeepEqual(refs, want) {
		t.Fatalf("expected refs %v, got %v", want, refs)
	}
	expectStatus(t, engine.Ledger(), TaskRef(1), StatusOpen)
	expectStatus(t, engine.Ledger(), TaskRef(2), StatusBlocked)
	if task := mustTask(t, engine.Ledger(), 1); task.Priority != PriorityMedium {
		t.Fatalf("expected default priority medium, got %s", task.Priority)
	}
}

func TestAddItems_IDsAreNotReused(t *testing.T) {
	engine := openTestEngine(t, testDocument([]string{taskRow(1, StatusOpen, "-"), taskRow(4, StatusOpen, "-")}, nil))

	if _, err := engine.RemoveItem("4"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	refs, err := engine.AddItems([]NewItem{{Description: "Next"}})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	if refs[0] != TaskRef(5) {
		t.Fatalf("expected #5, got %s", refs[0])
	}
}

func TestAddItems_IsAllOrNothing(t *testing.T) {
	engine := openTestEngine(t, testDocument([]string{taskRow(1, StatusOpen, "-")}, nil))

	_, err := engine.AddItems([]NewItem{
		{Description: "Fine"},
		{Description: "Broken", Deps: []string{"#42"}},
	})

	expectCode(t, err, CodeDependencyNotFound)
	if tasks, _ := engine.Ledger().Len(); tasks != 1 {
		t.Fatalf("expected the ledger to be unchanged, got %d tasks", tasks)
	}
	if engine.Ledger().NextTaskID() != 2 {
		t.Fatalf("expected the next ID to be unchanged, got %d", engine.Ledger().NextTaskID())
	}
}

func TestAddItems_Validation(t *testing.T) {
	engine := openTestEngine(t, testDocument([]string{taskRow(1, StatusOpen, "-")}, nil))

	tests := []struct {
		name  string
		input NewItem
		code  Code
	}{
		{name: "empty description", input: NewItem{Description: "  "}, code: CodeEmptyDescription},
		{name: "derived status", input: NewItem{Description: "x", Status: StatusBlocked}, code: CodeDerivedStatus},
		{name: "unknown status", input: NewItem{Description: "x", Status: "later"}, code: CodeInvalidStatus},
		{name: "unknown priority", input: NewItem{Description: "x", Priority: "urgent"}, code: CodeInvalidPriority},
		{name: "bad reference", input: NewItem{Description: "x", Deps: []string{"#one"}}, code: CodeInvalidRef},
		{name: "ready with unmet deps", input: NewItem{Description: "x", Status: StatusReady, Deps: []string{"1"}}, code: CodeDepsNotMet},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.AddItems([]NewItem{tt.input})
			expectCode(t, err, tt.code)
		})
	}
}

func TestEditItem_RejectsCycle(t *testing.T) {
	engine := openTestEngine(t, testDocument([]string{
		taskRow(7, StatusBlocked, "#8"),
		taskRow(8, StatusOpen, "-"),
	}, nil))

	_, err := engine.EditItem("8", Changes{AddDeps: []string{"#7"}}, "")

	expectCode(t, err, CodeCyclicDependency)
	if deps := mustTask(t, engine.Ledger(), 7).Deps; !reflect.DeepEqual(deps, []Ref{TaskRef(8)}) {
		t.Fatalf("expected #7 deps unchanged, got %v", deps)
	}
	if deps := mustTask(t, engine.Ledger(), 8).Deps; deps != nil {
		t.Fatalf("expected #8 deps unchanged, got %v", deps)
	}
}

func TestEditItem_RejectsSelfDependency(t *testing.T) {
	engine := openTestEngine(t, testDocument([]string{taskRow(1, StatusOpen, "-")}, nil))

	_, err := engine.EditItem("1", Changes{AddDeps: []string{"1"}}, "")

	expectCode(t, err, CodeCyclicDependency)
}

func TestEditItem_AcyclicAfterAcceptedEdits(t *testing.T) {
	engine := openTestEngine(t, testDocument([]string{
		taskRow(1, StatusOpen, "-"),
		taskRow(2, StatusOpen, "-"),
		taskRow(3, StatusOpen, "-"),
		taskRow(4, StatusOpen, "-"),
	}, nil))

	edits := []struct {
		id  string
		dep string
	}{
		{"2", "1"}, {"3", "2"}, {"4", "3"}, {"1", "4"}, {"4", "1"}, {"1", "3"}, {"3", "4"}, {"2", "4"},
	}
	for _, edit := range edits {
		before := engine.Ledger()
		_, err := engine.EditItem(edit.id, Changes{AddDeps: []string{edit.dep}}, "")
		if err != nil {
			if CodeOf(err) != CodeCyclicDependency {
				t.Fatalf("edit %s -> %s: %v", edit.id, edit.dep, err)
			}
			if engine.Ledger() != before {
				t.Fatalf("expected rejected edit %s -> %s to leave the ledger unchanged", edit.id, edit.dep)
			}
		}
		if cycles := engine.Ledger().Cycles(); len(cycles) != 0 {
			t.Fatalf("cycle after edit %s -> %s: %v", edit.id, edit.dep, cycles)
		}
	}
}

func TestEditItem_DoneUnblocksDependents(t *testing.T) {
	engine := openTestEngine(t, testDocument([]string{
		taskRow(1, StatusDone, "-"),
		taskRow(2, StatusBlocked, "#1, #3"),
		taskRow(3, StatusOpen, "-"),
	}, nil))

	changes, err := engine.EditItem("3", Changes{Status: statusPtr(StatusDone)}, "")
	if err != nil {
		t.Fatalf("edit: %v", err)
	}

	if !reflect.DeepEqual(changes.Changed, []Ref{TaskRef(3), TaskRef(2)}) {
		t.Fatalf("unexpected changed refs %v", changes.Changed)
	}
	expectStatus(t, engine.Ledger(), TaskRef(2), StatusOpen)
}

func TestEditItem_NewUnmetDependencyBlocksDownstream(t *testing.T) {
	engine := openTestEngine(t, testDocument([]string{
		taskRow(1, StatusOpen, "-"),
		taskRow(2, StatusReady, "-"),
		taskRow(3, StatusOpen, "#2"),
	}, nil))
	engine.ledger.setStatus(TaskRef(2), StatusDone)
	engine.ledger.setStatus(TaskRef(3), StatusReady)

	changes, err := engine.EditItem("2", Changes{AddDeps: []string{"1"}}, "")
	if err != nil {
		t.Fatalf("edit: %v", err)
	}

	// Done items keep their status when a dependency is added.
	expectStatus(t, engine.Ledger(), TaskRef(2), StatusDone)
	if len(changes.Changed) != 1 {
		t.Fatalf("expected no propagation, got %v", changes.Changed)
	}

	if _, err := engine.EditItem("2", Changes{Status: statusPtr(StatusReview)}, ""); err != nil {
		t.Fatalf("edit: %v", err)
	}
	expectStatus(t, engine.Ledger(), TaskRef(2), StatusBlocked)
	expectStatus(t, engine.Ledger(), TaskRef(3), StatusBlocked)
}

func TestEditItem_StatusRules(t *testing.T) {
	document := testDocument([]string{
		taskRow(1, StatusOpen, "-"),
		taskRow(2, StatusBlocked, "#1"),
	}, nil)

	tests := []struct {
		name   string
		id     string
		status Status
		code   Code
	}{
		{name: "blocked is derived", id: "1", status: StatusBlocked, code: CodeDerivedStatus},
		{name: "claimed is derived", id: "1", status: StatusClaimed, code: CodeDerivedStatus},
		{name: "done needs deps", id: "2", status: StatusDone, code: CodeDepsNotMet},
		{name: "ready needs deps", id: "2", status: StatusReady, code: CodeDepsNotMet},
		{name: "unknown status", id: "1", status: "maybe", code: CodeInvalidStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := openTestEngine(t, document)

			_, err := engine.EditItem(tt.id, Changes{Status: statusPtr(tt.status)}, "")

			expectCode(t, err, tt.code)
			expectStatus(t, engine.Ledger(), TaskRef(2), StatusBlocked)
		})
	}
}

func TestEditItem_OpenWithUnmetDepsStaysBlocked(t *testing.T) {
	engine := openTestEngine(t, testDocument([]string{
		taskRow(1, StatusOpen, "-"),
		taskRow(2, StatusBlocked, "#1"),
	}, nil))

	if _, err := engine.EditItem("2", Changes{Status: statusPtr(StatusPartial)}, ""); err != nil {
		t.Fatalf("edit: %v", err)
	}
	expectStatus(t, engine.Ledger(), TaskRef(2), StatusBlocked)
}

func TestEditItem_RemovingLastDepReopens(t *testing.T) {
	engine := openTestEngine(t, testDocument([]string{
		taskRow(1, StatusOpen, "-"),
		taskRow(2, StatusBlocked, "#1"),
	}, nil))

	if _, err := engine.EditItem("2", Changes{RemoveDeps: []string{"#1"}}, ""); err != nil {
		t.Fatalf("edit: %v", err)
	}
	expectStatus(t, engine.Ledger(), TaskRef(2), StatusOpen)
}

func TestEditItem_Fields(t *testing.T) {
	engine := openTestEngine(t, testDocument([]string{taskRow(1, StatusOpen, "-")}, nil))

	description := "  Rewrite   the codec  "
	priority := PriorityHigh
	mvp := true
	domain := []string{"core, cli", " api "}
	changes, err := engine.EditItem("1", Changes{
		Description: &description,
		Priority:    &priority,
		MVP:         &mvp,
		Domain:      &domain,
	}, "")
	if err != nil {
		t.Fatalf("edit: %v", err)
	}

	task, ok := changes.Item.(*Task)
	if !ok {
		t.Fatalf("expected a task, got %T", changes.Item)
	}
	if task.Description != "Rewrite the codec" || task.Priority != PriorityHigh || !task.MVP {
		t.Fatalf("unexpected task %+v", task)
	}
	if !reflect.DeepEqual(task.Domain, []string{"core", "cli", "api"}) {
		t.Fatalf("unexpected domain %q", task.Domain)
	}
}

func TestEditItem_BugRejectsTaskFields(t *testing.T) {
	engine := openTestEngine(t, testDocument(
		[]string{taskRow(1, StatusOpen, "-")},
		[]string{bugRow(1, StatusOpen, "-")},
	))

	mvp := true
	_, err := engine.EditItem("b1", Changes{MVP: &mvp}, "")

	expectCode(t, err, CodeInvalidField)
}

func TestEditItem_ClaimedItemNeedsLease(t *testing.T) {
	engine := openTestEngine(t, testDocument([]string{taskRow(1, StatusReady, "-")}, nil))
	claim, err := engine.Claim("1")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	description := "Updated"

	_, err = engine.EditItem("1", Changes{Description: &description}, "")
	expectCode(t, err, CodeTaskClaimed)

	_, err = engine.EditItem("1", Changes{Description: &description}, "WXYZ")
	expectCode(t, err, CodeInvalidKey)

	changes, err := engine.EditItem("1", Changes{Description: &description}, claim.Token)
	if err != nil {
		t.Fatalf("edit with lease: %v", err)
	}
	if changes.Released != nil {
		t.Fatal("expected a field edit to keep the claim")
	}
	expectStatus(t, engine.Ledger(), TaskRef(1), StatusClaimed)

	changes, err = engine.EditItem("1", Changes{Status: statusPtr(StatusDone)}, claim.Token)
	if err != nil {
		t.Fatalf("finish with lease: %v", err)
	}
	if changes.Released == nil || changes.Released.Token != claim.Token {
		t.Fatalf("expected the claim to be released, got %v", changes.Released)
	}
	expectStatus(t, engine.Ledger(), TaskRef(1), StatusDone)
	if claims := engine.Claims(); len(claims) != 0 {
		t.Fatalf("expected no claims, got %v", claims)
	}
}

func TestEditItem_ExpiredLease(t *testing.T) {
	engine := openTestEngine(t, testDocument([]string{taskRow(1, StatusPartial, "-")}, nil))
	claim, err := engine.Claim("1")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	engine.clock.Advance(ClaimTTL * 2)
	description := "Updated"

	_, err = engine.EditItem("1", Changes{Description: &description}, claim.Token)
	expectCode(t, err, CodeClaimExpired)

	if _, err := engine.EditItem("1", Changes{Description: &description}, ""); err != nil {
		t.Fatalf("expected an expired claim to stop protecting the item: %v", err)
	}
	expectStatus(t, engine.Ledger(), TaskRef(1), StatusPartial)
	if claims := engine.Claims(); len(claims) != 0 {
		t.Fatalf("expected the expired claim to be dropped, got %v", claims)
	}
}

func TestEditItem_NotFound(t *testing.T) {
	engine := openTestEngine(t, testDocument([]string{taskRow(1, StatusOpen, "-")}, nil))

	_, err := engine.EditItem("3", Changes{}, "")
	expectCode(t, err, CodeTaskNotFound)

	_, err = engine.EditItem("1", Changes{AddDeps: []string{"b5"}}, "")
	expectCode(t, err, CodeDependencyNotFound)
}

func TestRemoveItem_ResolvingBugUnblocks(t *testing.T) {
	engine := openTestEngine(t, testDocument(
		[]string{taskRow(1, StatusBlocked, "b1"), taskRow(2, StatusBlocked, "b1, #3"), taskRow(3, StatusOpen, "-")},
		[]string{bugRow(1, StatusBroken, "-")},
	))

	changes, err := engine.RemoveItem("b1")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}

	if !reflect.DeepEqual(changes.Changed, []Ref{BugRef(1), TaskRef(1), TaskRef(2)}) {
		t.Fatalf("unexpected changed refs %v", changes.Changed)
	}
	expectStatus(t, engine.Ledger(), TaskRef(1), StatusOpen)
	expectStatus(t, engine.Ledger(), TaskRef(2), StatusBlocked)
	if deps := mustTask(t, engine.Ledger(), 2).Deps; !reflect.DeepEqual(deps, []Ref{TaskRef(3)}) {
		t.Fatalf("expected b1 stripped from deps, got %v", deps)
	}
}

func TestRemoveItem_EndsClaim(t *testing.T) {
	engine := openTestEngine(t, testDocument([]string{taskRow(1, StatusOpen, "-")}, nil))
	claim, err := engine.Claim("1")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}

	changes, err := engine.RemoveItem("1")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}

	if changes.Released == nil || changes.Released.Token != claim.Token {
		t.Fatalf("expected the claim to be released, got %v", changes.Released)
	}
	_, err = engine.Release(claim.Token)
	expectCode(t, err, CodeInvalidKey)
}

func TestSave_WritesDocument(t *testing.T) {
	engine := openTestEngine(t, testDocument([]string{taskRow(1, StatusOpen, "-")}, nil))

	if err := engine.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}
	if engine.documents.saves != 0 {
		t.Fatal("expected an unchanged ledger not to be written")
	}

	if _, err := engine.AddItems([]NewItem{{Description: "Persist me", Domain: []string{"cli"}}}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := engine.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	reloaded := decodeTest(t, engine.documents.text)
	task := mustTask(t, reloaded, 2)
	if task.Description != "Persist me" || !reflect.DeepEqual(task.Domain, []string{"cli"}) {
		t.Fatalf("unexpected saved task %+v", task)
	}
	if !strings.HasPrefix(engine.documents.text, "# Project\n") {
		t.Fatalf("expected the title preserved, got:\n%s", engine.documents.text)
	}
}

func TestOpen_MissingDocument(t *testing.T) {
	_, err := Open(Options{Documents: &memoryDocuments{}})

	expectCode(t, err, CodeFileNotFound)
}

type failingMirror struct {
	calls []MirrorOp
}

func (m *failingMirror) MirrorItem(item Item, target string, op MirrorOp) error {
	m.calls = append(m.calls, op)
	return errMirror
}

func TestMirrorFailuresAreLoggedAndIgnored(t *testing.T) {
	var logs bytes.Buffer
	mirror := &failingMirror{}
	engine, err := Open(Options{
		Documents:     &memoryDocuments{text: testDocument([]string{taskRow(1, StatusOpen, "-")}, nil)},
		Mirror:        mirror,
		MirrorTargets: []string{"notes.md"},
		Logger:        slog.New(slog.NewTextHandler(&logs, nil)),
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if _, err := engine.AddItems([]NewItem{{Description: "Mirrored"}}); err != nil {
		t.Fatalf("expected add to succeed despite mirror failure: %v", err)
	}
	if _, err := engine.RemoveItem("1"); err != nil {
		t.Fatalf("expected remove to succeed despite mirror failure: %v", err)
	}
	if err := engine.Save(); err != nil {
		t.Fatalf("expected save to succeed despite mirror failure: %v", err)
	}

	if !reflect.DeepEqual(mirror.calls, []MirrorOp{MirrorAdd, MirrorRemove}) {
		t.Fatalf("unexpected mirror calls %v", mirror.calls)
	}
	if !strings.Contains(logs.String(), "mirror failed") || !strings.Contains(logs.String(), errMirror.Error()) {
		t.Fatalf("expected the failure to be logged, got %q", logs.String())
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(nil); got != "" {
		t.Fatalf("expected empty code for nil, got %s", got)
	}
	if got := CodeOf(errors.New("boom")); got != CodeUnknown {
		t.Fatalf("expected unknown code, got %s", got)
	}
	wrapped := &ParseError{Line: 3, Err: ErrInvalidID}
	if got := CodeOf(wrapped); got != CodeInvalidID {
		t.Fatalf("expected INVALID_ID, got %s", got)
	}
}

func TestAddItems_EmptyCellTokenDoesNotRoundTripAsAValue(t *testing.T) {
	engine := openTestEngine(t, testDocument([]string{taskRow(1, StatusOpen, "-")}, nil))

	_, err := engine.AddItems([]NewItem{{Description: " - "}})
	expectCode(t, err, CodeEmptyDescription)

	_, err = engine.EditItem("1", Changes{Description: strPtr("-")}, "")
	expectCode(t, err, CodeEmptyDescription)

	refs, err := engine.AddItems([]NewItem{{Description: "Tagged", Domain: []string{"-", "core"}, Layer: []string{"-"}}})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := engine.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	reloaded := decodeTest(t, engine.documents.text)
	task := mustTask(t, reloaded, refs[0].ID)
	if !reflect.DeepEqual(task.Domain, []string{"core"}) || task.Layer != nil {
		t.Fatalf("expected the empty token dropped from lists, got domain %q layer %q", task.Domain, task.Layer)
	}
	if task.Description != "Tagged" {
		t.Fatalf("unexpected description %q", task.Description)
	}
}

func strPtr(value string) *string {
	return &value
}
