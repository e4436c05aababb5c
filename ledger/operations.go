package ledger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/amonks/ledger/internal/mdtable"
	internalstrings "github.com/amonks/ledger/internal/strings"
)

// Options configures an Engine.
type Options struct {
	// Documents loads and saves the ledger document. Required.
	Documents DocumentStore

	// Claims loads and saves the claim registry. If nil, claims live only
	// in memory for the life of the engine.
	Claims ClaimStore

	// Mirror receives a copy of every changed item for each target once
	// Save has written the document.
	Mirror        Mirror
	MirrorTargets []string

	Sections Sections

	// TTL overrides ClaimTTL.
	TTL time.Duration

	// Now and Token are overridable for tests.
	Now   func() time.Time
	Token func() string

	// Logger receives diagnostics. If nil, logs are discarded.
	Logger *slog.Logger
}

// Engine runs ledger operations over one loaded document. Operations are
// synchronous and not safe for concurrent use; wrap a whole
// load-mutate-save cycle in FileStore.WithLock for cross-process safety.
type Engine struct {
	opts     Options
	leases   leases
	logger   *slog.Logger
	document string
	ledger   *Ledger
	registry *Registry

	documentDirty bool
	claimsDirty   bool

	// pending holds mirror writes for changes not yet saved.
	pending []mirrorWrite
}

type mirrorWrite struct {
	item Item
	op   MirrorOp
}

// Open loads the document and the claim registry.
func Open(opts Options) (*Engine, error) {
	if opts.Documents == nil {
		return nil, fmt.Errorf("ledger: no document store configured")
	}
	opts.Sections = opts.Sections.withDefaults()
	if opts.TTL <= 0 {
		opts.TTL = ClaimTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Token == nil {
		opts.Token = NewLeaseToken
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	e := &Engine{
		opts:   opts,
		logger: logger,
		leases: leases{ttl: opts.TTL, now: opts.Now, token: opts.Token, logger: logger},
	}
	if _, err := e.LoadLedger(); err != nil {
		return nil, err
	}

	registry := NewRegistry()
	if opts.Claims != nil {
		loaded, err := opts.Claims.LoadClaims()
		if err != nil {
			return nil, err
		}
		registry = loaded.normalize()
	}
	e.registry = registry
	return e, nil
}

// LoadLedger rereads the document, discarding unsaved changes.
func (e *Engine) LoadLedger() (*Ledger, error) {
	document, err := e.opts.Documents.LoadDocument()
	if err != nil {
		return nil, err
	}
	ledger, err := Decode(document, e.opts.Sections)
	if err != nil {
		return nil, err
	}
	tasks, bugs := ledger.Len()
	e.logger.Debug("loaded ledger", "tasks", tasks, "bugs", bugs, "bytes", len(document))

	e.document = document
	e.ledger = ledger
	e.documentDirty = false
	e.pending = nil
	return ledger, nil
}

// Ledger returns the current ledger. It must not be mutated.
func (e *Engine) Ledger() *Ledger {
	return e.ledger
}

// Claims returns every claim ordered by grant time.
func (e *Engine) Claims() []Claim {
	return e.registry.List()
}

// Document returns the document as it would be saved now.
func (e *Engine) Document() string {
	if !e.documentDirty {
		return e.document
	}
	return Encode(e.document, e.ledger, e.opts.Sections)
}

// Save writes the document and the claim registry if either changed.
func (e *Engine) Save() error {
	if e.documentDirty {
		document := Encode(e.document, e.ledger, e.opts.Sections)
		if err := e.opts.Documents.SaveDocument(document); err != nil {
			return err
		}
		e.logger.Debug("saved ledger", "bytes", len(document))
		e.document = document
		e.documentDirty = false
	}
	if e.claimsDirty && e.opts.Claims != nil {
		if err := e.opts.Claims.SaveClaims(e.registry); err != nil {
			return err
		}
		e.claimsDirty = false
	}
	e.flushMirror()
	return nil
}

// NewItem describes a task or bug to add.
type NewItem struct {
	// Bug adds a bug instead of a task. Bugs ignore the task-only fields.
	Bug bool

	// Status defaults to open. Blocked and claimed are rejected.
	Status      Status
	Domain      []string
	Layer       []string
	Description string
	Priority    Priority
	MVP         bool

	// Deps are reference tokens; every one must resolve.
	Deps     []string
	SpecRefs []string
	ImplRefs []string
}

// AddItems adds every input or none of them. Later inputs may depend on
// earlier ones in the same batch. It returns the new items' references.
func (e *Engine) AddItems(inputs []NewItem) ([]Ref, error) {
	next := e.ledger.Clone()
	refs := make([]Ref, 0, len(inputs))

	for i, input := range inputs {
		ref, err := addItem(next, input)
		if err != nil {
			if len(inputs) > 1 {
				return nil, fmt.Errorf("item %d: %w", i+1, err)
			}
			return nil, err
		}
		refs = append(refs, ref)
	}

	e.commit(next, nil, refs, MirrorAdd)
	return refs, nil
}

func addItem(l *Ledger, input NewItem) (Ref, error) {
	description := internalstrings.NormalizeWhitespace(input.Description)
	if err := checkDescription(description); err != nil {
		return Ref{}, err
	}

	status := input.Status
	if status == "" {
		status = StatusOpen
	}
	if !status.IsValid() {
		return Ref{}, statusError(string(status))
	}
	if status.IsDerived() {
		return Ref{}, fmt.Errorf("%w: %s", ErrDerivedStatus, status)
	}

	priority := input.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	if !priority.IsValid() {
		return Ref{}, priorityError(string(priority))
	}

	deps, err := parseDeps(input.Deps)
	if err != nil {
		return Ref{}, err
	}
	for _, dep := range deps {
		if !l.Exists(dep) {
			return Ref{}, fmt.Errorf("%w: %s", ErrDependencyNotFound, dep)
		}
	}

	var item Item
	if input.Bug {
		item = l.AddBug(Bug{
			Status:      status,
			Description: description,
			Priority:    priority,
			Deps:        deps,
		})
	} else {
		item = l.AddTask(Task{
			Status:      status,
			Domain:      normalizeList(input.Domain),
			Layer:       normalizeList(input.Layer),
			Description: description,
			Priority:    priority,
			MVP:         input.MVP,
			Deps:        deps,
			SpecRefs:    normalizeList(input.SpecRefs),
			ImplRefs:    normalizeList(input.ImplRefs),
		})
	}

	if err := checkDepsForStatus(l, item, status); err != nil {
		return Ref{}, err
	}
	l.setStatus(item.Ref(), l.settle(item, status))
	return item.Ref(), nil
}

// Changes describes an edit. Nil fields are left unchanged.
type Changes struct {
	Status      *Status
	Domain      *[]string
	Layer       *[]string
	Description *string
	Priority    *Priority
	MVP         *bool
	SpecRefs    *[]string
	ImplRefs    *[]string

	// Deps replaces the dependency list. AddDeps and RemoveDeps apply
	// after it.
	Deps       *[]string
	AddDeps    []string
	RemoveDeps []string
}

func (c Changes) touchesDeps() bool {
	return c.Deps != nil || len(c.AddDeps) > 0 || len(c.RemoveDeps) > 0
}

// ChangeSet reports what a mutation changed.
type ChangeSet struct {
	// Item is the edited item after the change, or the removed item.
	Item Item

	// Changed lists every item whose record changed, the target first.
	Changed []Ref

	// Released is the claim ended by the change, if any.
	Released *Claim
}

// EditItem applies changes to the item named by id. A claimed item can only
// be edited with the lease token of its live claim; changing the status of
// a claimed item ends the claim. Rejected edits leave the ledger unchanged.
func (e *Engine) EditItem(id string, changes Changes, leaseToken string) (ChangeSet, error) {
	leaseToken = strings.ToUpper(strings.TrimSpace(leaseToken))
	ref, err := ParseRef(id)
	if err != nil {
		return ChangeSet{}, err
	}
	current, ok := e.ledger.Lookup(ref)
	if !ok {
		return ChangeSet{}, notFoundError(ref)
	}

	next := e.ledger.Clone()
	registry := e.registry.Clone()

	var held *Claim
	if current.ItemStatus() == StatusClaimed {
		claim, hasClaim := registry.Claims[ref.Key()]
		switch {
		case leaseToken != "":
			validated, err := e.leases.validate(registry, ref, leaseToken)
			if err != nil {
				return ChangeSet{}, err
			}
			held = &validated
		case hasClaim && e.leases.expired(claim):
			// A lapsed lease no longer protects the item.
			e.leases.restore(next, claim)
			registry.remove(claim)
		default:
			return ChangeSet{}, fmt.Errorf("%w: %s", ErrTaskClaimed, ref)
		}
	}

	item, _ := next.Lookup(ref)
	if err := applyFields(item, changes); err != nil {
		return ChangeSet{}, err
	}

	if changes.touchesDeps() {
		deps, err := nextDeps(next, ref, item.Dependencies(), changes)
		if err != nil {
			return ChangeSet{}, err
		}
		next.setDeps(ref, deps)
	}

	before := item.ItemStatus()
	status := before
	var released *Claim
	if changes.Status != nil {
		status = *changes.Status
		if !status.IsValid() {
			return ChangeSet{}, statusError(string(status))
		}
		if status.IsDerived() {
			return ChangeSet{}, fmt.Errorf("%w: %s", ErrDerivedStatus, status)
		}
		if err := checkDepsForStatus(next, item, status); err != nil {
			return ChangeSet{}, err
		}
		if held != nil {
			registry.remove(*held)
			released = held
		}
	}
	if changes.Status != nil || changes.touchesDeps() {
		status = next.settle(item, status)
	}

	changed := []Ref{ref}
	if status != before {
		next.setStatus(ref, status)
		changed = append(changed, next.Propagate(ref, status)...)
	}

	e.commit(next, registry, changed, MirrorUpdate)
	edited, _ := e.ledger.Lookup(ref)
	return ChangeSet{Item: edited, Changed: changed, Released: released}, nil
}

func applyFields(item Item, changes Changes) error {
	switch item := item.(type) {
	case *Task:
		if changes.Description != nil {
			item.Description = internalstrings.NormalizeWhitespace(*changes.Description)
		}
		if changes.Domain != nil {
			item.Domain = normalizeList(*changes.Domain)
		}
		if changes.Layer != nil {
			item.Layer = normalizeList(*changes.Layer)
		}
		if changes.MVP != nil {
			item.MVP = *changes.MVP
		}
		if changes.SpecRefs != nil {
			item.SpecRefs = normalizeList(*changes.SpecRefs)
		}
		if changes.ImplRefs != nil {
			item.ImplRefs = normalizeList(*changes.ImplRefs)
		}
		if changes.Priority != nil {
			if !changes.Priority.IsValid() {
				return priorityError(string(*changes.Priority))
			}
			item.Priority = *changes.Priority
		}
		if err := checkDescription(item.Description); err != nil {
			return err
		}
	case *Bug:
		if changes.Domain != nil || changes.Layer != nil || changes.MVP != nil || changes.SpecRefs != nil || changes.ImplRefs != nil {
			return fmt.Errorf("%w: bugs only carry status, description, priority and deps", ErrInvalidField)
		}
		if changes.Description != nil {
			item.Description = internalstrings.NormalizeWhitespace(*changes.Description)
		}
		if changes.Priority != nil {
			if !changes.Priority.IsValid() {
				return priorityError(string(*changes.Priority))
			}
			item.Priority = *changes.Priority
		}
		if err := checkDescription(item.Description); err != nil {
			return err
		}
	}
	return nil
}

// nextDeps computes the edited dependency list. Every dependency not
// already present must resolve, and task edges must not close a cycle.
func nextDeps(l *Ledger, ref Ref, current []Ref, changes Changes) ([]Ref, error) {
	deps := cloneRefs(current)
	if changes.Deps != nil {
		replaced, err := parseDeps(*changes.Deps)
		if err != nil {
			return nil, err
		}
		deps = replaced
	}
	added, err := parseDeps(changes.AddDeps)
	if err != nil {
		return nil, err
	}
	for _, dep := range added {
		if !containsRef(deps, dep) {
			deps = append(deps, dep)
		}
	}
	removed, err := parseDeps(changes.RemoveDeps)
	if err != nil {
		return nil, err
	}
	for _, dep := range removed {
		deps, _ = withoutRef(deps, dep)
	}

	for _, dep := range deps {
		if containsRef(current, dep) {
			continue
		}
		if dep == ref {
			return nil, cycleError(ref, dep, []Ref{ref, ref})
		}
		if !l.Exists(dep) {
			return nil, fmt.Errorf("%w: %s", ErrDependencyNotFound, dep)
		}
		if ref.IsTask() {
			if path := l.dependencyPath(dep, ref); path != nil {
				return nil, cycleError(ref, dep, append([]Ref{ref}, path...))
			}
		}
	}
	return deps, nil
}

func checkDepsForStatus(l *Ledger, item Item, status Status) error {
	if status != StatusReady && status != StatusDone {
		return nil
	}
	unmet := l.UnmetDependencies(item)
	if len(unmet) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s waits on %s", ErrDepsNotMet, item.Ref(), strings.Join(RefStrings(unmet), ", "))
}

// RemoveItem deletes the item named by id, strips it from every dependency
// list, ends any claim on it, and reopens former dependents that are now
// satisfied. Removing a bug is how a bug is resolved.
func (e *Engine) RemoveItem(id string) (ChangeSet, error) {
	ref, err := ParseRef(id)
	if err != nil {
		return ChangeSet{}, err
	}
	removed, ok := e.ledger.Lookup(ref)
	if !ok {
		return ChangeSet{}, notFoundError(ref)
	}

	next := e.ledger.Clone()
	registry := e.registry.Clone()

	var released *Claim
	if claim, ok := registry.Claims[ref.Key()]; ok {
		registry.remove(claim)
		released = &claim
	}

	touched := next.delete(ref)
	items := make([]Item, 0, len(touched))
	for _, dependent := range touched {
		if item, ok := next.Lookup(dependent); ok {
			items = append(items, item)
		}
	}
	next.reopenSatisfied(items)

	changed := append([]Ref{ref}, touched...)
	e.commit(next, registry, touched, MirrorUpdate)
	e.mirror([]Item{removed}, MirrorRemove)
	return ChangeSet{Item: removed, Changed: changed, Released: released}, nil
}

// Claim grants a lease on the item named by id.
func (e *Engine) Claim(id string) (Claim, error) {
	ref, err := ParseRef(id)
	if err != nil {
		return Claim{}, err
	}

	next := e.ledger.Clone()
	registry := e.registry.Clone()
	claim, err := e.leases.grant(next, registry, ref)
	if err != nil {
		return Claim{}, err
	}

	e.commit(next, registry, []Ref{ref}, MirrorUpdate)
	return claim, nil
}

// Release ends the claim holding token and restores the status the item
// had when it was claimed.
func (e *Engine) Release(token string) (Claim, error) {
	token = strings.ToUpper(strings.TrimSpace(token))

	next := e.ledger.Clone()
	registry := e.registry.Clone()
	claim, err := e.leases.release(next, registry, token)
	if err != nil {
		return Claim{}, err
	}

	var changed []Ref
	if ref, err := claim.Ref(); err == nil {
		changed = append(changed, ref)
	}
	e.commit(next, registry, changed, MirrorUpdate)
	return claim, nil
}

// SweepExpired releases every expired claim and returns them. Claims are
// otherwise only expired lazily when consulted, so callers sweep at the
// start of any command that reads claim state.
func (e *Engine) SweepExpired() []Claim {
	next := e.ledger.Clone()
	registry := e.registry.Clone()
	swept := e.leases.sweep(next, registry)
	if len(swept) == 0 {
		return nil
	}

	var changed []Ref
	for _, claim := range swept {
		if ref, err := claim.Ref(); err == nil {
			changed = append(changed, ref)
		}
	}
	e.commit(next, registry, changed, MirrorUpdate)
	return swept
}

// ValidateClaim returns the live claim on id if token holds it.
func (e *Engine) ValidateClaim(id, token string) (Claim, error) {
	ref, err := ParseRef(id)
	if err != nil {
		return Claim{}, err
	}
	if !e.ledger.Exists(ref) {
		return Claim{}, notFoundError(ref)
	}
	return e.leases.validate(e.registry, ref, strings.ToUpper(strings.TrimSpace(token)))
}

// commit replaces the ledger (and registry, when given) and queues the
// changed items for mirroring.
func (e *Engine) commit(next *Ledger, registry *Registry, changed []Ref, op MirrorOp) {
	e.ledger = next
	e.documentDirty = true
	if registry != nil {
		e.registry = registry
		e.claimsDirty = true
	}

	items := make([]Item, 0, len(changed))
	for _, ref := range changed {
		if item, ok := next.Lookup(ref); ok {
			items = append(items, item)
		}
	}
	e.mirror(items, op)
}

// mirror queues items for every target. Nothing is written until Save.
func (e *Engine) mirror(items []Item, op MirrorOp) {
	if e.opts.Mirror == nil {
		return
	}
	for _, item := range items {
		e.pending = append(e.pending, mirrorWrite{item: item, op: op})
	}
}

// flushMirror writes queued items in order. Failures are logged and
// ignored.
func (e *Engine) flushMirror() {
	pending := e.pending
	e.pending = nil
	for _, write := range pending {
		for _, target := range e.opts.MirrorTargets {
			if err := e.opts.Mirror.MirrorItem(write.item, target, write.op); err != nil {
				e.logger.Warn("mirror failed", "item", write.item.Ref().String(), "target", target, "op", string(write.op), "error", err)
			}
		}
	}
}

func parseDeps(tokens []string) ([]Ref, error) {
	var deps []Ref
	for _, token := range tokens {
		for _, part := range strings.Split(token, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			ref, err := ParseRef(part)
			if err != nil {
				return nil, err
			}
			if !containsRef(deps, ref) {
				deps = append(deps, ref)
			}
		}
	}
	return deps, nil
}

// checkDescription rejects descriptions a table cell cannot hold: the empty
// cell token would read back as no description.
func checkDescription(description string) error {
	switch description {
	case "":
		return ErrEmptyDescription
	case mdtable.EmptyCell:
		return fmt.Errorf("%w: %q marks an empty cell", ErrEmptyDescription, mdtable.EmptyCell)
	}
	return nil
}

// normalizeList splits comma-separated values and drops blanks. The empty
// cell token is dropped too, since it reads back as an empty list.
func normalizeList(values []string) []string {
	var normalized []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			part = internalstrings.NormalizeWhitespace(part)
			if part != "" && part != mdtable.EmptyCell {
				normalized = append(normalized, part)
			}
		}
	}
	return normalized
}

// IsNotFound reports whether err is a missing task or bug.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTaskNotFound) || errors.Is(err, ErrBugNotFound)
}
