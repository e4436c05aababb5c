package ledger

import (
	"fmt"
	"sort"
	"strings"
)

// FindByID returns the item named by id.
func (e *Engine) FindByID(id string) (Item, error) {
	ref, err := ParseRef(id)
	if err != nil {
		return nil, err
	}
	item, ok := e.ledger.Lookup(ref)
	if !ok {
		return nil, notFoundError(ref)
	}
	return item, nil
}

// SortAndFilter returns the items matching pred, ordered by less. A nil
// pred keeps everything; a nil less uses DefaultOrder.
func (e *Engine) SortAndFilter(pred func(Item) bool, less func(a, b Item) bool) []Item {
	var items []Item
	for _, item := range e.ledger.Items() {
		if pred == nil || pred(item) {
			items = append(items, item)
		}
	}
	if less == nil {
		less = DefaultOrder
	}
	sort.SliceStable(items, func(i, j int) bool {
		return less(items[i], items[j])
	})
	return items
}

// DefaultOrder sorts by status rank, then priority, then tasks before bugs,
// then ID.
func DefaultOrder(a, b Item) bool {
	if ra, rb := a.ItemStatus().Rank(), b.ItemStatus().Rank(); ra != rb {
		return ra < rb
	}
	if pa, pb := a.ItemPriority().Rank(), b.ItemPriority().Rank(); pa != pb {
		return pa < pb
	}
	return IDOrder(a, b)
}

// IDOrder sorts tasks before bugs, each by ID.
func IDOrder(a, b Item) bool {
	ra, rb := a.Ref(), b.Ref()
	if ra.Kind != rb.Kind {
		return ra.Kind < rb.Kind
	}
	return ra.ID < rb.ID
}

// ListFilter selects items for SortAndFilter.
type ListFilter struct {
	// Statuses keeps items with any of these statuses.
	Statuses []Status

	// Priority filters by exact priority match.
	Priority *Priority

	// Kind keeps only tasks or only bugs when set.
	Kind RefKind

	// Domain and Layer keep tasks tagged with the value, case-insensitively.
	Domain string
	Layer  string

	// MVPOnly keeps MVP tasks.
	MVPOnly bool

	// DescriptionSubstring filters to items with this substring in the
	// description, case-insensitively.
	DescriptionSubstring string

	// IncludeDone includes done items. Default is false unless Statuses
	// names done.
	IncludeDone bool
}

// Match reports whether item passes the filter.
func (f ListFilter) Match(item Item) bool {
	if f.Kind != 0 && item.Ref().Kind != f.Kind {
		return false
	}
	status := item.ItemStatus()
	if len(f.Statuses) > 0 {
		found := false
		for _, want := range f.Statuses {
			if status == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	} else if status == StatusDone && !f.IncludeDone {
		return false
	}
	if f.Priority != nil && item.ItemPriority() != *f.Priority {
		return false
	}
	if f.DescriptionSubstring != "" &&
		!strings.Contains(strings.ToLower(item.ItemDescription()), strings.ToLower(f.DescriptionSubstring)) {
		return false
	}

	if f.Domain == "" && f.Layer == "" && !f.MVPOnly {
		return true
	}
	task, ok := item.(*Task)
	if !ok {
		return false
	}
	if f.MVPOnly && !task.MVP {
		return false
	}
	if f.Domain != "" && !containsFold(task.Domain, f.Domain) {
		return false
	}
	if f.Layer != "" && !containsFold(task.Layer, f.Layer) {
		return false
	}
	return true
}

func containsFold(values []string, target string) bool {
	for _, value := range values {
		if strings.EqualFold(value, target) {
			return true
		}
	}
	return false
}

// Ready returns tasks that can be picked up now: not done, blocked or
// claimed, with every dependency satisfied. Results are sorted by status
// rank, priority, then ID. A positive limit caps the result.
func (e *Engine) Ready(limit int) []*Task {
	var ready []*Task
	for _, task := range e.ledger.Tasks() {
		switch task.Status {
		case StatusDone, StatusBlocked, StatusClaimed:
			continue
		}
		if !e.ledger.DependenciesSatisfied(task) {
			continue
		}
		ready = append(ready, task)
	}

	sort.Slice(ready, func(i, j int) bool {
		return DefaultOrder(ready[i], ready[j])
	})

	if limit > 0 && len(ready) > limit {
		ready = ready[:limit]
	}
	return ready
}

// ProblemKind classifies a consistency problem.
type ProblemKind string

const (
	ProblemUnresolvedDependency ProblemKind = "unresolved-dependency"
	ProblemCycle                ProblemKind = "cycle"
	ProblemClaimWithoutLease    ProblemKind = "claimed-without-claim"
	ProblemOrphanClaim          ProblemKind = "orphan-claim"
	ProblemExpiredClaim         ProblemKind = "expired-claim"
	ProblemStaleBlock           ProblemKind = "stale-block"
)

// Problem is one inconsistency found by Check.
type Problem struct {
	Kind    ProblemKind `json:"kind" yaml:"kind"`
	Ref     string      `json:"ref" yaml:"ref"`
	Message string      `json:"message" yaml:"message"`
}

// Check reports inconsistencies a hand-edited document or an interrupted
// run can leave behind. It does not modify anything.
func (e *Engine) Check() []Problem {
	l := e.ledger
	var problems []Problem

	for _, unresolved := range l.UnresolvedDependencies() {
		problems = append(problems, Problem{
			Kind:    ProblemUnresolvedDependency,
			Ref:     unresolved.From.String(),
			Message: fmt.Sprintf("%s depends on missing task %s", unresolved.From, unresolved.Dep),
		})
	}

	for _, cycle := range l.Cycles() {
		problems = append(problems, Problem{
			Kind:    ProblemCycle,
			Ref:     cycle[0].String(),
			Message: "dependency cycle " + strings.Join(RefStrings(cycle), " -> "),
		})
	}

	for _, item := range l.Items() {
		ref := item.Ref()
		switch item.ItemStatus() {
		case StatusClaimed:
			if _, ok := e.registry.Claims[ref.Key()]; !ok {
				problems = append(problems, Problem{
					Kind:    ProblemClaimWithoutLease,
					Ref:     ref.String(),
					Message: fmt.Sprintf("%s is claimed but no claim holds it", ref),
				})
			}
		case StatusBlocked:
			if l.DependenciesSatisfied(item) {
				problems = append(problems, Problem{
					Kind:    ProblemStaleBlock,
					Ref:     ref.String(),
					Message: fmt.Sprintf("%s is blocked but its dependencies are satisfied", ref),
				})
			}
		}
	}

	for _, claim := range e.registry.List() {
		ref, err := claim.Ref()
		status, ok := l.status(ref)
		switch {
		case err != nil || !ok:
			problems = append(problems, Problem{
				Kind:    ProblemOrphanClaim,
				Ref:     claim.ItemID,
				Message: fmt.Sprintf("claim %s names missing item %s", claim.Token, claim.ItemID),
			})
		case status != StatusClaimed:
			problems = append(problems, Problem{
				Kind:    ProblemOrphanClaim,
				Ref:     ref.String(),
				Message: fmt.Sprintf("claim %s holds %s, which is %s", claim.Token, ref, status),
			})
		case e.leases.expired(claim):
			problems = append(problems, Problem{
				Kind:    ProblemExpiredClaim,
				Ref:     ref.String(),
				Message: fmt.Sprintf("claim %s on %s has expired and awaits a sweep", claim.Token, ref),
			})
		}
	}

	return problems
}
