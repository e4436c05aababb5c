package ledger

import (
	"fmt"
	"slices"
)

// Ledger owns every task and bug of one load/mutate/save cycle. Records are
// addressed by Ref; callers never hold a record across a mutation.
type Ledger struct {
	tasks     map[int]*Task
	taskOrder []int
	bugs      map[int]*Bug
	bugOrder  []int

	// High-water marks. IDs are never reused within a session, even after
	// the highest item is removed.
	lastTask int
	lastBug  int

	// hasBugSection records whether the source document carried a Bugs
	// table, so an empty one is written back.
	hasBugSection bool
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{
		tasks: make(map[int]*Task),
		bugs:  make(map[int]*Bug),
	}
}

// Tasks returns tasks in document order.
func (l *Ledger) Tasks() []*Task {
	tasks := make([]*Task, 0, len(l.taskOrder))
	for _, id := range l.taskOrder {
		tasks = append(tasks, l.tasks[id])
	}
	return tasks
}

// Bugs returns bugs in document order.
func (l *Ledger) Bugs() []*Bug {
	bugs := make([]*Bug, 0, len(l.bugOrder))
	for _, id := range l.bugOrder {
		bugs = append(bugs, l.bugs[id])
	}
	return bugs
}

// Items returns tasks followed by bugs, each in document order.
func (l *Ledger) Items() []Item {
	items := make([]Item, 0, len(l.taskOrder)+len(l.bugOrder))
	for _, task := range l.Tasks() {
		items = append(items, task)
	}
	for _, bug := range l.Bugs() {
		items = append(items, bug)
	}
	return items
}

// Task returns the task with the given ID.
func (l *Ledger) Task(id int) (*Task, bool) {
	task, ok := l.tasks[id]
	return task, ok
}

// Bug returns the bug with the given ID.
func (l *Ledger) Bug(id int) (*Bug, bool) {
	bug, ok := l.bugs[id]
	return bug, ok
}

// Lookup resolves a reference to its item.
func (l *Ledger) Lookup(ref Ref) (Item, bool) {
	switch ref.Kind {
	case RefTask:
		if task, ok := l.tasks[ref.ID]; ok {
			return task, true
		}
	case RefBug:
		if bug, ok := l.bugs[ref.ID]; ok {
			return bug, true
		}
	}
	return nil, false
}

// Exists reports whether ref resolves to an item.
func (l *Ledger) Exists(ref Ref) bool {
	_, ok := l.Lookup(ref)
	return ok
}

// Len returns the number of tasks and bugs.
func (l *Ledger) Len() (tasks, bugs int) {
	return len(l.tasks), len(l.bugs)
}

// NextTaskID returns the ID the next added task will receive.
func (l *Ledger) NextTaskID() int {
	return l.lastTask + 1
}

// NextBugID returns the ID the next added bug will receive.
func (l *Ledger) NextBugID() int {
	return l.lastBug + 1
}

// AddTask assigns the next task ID and stores the task.
func (l *Ledger) AddTask(task Task) *Task {
	task.ID = l.NextTaskID()
	stored := &task
	l.insertTask(stored)
	return stored
}

// AddBug assigns the next bug ID and stores the bug.
func (l *Ledger) AddBug(bug Bug) *Bug {
	bug.ID = l.NextBugID()
	stored := &bug
	l.insertBug(stored)
	return stored
}

func (l *Ledger) insertTask(task *Task) error {
	if _, exists := l.tasks[task.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateID, task.Ref())
	}
	l.tasks[task.ID] = task
	l.taskOrder = append(l.taskOrder, task.ID)
	l.lastTask = max(l.lastTask, task.ID)
	return nil
}

func (l *Ledger) insertBug(bug *Bug) error {
	if _, exists := l.bugs[bug.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateID, bug.Ref())
	}
	l.bugs[bug.ID] = bug
	l.bugOrder = append(l.bugOrder, bug.ID)
	l.lastBug = max(l.lastBug, bug.ID)
	return nil
}

// delete removes the item named by ref and strips ref from every other
// item's dependency list. It returns the items whose deps changed.
func (l *Ledger) delete(ref Ref) []Ref {
	switch ref.Kind {
	case RefTask:
		delete(l.tasks, ref.ID)
		l.taskOrder = slices.DeleteFunc(l.taskOrder, func(id int) bool { return id == ref.ID })
	case RefBug:
		delete(l.bugs, ref.ID)
		l.bugOrder = slices.DeleteFunc(l.bugOrder, func(id int) bool { return id == ref.ID })
	}

	var touched []Ref
	for _, task := range l.Tasks() {
		if deps, removed := withoutRef(task.Deps, ref); removed {
			task.Deps = deps
			touched = append(touched, task.Ref())
		}
	}
	for _, bug := range l.Bugs() {
		if deps, removed := withoutRef(bug.Deps, ref); removed {
			bug.Deps = deps
			touched = append(touched, bug.Ref())
		}
	}
	return touched
}

func (l *Ledger) status(ref Ref) (Status, bool) {
	item, ok := l.Lookup(ref)
	if !ok {
		return "", false
	}
	return item.ItemStatus(), true
}

func (l *Ledger) setStatus(ref Ref, status Status) {
	switch ref.Kind {
	case RefTask:
		if task, ok := l.tasks[ref.ID]; ok {
			task.Status = status
		}
	case RefBug:
		if bug, ok := l.bugs[ref.ID]; ok {
			bug.Status = status
		}
	}
}

func (l *Ledger) setDeps(ref Ref, deps []Ref) {
	switch ref.Kind {
	case RefTask:
		if task, ok := l.tasks[ref.ID]; ok {
			task.Deps = deps
		}
	case RefBug:
		if bug, ok := l.bugs[ref.ID]; ok {
			bug.Deps = deps
		}
	}
}

// Clone returns a deep copy. Engine mutations run against a clone and
// replace the original only when they succeed.
func (l *Ledger) Clone() *Ledger {
	copied := &Ledger{
		tasks:         make(map[int]*Task, len(l.tasks)),
		taskOrder:     slices.Clone(l.taskOrder),
		bugs:          make(map[int]*Bug, len(l.bugs)),
		bugOrder:      slices.Clone(l.bugOrder),
		lastTask:      l.lastTask,
		lastBug:       l.lastBug,
		hasBugSection: l.hasBugSection,
	}
	for id, task := range l.tasks {
		copied.tasks[id] = task.clone()
	}
	for id, bug := range l.bugs {
		copied.bugs[id] = bug.clone()
	}
	return copied
}
