package ledger

import (
	"slices"
)

// DependenciesSatisfied reports whether every dependency of item is met: a
// task dependency must exist and be done; a bug dependency must no longer
// exist. An item without dependencies is satisfied.
func (l *Ledger) DependenciesSatisfied(item Item) bool {
	return len(l.UnmetDependencies(item)) == 0
}

// UnmetDependencies returns the dependencies of item that are not satisfied,
// in declaration order.
func (l *Ledger) UnmetDependencies(item Item) []Ref {
	var unmet []Ref
	for _, dep := range item.Dependencies() {
		if !l.satisfied(dep) {
			unmet = append(unmet, dep)
		}
	}
	return unmet
}

func (l *Ledger) satisfied(dep Ref) bool {
	switch dep.Kind {
	case RefTask:
		task, ok := l.tasks[dep.ID]
		return ok && task.Status == StatusDone
	case RefBug:
		_, exists := l.bugs[dep.ID]
		return !exists
	default:
		return false
	}
}

// Dependents returns every item whose dependency list names ref, tasks
// first, each in document order.
func (l *Ledger) Dependents(ref Ref) []Item {
	var dependents []Item
	for _, task := range l.Tasks() {
		if containsRef(task.Deps, ref) {
			dependents = append(dependents, task)
		}
	}
	for _, bug := range l.Bugs() {
		if containsRef(bug.Deps, ref) {
			dependents = append(dependents, bug)
		}
	}
	return dependents
}

// WouldCreateCycle reports whether adding the edge from -> to (from depends
// on to) would close a cycle among tasks. It searches depth-first from to,
// following only task-to-task edges, and reports whether from is reachable.
// An edge from an item to itself is a cycle.
func (l *Ledger) WouldCreateCycle(from, to Ref) bool {
	return l.dependencyPath(to, from) != nil
}

// dependencyPath returns a chain of task-to-task dependency edges leading
// from start to target, or nil when target is unreachable.
func (l *Ledger) dependencyPath(start, target Ref) []Ref {
	if !start.IsTask() || !target.IsTask() {
		return nil
	}
	if start == target {
		return []Ref{start}
	}

	parent := map[Ref]Ref{}
	visited := map[Ref]bool{start: true}
	stack := []Ref{start}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		task, ok := l.tasks[current.ID]
		if !ok {
			continue
		}
		for _, dep := range task.Deps {
			if !dep.IsTask() || visited[dep] {
				continue
			}
			visited[dep] = true
			parent[dep] = current
			if dep == target {
				path := []Ref{dep}
				for step := current; ; step = parent[step] {
					path = append(path, step)
					if step == start {
						break
					}
				}
				slices.Reverse(path)
				return path
			}
			stack = append(stack, dep)
		}
	}
	return nil
}

// Unresolved is a dependency that names a missing task.
type Unresolved struct {
	From Ref
	Dep  Ref
}

// UnresolvedDependencies lists task references that do not resolve. Missing
// bugs are resolved bugs, so they are not reported.
func (l *Ledger) UnresolvedDependencies() []Unresolved {
	var unresolved []Unresolved
	for _, item := range l.Items() {
		for _, dep := range item.Dependencies() {
			if dep.IsTask() && !l.Exists(dep) {
				unresolved = append(unresolved, Unresolved{From: item.Ref(), Dep: dep})
			}
		}
	}
	return unresolved
}

// Cycles returns every task-to-task cycle found by a full-graph search. Each
// cycle is listed once, starting and ending at the same task.
func (l *Ledger) Cycles() [][]Ref {
	const (
		unvisited = iota
		inProgress
		finished
	)

	state := make(map[int]int, len(l.tasks))
	var cycles [][]Ref
	var path []Ref

	var visit func(id int)
	visit = func(id int) {
		state[id] = inProgress
		path = append(path, TaskRef(id))
		for _, dep := range l.tasks[id].Deps {
			if !dep.IsTask() {
				continue
			}
			if _, ok := l.tasks[dep.ID]; !ok {
				continue
			}
			switch state[dep.ID] {
			case unvisited:
				visit(dep.ID)
			case inProgress:
				start := slices.Index(path, dep)
				cycle := slices.Clone(path[start:])
				cycles = append(cycles, append(cycle, dep))
			}
		}
		path = path[:len(path)-1]
		state[id] = finished
	}

	for _, id := range l.taskOrder {
		if state[id] == unvisited {
			visit(id)
		}
	}
	return cycles
}
