package ledger

// Propagate applies the forward consequences of ref moving to status and
// returns the refs whose status changed, in the order they changed.
//
// Moving to blocked blocks every item reachable through the dependent
// relation. Claimed items keep their status, since only the claim manager
// may move an item out of claimed, but the walk continues past them.
// Moving to done reopens direct dependents that were blocked and are now
// satisfied; it does not recurse, since a grandchild's satisfaction depends
// on all of its own deps. Other statuses do not propagate.
func (l *Ledger) Propagate(ref Ref, status Status) []Ref {
	switch status {
	case StatusBlocked:
		return l.propagateBlocked(ref)
	case StatusDone:
		return l.Unblock(ref)
	default:
		return nil
	}
}

func (l *Ledger) propagateBlocked(ref Ref) []Ref {
	var changed []Ref
	seen := map[Ref]bool{ref: true}
	queue := []Ref{ref}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, dependent := range l.Dependents(current) {
			next := dependent.Ref()
			if seen[next] {
				continue
			}
			seen[next] = true
			queue = append(queue, next)

			switch dependent.ItemStatus() {
			case StatusBlocked, StatusClaimed:
				continue
			}
			l.setStatus(next, StatusBlocked)
			changed = append(changed, next)
		}
	}
	return changed
}

// Unblock reopens the direct dependents of ref that are blocked but whose
// dependencies are now all satisfied.
func (l *Ledger) Unblock(ref Ref) []Ref {
	return l.reopenSatisfied(l.Dependents(ref))
}

func (l *Ledger) reopenSatisfied(items []Item) []Ref {
	var changed []Ref
	for _, item := range items {
		if item.ItemStatus() != StatusBlocked {
			continue
		}
		if !l.DependenciesSatisfied(item) {
			continue
		}
		l.setStatus(item.Ref(), StatusOpen)
		changed = append(changed, item.Ref())
	}
	return changed
}

// settle returns the status an item should hold given its dependencies:
// unsatisfied items become blocked unless they are done or claimed, and
// blocked items with satisfied dependencies reopen.
func (l *Ledger) settle(item Item, status Status) Status {
	satisfied := l.DependenciesSatisfied(item)
	switch {
	case status == StatusDone, status == StatusClaimed:
		return status
	case !satisfied:
		return StatusBlocked
	case status == StatusBlocked:
		return StatusOpen
	default:
		return status
	}
}
