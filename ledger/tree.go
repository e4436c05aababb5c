package ledger

// DefaultTreeDepth bounds BuildDependencyTree when no depth is given.
const DefaultTreeDepth = 10

// DepTreeNode represents a node in a dependency tree.
type DepTreeNode struct {
	// Ref names the item at this node.
	Ref Ref

	// Item is the item at this node, or nil when Ref does not resolve. A
	// missing bug is a resolved bug; a missing task is an unresolved
	// reference.
	Item Item

	// Satisfied reports whether this edge is met for the parent.
	Satisfied bool

	// Cycle marks a node already on the path from the root.
	Cycle bool

	// Truncated marks a node whose children were cut off by the depth limit.
	Truncated bool

	// Children are the items this item depends on.
	Children []*DepTreeNode
}

// BuildDependencyTree returns the items the item named by id depends on,
// recursively, down to maxDepth levels below the root.
func (e *Engine) BuildDependencyTree(id string, maxDepth int) (*DepTreeNode, error) {
	ref, err := ParseRef(id)
	if err != nil {
		return nil, err
	}
	if !e.ledger.Exists(ref) {
		return nil, notFoundError(ref)
	}
	if maxDepth <= 0 {
		maxDepth = DefaultTreeDepth
	}
	return e.ledger.buildDepTree(ref, 0, maxDepth, map[Ref]bool{}), nil
}

// buildDepTree recursively builds a dependency tree node.
func (l *Ledger) buildDepTree(ref Ref, depth, maxDepth int, path map[Ref]bool) *DepTreeNode {
	item, ok := l.Lookup(ref)
	node := &DepTreeNode{Ref: ref, Satisfied: l.satisfied(ref)}
	if !ok {
		return node
	}
	node.Item = item

	if path[ref] {
		node.Cycle = true
		return node
	}
	deps := item.Dependencies()
	if depth >= maxDepth {
		node.Truncated = len(deps) > 0
		return node
	}

	path[ref] = true
	defer delete(path, ref)

	for _, dep := range deps {
		node.Children = append(node.Children, l.buildDepTree(dep, depth+1, maxDepth, path))
	}
	return node
}
