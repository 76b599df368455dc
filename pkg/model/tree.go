// Package model holds the hierarchical node model the widget renders: an
// index-addressed arena keyed by stable string IDs, with parent references
// stored as keys rather than object pointers, and a flattened row list that
// the virtualization engine windows over.
package model

import (
	"sort"
)

// NodeKind classifies a node for icon rendering and sibling ordering.
type NodeKind string

const (
	KindContainer NodeKind = "container"
	KindComponent NodeKind = "component"
	KindWidget    NodeKind = "widget"
	KindAsset     NodeKind = "asset"
)

// kindOrder returns a numeric sort order: containers first, assets last.
func kindOrder(k NodeKind) int {
	switch k {
	case KindContainer:
		return 0
	case KindComponent:
		return 1
	case KindWidget:
		return 2
	case KindAsset:
		return 3
	default:
		return 4
	}
}

// Node is one entry in the hierarchy. ParentID is a key into the arena, ""
// for roots. Order breaks ties among siblings before label comparison.
type Node struct {
	ID       string   `json:"id"`
	Label    string   `json:"label"`
	Kind     NodeKind `json:"kind"`
	ParentID string   `json:"parent_id,omitempty"`
	Order    int      `json:"order,omitempty"`
}

// autoExpandDepth is the default expansion: nodes shallower than this start
// expanded, everything deeper starts collapsed.
const autoExpandDepth = 2

// Tree is the arena. All relationships are expressed through string keys so
// the structure carries no ownership cycles. Not safe for concurrent use;
// the widget owns one Tree per rendered list.
type Tree struct {
	nodes    map[string]*Node
	children map[string][]string
	depth    map[string]int
	expanded map[string]bool
	roots    []string

	// rows is the flattened sequence of currently visible node IDs, the
	// logical list the virtualizer windows over. rowIndex is its inverse.
	rows     []string
	rowIndex map[string]int

	built bool
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{
		nodes:    make(map[string]*Node),
		children: make(map[string][]string),
		depth:    make(map[string]int),
		expanded: make(map[string]bool),
		rowIndex: make(map[string]int),
	}
}

// Build constructs the hierarchy from a flat node list. Nodes whose declared
// parent does not exist become roots rather than disappearing, and parent
// cycles are broken by treating the back-edge target as a root. Siblings are
// sorted by kind, then Order, then label. Expansion defaults to depth <
// autoExpandDepth; explicit expansion state set before Build survives for
// IDs that still exist.
func (t *Tree) Build(nodes []Node) {
	prevExpanded := t.expanded

	t.nodes = make(map[string]*Node, len(nodes))
	t.children = make(map[string][]string)
	t.depth = make(map[string]int, len(nodes))
	t.expanded = make(map[string]bool)
	t.roots = t.roots[:0]

	for i := range nodes {
		n := nodes[i]
		t.nodes[n.ID] = &n
	}

	for _, n := range t.nodes {
		if n.ParentID == "" || t.nodes[n.ParentID] == nil {
			t.roots = append(t.roots, n.ID)
			continue
		}
		t.children[n.ParentID] = append(t.children[n.ParentID], n.ID)
	}

	// A pure cycle leaves its members unreachable from any root. Promote one
	// member of each such cycle to a root so nothing silently vanishes.
	t.promoteCycleMembers()

	t.sortSiblings(t.roots)
	for id := range t.children {
		t.sortSiblings(t.children[id])
	}

	// Depth assignment, iterative to stay safe on very deep trees.
	type frame struct {
		id    string
		depth int
	}
	stack := make([]frame, 0, len(t.roots))
	for _, id := range t.roots {
		stack = append(stack, frame{id: id, depth: 0})
	}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		t.depth[f.id] = f.depth
		for _, child := range t.children[f.id] {
			stack = append(stack, frame{id: child, depth: f.depth + 1})
		}
	}

	// Default expansion by depth, then re-apply surviving explicit state.
	for id, d := range t.depth {
		t.expanded[id] = d < autoExpandDepth
	}
	for id, exp := range prevExpanded {
		if _, ok := t.nodes[id]; ok {
			t.expanded[id] = exp
		}
	}

	t.built = true
	t.reflatten()
}

// promoteCycleMembers finds nodes unreachable from the current roots (parent
// cycles) and promotes the smallest-ID member of each orphan group to a root.
func (t *Tree) promoteCycleMembers() {
	reachable := make(map[string]bool, len(t.nodes))
	var stack []string
	stack = append(stack, t.roots...)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if reachable[id] {
			continue
		}
		reachable[id] = true
		stack = append(stack, t.children[id]...)
	}
	if len(reachable) == len(t.nodes) {
		return
	}

	var orphans []string
	for id := range t.nodes {
		if !reachable[id] {
			orphans = append(orphans, id)
		}
	}
	sort.Strings(orphans)
	for len(orphans) > 0 {
		promoted := orphans[0]
		// Detach the promoted node from its parent's child list.
		parent := t.nodes[promoted].ParentID
		kids := t.children[parent]
		for i, k := range kids {
			if k == promoted {
				t.children[parent] = append(kids[:i], kids[i+1:]...)
				break
			}
		}
		t.roots = append(t.roots, promoted)

		// Recompute reachability and shrink the orphan set.
		stack = append(stack[:0], promoted)
		for len(stack) > 0 {
			id := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if reachable[id] {
				continue
			}
			reachable[id] = true
			stack = append(stack, t.children[id]...)
		}
		remaining := orphans[:0]
		for _, id := range orphans {
			if !reachable[id] {
				remaining = append(remaining, id)
			}
		}
		orphans = remaining
	}
}

// sortSiblings orders a child-ID slice by kind, then Order, then label, then
// ID for stability.
func (t *Tree) sortSiblings(ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		a, b := t.nodes[ids[i]], t.nodes[ids[j]]
		if ka, kb := kindOrder(a.Kind), kindOrder(b.Kind); ka != kb {
			return ka < kb
		}
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		if a.Label != b.Label {
			return a.Label < b.Label
		}
		return a.ID < b.ID
	})
}

// reflatten rebuilds the visible row list: depth-first over expanded nodes.
func (t *Tree) reflatten() {
	t.rows = t.rows[:0]
	for k := range t.rowIndex {
		delete(t.rowIndex, k)
	}
	var walk func(id string)
	walk = func(id string) {
		t.rowIndex[id] = len(t.rows)
		t.rows = append(t.rows, id)
		if t.expanded[id] {
			for _, child := range t.children[id] {
				walk(child)
			}
		}
	}
	for _, root := range t.roots {
		walk(root)
	}
}

// RowCount returns the number of currently visible rows.
func (t *Tree) RowCount() int { return len(t.rows) }

// RowID returns the stable identity of the visible row at index. Implements
// virt.AnchorSource.
func (t *Tree) RowID(index int) (string, bool) {
	if index < 0 || index >= len(t.rows) {
		return "", false
	}
	return t.rows[index], true
}

// IndexOf returns the current row index of the node with the given ID, false
// when the node does not exist or is hidden inside a collapsed ancestor.
// Implements virt.AnchorSource.
func (t *Tree) IndexOf(id string) (int, bool) {
	i, ok := t.rowIndex[id]
	return i, ok
}

// Node returns the node at a visible row index.
func (t *Tree) Node(index int) (*Node, bool) {
	id, ok := t.RowID(index)
	if !ok {
		return nil, false
	}
	return t.nodes[id], true
}

// NodeByID returns the node with the given ID regardless of visibility.
func (t *Tree) NodeByID(id string) (*Node, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// Depth returns the nesting level of a node, 0 for roots.
func (t *Tree) Depth(id string) int { return t.depth[id] }

// HasChildren reports whether the node has any children.
func (t *Tree) HasChildren(id string) bool { return len(t.children[id]) > 0 }

// ChildCount returns the number of direct children.
func (t *Tree) ChildCount(id string) int { return len(t.children[id]) }

// IsExpanded reports the node's expansion state.
func (t *Tree) IsExpanded(id string) bool { return t.expanded[id] }

// Expand makes the node's children visible. Reports whether the visible row
// list changed.
func (t *Tree) Expand(id string) bool { return t.setExpanded(id, true) }

// Collapse hides the node's descendants. Reports whether the visible row
// list changed.
func (t *Tree) Collapse(id string) bool { return t.setExpanded(id, false) }

// Toggle flips the node's expansion. Reports whether the visible row list
// changed.
func (t *Tree) Toggle(id string) bool {
	return t.setExpanded(id, !t.expanded[id])
}

func (t *Tree) setExpanded(id string, exp bool) bool {
	if _, ok := t.nodes[id]; !ok || len(t.children[id]) == 0 {
		return false
	}
	if t.expanded[id] == exp {
		return false
	}
	t.expanded[id] = exp
	t.reflatten()
	return true
}

// ExpandAll expands every node with children.
func (t *Tree) ExpandAll() {
	for id := range t.children {
		if len(t.children[id]) > 0 {
			t.expanded[id] = true
		}
	}
	t.reflatten()
}

// CollapseAll collapses every node.
func (t *Tree) CollapseAll() {
	for id := range t.expanded {
		t.expanded[id] = false
	}
	t.reflatten()
}

// IsBuilt reports whether Build has run.
func (t *Tree) IsBuilt() bool { return t.built }

// RootCount returns the number of root nodes.
func (t *Tree) RootCount() int { return len(t.roots) }
