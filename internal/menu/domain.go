package menu

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Kind classifies a navigation node.
type Kind string

const (
	KindModule Kind = "module"
	KindMenu   Kind = "menu"
	KindAction Kind = "action"
)

// Node is a single entry in the navigation tree. Parentage is expressed as an
// optional id only; children are derived by index lookup in Tree, never held
// as live object references.
type Node struct {
	ID          uuid.UUID
	Name        string
	DisplayName string
	Description string
	Icon        string
	Route       string
	Component   string
	SortOrder   int
	IsActive    bool
	IsVisible   bool
	Kind        Kind
	ParentID    *uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsRoot reports whether the node sits at the top level.
func (n Node) IsRoot() bool {
	return n.ParentID == nil
}

// Tree is an arena of nodes keyed by id with a group-by-parent child index.
// Siblings are ordered ascending by sort order, ties broken by name.
type Tree struct {
	nodes    map[uuid.UUID]Node
	children map[uuid.UUID][]uuid.UUID
	roots    []uuid.UUID
}

// NewTree builds the arena from a flat node list. Nodes whose parent id does
// not resolve to a node in the list are unreachable and excluded from
// traversal.
func NewTree(nodes []Node) *Tree {
	t := &Tree{
		nodes:    make(map[uuid.UUID]Node, len(nodes)),
		children: make(map[uuid.UUID][]uuid.UUID),
	}
	for _, n := range nodes {
		t.nodes[n.ID] = n
	}
	for _, n := range nodes {
		if n.ParentID == nil {
			t.roots = append(t.roots, n.ID)
			continue
		}
		if _, ok := t.nodes[*n.ParentID]; !ok {
			continue
		}
		t.children[*n.ParentID] = append(t.children[*n.ParentID], n.ID)
	}
	t.sortSiblings(t.roots)
	for _, ids := range t.children {
		t.sortSiblings(ids)
	}
	return t
}

func (t *Tree) sortSiblings(ids []uuid.UUID) {
	sort.SliceStable(ids, func(i, j int) bool {
		a, b := t.nodes[ids[i]], t.nodes[ids[j]]
		if a.SortOrder != b.SortOrder {
			return a.SortOrder < b.SortOrder
		}
		return a.Name < b.Name
	})
}

// Get returns the node for id.
func (t *Tree) Get(id uuid.UUID) (Node, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// Roots returns top-level nodes in sort order.
func (t *Tree) Roots() []Node {
	return t.resolve(t.roots)
}

// Children returns the direct children of id in sort order.
func (t *Tree) Children(id uuid.UUID) []Node {
	return t.resolve(t.children[id])
}

// Len reports the number of nodes in the arena.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// PathToRoot walks the parent chain from id upward. The walk is bounded by
// the arena size, so a corrupted parent chain cannot loop forever.
func (t *Tree) PathToRoot(id uuid.UUID) []Node {
	var path []Node
	for steps := 0; steps <= len(t.nodes); steps++ {
		n, ok := t.nodes[id]
		if !ok {
			return path
		}
		path = append(path, n)
		if n.ParentID == nil {
			return path
		}
		id = *n.ParentID
	}
	return path
}

func (t *Tree) resolve(ids []uuid.UUID) []Node {
	out := make([]Node, 0, len(ids))
	for _, id := range ids {
		out = append(out, t.nodes[id])
	}
	return out
}

// NodeWithChildren is the one-level-eager hierarchy row returned by the
// directory listing. Deeper levels are fetched by repeated traversal.
type NodeWithChildren struct {
	Node
	Children []Node
}
