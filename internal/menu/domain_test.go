package menu

import (
	"testing"

	"github.com/google/uuid"
)

func testNode(name string, parentID *uuid.UUID, order int) Node {
	return Node{
		ID: uuid.New(), Name: name, DisplayName: name, Kind: KindMenu,
		SortOrder: order, IsActive: true, IsVisible: true, ParentID: parentID,
	}
}

func TestTreeSiblingOrdering(t *testing.T) {
	// Same sort order ties break by name.
	b := testNode("Bravo", nil, 2)
	a := testNode("Alpha", nil, 2)
	first := testNode("Zulu", nil, 1)

	tree := NewTree([]Node{b, a, first})
	roots := tree.Roots()
	if len(roots) != 3 {
		t.Fatalf("expected 3 roots, got %d", len(roots))
	}
	if roots[0].Name != "Zulu" || roots[1].Name != "Alpha" || roots[2].Name != "Bravo" {
		t.Fatalf("unexpected order: %s, %s, %s", roots[0].Name, roots[1].Name, roots[2].Name)
	}
}

func TestTreeChildren(t *testing.T) {
	parent := testNode("StudentManagement", nil, 1)
	late := testNode("StudentReports", &parent.ID, 2)
	early := testNode("StudentBiometric", &parent.ID, 1)

	tree := NewTree([]Node{parent, late, early})
	children := tree.Children(parent.ID)
	if len(children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(children))
	}
	if children[0].Name != "StudentBiometric" {
		t.Fatalf("children out of order: %s first", children[0].Name)
	}
	if got := tree.Children(late.ID); len(got) != 0 {
		t.Fatalf("leaf reported children: %d", len(got))
	}
}

func TestTreeExcludesUnreachableNodes(t *testing.T) {
	ghost := uuid.New()
	orphan := testNode("Orphan", &ghost, 1)
	root := testNode("Root", nil, 1)

	tree := NewTree([]Node{orphan, root})
	if len(tree.Roots()) != 1 {
		t.Fatalf("orphan must not surface as root, got %d roots", len(tree.Roots()))
	}
	// Arena lookup still resolves the orphan directly.
	if _, ok := tree.Get(orphan.ID); !ok {
		t.Fatal("orphan missing from arena")
	}
}

func TestPathToRoot(t *testing.T) {
	grandparent := testNode("Administration", nil, 1)
	parent := testNode("UserManagement", &grandparent.ID, 1)
	child := testNode("UserImport", &parent.ID, 1)

	tree := NewTree([]Node{grandparent, parent, child})
	path := tree.PathToRoot(child.ID)
	if len(path) != 3 {
		t.Fatalf("expected 3 hops, got %d", len(path))
	}
	if path[0].ID != child.ID || path[2].ID != grandparent.ID {
		t.Fatal("path order wrong")
	}
}

func TestPathToRootBoundedOnCorruptChain(t *testing.T) {
	a := testNode("A", nil, 1)
	b := testNode("B", &a.ID, 1)
	// Corrupt the chain after the arena is built.
	a.ParentID = &b.ID

	tree := NewTree([]Node{a, b})
	tree.nodes[a.ID] = a

	path := tree.PathToRoot(b.ID)
	if len(path) > tree.Len()+1 {
		t.Fatalf("walk not bounded: %d hops over %d nodes", len(path), tree.Len())
	}
}

func TestIsRoot(t *testing.T) {
	root := testNode("Root", nil, 1)
	child := testNode("Child", &root.ID, 1)
	if !root.IsRoot() || child.IsRoot() {
		t.Fatal("IsRoot misclassified nodes")
	}
}
