package menu

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/meridian-sis/meridian-sis/internal/shared"
)

type stubRepo struct {
	nodes map[uuid.UUID]Node
}

func newStubRepo(nodes ...Node) *stubRepo {
	r := &stubRepo{nodes: make(map[uuid.UUID]Node)}
	for _, n := range nodes {
		r.nodes[n.ID] = n
	}
	return r
}

func (r *stubRepo) ListAll(ctx context.Context) ([]Node, error) {
	out := make([]Node, 0, len(r.nodes))
	for _, n := range r.nodes {
		out = append(out, n)
	}
	return out, nil
}

func (r *stubRepo) ListActive(ctx context.Context) ([]Node, error) {
	var out []Node
	for _, n := range r.nodes {
		if n.IsActive {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *stubRepo) ListByParent(ctx context.Context, parentID *uuid.UUID) ([]Node, error) {
	var out []Node
	for _, n := range r.nodes {
		switch {
		case parentID == nil && n.ParentID == nil:
			out = append(out, n)
		case parentID != nil && n.ParentID != nil && *n.ParentID == *parentID:
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *stubRepo) GetByID(ctx context.Context, id uuid.UUID) (Node, error) {
	n, ok := r.nodes[id]
	if !ok {
		return Node{}, shared.ErrNotFound
	}
	return n, nil
}

func (r *stubRepo) GetByName(ctx context.Context, name string) (Node, error) {
	for _, n := range r.nodes {
		if n.Name == name {
			return n, nil
		}
	}
	return Node{}, shared.ErrNotFound
}

func (r *stubRepo) Insert(ctx context.Context, n Node) (Node, error) {
	r.nodes[n.ID] = n
	return n, nil
}

func (r *stubRepo) UpdateMeta(ctx context.Context, n Node) (Node, error) {
	if _, ok := r.nodes[n.ID]; !ok {
		return Node{}, shared.ErrNotFound
	}
	r.nodes[n.ID] = n
	return n, nil
}

func (r *stubRepo) SetParent(ctx context.Context, id uuid.UUID, parentID *uuid.UUID) error {
	n, ok := r.nodes[id]
	if !ok {
		return shared.ErrNotFound
	}
	n.ParentID = parentID
	r.nodes[id] = n
	return nil
}

func (r *stubRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.nodes[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.nodes, id)
	return nil
}

func TestCreateDerivesDisplayName(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo)

	n, err := svc.Create(context.Background(), CreateInput{Name: "fee reports", IsVisible: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if n.DisplayName != "Fee Reports" {
		t.Fatalf("expected title-cased display name, got %q", n.DisplayName)
	}
	if n.Kind != KindMenu {
		t.Fatalf("expected default kind menu, got %q", n.Kind)
	}
	if !n.IsActive {
		t.Fatal("new node must start active")
	}
}

func TestCreateRejectsBlankName(t *testing.T) {
	svc := NewService(newStubRepo())
	_, err := svc.Create(context.Background(), CreateInput{Name: "   "})
	if !errors.Is(err, shared.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestCreateRequiresExistingParent(t *testing.T) {
	svc := NewService(newStubRepo())
	ghost := uuid.New()
	_, err := svc.Create(context.Background(), CreateInput{Name: "Child", ParentID: &ghost})
	if !errors.Is(err, shared.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing parent, got %v", err)
	}
}

func TestMoveRejectsSelfParent(t *testing.T) {
	n := testNode("Solo", nil, 1)
	svc := NewService(newStubRepo(n))

	err := svc.Move(context.Background(), n.ID, &n.ID)
	if !errors.Is(err, shared.ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation, got %v", err)
	}
}

func TestMoveRejectsCycle(t *testing.T) {
	grandparent := testNode("A", nil, 1)
	parent := testNode("B", &grandparent.ID, 1)
	child := testNode("C", &parent.ID, 1)
	repo := newStubRepo(grandparent, parent, child)
	svc := NewService(repo)

	// Re-homing the grandparent under its own grandchild closes a cycle.
	err := svc.Move(context.Background(), grandparent.ID, &child.ID)
	if !errors.Is(err, shared.ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation, got %v", err)
	}

	// A legal lateral move still goes through.
	if err := svc.Move(context.Background(), child.ID, &grandparent.ID); err != nil {
		t.Fatalf("legal move rejected: %v", err)
	}
}

func TestMoveToRoot(t *testing.T) {
	parent := testNode("Parent", nil, 1)
	child := testNode("Child", &parent.ID, 1)
	repo := newStubRepo(parent, child)
	svc := NewService(repo)

	if err := svc.Move(context.Background(), child.ID, nil); err != nil {
		t.Fatalf("move to root: %v", err)
	}
	got, _ := repo.GetByID(context.Background(), child.ID)
	if got.ParentID != nil {
		t.Fatal("node still has a parent after move to root")
	}
}

func TestHierarchyFiltersHiddenChildren(t *testing.T) {
	root := testNode("StudentManagement", nil, 1)
	visible := testNode("StudentBiometric", &root.ID, 1)
	hidden := testNode("StudentArchive", &root.ID, 2)
	hidden.IsVisible = false
	repo := newStubRepo(root, visible, hidden)
	svc := NewService(repo)

	out, err := svc.Hierarchy(context.Background())
	if err != nil {
		t.Fatalf("hierarchy: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 root, got %d", len(out))
	}
	if len(out[0].Children) != 1 || out[0].Children[0].Name != "StudentBiometric" {
		t.Fatalf("hidden child not filtered: %+v", out[0].Children)
	}
}
