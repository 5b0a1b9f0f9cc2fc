package menu

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/meridian-sis/meridian-sis/internal/shared"
)

// RepositoryPort defines data access methods for menu nodes.
type RepositoryPort interface {
	ListAll(ctx context.Context) ([]Node, error)
	ListActive(ctx context.Context) ([]Node, error)
	ListByParent(ctx context.Context, parentID *uuid.UUID) ([]Node, error)
	GetByID(ctx context.Context, id uuid.UUID) (Node, error)
	GetByName(ctx context.Context, name string) (Node, error)
	Insert(ctx context.Context, n Node) (Node, error)
	UpdateMeta(ctx context.Context, n Node) (Node, error)
	SetParent(ctx context.Context, id uuid.UUID, parentID *uuid.UUID) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

// Service handles menu directory business logic.
type Service struct {
	repo  RepositoryPort
	title cases.Caser
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, title: cases.Title(language.English)}
}

// CreateInput carries fields for a new node.
type CreateInput struct {
	Name        string
	DisplayName string
	Description string
	Icon        string
	Route       string
	Component   string
	SortOrder   int
	IsVisible   bool
	Kind        Kind
	ParentID    *uuid.UUID
}

// UpdateInput carries the mutable metadata fields.
type UpdateInput struct {
	DisplayName string
	Description string
	Icon        string
	Route       string
	Component   string
	SortOrder   int
	IsActive    bool
	IsVisible   bool
}

// Hierarchy returns active top-level nodes with their active, visible
// children attached one level deep, siblings in sort order.
func (s *Service) Hierarchy(ctx context.Context) ([]NodeWithChildren, error) {
	nodes, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	tree := NewTree(nodes)
	out := make([]NodeWithChildren, 0, len(tree.Roots()))
	for _, root := range tree.Roots() {
		entry := NodeWithChildren{Node: root}
		for _, child := range tree.Children(root.ID) {
			if child.IsActive && child.IsVisible {
				entry.Children = append(entry.Children, child)
			}
		}
		out = append(out, entry)
	}
	return out, nil
}

// ActiveTree returns the full arena of active nodes for permission
// resolution.
func (s *Service) ActiveTree(ctx context.Context) (*Tree, error) {
	nodes, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	return NewTree(nodes), nil
}

// List returns every non-deleted node.
func (s *Service) List(ctx context.Context) ([]Node, error) {
	return s.repo.ListAll(ctx)
}

// Get fetches a node by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Node, error) {
	return s.repo.GetByID(ctx, id)
}

// FindByName fetches a node by its stable name key.
func (s *Service) FindByName(ctx context.Context, name string) (Node, error) {
	return s.repo.GetByName(ctx, strings.TrimSpace(name))
}

// ByParent returns children of parentID; nil lists roots.
func (s *Service) ByParent(ctx context.Context, parentID *uuid.UUID) ([]Node, error) {
	return s.repo.ListByParent(ctx, parentID)
}

// Create inserts a new node. The parent, when given, must exist.
func (s *Service) Create(ctx context.Context, in CreateInput) (Node, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Node{}, fmt.Errorf("%w: menu name required", shared.ErrValidation)
	}
	display := strings.TrimSpace(in.DisplayName)
	if display == "" {
		display = s.title.String(name)
	}
	if in.ParentID != nil {
		if _, err := s.repo.GetByID(ctx, *in.ParentID); err != nil {
			return Node{}, fmt.Errorf("menu parent: %w", err)
		}
	}
	kind := in.Kind
	if kind == "" {
		kind = KindMenu
	}
	return s.repo.Insert(ctx, Node{
		ID:          uuid.New(),
		Name:        name,
		DisplayName: display,
		Description: strings.TrimSpace(in.Description),
		Icon:        strings.TrimSpace(in.Icon),
		Route:       strings.TrimSpace(in.Route),
		Component:   strings.TrimSpace(in.Component),
		SortOrder:   in.SortOrder,
		IsActive:    true,
		IsVisible:   in.IsVisible,
		Kind:        kind,
		ParentID:    in.ParentID,
	})
}

// Update mutates display, order and visibility fields. Flipping IsActive or
// IsVisible affects resolution immediately; there is no cache in this layer.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (Node, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Node{}, err
	}
	display := strings.TrimSpace(in.DisplayName)
	if display == "" {
		display = current.DisplayName
	}
	current.DisplayName = display
	current.Description = strings.TrimSpace(in.Description)
	current.Icon = strings.TrimSpace(in.Icon)
	current.Route = strings.TrimSpace(in.Route)
	current.Component = strings.TrimSpace(in.Component)
	current.SortOrder = in.SortOrder
	current.IsActive = in.IsActive
	current.IsVisible = in.IsVisible
	return s.repo.UpdateMeta(ctx, current)
}

// Move re-homes a node under a new parent, or to the root when parentID is
// nil. A move that would close a cycle in the parent chain is rejected.
func (s *Service) Move(ctx context.Context, id uuid.UUID, parentID *uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	if parentID != nil {
		if *parentID == id {
			return fmt.Errorf("%w: menu cannot be its own parent", shared.ErrInvalidOperation)
		}
		if _, err := s.repo.GetByID(ctx, *parentID); err != nil {
			return fmt.Errorf("menu parent: %w", err)
		}
		nodes, err := s.repo.ListAll(ctx)
		if err != nil {
			return err
		}
		tree := NewTree(nodes)
		for _, ancestor := range tree.PathToRoot(*parentID) {
			if ancestor.ID == id {
				return fmt.Errorf("%w: move would create a cycle", shared.ErrInvalidOperation)
			}
		}
	}
	return s.repo.SetParent(ctx, id, parentID)
}

// Delete soft-deletes a node. Grants on it become unreachable through normal
// traversal but are preserved for history.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.SoftDelete(ctx, id)
}
