package rbac

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-sis/meridian-sis/internal/menu"
	"github.com/meridian-sis/meridian-sis/internal/shared"
)

// MenuDirectory supplies the menu arena for resolution.
type MenuDirectory interface {
	ActiveTree(ctx context.Context) (*menu.Tree, error)
	FindByName(ctx context.Context, name string) (menu.Node, error)
}

// GrantStore is the role-menu grant table contract.
type GrantStore interface {
	GetByRoleAndMenu(ctx context.Context, roleID, menuID uuid.UUID) (Grant, bool, error)
	ListByRole(ctx context.Context, roleID uuid.UUID) ([]Grant, error)
	ListByMenu(ctx context.Context, menuID uuid.UUID) ([]Grant, error)
	UpsertBatch(ctx context.Context, roleID uuid.UUID, pairs []MenuPermission) error
	SoftDelete(ctx context.Context, roleID, menuID uuid.UUID) (bool, error)
	SoftDeleteByRole(ctx context.Context, roleID uuid.UUID) (int64, error)
	SoftDeleteByMenu(ctx context.Context, menuID uuid.UUID) (int64, error)
}

// AssignmentStore is the user-role assignment contract.
type AssignmentStore interface {
	EffectiveRoleIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Assignment, error)
	Upsert(ctx context.Context, userID, roleID uuid.UUID, assignedAt time.Time, expiresAt *time.Time) (Assignment, error)
	Deactivate(ctx context.Context, userID, roleID uuid.UUID) (bool, error)
}

// UserDirectory answers existence checks for the assignment paths.
type UserDirectory interface {
	Exists(ctx context.Context, userID uuid.UUID) (bool, error)
}

// Service resolves menu visibility and permissions per user, and manages
// grants and assignments. It is stateless: every invocation queries the
// stores independently and combines results locally, so concurrent use is
// safe without synchronization. A concurrent grant mutation may be observed
// by an in-flight resolution on either side; menu visibility is advisory UI
// guidance, and mutating handlers re-check permissions at point of use.
type Service struct {
	menus       MenuDirectory
	grants      GrantStore
	assignments AssignmentStore
	users       UserDirectory
	now         func() time.Time
}

// NewService builds a Service instance.
func NewService(menus MenuDirectory, grants GrantStore, assignments AssignmentStore, users UserDirectory) *Service {
	return &Service{
		menus:       menus,
		grants:      grants,
		assignments: assignments,
		users:       users,
		now:         time.Now,
	}
}

// EffectiveRoleIDs returns the user's currently conferred role ids. An
// unknown user is an error; a known user with no roles is an empty result.
func (s *Service) EffectiveRoleIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	ok, err := s.users.Exists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: user %s", shared.ErrNotFound, userID)
	}
	return s.assignments.EffectiveRoleIDs(ctx, userID)
}

// ResolveUserMenus computes the user's visible menu tree with the effective
// PermissionSet per node. A node without view access is pruned together with
// its entire subtree: the parent gate is absolute, a child is never shown
// under a hidden ancestor even if independently granted.
func (s *Service) ResolveUserMenus(ctx context.Context, userID uuid.UUID) ([]MenuItemView, error) {
	roleIDs, err := s.EffectiveRoleIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(roleIDs) == 0 {
		return []MenuItemView{}, nil
	}
	tree, err := s.menus.ActiveTree(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]MenuItemView, 0)
	for _, root := range tree.Roots() {
		view, keep, err := s.buildView(ctx, roleIDs, tree, root)
		if err != nil {
			return nil, err
		}
		if keep {
			views = append(views, view)
		}
	}
	return views, nil
}

func (s *Service) buildView(ctx context.Context, roleIDs []uuid.UUID, tree *menu.Tree, node menu.Node) (MenuItemView, bool, error) {
	if !node.IsActive || !node.IsVisible {
		return MenuItemView{}, false, nil
	}
	perms, err := s.ResolvePermissions(ctx, roleIDs, node.ID)
	if err != nil {
		return MenuItemView{}, false, err
	}
	if !perms.CanView {
		return MenuItemView{}, false, nil
	}
	view := MenuItemView{
		ID:          node.ID,
		Name:        node.Name,
		DisplayName: node.DisplayName,
		Icon:        node.Icon,
		Route:       node.Route,
		Component:   node.Component,
		Kind:        node.Kind,
		SortOrder:   node.SortOrder,
		Permissions: perms,
		Children:    []MenuItemView{},
	}
	for _, child := range tree.Children(node.ID) {
		childView, keep, err := s.buildView(ctx, roleIDs, tree, child)
		if err != nil {
			return MenuItemView{}, false, err
		}
		if keep {
			view.Children = append(view.Children, childView)
		}
	}
	return view, true, nil
}

// ResolvePermissions unions the grants every given role holds on the menu.
// Accumulation never exits early: even once view is granted, later roles may
// still contribute delete, approve and the rest. Unknown role or menu ids
// simply yield no grants and an all-false set, never an error.
func (s *Service) ResolvePermissions(ctx context.Context, roleIDs []uuid.UUID, menuID uuid.UUID) (PermissionSet, error) {
	var acc PermissionSet
	for _, roleID := range roleIDs {
		grant, found, err := s.grants.GetByRoleAndMenu(ctx, roleID, menuID)
		if err != nil {
			return PermissionSet{}, err
		}
		if found {
			acc = acc.Union(grant.Permissions)
		}
	}
	return acc, nil
}

// HasMenuAccess reports whether any effective role grants view on the menu.
// Unlike ResolvePermissions it short-circuits on the first hit, since only a
// boolean is needed.
func (s *Service) HasMenuAccess(ctx context.Context, userID, menuID uuid.UUID) (bool, error) {
	roleIDs, err := s.EffectiveRoleIDs(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, roleID := range roleIDs {
		grant, found, err := s.grants.GetByRoleAndMenu(ctx, roleID, menuID)
		if err != nil {
			return false, err
		}
		if found && grant.Permissions.CanView {
			return true, nil
		}
	}
	return false, nil
}

// UserMenuPermissions unions the user's effective grants on one menu.
func (s *Service) UserMenuPermissions(ctx context.Context, userID, menuID uuid.UUID) (PermissionSet, error) {
	roleIDs, err := s.EffectiveRoleIDs(ctx, userID)
	if err != nil {
		return PermissionSet{}, err
	}
	return s.ResolvePermissions(ctx, roleIDs, menuID)
}

// CheckMenuCapability reports whether the user holds the named capability on
// the menu identified by its stable name. A missing menu means no grants and
// therefore no access, not an error.
func (s *Service) CheckMenuCapability(ctx context.Context, userID uuid.UUID, menuName, capability string) (bool, error) {
	node, err := s.menus.FindByName(ctx, menuName)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if !node.IsActive {
		return false, nil
	}
	perms, err := s.UserMenuPermissions(ctx, userID, node.ID)
	if err != nil {
		return false, err
	}
	return perms.Has(capability), nil
}

// AssignRole grants a role to a user, extending expiry on an existing
// assignment rather than duplicating the row.
func (s *Service) AssignRole(ctx context.Context, userID, roleID uuid.UUID, expiresAt *time.Time) (Assignment, error) {
	ok, err := s.users.Exists(ctx, userID)
	if err != nil {
		return Assignment{}, err
	}
	if !ok {
		return Assignment{}, fmt.Errorf("%w: user %s", shared.ErrNotFound, userID)
	}
	return s.assignments.Upsert(ctx, userID, roleID, s.now().UTC(), expiresAt)
}

// RevokeRole deactivates the user's assignment of the role. A role the user
// never held is a silent no-op; an unknown user is NotFound.
func (s *Service) RevokeRole(ctx context.Context, userID, roleID uuid.UUID) error {
	ok, err := s.users.Exists(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: user %s", shared.ErrNotFound, userID)
	}
	_, err = s.assignments.Deactivate(ctx, userID, roleID)
	return err
}

// UserAssignments lists a user's assignment rows, effective or not.
func (s *Service) UserAssignments(ctx context.Context, userID uuid.UUID) ([]Assignment, error) {
	ok, err := s.users.Exists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: user %s", shared.ErrNotFound, userID)
	}
	return s.assignments.ListByUser(ctx, userID)
}

// AssignMenuPermissions upserts one grant per pair for the role, as a single
// all-or-nothing batch. Entries are independent, so processing order does
// not change the outcome.
func (s *Service) AssignMenuPermissions(ctx context.Context, roleID uuid.UUID, pairs []MenuPermission) error {
	return s.grants.UpsertBatch(ctx, roleID, pairs)
}

// RevokeMenuPermissions soft-deletes the role's grant on each listed menu.
// Absence is not an error: the caller's intent is already satisfied.
func (s *Service) RevokeMenuPermissions(ctx context.Context, roleID uuid.UUID, menuIDs []uuid.UUID) error {
	for _, menuID := range menuIDs {
		if _, err := s.grants.SoftDelete(ctx, roleID, menuID); err != nil {
			return err
		}
	}
	return nil
}

// RevokeAllMenuPermissions soft-deletes every grant held by the role.
func (s *Service) RevokeAllMenuPermissions(ctx context.Context, roleID uuid.UUID) error {
	_, err := s.grants.SoftDeleteByRole(ctx, roleID)
	return err
}

// RoleGrants lists the role's current grants.
func (s *Service) RoleGrants(ctx context.Context, roleID uuid.UUID) ([]Grant, error) {
	return s.grants.ListByRole(ctx, roleID)
}
