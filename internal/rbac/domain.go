package rbac

import (
	"time"

	"github.com/google/uuid"

	"github.com/meridian-sis/meridian-sis/internal/menu"
)

// Capability names addressable through the middleware gate.
const (
	CapView    = "view"
	CapAdd     = "add"
	CapEdit    = "edit"
	CapDelete  = "delete"
	CapExport  = "export"
	CapPrint   = "print"
	CapApprove = "approve"
	CapReject  = "reject"
)

// PermissionSet is an immutable bitset of the eight capabilities attached to
// a (role, menu) pair. Each capability is binary; there is no partial or
// numeric granularity.
type PermissionSet struct {
	CanView    bool `json:"canView"`
	CanAdd     bool `json:"canAdd"`
	CanEdit    bool `json:"canEdit"`
	CanDelete  bool `json:"canDelete"`
	CanExport  bool `json:"canExport"`
	CanPrint   bool `json:"canPrint"`
	CanApprove bool `json:"canApprove"`
	CanReject  bool `json:"canReject"`
}

// FullAccess grants all eight capabilities.
func FullAccess() PermissionSet {
	return PermissionSet{
		CanView: true, CanAdd: true, CanEdit: true, CanDelete: true,
		CanExport: true, CanPrint: true, CanApprove: true, CanReject: true,
	}
}

// ReadWrite grants the four CRUD capabilities.
func ReadWrite() PermissionSet {
	return PermissionSet{CanView: true, CanAdd: true, CanEdit: true, CanDelete: true}
}

// ViewOnly grants view alone.
func ViewOnly() PermissionSet {
	return PermissionSet{CanView: true}
}

// Union combines two sets via field-wise OR. There is no deny override: once
// any active role grants a capability, it is granted.
func (p PermissionSet) Union(o PermissionSet) PermissionSet {
	return PermissionSet{
		CanView:    p.CanView || o.CanView,
		CanAdd:     p.CanAdd || o.CanAdd,
		CanEdit:    p.CanEdit || o.CanEdit,
		CanDelete:  p.CanDelete || o.CanDelete,
		CanExport:  p.CanExport || o.CanExport,
		CanPrint:   p.CanPrint || o.CanPrint,
		CanApprove: p.CanApprove || o.CanApprove,
		CanReject:  p.CanReject || o.CanReject,
	}
}

// Has reports whether the named capability is granted. Unknown capability
// names are never granted.
func (p PermissionSet) Has(capability string) bool {
	switch capability {
	case CapView:
		return p.CanView
	case CapAdd:
		return p.CanAdd
	case CapEdit:
		return p.CanEdit
	case CapDelete:
		return p.CanDelete
	case CapExport:
		return p.CanExport
	case CapPrint:
		return p.CanPrint
	case CapApprove:
		return p.CanApprove
	case CapReject:
		return p.CanReject
	}
	return false
}

// IsZero reports whether no capability is granted.
func (p PermissionSet) IsZero() bool {
	return p == PermissionSet{}
}

// Grant ties a PermissionSet to a (role, menu) pair. At most one grant row
// exists per pair; re-assignment updates in place.
type Grant struct {
	RoleID      uuid.UUID
	MenuID      uuid.UUID
	Permissions PermissionSet
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// MenuPermission is one entry of a batch grant operation: an explicit,
// ordered pair rather than an associative container, so iteration order is
// deterministic for testing.
type MenuPermission struct {
	MenuID      uuid.UUID     `json:"menuId"`
	Permissions PermissionSet `json:"permissions"`
}

// Assignment is a time-bounded link from a user to a role. Rows are
// deactivated on revoke, never hard-deleted.
type Assignment struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	RoleID     uuid.UUID
	AssignedAt time.Time
	IsActive   bool
	ExpiresAt  *time.Time
}

// IsExpired reports whether the assignment's expiry has passed. An expiry
// exactly at now counts as expired. Comparison is in UTC.
func (a Assignment) IsExpired(now time.Time) bool {
	return a.ExpiresAt != nil && !a.ExpiresAt.UTC().After(now.UTC())
}

// IsEffective reports whether the assignment currently confers the role.
func (a Assignment) IsEffective(now time.Time) bool {
	return a.IsActive && !a.IsExpired(now)
}

// MenuItemView is one resolved node of a user's visible menu tree, carrying
// the unioned PermissionSet across the user's effective roles.
type MenuItemView struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	DisplayName string         `json:"displayName"`
	Icon        string         `json:"icon,omitempty"`
	Route       string         `json:"route,omitempty"`
	Component   string         `json:"component,omitempty"`
	Kind        menu.Kind      `json:"kind"`
	SortOrder   int            `json:"sortOrder"`
	Permissions PermissionSet  `json:"permissions"`
	Children    []MenuItemView `json:"children"`
}
