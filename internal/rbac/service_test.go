package rbac

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-sis/meridian-sis/internal/menu"
	"github.com/meridian-sis/meridian-sis/internal/shared"
)

type fakeMenus struct {
	nodes []menu.Node
}

func (f *fakeMenus) ActiveTree(ctx context.Context) (*menu.Tree, error) {
	active := make([]menu.Node, 0, len(f.nodes))
	for _, n := range f.nodes {
		if n.IsActive {
			active = append(active, n)
		}
	}
	return menu.NewTree(active), nil
}

func (f *fakeMenus) FindByName(ctx context.Context, name string) (menu.Node, error) {
	for _, n := range f.nodes {
		if n.Name == name {
			return n, nil
		}
	}
	return menu.Node{}, shared.ErrNotFound
}

type grantKey struct {
	role uuid.UUID
	menu uuid.UUID
}

type fakeGrants struct {
	grants map[grantKey]Grant
}

func newFakeGrants() *fakeGrants {
	return &fakeGrants{grants: make(map[grantKey]Grant)}
}

func (f *fakeGrants) put(roleID, menuID uuid.UUID, p PermissionSet) {
	f.grants[grantKey{roleID, menuID}] = Grant{RoleID: roleID, MenuID: menuID, Permissions: p}
}

func (f *fakeGrants) GetByRoleAndMenu(ctx context.Context, roleID, menuID uuid.UUID) (Grant, bool, error) {
	g, ok := f.grants[grantKey{roleID, menuID}]
	return g, ok, nil
}

func (f *fakeGrants) ListByRole(ctx context.Context, roleID uuid.UUID) ([]Grant, error) {
	var out []Grant
	for k, g := range f.grants {
		if k.role == roleID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeGrants) ListByMenu(ctx context.Context, menuID uuid.UUID) ([]Grant, error) {
	var out []Grant
	for k, g := range f.grants {
		if k.menu == menuID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeGrants) UpsertBatch(ctx context.Context, roleID uuid.UUID, pairs []MenuPermission) error {
	for _, p := range pairs {
		f.put(roleID, p.MenuID, p.Permissions)
	}
	return nil
}

func (f *fakeGrants) SoftDelete(ctx context.Context, roleID, menuID uuid.UUID) (bool, error) {
	k := grantKey{roleID, menuID}
	_, ok := f.grants[k]
	delete(f.grants, k)
	return ok, nil
}

func (f *fakeGrants) SoftDeleteByRole(ctx context.Context, roleID uuid.UUID) (int64, error) {
	var n int64
	for k := range f.grants {
		if k.role == roleID {
			delete(f.grants, k)
			n++
		}
	}
	return n, nil
}

func (f *fakeGrants) SoftDeleteByMenu(ctx context.Context, menuID uuid.UUID) (int64, error) {
	var n int64
	for k := range f.grants {
		if k.menu == menuID {
			delete(f.grants, k)
			n++
		}
	}
	return n, nil
}

type fakeAssignments struct {
	rows []Assignment
	now  func() time.Time
}

func (f *fakeAssignments) EffectiveRoleIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for _, a := range f.rows {
		if a.UserID == userID && a.IsEffective(f.now()) {
			out = append(out, a.RoleID)
		}
	}
	return out, nil
}

func (f *fakeAssignments) ListByUser(ctx context.Context, userID uuid.UUID) ([]Assignment, error) {
	var out []Assignment
	for _, a := range f.rows {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAssignments) Upsert(ctx context.Context, userID, roleID uuid.UUID, assignedAt time.Time, expiresAt *time.Time) (Assignment, error) {
	for i := range f.rows {
		if f.rows[i].UserID == userID && f.rows[i].RoleID == roleID {
			f.rows[i].IsActive = true
			if expiresAt != nil {
				f.rows[i].ExpiresAt = expiresAt
			}
			return f.rows[i], nil
		}
	}
	a := Assignment{ID: uuid.New(), UserID: userID, RoleID: roleID, AssignedAt: assignedAt, IsActive: true, ExpiresAt: expiresAt}
	f.rows = append(f.rows, a)
	return a, nil
}

func (f *fakeAssignments) Deactivate(ctx context.Context, userID, roleID uuid.UUID) (bool, error) {
	for i := range f.rows {
		if f.rows[i].UserID == userID && f.rows[i].RoleID == roleID && f.rows[i].IsActive {
			f.rows[i].IsActive = false
			return true, nil
		}
	}
	return false, nil
}

type fakeUsers struct {
	known map[uuid.UUID]bool
}

func (f *fakeUsers) Exists(ctx context.Context, userID uuid.UUID) (bool, error) {
	return f.known[userID], nil
}

type fixture struct {
	service     *Service
	menus       *fakeMenus
	grants      *fakeGrants
	assignments *fakeAssignments
	users       *fakeUsers
	now         time.Time
}

func newFixture(nodes []menu.Node) *fixture {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	menus := &fakeMenus{nodes: nodes}
	grants := newFakeGrants()
	assignments := &fakeAssignments{now: func() time.Time { return now }}
	users := &fakeUsers{known: make(map[uuid.UUID]bool)}
	svc := NewService(menus, grants, assignments, users)
	svc.now = func() time.Time { return now }
	return &fixture{service: svc, menus: menus, grants: grants, assignments: assignments, users: users, now: now}
}

func (fx *fixture) addUser() uuid.UUID {
	id := uuid.New()
	fx.users.known[id] = true
	return id
}

func (fx *fixture) assign(userID, roleID uuid.UUID, expiresAt *time.Time) {
	fx.assignments.rows = append(fx.assignments.rows, Assignment{
		ID: uuid.New(), UserID: userID, RoleID: roleID,
		AssignedAt: fx.now.Add(-time.Hour), IsActive: true, ExpiresAt: expiresAt,
	})
}

func node(name string, parentID *uuid.UUID, order int) menu.Node {
	return menu.Node{
		ID: uuid.New(), Name: name, DisplayName: name, Kind: menu.KindMenu,
		SortOrder: order, IsActive: true, IsVisible: true, ParentID: parentID,
	}
}

func TestResolveUserMenusUnknownUser(t *testing.T) {
	fx := newFixture(nil)
	_, err := fx.service.ResolveUserMenus(context.Background(), uuid.New())
	if !errors.Is(err, shared.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown user, got %v", err)
	}
}

func TestResolveUserMenusNoRoles(t *testing.T) {
	fx := newFixture([]menu.Node{node("Dashboard", nil, 1)})
	userID := fx.addUser()

	views, err := fx.service.ResolveUserMenus(context.Background(), userID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if views == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(views) != 0 {
		t.Fatalf("expected no menus, got %d", len(views))
	}
}

func TestResolveUserMenusParentGateIsAbsolute(t *testing.T) {
	parent := node("StudentManagement", nil, 1)
	child := node("StudentBiometric", &parent.ID, 1)
	fx := newFixture([]menu.Node{parent, child})

	userID := fx.addUser()
	roleID := uuid.New()
	fx.assign(userID, roleID, nil)
	// View on the child only; the parent stays dark.
	fx.grants.put(roleID, child.ID, ViewOnly())

	views, err := fx.service.ResolveUserMenus(context.Background(), userID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(views) != 0 {
		t.Fatalf("child under unviewable parent must be pruned, got %d roots", len(views))
	}
}

func TestResolveUserMenusUnionsAcrossRoles(t *testing.T) {
	root := node("FeeManagement", nil, 1)
	fx := newFixture([]menu.Node{root})

	userID := fx.addUser()
	viewer, approver := uuid.New(), uuid.New()
	fx.assign(userID, viewer, nil)
	fx.assign(userID, approver, nil)
	fx.grants.put(viewer, root.ID, ViewOnly())
	fx.grants.put(approver, root.ID, PermissionSet{CanApprove: true, CanReject: true})

	views, err := fx.service.ResolveUserMenus(context.Background(), userID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("expected 1 root, got %d", len(views))
	}
	got := views[0].Permissions
	if !got.CanView || !got.CanApprove || !got.CanReject {
		t.Fatalf("union across roles incomplete: %+v", got)
	}
	if got.CanDelete {
		t.Fatalf("capability granted by no role: %+v", got)
	}
}

func TestResolveUserMenusSkipsInactiveSubtree(t *testing.T) {
	parent := node("Administration", nil, 1)
	parent.IsActive = false
	child := node("MenuManagement", &parent.ID, 1)
	fx := newFixture([]menu.Node{parent, child})

	userID := fx.addUser()
	roleID := uuid.New()
	fx.assign(userID, roleID, nil)
	fx.grants.put(roleID, parent.ID, FullAccess())
	fx.grants.put(roleID, child.ID, FullAccess())

	views, err := fx.service.ResolveUserMenus(context.Background(), userID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(views) != 0 {
		t.Fatalf("inactive subtree must be invisible, got %d roots", len(views))
	}
}

func TestResolveUserMenusExpiredAssignmentConfersNothing(t *testing.T) {
	root := node("ExamManagement", nil, 1)
	fx := newFixture([]menu.Node{root})

	userID := fx.addUser()
	roleID := uuid.New()
	lapsed := fx.now.Add(-time.Minute)
	fx.assign(userID, roleID, &lapsed)
	fx.grants.put(roleID, root.ID, FullAccess())

	views, err := fx.service.ResolveUserMenus(context.Background(), userID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(views) != 0 {
		t.Fatalf("expired assignment must confer nothing, got %d roots", len(views))
	}
}

func TestTeacherSeesOwnSlice(t *testing.T) {
	students := node("StudentManagement", nil, 1)
	biometric := node("StudentBiometric", &students.ID, 1)
	fees := node("FeeManagement", nil, 2)
	fx := newFixture([]menu.Node{students, biometric, fees})

	teacher := fx.addUser()
	teacherRole := uuid.New()
	fx.assign(teacher, teacherRole, nil)
	fx.grants.put(teacherRole, students.ID, ReadWrite())
	fx.grants.put(teacherRole, biometric.ID, ViewOnly())

	views, err := fx.service.ResolveUserMenus(context.Background(), teacher)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("teacher must see exactly the student module, got %d roots", len(views))
	}
	root := views[0]
	if root.Name != "StudentManagement" || !root.Permissions.CanEdit {
		t.Fatalf("unexpected root: %+v", root)
	}
	if len(root.Children) != 1 {
		t.Fatalf("expected biometric child, got %d children", len(root.Children))
	}
	child := root.Children[0]
	if child.Name != "StudentBiometric" {
		t.Fatalf("unexpected child: %+v", child)
	}
	if child.Permissions.CanAdd || child.Permissions.CanEdit {
		t.Fatalf("biometric must stay view-only: %+v", child.Permissions)
	}
}

func TestCheckMenuCapability(t *testing.T) {
	active := node("RoleManagement", nil, 1)
	inactive := node("Legacy", nil, 2)
	inactive.IsActive = false
	fx := newFixture([]menu.Node{active, inactive})

	userID := fx.addUser()
	roleID := uuid.New()
	fx.assign(userID, roleID, nil)
	fx.grants.put(roleID, active.ID, ReadWrite())
	fx.grants.put(roleID, inactive.ID, FullAccess())

	ctx := context.Background()

	ok, err := fx.service.CheckMenuCapability(ctx, userID, "RoleManagement", CapEdit)
	if err != nil || !ok {
		t.Fatalf("expected edit allowed, got ok=%v err=%v", ok, err)
	}
	ok, err = fx.service.CheckMenuCapability(ctx, userID, "RoleManagement", CapApprove)
	if err != nil || ok {
		t.Fatalf("expected approve denied, got ok=%v err=%v", ok, err)
	}
	ok, err = fx.service.CheckMenuCapability(ctx, userID, "Legacy", CapView)
	if err != nil || ok {
		t.Fatalf("inactive menu must deny, got ok=%v err=%v", ok, err)
	}
	ok, err = fx.service.CheckMenuCapability(ctx, userID, "NoSuchMenu", CapView)
	if err != nil || ok {
		t.Fatalf("missing menu must deny without error, got ok=%v err=%v", ok, err)
	}
}

func TestAssignRoleIsIdempotentAndExtends(t *testing.T) {
	fx := newFixture(nil)
	userID := fx.addUser()
	roleID := uuid.New()
	ctx := context.Background()

	soon := fx.now.Add(time.Hour)
	first, err := fx.service.AssignRole(ctx, userID, roleID, &soon)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}

	later := fx.now.Add(48 * time.Hour)
	second, err := fx.service.AssignRole(ctx, userID, roleID, &later)
	if err != nil {
		t.Fatalf("reassign: %v", err)
	}
	if second.ID != first.ID {
		t.Fatal("reassignment must extend the existing row, not create a new one")
	}
	if second.ExpiresAt == nil || !second.ExpiresAt.Equal(later) {
		t.Fatalf("expiry not extended: %v", second.ExpiresAt)
	}

	// Reassigning without an expiry keeps the current bound.
	third, err := fx.service.AssignRole(ctx, userID, roleID, nil)
	if err != nil {
		t.Fatalf("reassign open: %v", err)
	}
	if third.ExpiresAt == nil || !third.ExpiresAt.Equal(later) {
		t.Fatalf("nil expiry must keep existing bound, got %v", third.ExpiresAt)
	}
}

func TestAssignRoleUnknownUser(t *testing.T) {
	fx := newFixture(nil)
	_, err := fx.service.AssignRole(context.Background(), uuid.New(), uuid.New(), nil)
	if !errors.Is(err, shared.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRevokeRole(t *testing.T) {
	fx := newFixture(nil)
	userID := fx.addUser()
	roleID := uuid.New()
	fx.assign(userID, roleID, nil)
	ctx := context.Background()

	if err := fx.service.RevokeRole(ctx, userID, roleID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	ids, err := fx.assignments.EffectiveRoleIDs(ctx, userID)
	if err != nil || len(ids) != 0 {
		t.Fatalf("role still effective after revoke: ids=%v err=%v", ids, err)
	}

	// Revoking a role the user never held is a silent no-op.
	if err := fx.service.RevokeRole(ctx, userID, uuid.New()); err != nil {
		t.Fatalf("revoke absent role: %v", err)
	}

	if err := fx.service.RevokeRole(ctx, uuid.New(), roleID); !errors.Is(err, shared.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown user, got %v", err)
	}
}

func TestHasMenuAccess(t *testing.T) {
	root := node("Attendance", nil, 1)
	fx := newFixture([]menu.Node{root})

	userID := fx.addUser()
	denied, granting := uuid.New(), uuid.New()
	fx.assign(userID, denied, nil)
	fx.assign(userID, granting, nil)
	fx.grants.put(denied, root.ID, PermissionSet{CanExport: true})
	fx.grants.put(granting, root.ID, ViewOnly())

	ok, err := fx.service.HasMenuAccess(context.Background(), userID, root.ID)
	if err != nil || !ok {
		t.Fatalf("expected access, got ok=%v err=%v", ok, err)
	}

	ok, err = fx.service.HasMenuAccess(context.Background(), userID, uuid.New())
	if err != nil || ok {
		t.Fatalf("unknown menu must deny, got ok=%v err=%v", ok, err)
	}
}

func TestRevokeMenuPermissions(t *testing.T) {
	fx := newFixture(nil)
	roleID := uuid.New()
	menuA, menuB := uuid.New(), uuid.New()
	fx.grants.put(roleID, menuA, FullAccess())
	fx.grants.put(roleID, menuB, ViewOnly())
	ctx := context.Background()

	if err := fx.service.RevokeMenuPermissions(ctx, roleID, []uuid.UUID{menuA, uuid.New()}); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, found, _ := fx.grants.GetByRoleAndMenu(ctx, roleID, menuA); found {
		t.Fatal("grant A still present")
	}
	if _, found, _ := fx.grants.GetByRoleAndMenu(ctx, roleID, menuB); !found {
		t.Fatal("grant B unexpectedly removed")
	}

	if err := fx.service.RevokeAllMenuPermissions(ctx, roleID); err != nil {
		t.Fatalf("revoke all: %v", err)
	}
	if grants, _ := fx.service.RoleGrants(ctx, roleID); len(grants) != 0 {
		t.Fatalf("expected no grants, got %d", len(grants))
	}
}
