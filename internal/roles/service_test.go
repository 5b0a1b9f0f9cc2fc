package roles

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/meridian-sis/meridian-sis/internal/shared"
)

type stubRepo struct {
	roles map[uuid.UUID]Role
}

func newStubRepo(roles ...Role) *stubRepo {
	r := &stubRepo{roles: make(map[uuid.UUID]Role)}
	for _, role := range roles {
		r.roles[role.ID] = role
	}
	return r
}

func (r *stubRepo) List(ctx context.Context, schoolID uuid.UUID) ([]Role, error) {
	var out []Role
	for _, role := range r.roles {
		if role.SchoolID == schoolID {
			out = append(out, role)
		}
	}
	return out, nil
}

func (r *stubRepo) ListActive(ctx context.Context, schoolID uuid.UUID) ([]Role, error) {
	var out []Role
	for _, role := range r.roles {
		if role.SchoolID == schoolID && role.IsActive {
			out = append(out, role)
		}
	}
	return out, nil
}

func (r *stubRepo) GetByID(ctx context.Context, id uuid.UUID) (Role, error) {
	role, ok := r.roles[id]
	if !ok {
		return Role{}, shared.ErrNotFound
	}
	return role, nil
}

func (r *stubRepo) Insert(ctx context.Context, role Role) (Role, error) {
	for _, existing := range r.roles {
		if existing.SchoolID == role.SchoolID && existing.Name == role.Name {
			return Role{}, shared.ErrDuplicate
		}
	}
	r.roles[role.ID] = role
	return role, nil
}

func (r *stubRepo) Update(ctx context.Context, role Role) (Role, error) {
	if _, ok := r.roles[role.ID]; !ok {
		return Role{}, shared.ErrNotFound
	}
	r.roles[role.ID] = role
	return role, nil
}

func (r *stubRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	role, ok := r.roles[id]
	if !ok {
		return shared.ErrNotFound
	}
	role.IsActive = active
	r.roles[id] = role
	return nil
}

func (r *stubRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.roles[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.roles, id)
	return nil
}

func systemRole(name string) Role {
	return Role{ID: uuid.New(), SchoolID: uuid.New(), Name: name, DisplayName: name, IsSystemRole: true, IsActive: true}
}

func TestCreateNeverProducesSystemRole(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo)

	role, err := svc.Create(context.Background(), CreateInput{SchoolID: uuid.New(), Name: "Librarian"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if role.IsSystemRole {
		t.Fatal("created role must not be a system role")
	}
	if !role.IsActive {
		t.Fatal("created role must start active")
	}
}

func TestCreateRejectsBlankName(t *testing.T) {
	svc := NewService(newStubRepo())
	_, err := svc.Create(context.Background(), CreateInput{SchoolID: uuid.New(), Name: " "})
	if !errors.Is(err, shared.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestCreateDuplicateName(t *testing.T) {
	schoolID := uuid.New()
	svc := NewService(newStubRepo())
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateInput{SchoolID: schoolID, Name: "Teacher"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := svc.Create(ctx, CreateInput{SchoolID: schoolID, Name: "Teacher"})
	if !errors.Is(err, shared.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestDeactivateSystemRoleFails(t *testing.T) {
	admin := systemRole("SuperAdmin")
	repo := newStubRepo(admin)
	svc := NewService(repo)

	err := svc.SetActiveStatus(context.Background(), admin.ID, false)
	if !errors.Is(err, shared.ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation, got %v", err)
	}
	got, _ := repo.GetByID(context.Background(), admin.ID)
	if !got.IsActive {
		t.Fatal("system role deactivated despite rejection")
	}

	// Re-activating a system role is fine.
	if err := svc.SetActiveStatus(context.Background(), admin.ID, true); err != nil {
		t.Fatalf("activate system role: %v", err)
	}
}

func TestDeleteSystemRoleFails(t *testing.T) {
	admin := systemRole("SuperAdmin")
	repo := newStubRepo(admin)
	svc := NewService(repo)

	err := svc.Delete(context.Background(), admin.ID)
	if !errors.Is(err, shared.ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation, got %v", err)
	}
	if _, err := repo.GetByID(context.Background(), admin.ID); err != nil {
		t.Fatal("system role deleted despite rejection")
	}
}

func TestDeleteRegularRole(t *testing.T) {
	role := Role{ID: uuid.New(), SchoolID: uuid.New(), Name: "Clerk", IsActive: true}
	repo := newStubRepo(role)
	svc := NewService(repo)

	if err := svc.Delete(context.Background(), role.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetByID(context.Background(), role.ID); !errors.Is(err, shared.ErrNotFound) {
		t.Fatal("role survived delete")
	}
}

func TestUpdateKeepsDisplayNameWhenBlank(t *testing.T) {
	role := Role{ID: uuid.New(), SchoolID: uuid.New(), Name: "Clerk", DisplayName: "Front Desk Clerk", IsActive: true}
	repo := newStubRepo(role)
	svc := NewService(repo)

	got, err := svc.Update(context.Background(), role.ID, "  ", "handles admissions desk", 3)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.DisplayName != "Front Desk Clerk" {
		t.Fatalf("blank display name overwrote existing: %q", got.DisplayName)
	}
	if got.Level != 3 {
		t.Fatalf("level not updated: %d", got.Level)
	}
}
