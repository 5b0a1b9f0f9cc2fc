package roles

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type passGuard struct{}

func (passGuard) RequireMenu(menuName, capability string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler { return next }
}

type countingViews struct {
	invalidations int
}

func (c *countingViews) InvalidateAll(ctx context.Context) { c.invalidations++ }

func newTestRouter(repo *stubRepo, views *countingViews) chi.Router {
	h := NewHandler(nil, NewService(repo), passGuard{}, views)
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func TestSetStatusInvalidatesResolvedViews(t *testing.T) {
	role := Role{ID: uuid.New(), SchoolID: uuid.New(), Name: "Clerk", IsActive: true}
	views := &countingViews{}
	router := newTestRouter(newStubRepo(role), views)

	req := httptest.NewRequest(http.MethodPut, "/"+role.ID.String()+"/status", strings.NewReader(`{"isActive":false}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if views.invalidations != 1 {
		t.Fatalf("expected 1 invalidation after status change, got %d", views.invalidations)
	}
}

func TestRejectedSystemRoleStatusDoesNotInvalidate(t *testing.T) {
	admin := systemRole("SuperAdmin")
	views := &countingViews{}
	router := newTestRouter(newStubRepo(admin), views)

	req := httptest.NewRequest(http.MethodPut, "/"+admin.ID.String()+"/status", strings.NewReader(`{"isActive":false}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for system role, got %d", rec.Code)
	}
	if views.invalidations != 0 {
		t.Fatalf("rejected mutation must not invalidate, got %d", views.invalidations)
	}
}

func TestDeleteInvalidatesResolvedViews(t *testing.T) {
	role := Role{ID: uuid.New(), SchoolID: uuid.New(), Name: "Clerk", IsActive: true}
	views := &countingViews{}
	router := newTestRouter(newStubRepo(role), views)

	req := httptest.NewRequest(http.MethodDelete, "/"+role.ID.String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if views.invalidations != 1 {
		t.Fatalf("expected 1 invalidation after delete, got %d", views.invalidations)
	}
}
