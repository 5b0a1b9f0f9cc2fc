package rbac

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/meridian-sis/meridian-sis/internal/menu"
	"github.com/meridian-sis/meridian-sis/internal/shared"
)

// countingGrants tracks per-pair lookups so tests can pin how much store
// work an endpoint performs.
type countingGrants struct {
	*fakeGrants
	lookups int
}

func (c *countingGrants) GetByRoleAndMenu(ctx context.Context, roleID, menuID uuid.UUID) (Grant, bool, error) {
	c.lookups++
	return c.fakeGrants.GetByRoleAndMenu(ctx, roleID, menuID)
}

func TestMenuAccessResolvesGrantsOnce(t *testing.T) {
	target := node("FeeManagement", nil, 1)
	fx := newFixture([]menu.Node{target})
	grants := &countingGrants{fakeGrants: fx.grants}
	fx.service = NewService(fx.menus, grants, fx.assignments, fx.users)

	userID := fx.addUser()
	viewRole, editRole := uuid.New(), uuid.New()
	fx.assign(userID, viewRole, nil)
	fx.assign(userID, editRole, nil)
	fx.grants.put(viewRole, target.ID, ViewOnly())
	fx.grants.put(editRole, target.ID, ReadWrite())

	h := NewHandler(nil, fx.service, NewMenuViewCache(nil, 0), Middleware{Service: fx.service})
	router := chi.NewRouter()
	h.MountMenuRoutes(router)

	req := httptest.NewRequest(http.MethodGet, "/"+target.ID.String()+"/access", nil)
	req = req.WithContext(shared.ContextWithIdentity(req.Context(), shared.Identity{UserID: userID}))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var resp accessResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.HasAccess {
		t.Fatal("view grant must yield access")
	}
	if !resp.Permissions.CanEdit || resp.Permissions.CanApprove {
		t.Fatalf("unexpected union: %+v", resp.Permissions)
	}
	// One lookup per effective role, not one per role per question.
	if grants.lookups != 2 {
		t.Fatalf("expected 2 grant lookups, got %d", grants.lookups)
	}
}

func TestMenuAccessDeniedWithoutGrants(t *testing.T) {
	target := node("FeeManagement", nil, 1)
	fx := newFixture([]menu.Node{target})
	grants := &countingGrants{fakeGrants: fx.grants}
	fx.service = NewService(fx.menus, grants, fx.assignments, fx.users)

	userID := fx.addUser()
	fx.assign(userID, uuid.New(), nil)

	h := NewHandler(nil, fx.service, NewMenuViewCache(nil, 0), Middleware{Service: fx.service})
	router := chi.NewRouter()
	h.MountMenuRoutes(router)

	req := httptest.NewRequest(http.MethodGet, "/"+target.ID.String()+"/access", nil)
	req = req.WithContext(shared.ContextWithIdentity(req.Context(), shared.Identity{UserID: userID}))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var resp accessResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.HasAccess || !resp.Permissions.IsZero() {
		t.Fatalf("expected denial with empty set, got %+v", resp)
	}
	if grants.lookups != 1 {
		t.Fatalf("expected 1 grant lookup, got %d", grants.lookups)
	}
}
