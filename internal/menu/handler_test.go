package menu

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
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

func TestUpdateInvalidatesResolvedViews(t *testing.T) {
	node := testNode("StudentManagement", nil, 1)
	views := &countingViews{}
	router := newTestRouter(newStubRepo(node), views)

	body := `{"displayName":"Students","isActive":false,"isVisible":true,"sortOrder":1}`
	req := httptest.NewRequest(http.MethodPut, "/"+node.ID.String(), strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("update status %d: %s", rec.Code, rec.Body.String())
	}
	if views.invalidations != 1 {
		t.Fatalf("expected 1 invalidation after update, got %d", views.invalidations)
	}
}

func TestDeleteInvalidatesResolvedViews(t *testing.T) {
	node := testNode("FeeManagement", nil, 1)
	views := &countingViews{}
	router := newTestRouter(newStubRepo(node), views)

	req := httptest.NewRequest(http.MethodDelete, "/"+node.ID.String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status %d: %s", rec.Code, rec.Body.String())
	}
	if views.invalidations != 1 {
		t.Fatalf("expected 1 invalidation after delete, got %d", views.invalidations)
	}
}

func TestReadsDoNotInvalidate(t *testing.T) {
	node := testNode("Attendance", nil, 1)
	views := &countingViews{}
	router := newTestRouter(newStubRepo(node), views)

	for _, path := range []string{"/", "/hierarchy", "/" + node.ID.String()} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s status %d", path, rec.Code)
		}
	}
	if views.invalidations != 0 {
		t.Fatalf("reads must not invalidate, got %d", views.invalidations)
	}
}

func TestFailedUpdateDoesNotInvalidate(t *testing.T) {
	views := &countingViews{}
	router := newTestRouter(newStubRepo(), views)

	body := `{"displayName":"Ghost"}`
	ghost := testNode("Ghost", nil, 1)
	req := httptest.NewRequest(http.MethodPut, "/"+ghost.ID.String(), strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown menu, got %d", rec.Code)
	}
	if views.invalidations != 0 {
		t.Fatalf("failed update must not invalidate, got %d", views.invalidations)
	}
}
