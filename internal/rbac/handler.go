package rbac

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/meridian-sis/meridian-sis/internal/platform/httpx"
	"github.com/meridian-sis/meridian-sis/internal/shared"
)

const (
	resolveRateLimit  = 30
	resolveRateWindow = time.Minute
)

// Handler exposes menu resolution, grant and assignment routes.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	cache    *MenuViewCache
	guard    Middleware
	validate *validator.Validate
	group    singleflight.Group
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, cache *MenuViewCache, guard Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:   logger,
		service:  service,
		cache:    cache,
		guard:    guard,
		validate: validator.New(),
	}
}

// MountMenuRoutes registers the per-user resolution endpoints under /menus.
func (h *Handler) MountMenuRoutes(r chi.Router) {
	limiter := httprate.Limit(resolveRateLimit, resolveRateWindow,
		httprate.WithKeyFuncs(identityRateKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)
	r.Group(func(r chi.Router) {
		r.Use(limiter)
		r.Get("/user-menus", h.handleUserMenus)
		r.Get("/{menuID}/access", h.handleMenuAccess)
	})
}

// MountRoleRoutes registers grant management endpoints under /roles.
func (h *Handler) MountRoleRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireMenu("RoleManagement", CapView))
		r.Get("/{roleID}/permissions", h.handleRoleGrants)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireMenu("RoleManagement", CapEdit))
		r.Post("/{roleID}/permissions", h.handleAssignPermissions)
		r.Delete("/{roleID}/permissions", h.handleRevokePermissions)
	})
}

// MountUserRoutes registers assignment endpoints under /users.
func (h *Handler) MountUserRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireMenu("RoleManagement", CapView))
		r.Get("/{userID}/roles", h.handleUserAssignments)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireMenu("RoleManagement", CapEdit))
		r.Post("/{userID}/roles", h.handleAssignRole)
		r.Delete("/{userID}/roles/{roleID}", h.handleRevokeRole)
	})
}

func identityRateKey(r *http.Request) (string, error) {
	if identity, ok := shared.IdentityFromContext(r.Context()); ok {
		return "user:" + identity.UserID.String(), nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}

func (h *Handler) handleUserMenus(w http.ResponseWriter, r *http.Request) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	if views, hit := h.cache.Get(r.Context(), identity.UserID); hit {
		httpx.JSON(w, http.StatusOK, views)
		return
	}
	// Collapse concurrent resolutions for the same user into one store walk.
	result, err, _ := h.group.Do(identity.UserID.String(), func() (any, error) {
		views, err := h.service.ResolveUserMenus(r.Context(), identity.UserID)
		if err != nil {
			return nil, err
		}
		h.cache.Set(r.Context(), identity.UserID, views)
		return views, nil
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result.([]MenuItemView))
}

type accessResponse struct {
	MenuID      uuid.UUID     `json:"menuId"`
	HasAccess   bool          `json:"hasAccess"`
	Permissions PermissionSet `json:"permissions"`
}

func (h *Handler) handleMenuAccess(w http.ResponseWriter, r *http.Request) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	menuID, err := uuid.Parse(chi.URLParam(r, "menuID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid menu id")
		return
	}
	// One resolution covers both fields: access is just the view bit of the
	// unioned set.
	perms, err := h.service.UserMenuPermissions(r.Context(), identity.UserID, menuID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, accessResponse{MenuID: menuID, HasAccess: perms.CanView, Permissions: perms})
}

type grantResponse struct {
	RoleID      uuid.UUID     `json:"roleId"`
	MenuID      uuid.UUID     `json:"menuId"`
	Permissions PermissionSet `json:"permissions"`
}

func (h *Handler) handleRoleGrants(w http.ResponseWriter, r *http.Request) {
	roleID, err := uuid.Parse(chi.URLParam(r, "roleID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid role id")
		return
	}
	grants, err := h.service.RoleGrants(r.Context(), roleID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]grantResponse, 0, len(grants))
	for _, g := range grants {
		out = append(out, grantResponse{RoleID: g.RoleID, MenuID: g.MenuID, Permissions: g.Permissions})
	}
	httpx.JSON(w, http.StatusOK, out)
}

type assignPermissionsRequest struct {
	Permissions []MenuPermission `json:"permissions" validate:"required,min=1,dive"`
}

func (h *Handler) handleAssignPermissions(w http.ResponseWriter, r *http.Request) {
	roleID, err := uuid.Parse(chi.URLParam(r, "roleID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid role id")
		return
	}
	var req assignPermissionsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.AssignMenuPermissions(r.Context(), roleID, req.Permissions); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.cache.InvalidateAll(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

type revokePermissionsRequest struct {
	MenuIDs []uuid.UUID `json:"menuIds"`
	All     bool        `json:"all"`
}

func (h *Handler) handleRevokePermissions(w http.ResponseWriter, r *http.Request) {
	roleID, err := uuid.Parse(chi.URLParam(r, "roleID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid role id")
		return
	}
	var req revokePermissionsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if req.All {
		err = h.service.RevokeAllMenuPermissions(r.Context(), roleID)
	} else {
		err = h.service.RevokeMenuPermissions(r.Context(), roleID, req.MenuIDs)
	}
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.cache.InvalidateAll(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

type assignmentResponse struct {
	RoleID     uuid.UUID  `json:"roleId"`
	AssignedAt time.Time  `json:"assignedAt"`
	IsActive   bool       `json:"isActive"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
	IsExpired  bool       `json:"isExpired"`
}

func (h *Handler) handleUserAssignments(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return
	}
	assignments, err := h.service.UserAssignments(r.Context(), userID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	now := time.Now()
	out := make([]assignmentResponse, 0, len(assignments))
	for _, a := range assignments {
		out = append(out, assignmentResponse{
			RoleID:     a.RoleID,
			AssignedAt: a.AssignedAt,
			IsActive:   a.IsActive,
			ExpiresAt:  a.ExpiresAt,
			IsExpired:  a.IsExpired(now),
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}

type assignRoleRequest struct {
	RoleID    uuid.UUID  `json:"roleId" validate:"required"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

func (h *Handler) handleAssignRole(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return
	}
	var req assignRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	assignment, err := h.service.AssignRole(r.Context(), userID, req.RoleID, req.ExpiresAt)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.cache.InvalidateUser(r.Context(), userID)
	httpx.JSON(w, http.StatusCreated, assignmentResponse{
		RoleID:     assignment.RoleID,
		AssignedAt: assignment.AssignedAt,
		IsActive:   assignment.IsActive,
		ExpiresAt:  assignment.ExpiresAt,
		IsExpired:  assignment.IsExpired(time.Now()),
	})
}

func (h *Handler) handleRevokeRole(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return
	}
	roleID, err := uuid.Parse(chi.URLParam(r, "roleID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid role id")
		return
	}
	if err := h.service.RevokeRole(r.Context(), userID, roleID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.cache.InvalidateUser(r.Context(), userID)
	w.WriteHeader(http.StatusNoContent)
}
