package roles

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/meridian-sis/meridian-sis/internal/platform/httpx"
	"github.com/meridian-sis/meridian-sis/internal/shared"
)

// Guard gates handlers on a resolved menu capability.
type Guard interface {
	RequireMenu(menuName, capability string) func(http.Handler) http.Handler
}

// ViewCache drops cached resolved menu trees. Deactivating or deleting a role
// changes what its holders may see, and the holders are not known here.
type ViewCache interface {
	InvalidateAll(ctx context.Context)
}

// Handler exposes role management routes.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	guard    Guard
	views    ViewCache
	validate *validator.Validate
}

// NewHandler builds a Handler instance. views may be nil.
func NewHandler(logger *slog.Logger, service *Service, guard Guard, views ViewCache) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, guard: guard, views: views, validate: validator.New()}
}

func (h *Handler) invalidateViews(ctx context.Context) {
	if h.views != nil {
		h.views.InvalidateAll(ctx)
	}
}

// MountRoutes registers role management routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireMenu("RoleManagement", "view"))
		r.Get("/", h.list)
		r.Get("/{roleID}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireMenu("RoleManagement", "add"))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireMenu("RoleManagement", "edit"))
		r.Put("/{roleID}", h.update)
		r.Put("/{roleID}/status", h.setStatus)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireMenu("RoleManagement", "delete"))
		r.Delete("/{roleID}", h.delete)
	})
}

type roleResponse struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	DisplayName  string    `json:"displayName"`
	Description  string    `json:"description,omitempty"`
	IsSystemRole bool      `json:"isSystemRole"`
	IsActive     bool      `json:"isActive"`
	Level        int       `json:"level"`
	CreatedAt    time.Time `json:"createdAt"`
}

func toRoleResponse(r Role) roleResponse {
	return roleResponse{
		ID:           r.ID,
		Name:         r.Name,
		DisplayName:  r.DisplayName,
		Description:  r.Description,
		IsSystemRole: r.IsSystemRole,
		IsActive:     r.IsActive,
		Level:        r.Level,
		CreatedAt:    r.CreatedAt,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	var (
		out []Role
		err error
	)
	if r.URL.Query().Get("active") == "true" {
		out, err = h.service.ActiveRoles(r.Context(), identity.SchoolID)
	} else {
		out, err = h.service.List(r.Context(), identity.SchoolID)
	}
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	resp := make([]roleResponse, 0, len(out))
	for _, role := range out {
		resp = append(resp, toRoleResponse(role))
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "roleID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid role id")
		return
	}
	role, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRoleResponse(role))
}

type createRequest struct {
	Name        string `json:"name" validate:"required,max=120"`
	DisplayName string `json:"displayName" validate:"max=200"`
	Description string `json:"description" validate:"max=500"`
	Level       int    `json:"level" validate:"gte=0"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	role, err := h.service.Create(r.Context(), CreateInput{
		SchoolID:    identity.SchoolID,
		Name:        req.Name,
		DisplayName: req.DisplayName,
		Description: req.Description,
		Level:       req.Level,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toRoleResponse(role))
}

type updateRequest struct {
	DisplayName string `json:"displayName" validate:"max=200"`
	Description string `json:"description" validate:"max=500"`
	Level       int    `json:"level" validate:"gte=0"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "roleID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid role id")
		return
	}
	var req updateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	role, err := h.service.Update(r.Context(), id, req.DisplayName, req.Description, req.Level)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRoleResponse(role))
}

type statusRequest struct {
	IsActive bool `json:"isActive"`
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "roleID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid role id")
		return
	}
	var req statusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.service.SetActiveStatus(r.Context(), id, req.IsActive); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.invalidateViews(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "roleID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid role id")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.invalidateViews(r.Context())
	w.WriteHeader(http.StatusNoContent)
}
