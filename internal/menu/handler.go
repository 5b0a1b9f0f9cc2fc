package menu

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/meridian-sis/meridian-sis/internal/platform/httpx"
)

// Guard gates handlers on a resolved menu capability.
type Guard interface {
	RequireMenu(menuName, capability string) func(http.Handler) http.Handler
}

// ViewCache drops cached resolved menu trees. Catalog mutations change what
// every user may see, so the whole cache goes.
type ViewCache interface {
	InvalidateAll(ctx context.Context)
}

// Handler exposes menu directory routes.
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
	return &Handler{
		logger:   logger,
		service:  service,
		guard:    guard,
		views:    views,
		validate: validator.New(),
	}
}

func (h *Handler) invalidateViews(ctx context.Context) {
	if h.views != nil {
		h.views.InvalidateAll(ctx)
	}
}

// MountRoutes registers menu directory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireMenu("MenuManagement", "view"))
		r.Get("/", h.list)
		r.Get("/hierarchy", h.hierarchy)
		r.Get("/{menuID}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireMenu("MenuManagement", "add"))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireMenu("MenuManagement", "edit"))
		r.Put("/{menuID}", h.update)
		r.Put("/{menuID}/parent", h.move)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireMenu("MenuManagement", "delete"))
		r.Delete("/{menuID}", h.delete)
	})
}

type nodeResponse struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	DisplayName string     `json:"displayName"`
	Description string     `json:"description,omitempty"`
	Icon        string     `json:"icon,omitempty"`
	Route       string     `json:"route,omitempty"`
	Component   string     `json:"component,omitempty"`
	SortOrder   int        `json:"sortOrder"`
	IsActive    bool       `json:"isActive"`
	IsVisible   bool       `json:"isVisible"`
	Kind        Kind       `json:"kind"`
	ParentID    *uuid.UUID `json:"parentId,omitempty"`
}

type hierarchyResponse struct {
	nodeResponse
	Children []nodeResponse `json:"children"`
}

func toNodeResponse(n Node) nodeResponse {
	return nodeResponse{
		ID:          n.ID,
		Name:        n.Name,
		DisplayName: n.DisplayName,
		Description: n.Description,
		Icon:        n.Icon,
		Route:       n.Route,
		Component:   n.Component,
		SortOrder:   n.SortOrder,
		IsActive:    n.IsActive,
		IsVisible:   n.IsVisible,
		Kind:        n.Kind,
		ParentID:    n.ParentID,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	if parent := r.URL.Query().Get("parentId"); parent != "" {
		parentID, err := uuid.Parse(parent)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid parentId")
			return
		}
		nodes, err := h.service.ByParent(r.Context(), &parentID)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		h.respondNodes(w, nodes)
		return
	}
	nodes, err := h.service.List(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.respondNodes(w, nodes)
}

func (h *Handler) respondNodes(w http.ResponseWriter, nodes []Node) {
	out := make([]nodeResponse, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, toNodeResponse(n))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) hierarchy(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.Hierarchy(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]hierarchyResponse, 0, len(entries))
	for _, e := range entries {
		row := hierarchyResponse{nodeResponse: toNodeResponse(e.Node), Children: []nodeResponse{}}
		for _, c := range e.Children {
			row.Children = append(row.Children, toNodeResponse(c))
		}
		out = append(out, row)
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "menuID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid menu id")
		return
	}
	node, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toNodeResponse(node))
}

type createRequest struct {
	Name        string     `json:"name" validate:"required,max=120"`
	DisplayName string     `json:"displayName" validate:"max=200"`
	Description string     `json:"description" validate:"max=500"`
	Icon        string     `json:"icon" validate:"max=120"`
	Route       string     `json:"route" validate:"max=250"`
	Component   string     `json:"component" validate:"max=250"`
	SortOrder   int        `json:"sortOrder"`
	IsVisible   bool       `json:"isVisible"`
	Kind        Kind       `json:"kind" validate:"omitempty,oneof=module menu action"`
	ParentID    *uuid.UUID `json:"parentId"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	node, err := h.service.Create(r.Context(), CreateInput{
		Name:        req.Name,
		DisplayName: req.DisplayName,
		Description: req.Description,
		Icon:        req.Icon,
		Route:       req.Route,
		Component:   req.Component,
		SortOrder:   req.SortOrder,
		IsVisible:   req.IsVisible,
		Kind:        req.Kind,
		ParentID:    req.ParentID,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toNodeResponse(node))
}

type updateRequest struct {
	DisplayName string `json:"displayName" validate:"max=200"`
	Description string `json:"description" validate:"max=500"`
	Icon        string `json:"icon" validate:"max=120"`
	Route       string `json:"route" validate:"max=250"`
	Component   string `json:"component" validate:"max=250"`
	SortOrder   int    `json:"sortOrder"`
	IsActive    bool   `json:"isActive"`
	IsVisible   bool   `json:"isVisible"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "menuID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid menu id")
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
	node, err := h.service.Update(r.Context(), id, UpdateInput{
		DisplayName: req.DisplayName,
		Description: req.Description,
		Icon:        req.Icon,
		Route:       req.Route,
		Component:   req.Component,
		SortOrder:   req.SortOrder,
		IsActive:    req.IsActive,
		IsVisible:   req.IsVisible,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.invalidateViews(r.Context())
	httpx.JSON(w, http.StatusOK, toNodeResponse(node))
}

type moveRequest struct {
	ParentID *uuid.UUID `json:"parentId"`
}

func (h *Handler) move(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "menuID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid menu id")
		return
	}
	var req moveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.service.Move(r.Context(), id, req.ParentID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.invalidateViews(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "menuID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid menu id")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.invalidateViews(r.Context())
	w.WriteHeader(http.StatusNoContent)
}
