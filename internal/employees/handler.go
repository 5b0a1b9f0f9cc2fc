package employees

import (
	"log/slog"
	"net/http"
	"strconv"
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

// Handler exposes staff management routes.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	guard    Guard
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard Guard) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, guard: guard, validate: validator.New()}
}

// MountRoutes registers employee routes under the EmployeeManagement menu.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireMenu("EmployeeManagement", "view"))
		r.Get("/", h.list)
		r.Get("/{employeeID}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireMenu("EmployeeManagement", "add"))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireMenu("EmployeeManagement", "edit"))
		r.Put("/{employeeID}", h.update)
		r.Put("/{employeeID}/user", h.linkUser)
		r.Delete("/{employeeID}/user", h.unlinkUser)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireMenu("EmployeeManagement", "delete"))
		r.Delete("/{employeeID}", h.delete)
	})
}

type employeeResponse struct {
	ID          uuid.UUID  `json:"id"`
	StaffNo     string     `json:"staffNo"`
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	Designation string     `json:"designation,omitempty"`
	Department  string     `json:"department,omitempty"`
	UserID      *uuid.UUID `json:"userId,omitempty"`
	IsActive    bool       `json:"isActive"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func toEmployeeResponse(e Employee) employeeResponse {
	return employeeResponse{
		ID:          e.ID,
		StaffNo:     e.StaffNo,
		FirstName:   e.FirstName,
		LastName:    e.LastName,
		Designation: e.Designation,
		Department:  e.Department,
		UserID:      e.UserID,
		IsActive:    e.IsActive,
		CreatedAt:   e.CreatedAt,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	out, err := h.service.List(r.Context(), identity.SchoolID, shared.NormalizePaging(page, pageSize))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	resp := make([]employeeResponse, 0, len(out))
	for _, e := range out {
		resp = append(resp, toEmployeeResponse(e))
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "employeeID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid employee id")
		return
	}
	e, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toEmployeeResponse(e))
}

type createRequest struct {
	StaffNo     string `json:"staffNo" validate:"required,max=40"`
	FirstName   string `json:"firstName" validate:"required,max=120"`
	LastName    string `json:"lastName" validate:"required,max=120"`
	Designation string `json:"designation" validate:"max=80"`
	Department  string `json:"department" validate:"max=80"`
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
	e, err := h.service.Create(r.Context(), CreateInput{
		SchoolID:    identity.SchoolID,
		StaffNo:     req.StaffNo,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Designation: req.Designation,
		Department:  req.Department,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toEmployeeResponse(e))
}

type updateRequest struct {
	FirstName   string `json:"firstName" validate:"required,max=120"`
	LastName    string `json:"lastName" validate:"required,max=120"`
	Designation string `json:"designation" validate:"max=80"`
	Department  string `json:"department" validate:"max=80"`
	IsActive    bool   `json:"isActive"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "employeeID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid employee id")
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
	e, err := h.service.Update(r.Context(), id, req.FirstName, req.LastName, req.Designation, req.Department, req.IsActive)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toEmployeeResponse(e))
}

type linkUserRequest struct {
	UserID uuid.UUID `json:"userId" validate:"required"`
}

func (h *Handler) linkUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "employeeID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid employee id")
		return
	}
	var req linkUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.LinkUser(r.Context(), id, req.UserID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) unlinkUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "employeeID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid employee id")
		return
	}
	if err := h.service.UnlinkUser(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "employeeID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid employee id")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
