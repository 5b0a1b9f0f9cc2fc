package students

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

// Handler exposes student management routes.
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

// MountRoutes registers student routes under the StudentManagement menu.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireMenu("StudentManagement", "view"))
		r.Get("/", h.list)
		r.Get("/{studentID}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireMenu("StudentManagement", "add"))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireMenu("StudentManagement", "edit"))
		r.Put("/{studentID}", h.update)
		r.Put("/{studentID}/user", h.linkUser)
		r.Delete("/{studentID}/user", h.unlinkUser)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireMenu("StudentManagement", "delete"))
		r.Delete("/{studentID}", h.delete)
	})
}

type studentResponse struct {
	ID          uuid.UUID  `json:"id"`
	AdmissionNo string     `json:"admissionNo"`
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	ClassName   string     `json:"className,omitempty"`
	GuardianTel string     `json:"guardianTel,omitempty"`
	UserID      *uuid.UUID `json:"userId,omitempty"`
	IsActive    bool       `json:"isActive"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func toStudentResponse(s Student) studentResponse {
	return studentResponse{
		ID:          s.ID,
		AdmissionNo: s.AdmissionNo,
		FirstName:   s.FirstName,
		LastName:    s.LastName,
		ClassName:   s.ClassName,
		GuardianTel: s.GuardianTel,
		UserID:      s.UserID,
		IsActive:    s.IsActive,
		CreatedAt:   s.CreatedAt,
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
	resp := make([]studentResponse, 0, len(out))
	for _, s := range out {
		resp = append(resp, toStudentResponse(s))
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "studentID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid student id")
		return
	}
	s, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toStudentResponse(s))
}

type createRequest struct {
	AdmissionNo string `json:"admissionNo" validate:"required,max=40"`
	FirstName   string `json:"firstName" validate:"required,max=120"`
	LastName    string `json:"lastName" validate:"required,max=120"`
	ClassName   string `json:"className" validate:"max=60"`
	GuardianTel string `json:"guardianTel" validate:"max=30"`
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
	s, err := h.service.Create(r.Context(), CreateInput{
		SchoolID:    identity.SchoolID,
		AdmissionNo: req.AdmissionNo,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		ClassName:   req.ClassName,
		GuardianTel: req.GuardianTel,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toStudentResponse(s))
}

type updateRequest struct {
	FirstName   string `json:"firstName" validate:"required,max=120"`
	LastName    string `json:"lastName" validate:"required,max=120"`
	ClassName   string `json:"className" validate:"max=60"`
	GuardianTel string `json:"guardianTel" validate:"max=30"`
	IsActive    bool   `json:"isActive"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "studentID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid student id")
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
	s, err := h.service.Update(r.Context(), id, req.FirstName, req.LastName, req.ClassName, req.GuardianTel, req.IsActive)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toStudentResponse(s))
}

type linkUserRequest struct {
	UserID uuid.UUID `json:"userId" validate:"required"`
}

func (h *Handler) linkUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "studentID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid student id")
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
	id, err := uuid.Parse(chi.URLParam(r, "studentID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid student id")
		return
	}
	if err := h.service.UnlinkUser(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "studentID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid student id")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
