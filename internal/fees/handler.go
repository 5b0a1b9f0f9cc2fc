package fees

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

// Handler exposes fee management routes.
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

// MountRoutes registers fee routes under the FeeManagement menu.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireMenu("FeeManagement", "view"))
		r.Get("/structures", h.listStructures)
		r.Get("/structures/{structureID}", h.getStructure)
		r.Get("/students/{studentID}/payments", h.studentPayments)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireMenu("FeeManagement", "add"))
		r.Post("/structures", h.createStructure)
		r.Post("/payments", h.recordPayment)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireMenu("FeeManagement", "edit"))
		r.Put("/structures/{structureID}", h.updateStructure)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireMenu("FeeManagement", "delete"))
		r.Delete("/structures/{structureID}", h.deleteStructure)
	})
}

type structureResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	AmountMinor int64     `json:"amountMinor"`
	Currency    string    `json:"currency"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toStructureResponse(s Structure) structureResponse {
	return structureResponse{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		AmountMinor: s.AmountMinor,
		Currency:    s.Currency,
		IsActive:    s.IsActive,
		CreatedAt:   s.CreatedAt,
	}
}

type paymentResponse struct {
	ID          uuid.UUID `json:"id"`
	StructureID uuid.UUID `json:"structureId"`
	StudentID   uuid.UUID `json:"studentId"`
	AmountMinor int64     `json:"amountMinor"`
	Currency    string    `json:"currency"`
	Reference   string    `json:"reference,omitempty"`
	PaidAt      time.Time `json:"paidAt"`
}

func toPaymentResponse(p Payment) paymentResponse {
	return paymentResponse{
		ID:          p.ID,
		StructureID: p.StructureID,
		StudentID:   p.StudentID,
		AmountMinor: p.AmountMinor,
		Currency:    p.Currency,
		Reference:   p.Reference,
		PaidAt:      p.PaidAt,
	}
}

func (h *Handler) listStructures(w http.ResponseWriter, r *http.Request) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	out, err := h.service.ListStructures(r.Context(), identity.SchoolID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	resp := make([]structureResponse, 0, len(out))
	for _, s := range out {
		resp = append(resp, toStructureResponse(s))
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) getStructure(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "structureID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid structure id")
		return
	}
	s, err := h.service.GetStructure(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toStructureResponse(s))
}

type structureRequest struct {
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description" validate:"max=500"`
	AmountMinor int64  `json:"amountMinor" validate:"required,gt=0"`
	Currency    string `json:"currency" validate:"required,len=3"`
	IsActive    bool   `json:"isActive"`
}

func (h *Handler) createStructure(w http.ResponseWriter, r *http.Request) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	var req structureRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	s, err := h.service.CreateStructure(r.Context(), StructureInput{
		SchoolID:    identity.SchoolID,
		Name:        req.Name,
		Description: req.Description,
		AmountMinor: req.AmountMinor,
		Currency:    req.Currency,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toStructureResponse(s))
}

func (h *Handler) updateStructure(w http.ResponseWriter, r *http.Request) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "structureID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid structure id")
		return
	}
	var req structureRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	s, err := h.service.UpdateStructure(r.Context(), id, StructureInput{
		SchoolID:    identity.SchoolID,
		Name:        req.Name,
		Description: req.Description,
		AmountMinor: req.AmountMinor,
		Currency:    req.Currency,
	}, req.IsActive)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toStructureResponse(s))
}

func (h *Handler) deleteStructure(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "structureID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid structure id")
		return
	}
	if err := h.service.DeleteStructure(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type paymentRequest struct {
	StructureID uuid.UUID  `json:"structureId" validate:"required"`
	StudentID   uuid.UUID  `json:"studentId" validate:"required"`
	AmountMinor int64      `json:"amountMinor" validate:"required,gt=0"`
	Reference   string     `json:"reference" validate:"max=80"`
	PaidAt      *time.Time `json:"paidAt"`
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	var req paymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	in := PaymentInput{
		SchoolID:    identity.SchoolID,
		StructureID: req.StructureID,
		StudentID:   req.StudentID,
		AmountMinor: req.AmountMinor,
		Reference:   req.Reference,
	}
	if req.PaidAt != nil {
		in.PaidAt = *req.PaidAt
	}
	p, err := h.service.RecordPayment(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toPaymentResponse(p))
}

func (h *Handler) studentPayments(w http.ResponseWriter, r *http.Request) {
	studentID, err := uuid.Parse(chi.URLParam(r, "studentID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid student id")
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	out, err := h.service.StudentPayments(r.Context(), studentID, shared.NormalizePaging(page, pageSize))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	resp := make([]paymentResponse, 0, len(out))
	for _, p := range out {
		resp = append(resp, toPaymentResponse(p))
	}
	httpx.JSON(w, http.StatusOK, resp)
}
