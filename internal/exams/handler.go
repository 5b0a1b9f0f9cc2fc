package exams

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

// Handler exposes exam management routes.
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

// MountRoutes registers exam routes under the ExamManagement menu.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireMenu("ExamManagement", "view"))
		r.Get("/schedules", h.listSchedules)
		r.Get("/schedules/{scheduleID}", h.getSchedule)
		r.Get("/schedules/{scheduleID}/results", h.scheduleResults)
		r.Get("/students/{studentID}/results", h.studentResults)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireMenu("ExamManagement", "add"))
		r.Post("/schedules", h.createSchedule)
		r.Put("/schedules/{scheduleID}/results", h.recordResult)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireMenu("ExamManagement", "delete"))
		r.Delete("/schedules/{scheduleID}", h.deleteSchedule)
	})
}

type scheduleResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Subject   string    `json:"subject"`
	ClassName string    `json:"className,omitempty"`
	MaxMarks  int       `json:"maxMarks"`
	HeldAt    time.Time `json:"heldAt"`
}

func toScheduleResponse(s Schedule) scheduleResponse {
	return scheduleResponse{
		ID:        s.ID,
		Name:      s.Name,
		Subject:   s.Subject,
		ClassName: s.ClassName,
		MaxMarks:  s.MaxMarks,
		HeldAt:    s.HeldAt,
	}
}

type resultResponse struct {
	ID         uuid.UUID `json:"id"`
	ScheduleID uuid.UUID `json:"scheduleId"`
	StudentID  uuid.UUID `json:"studentId"`
	Marks      int       `json:"marks"`
	Grade      string    `json:"grade,omitempty"`
	Remarks    string    `json:"remarks,omitempty"`
}

func toResultResponse(res Result) resultResponse {
	return resultResponse{
		ID:         res.ID,
		ScheduleID: res.ScheduleID,
		StudentID:  res.StudentID,
		Marks:      res.Marks,
		Grade:      res.Grade,
		Remarks:    res.Remarks,
	}
}

func (h *Handler) listSchedules(w http.ResponseWriter, r *http.Request) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	out, err := h.service.ListSchedules(r.Context(), identity.SchoolID, shared.NormalizePaging(page, pageSize))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	resp := make([]scheduleResponse, 0, len(out))
	for _, s := range out {
		resp = append(resp, toScheduleResponse(s))
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) getSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "scheduleID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid schedule id")
		return
	}
	s, err := h.service.GetSchedule(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toScheduleResponse(s))
}

type createScheduleRequest struct {
	Name      string    `json:"name" validate:"required,max=120"`
	Subject   string    `json:"subject" validate:"required,max=80"`
	ClassName string    `json:"className" validate:"max=60"`
	MaxMarks  int       `json:"maxMarks" validate:"required,gt=0"`
	HeldAt    time.Time `json:"heldAt" validate:"required"`
}

func (h *Handler) createSchedule(w http.ResponseWriter, r *http.Request) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	var req createScheduleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	s, err := h.service.CreateSchedule(r.Context(), Schedule{
		SchoolID:  identity.SchoolID,
		Name:      req.Name,
		Subject:   req.Subject,
		ClassName: req.ClassName,
		MaxMarks:  req.MaxMarks,
		HeldAt:    req.HeldAt,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toScheduleResponse(s))
}

func (h *Handler) deleteSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "scheduleID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid schedule id")
		return
	}
	if err := h.service.DeleteSchedule(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type recordResultRequest struct {
	StudentID uuid.UUID `json:"studentId" validate:"required"`
	Marks     int       `json:"marks" validate:"gte=0"`
	Grade     string    `json:"grade" validate:"max=5"`
	Remarks   string    `json:"remarks" validate:"max=300"`
}

func (h *Handler) recordResult(w http.ResponseWriter, r *http.Request) {
	scheduleID, err := uuid.Parse(chi.URLParam(r, "scheduleID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid schedule id")
		return
	}
	var req recordResultRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	res, err := h.service.RecordResult(r.Context(), scheduleID, req.StudentID, req.Marks, req.Grade, req.Remarks)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResultResponse(res))
}

func (h *Handler) scheduleResults(w http.ResponseWriter, r *http.Request) {
	scheduleID, err := uuid.Parse(chi.URLParam(r, "scheduleID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid schedule id")
		return
	}
	out, err := h.service.ScheduleResults(r.Context(), scheduleID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	resp := make([]resultResponse, 0, len(out))
	for _, res := range out {
		resp = append(resp, toResultResponse(res))
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) studentResults(w http.ResponseWriter, r *http.Request) {
	studentID, err := uuid.Parse(chi.URLParam(r, "studentID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid student id")
		return
	}
	out, err := h.service.StudentResults(r.Context(), studentID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	resp := make([]resultResponse, 0, len(out))
	for _, res := range out {
		resp = append(resp, toResultResponse(res))
	}
	httpx.JSON(w, http.StatusOK, resp)
}
