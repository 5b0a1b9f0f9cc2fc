package attendance

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

// Handler exposes attendance routes.
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

// MountRoutes registers attendance routes under the Attendance menu.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireMenu("Attendance", "add"))
		r.Post("/punches", h.capture)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireMenu("Attendance", "view"))
		r.Get("/users/{userID}/day", h.daySummary)
		r.Get("/devices/{deviceID}/punches", h.devicePunches)
	})
}

type captureRequest struct {
	UserID       uuid.UUID  `json:"userId" validate:"required"`
	DeviceID     string     `json:"deviceId" validate:"required,max=60"`
	TemplateHash string     `json:"templateHash" validate:"required,max=128"`
	Direction    string     `json:"direction" validate:"required,oneof=in out"`
	PunchedAt    *time.Time `json:"punchedAt"`
}

type punchResponse struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	DeviceID  string    `json:"deviceId"`
	Direction Direction `json:"direction"`
	PunchedAt time.Time `json:"punchedAt"`
}

func toPunchResponse(p Punch) punchResponse {
	return punchResponse{
		ID:        p.ID,
		UserID:    p.UserID,
		DeviceID:  p.DeviceID,
		Direction: p.Direction,
		PunchedAt: p.PunchedAt,
	}
}

func (h *Handler) capture(w http.ResponseWriter, r *http.Request) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	var req captureRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	in := CaptureInput{
		SchoolID:     identity.SchoolID,
		UserID:       req.UserID,
		DeviceID:     req.DeviceID,
		TemplateHash: req.TemplateHash,
		Direction:    Direction(req.Direction),
	}
	if req.PunchedAt != nil {
		in.PunchedAt = *req.PunchedAt
	}
	p, err := h.service.Capture(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toPunchResponse(p))
}

type daySummaryResponse struct {
	UserID  uuid.UUID  `json:"userId"`
	Day     time.Time  `json:"day"`
	FirstIn *time.Time `json:"firstIn,omitempty"`
	LastOut *time.Time `json:"lastOut,omitempty"`
	Punches int        `json:"punches"`
	Present bool       `json:"present"`
}

func (h *Handler) daySummary(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return
	}
	at := time.Now().UTC()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be YYYY-MM-DD")
			return
		}
		at = parsed
	}
	summary, err := h.service.DaySummary(r.Context(), userID, at)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, daySummaryResponse{
		UserID:  summary.UserID,
		Day:     summary.Day,
		FirstIn: summary.FirstIn,
		LastOut: summary.LastOut,
		Punches: summary.Punches,
		Present: summary.Present,
	})
}

func (h *Handler) devicePunches(w http.ResponseWriter, r *http.Request) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	deviceID := chi.URLParam(r, "deviceID")
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	out, err := h.service.DevicePunches(r.Context(), identity.SchoolID, deviceID, shared.NormalizePaging(page, pageSize))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	resp := make([]punchResponse, 0, len(out))
	for _, p := range out {
		resp = append(resp, toPunchResponse(p))
	}
	httpx.JSON(w, http.StatusOK, resp)
}
