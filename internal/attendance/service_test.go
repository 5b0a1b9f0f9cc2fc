package attendance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-sis/meridian-sis/internal/shared"
)

type stubRepo struct {
	punches []Punch
}

func (r *stubRepo) Insert(ctx context.Context, p Punch) (Punch, error) {
	r.punches = append(r.punches, p)
	return p, nil
}

func (r *stubRepo) ListByUserDay(ctx context.Context, userID uuid.UUID, dayStart time.Time) ([]Punch, error) {
	dayEnd := dayStart.Add(24 * time.Hour)
	var out []Punch
	for _, p := range r.punches {
		if p.UserID == userID && !p.PunchedAt.Before(dayStart) && p.PunchedAt.Before(dayEnd) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *stubRepo) ListByDevice(ctx context.Context, schoolID uuid.UUID, deviceID string, paging shared.Paging) ([]Punch, error) {
	var out []Punch
	for _, p := range r.punches {
		if p.SchoolID == schoolID && p.DeviceID == deviceID {
			out = append(out, p)
		}
	}
	return out, nil
}

type stubUsers struct {
	known map[uuid.UUID]bool
}

func (s *stubUsers) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.known[id], nil
}

func newTestService(repo *stubRepo, userIDs ...uuid.UUID) *Service {
	known := make(map[uuid.UUID]bool, len(userIDs))
	for _, id := range userIDs {
		known[id] = true
	}
	svc := NewService(repo, &stubUsers{known: known})
	svc.now = func() time.Time { return time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC) }
	return svc
}

func TestCaptureValidation(t *testing.T) {
	userID := uuid.New()
	svc := newTestService(&stubRepo{}, userID)
	ctx := context.Background()
	base := CaptureInput{
		SchoolID: uuid.New(), UserID: userID,
		DeviceID: "gate-1", TemplateHash: "a1b2c3", Direction: DirectionIn,
	}

	missingDevice := base
	missingDevice.DeviceID = " "
	if _, err := svc.Capture(ctx, missingDevice); !errors.Is(err, shared.ErrValidation) {
		t.Fatalf("expected ErrValidation for blank device, got %v", err)
	}

	missingHash := base
	missingHash.TemplateHash = ""
	if _, err := svc.Capture(ctx, missingHash); !errors.Is(err, shared.ErrValidation) {
		t.Fatalf("expected ErrValidation for blank template hash, got %v", err)
	}

	badDirection := base
	badDirection.Direction = "sideways"
	if _, err := svc.Capture(ctx, badDirection); !errors.Is(err, shared.ErrValidation) {
		t.Fatalf("expected ErrValidation for bad direction, got %v", err)
	}

	unknownUser := base
	unknownUser.UserID = uuid.New()
	if _, err := svc.Capture(ctx, unknownUser); !errors.Is(err, shared.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown user, got %v", err)
	}

	p, err := svc.Capture(ctx, base)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if p.PunchedAt.IsZero() {
		t.Fatal("zero punch time must be replaced with capture time")
	}
}

func TestDaySummary(t *testing.T) {
	userID := uuid.New()
	repo := &stubRepo{}
	svc := newTestService(repo, userID)
	ctx := context.Background()

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	punch := func(hour int, dir Direction) {
		repo.punches = append(repo.punches, Punch{
			ID: uuid.New(), UserID: userID, DeviceID: "gate-1",
			Direction: dir, PunchedAt: day.Add(time.Duration(hour) * time.Hour),
		})
	}
	punch(8, DirectionIn)
	punch(12, DirectionOut)
	punch(13, DirectionIn)
	punch(17, DirectionOut)

	summary, err := svc.DaySummary(ctx, userID, day.Add(10*time.Hour))
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if !summary.Present || summary.Punches != 4 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.FirstIn == nil || summary.FirstIn.Hour() != 8 {
		t.Fatalf("first in wrong: %v", summary.FirstIn)
	}
	if summary.LastOut == nil || summary.LastOut.Hour() != 17 {
		t.Fatalf("last out wrong: %v", summary.LastOut)
	}
}

func TestDaySummaryEmptyDay(t *testing.T) {
	userID := uuid.New()
	svc := newTestService(&stubRepo{}, userID)

	summary, err := svc.DaySummary(context.Background(), userID, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Present || summary.Punches != 0 || summary.FirstIn != nil || summary.LastOut != nil {
		t.Fatalf("expected absent day, got %+v", summary)
	}
}
