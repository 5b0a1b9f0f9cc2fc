package fees

import (
	"time"

	"github.com/google/uuid"
)

// Structure is a named fee schedule, e.g. "Term 1 Tuition". Amount is stored
// in minor units to avoid float arithmetic.
type Structure struct {
	ID          uuid.UUID
	SchoolID    uuid.UUID
	Name        string
	Description string
	AmountMinor int64
	Currency    string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Payment records money received against a structure for one student.
type Payment struct {
	ID          uuid.UUID
	SchoolID    uuid.UUID
	StructureID uuid.UUID
	StudentID   uuid.UUID
	AmountMinor int64
	Currency    string
	Reference   string
	PaidAt      time.Time
	CreatedAt   time.Time
}
