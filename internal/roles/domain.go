package roles

import (
	"time"

	"github.com/google/uuid"
)

// Role represents a named permission grouping within a school.
// Level is a hierarchy ordering hint for listings only; resolution never
// consults it.
type Role struct {
	ID           uuid.UUID
	SchoolID     uuid.UUID
	Name         string
	DisplayName  string
	Description  string
	IsSystemRole bool
	IsActive     bool
	Level        int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
