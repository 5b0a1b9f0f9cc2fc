package employees

import (
	"time"

	"github.com/google/uuid"
)

// Employee is a staff record. UserID links the record to a login account
// when one exists.
type Employee struct {
	ID          uuid.UUID
	SchoolID    uuid.UUID
	StaffNo     string
	FirstName   string
	LastName    string
	Designation string
	Department  string
	UserID      *uuid.UUID
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
