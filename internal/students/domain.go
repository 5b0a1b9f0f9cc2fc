package students

import (
	"time"

	"github.com/google/uuid"
)

// Student is an enrolled pupil record. UserID links the record to a login
// account when one exists.
type Student struct {
	ID          uuid.UUID
	SchoolID    uuid.UUID
	AdmissionNo string
	FirstName   string
	LastName    string
	ClassName   string
	GuardianTel string
	UserID      *uuid.UUID
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
