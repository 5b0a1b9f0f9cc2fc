package exams

import (
	"time"

	"github.com/google/uuid"
)

// Schedule is one planned examination sitting for a class and subject.
type Schedule struct {
	ID        uuid.UUID
	SchoolID  uuid.UUID
	Name      string
	Subject   string
	ClassName string
	MaxMarks  int
	HeldAt    time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Result is one student's marks for a schedule.
type Result struct {
	ID         uuid.UUID
	ScheduleID uuid.UUID
	StudentID  uuid.UUID
	Marks      int
	Grade      string
	Remarks    string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
