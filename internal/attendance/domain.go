package attendance

import (
	"time"

	"github.com/google/uuid"
)

// Direction tells whether a punch is an entry or an exit.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// Valid reports whether the direction is a known value.
func (d Direction) Valid() bool {
	return d == DirectionIn || d == DirectionOut
}

// Punch is a single biometric capture event. TemplateHash is the opaque
// fingerprint template digest reported by the device, never the raw template.
type Punch struct {
	ID           uuid.UUID
	SchoolID     uuid.UUID
	UserID       uuid.UUID
	DeviceID     string
	TemplateHash string
	Direction    Direction
	PunchedAt    time.Time
	CreatedAt    time.Time
}

// DaySummary condenses one user's punches for a calendar day.
type DaySummary struct {
	UserID  uuid.UUID
	Day     time.Time
	FirstIn *time.Time
	LastOut *time.Time
	Punches int
	Present bool
}
