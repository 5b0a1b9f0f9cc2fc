package users

import (
	"time"

	"github.com/google/uuid"
)

// Category partitions accounts by what they may be linked to.
type Category string

const (
	CategoryStudent  Category = "student"
	CategoryEmployee Category = "employee"
	CategoryAdmin    Category = "admin"
)

// User is an account within a school.
type User struct {
	ID           uuid.UUID
	SchoolID     uuid.UUID
	Email        string
	FullName     string
	Category     Category
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
