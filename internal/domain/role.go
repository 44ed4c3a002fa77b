package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Role groups permissions under a unique slug. System roles are immutable and
// undeletable regardless of caller permissions. Roles are soft-deleted.
type Role struct {
	ID          uuid.UUID      `json:"id" db:"id"`
	Name        string         `json:"name" db:"name" validate:"required,min=2,max=100"`
	Slug        string         `json:"slug" db:"slug" validate:"required,min=2,max=100"`
	Description string         `json:"description" db:"description" validate:"max=500"`
	Permissions pq.StringArray `json:"permissions" db:"permissions"`
	IsSystem    bool           `json:"is_system" db:"is_system"`
	Active      bool           `json:"active" db:"active"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" db:"updated_at"`
	DeletedAt   *time.Time     `json:"-" db:"deleted_at"`
}

// UserRole is the assignment junction, unique per (user, role) pair. It is
// the input to permission resolution.
type UserRole struct {
	UserID     uuid.UUID `json:"user_id" db:"user_id"`
	RoleID     uuid.UUID `json:"role_id" db:"role_id"`
	AssignedAt time.Time `json:"assigned_at" db:"assigned_at"`
}
