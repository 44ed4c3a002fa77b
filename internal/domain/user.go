package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is an identity. Users are soft-deleted; lookups exclude deleted rows
// and a verified token referencing a deleted user is invalid.
type User struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	Email         string     `json:"email" db:"email"`
	Name          string     `json:"name" db:"name"`
	Image         *string    `json:"image,omitempty" db:"image"`
	EmailVerified bool       `json:"email_verified" db:"email_verified"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt     *time.Time `json:"-" db:"deleted_at"`
}

// AccountTypePassword marks a password credential account.
const AccountTypePassword = "password"

// Account is one authentication method linked to a user, independent of any
// session.
type Account struct {
	ID           uuid.UUID `json:"id" db:"id"`
	UserID       uuid.UUID `json:"user_id" db:"user_id"`
	Type         string    `json:"type" db:"type"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
