package domain

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims are the signed access-token claims. The signature makes them
// verifiable without a storage lookup; the cached witness adds revocability
// on top.
type Claims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
}

// RefreshToken is the durable record of an issued refresh token. The raw
// token string is never stored, only its hash. IsUsed is a one-way flag:
// it transitions false to true exactly once.
type RefreshToken struct {
	ID        uuid.UUID `json:"id" db:"id"`
	SessionID uuid.UUID `json:"session_id" db:"session_id"`
	TokenHash string    `json:"-" db:"token_hash"`
	IsUsed    bool      `json:"is_used" db:"is_used"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// AccessTokenWitness is the short-lived cache entry that makes a stateless
// access token revocable before its natural expiry. One live entry exists per
// session; it is overwritten on refresh. It is advisory, not source of truth.
type AccessTokenWitness struct {
	UserID    uuid.UUID `json:"user_id"`
	SessionID uuid.UUID `json:"session_id"`
	TokenHash string    `json:"token_hash"`
	ExpiresAt time.Time `json:"expires_at"`
}

// VerifiedToken is the uniform result of access-token verification.
type VerifiedToken struct {
	UserID    uuid.UUID `json:"user_id"`
	SessionID uuid.UUID `json:"session_id"`
}
