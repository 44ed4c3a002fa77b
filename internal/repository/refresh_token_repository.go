package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/ifanfairuz/nduoseh/internal/domain"
)

type RefreshTokenRepository interface {
	Store(ctx context.Context, token *domain.RefreshToken) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.RefreshToken, error)
	// MarkUsed flips is_used from false to true. It reports false when the
	// row was already used or missing, which a concurrent racer observes as
	// redemption-in-progress. The write is atomic at the store.
	MarkUsed(ctx context.Context, id uuid.UUID) (bool, error)
	// Delete is idempotent.
	Delete(ctx context.Context, id uuid.UUID) error
	// DeleteUnusedBySession removes every unused refresh token of a session.
	DeleteUnusedBySession(ctx context.Context, sessionID uuid.UUID) error
}
