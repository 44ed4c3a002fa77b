package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/ifanfairuz/nduoseh/internal/domain"
)

type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error)
	// Delete is idempotent: deleting a missing session is not an error.
	Delete(ctx context.Context, id uuid.UUID) error
}
