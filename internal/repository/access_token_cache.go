package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/ifanfairuz/nduoseh/internal/domain"
)

// AccessTokenCache maps a session id to its access-token witness with a TTL
// equal to the token lifetime. A missing entry means the token is revoked or
// expired, regardless of its signature.
type AccessTokenCache interface {
	Store(ctx context.Context, witness *domain.AccessTokenWitness) error
	GetBySessionID(ctx context.Context, sessionID uuid.UUID) (*domain.AccessTokenWitness, error)
	DeleteBySessionID(ctx context.Context, sessionID uuid.UUID) error
}
