package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/ifanfairuz/nduoseh/internal/domain"
)

type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	// GetPasswordByUserID returns the user's password account, if any.
	GetPasswordByUserID(ctx context.Context, userID uuid.UUID) (*domain.Account, error)
}
