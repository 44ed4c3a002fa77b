package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ifanfairuz/nduoseh/internal/domain"
	"github.com/ifanfairuz/nduoseh/internal/repository"
)

type accountRepository struct {
	db *sqlx.DB
}

// NewAccountRepository creates a new PostgreSQL account repository
func NewAccountRepository(db *sqlx.DB) repository.AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (
			id, user_id, type, password_hash, created_at
		) VALUES (
			:id, :user_id, :type, :password_hash, :created_at
		)`

	_, err := sqlx.NamedExecContext(ctx, executor(ctx, r.db), query, account)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// GetPasswordByUserID returns (nil, nil) when the user has no password
// account.
func (r *accountRepository) GetPasswordByUserID(ctx context.Context, userID uuid.UUID) (*domain.Account, error) {
	query := `
		SELECT id, user_id, type, password_hash, created_at
		FROM accounts
		WHERE user_id = $1 AND type = $2`

	var account domain.Account
	err := sqlx.GetContext(ctx, executor(ctx, r.db), &account, query, userID, domain.AccountTypePassword)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get password account: %w", err)
	}

	return &account, nil
}
