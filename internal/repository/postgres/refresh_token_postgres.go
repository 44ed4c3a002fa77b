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

type refreshTokenRepository struct {
	db *sqlx.DB
}

// NewRefreshTokenRepository creates a new PostgreSQL refresh token repository
func NewRefreshTokenRepository(db *sqlx.DB) repository.RefreshTokenRepository {
	return &refreshTokenRepository{db: db}
}

func (r *refreshTokenRepository) Store(ctx context.Context, token *domain.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (
			id, session_id, token_hash, is_used, expires_at, created_at
		) VALUES (
			:id, :session_id, :token_hash, :is_used, :expires_at, :created_at
		)`

	_, err := sqlx.NamedExecContext(ctx, executor(ctx, r.db), query, token)
	if err != nil {
		return fmt.Errorf("failed to store refresh token: %w", err)
	}

	return nil
}

// GetByID returns (nil, nil) when the token does not exist.
func (r *refreshTokenRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.RefreshToken, error) {
	query := `
		SELECT id, session_id, token_hash, is_used, expires_at, created_at
		FROM refresh_tokens
		WHERE id = $1`

	var token domain.RefreshToken
	err := sqlx.GetContext(ctx, executor(ctx, r.db), &token, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get refresh token by id: %w", err)
	}

	return &token, nil
}

// MarkUsed flips is_used only if the row was still unused. The guarded UPDATE
// is the serialization point of the rotation protocol: of two concurrent
// redemptions exactly one sees a row updated here.
func (r *refreshTokenRepository) MarkUsed(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `UPDATE refresh_tokens SET is_used = TRUE WHERE id = $1 AND is_used = FALSE`

	result, err := executor(ctx, r.db).ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark refresh token used: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

// Delete removes a refresh token. Missing rows are not errors.
func (r *refreshTokenRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM refresh_tokens WHERE id = $1`

	_, err := executor(ctx, r.db).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete refresh token: %w", err)
	}

	return nil
}

func (r *refreshTokenRepository) DeleteUnusedBySession(ctx context.Context, sessionID uuid.UUID) error {
	query := `DELETE FROM refresh_tokens WHERE session_id = $1 AND is_used = FALSE`

	_, err := executor(ctx, r.db).ExecContext(ctx, query, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete refresh tokens by session: %w", err)
	}

	return nil
}
