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

type roleRepository struct {
	db *sqlx.DB
}

// NewRoleRepository creates a new PostgreSQL role repository
func NewRoleRepository(db *sqlx.DB) repository.RoleRepository {
	return &roleRepository{db: db}
}

func (r *roleRepository) Create(ctx context.Context, role *domain.Role) error {
	query := `
		INSERT INTO roles (
			id, name, slug, description, permissions, is_system, active, created_at, updated_at
		) VALUES (
			:id, :name, :slug, :description, :permissions, :is_system, :active, :created_at, :updated_at
		)`

	_, err := sqlx.NamedExecContext(ctx, executor(ctx, r.db), query, role)
	if err != nil {
		return fmt.Errorf("failed to create role: %w", err)
	}

	return nil
}

// GetByID returns (nil, nil) when the role does not exist or is soft-deleted.
func (r *roleRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Role, error) {
	query := `
		SELECT id, name, slug, description, permissions, is_system, active,
		       created_at, updated_at, deleted_at
		FROM roles
		WHERE id = $1 AND deleted_at IS NULL`

	var role domain.Role
	err := sqlx.GetContext(ctx, executor(ctx, r.db), &role, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get role by id: %w", err)
	}

	return &role, nil
}

// GetBySlug returns (nil, nil) when no live role has the slug.
func (r *roleRepository) GetBySlug(ctx context.Context, slug string) (*domain.Role, error) {
	query := `
		SELECT id, name, slug, description, permissions, is_system, active,
		       created_at, updated_at, deleted_at
		FROM roles
		WHERE slug = $1 AND deleted_at IS NULL`

	var role domain.Role
	err := sqlx.GetContext(ctx, executor(ctx, r.db), &role, query, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get role by slug: %w", err)
	}

	return &role, nil
}

func (r *roleRepository) List(ctx context.Context) ([]*domain.Role, error) {
	query := `
		SELECT id, name, slug, description, permissions, is_system, active,
		       created_at, updated_at, deleted_at
		FROM roles
		WHERE deleted_at IS NULL
		ORDER BY name`

	var roles []*domain.Role
	err := sqlx.SelectContext(ctx, executor(ctx, r.db), &roles, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}

	return roles, nil
}

func (r *roleRepository) Update(ctx context.Context, role *domain.Role) error {
	query := `
		UPDATE roles
		SET name = :name,
			description = :description,
			permissions = :permissions,
			active = :active,
			updated_at = :updated_at
		WHERE id = :id AND deleted_at IS NULL`

	result, err := sqlx.NamedExecContext(ctx, executor(ctx, r.db), query, role)
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *roleRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE roles SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`

	result, err := executor(ctx, r.db).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *roleRepository) AssignToUser(ctx context.Context, userID, roleID uuid.UUID) error {
	query := `
		INSERT INTO user_roles (user_id, role_id, assigned_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id, role_id) DO NOTHING`

	_, err := executor(ctx, r.db).ExecContext(ctx, query, userID, roleID)
	if err != nil {
		return fmt.Errorf("failed to assign role to user: %w", err)
	}

	return nil
}

func (r *roleRepository) RemoveFromUser(ctx context.Context, userID, roleID uuid.UUID) error {
	query := `DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`

	result, err := executor(ctx, r.db).ExecContext(ctx, query, userID, roleID)
	if err != nil {
		return fmt.Errorf("failed to remove role from user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *roleRepository) GetUserRoles(ctx context.Context, userID uuid.UUID) ([]*domain.Role, error) {
	query := `
		SELECT r.id, r.name, r.slug, r.description, r.permissions, r.is_system,
		       r.active, r.created_at, r.updated_at, r.deleted_at
		FROM roles r
		INNER JOIN user_roles ur ON r.id = ur.role_id
		WHERE ur.user_id = $1 AND r.active = TRUE AND r.deleted_at IS NULL
		ORDER BY r.name`

	var roles []*domain.Role
	err := sqlx.SelectContext(ctx, executor(ctx, r.db), &roles, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user roles: %w", err)
	}

	return roles, nil
}

func (r *roleRepository) GetUsersWithRole(ctx context.Context, roleID uuid.UUID) ([]uuid.UUID, error) {
	query := `SELECT user_id FROM user_roles WHERE role_id = $1`

	var userIDs []uuid.UUID
	err := sqlx.SelectContext(ctx, executor(ctx, r.db), &userIDs, query, roleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get users with role: %w", err)
	}

	return userIDs, nil
}
