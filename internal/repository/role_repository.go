package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/ifanfairuz/nduoseh/internal/domain"
)

type RoleRepository interface {
	Create(ctx context.Context, role *domain.Role) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Role, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Role, error)
	List(ctx context.Context) ([]*domain.Role, error)
	Update(ctx context.Context, role *domain.Role) error
	// SoftDelete marks the role deleted; lookups exclude deleted roles.
	SoftDelete(ctx context.Context, id uuid.UUID) error

	// AssignToUser is idempotent on a duplicate (user, role) pair.
	AssignToUser(ctx context.Context, userID, roleID uuid.UUID) error
	RemoveFromUser(ctx context.Context, userID, roleID uuid.UUID) error
	// GetUserRoles returns the active, non-deleted roles assigned to a user.
	GetUserRoles(ctx context.Context, userID uuid.UUID) ([]*domain.Role, error)
	// GetUsersWithRole lists user ids holding the role, for batch cache
	// invalidation at mutation time.
	GetUsersWithRole(ctx context.Context, roleID uuid.UUID) ([]uuid.UUID, error)
}
