package service

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ifanfairuz/nduoseh/internal/domain"
	"github.com/ifanfairuz/nduoseh/internal/repository"
)

type CreateRoleRequest struct {
	Name        string   `json:"name" validate:"required,min=2,max=100"`
	Slug        string   `json:"slug" validate:"required,min=2,max=100,slug"`
	Description string   `json:"description" validate:"max=500"`
	Permissions []string `json:"permissions" validate:"required"`
}

type UpdateRoleRequest struct {
	Name        *string  `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Description *string  `json:"description,omitempty" validate:"omitempty,max=500"`
	Permissions []string `json:"permissions,omitempty"`
	Active      *bool    `json:"active,omitempty"`
}

// RoleService administers roles and assignments. Every mutation that changes
// a role's permission set, active flag or assignment invalidates the
// permission cache for the affected users.
type RoleService struct {
	roles       repository.RoleRepository
	cache       repository.PermissionCache
	permissions *PermissionService
}

func NewRoleService(roles repository.RoleRepository, cache repository.PermissionCache, permissions *PermissionService) *RoleService {
	return &RoleService{
		roles:       roles,
		cache:       cache,
		permissions: permissions,
	}
}

func (s *RoleService) Create(ctx context.Context, req CreateRoleRequest) (*domain.Role, error) {
	if err := s.permissions.ValidatePermissions(req.Permissions); err != nil {
		return nil, err
	}

	slug := strings.ToLower(req.Slug)
	existing, err := s.roles.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrRoleSlugExists
	}

	now := time.Now()
	role := &domain.Role{
		ID:          uuid.New(),
		Name:        req.Name,
		Slug:        slug,
		Description: req.Description,
		Permissions: req.Permissions,
		IsSystem:    false,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.roles.Create(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

func (s *RoleService) Get(ctx context.Context, id uuid.UUID) (*domain.Role, error) {
	role, err := s.roles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, ErrRoleNotFound
	}
	return role, nil
}

func (s *RoleService) List(ctx context.Context) ([]*domain.Role, error) {
	return s.roles.List(ctx)
}

// Update mutates a role. System roles are rejected regardless of caller
// permissions. Changing the permission set or the active flag invalidates the
// cached permissions of every user holding the role.
func (s *RoleService) Update(ctx context.Context, id uuid.UUID, req UpdateRoleRequest) (*domain.Role, error) {
	role, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if role.IsSystem {
		return nil, &SystemRoleError{Slug: role.Slug}
	}

	invalidate := false
	if req.Name != nil {
		role.Name = *req.Name
	}
	if req.Description != nil {
		role.Description = *req.Description
	}
	if req.Permissions != nil {
		if err := s.permissions.ValidatePermissions(req.Permissions); err != nil {
			return nil, err
		}
		role.Permissions = req.Permissions
		invalidate = true
	}
	if req.Active != nil && role.Active != *req.Active {
		role.Active = *req.Active
		invalidate = true
	}
	role.UpdatedAt = time.Now()

	if err := s.roles.Update(ctx, role); err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrRoleNotFound
		}
		return nil, err
	}

	if invalidate {
		s.invalidateHolders(ctx, role.ID)
	}
	return role, nil
}

// Delete soft-deletes a role and invalidates its holders. System roles are
// rejected.
func (s *RoleService) Delete(ctx context.Context, id uuid.UUID) error {
	role, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if role.IsSystem {
		return &SystemRoleError{Slug: role.Slug}
	}

	// collect holders before the delete hides the assignments
	holders, err := s.roles.GetUsersWithRole(ctx, id)
	if err != nil {
		return err
	}

	if err := s.roles.SoftDelete(ctx, id); err != nil {
		if err == repository.ErrNotFound {
			return ErrRoleNotFound
		}
		return err
	}

	if len(holders) > 0 {
		if err := s.cache.Invalidate(ctx, holders...); err != nil {
			log.Printf("[ROLE] failed to invalidate permission cache for role %s: %v", id, err)
		}
	}
	return nil
}

// Assign grants a role to a user and invalidates that user's cached
// permissions. Assigning an already-held role is a no-op.
func (s *RoleService) Assign(ctx context.Context, userID, roleID uuid.UUID) error {
	role, err := s.Get(ctx, roleID)
	if err != nil {
		return err
	}

	if err := s.roles.AssignToUser(ctx, userID, role.ID); err != nil {
		return err
	}

	if err := s.cache.Invalidate(ctx, userID); err != nil {
		log.Printf("[ROLE] failed to invalidate permission cache for user %s: %v", userID, err)
	}
	return nil
}

// Remove revokes a role from a user and invalidates that user's cached
// permissions.
func (s *RoleService) Remove(ctx context.Context, userID, roleID uuid.UUID) error {
	if err := s.roles.RemoveFromUser(ctx, userID, roleID); err != nil {
		if err == repository.ErrNotFound {
			return ErrRoleNotFound
		}
		return err
	}

	if err := s.cache.Invalidate(ctx, userID); err != nil {
		log.Printf("[ROLE] failed to invalidate permission cache for user %s: %v", userID, err)
	}
	return nil
}

// UserRoles lists the active roles assigned to a user.
func (s *RoleService) UserRoles(ctx context.Context, userID uuid.UUID) ([]*domain.Role, error) {
	return s.roles.GetUserRoles(ctx, userID)
}

func (s *RoleService) invalidateHolders(ctx context.Context, roleID uuid.UUID) {
	holders, err := s.roles.GetUsersWithRole(ctx, roleID)
	if err != nil {
		log.Printf("[ROLE] failed to list holders of role %s: %v", roleID, err)
		return
	}
	if len(holders) == 0 {
		return
	}
	if err := s.cache.Invalidate(ctx, holders...); err != nil {
		log.Printf("[ROLE] failed to invalidate permission cache for role %s: %v", roleID, err)
	}
}
