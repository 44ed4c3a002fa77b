package handler

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ifanfairuz/nduoseh/internal/service"
	"github.com/ifanfairuz/nduoseh/pkg/validator"
)

type RoleHandler struct {
	roleService *service.RoleService
	permissions *service.PermissionService
	validator   *validator.Validator
}

func NewRoleHandler(roleService *service.RoleService, permissions *service.PermissionService, validator *validator.Validator) *RoleHandler {
	return &RoleHandler{
		roleService: roleService,
		permissions: permissions,
		validator:   validator,
	}
}

// CreateRole creates a new role
// POST /api/v1/roles
func (h *RoleHandler) CreateRole(c *fiber.Ctx) error {
	var req service.CreateRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := h.validator.Validate(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	role, err := h.roleService.Create(c.Context(), req)
	if err != nil {
		return h.roleError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(role)
}

// GetRoles lists all roles
// GET /api/v1/roles
func (h *RoleHandler) GetRoles(c *fiber.Ctx) error {
	roles, err := h.roleService.List(c.Context())
	if err != nil {
		return h.roleError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"roles": roles,
	})
}

// GetRole returns a single role
// GET /api/v1/roles/:id
func (h *RoleHandler) GetRole(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid role id",
		})
	}

	role, err := h.roleService.Get(c.Context(), id)
	if err != nil {
		return h.roleError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(role)
}

// UpdateRole mutates a role
// PUT /api/v1/roles/:id
func (h *RoleHandler) UpdateRole(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid role id",
		})
	}

	var req service.UpdateRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := h.validator.Validate(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	role, err := h.roleService.Update(c.Context(), id, req)
	if err != nil {
		return h.roleError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(role)
}

// DeleteRole soft-deletes a role
// DELETE /api/v1/roles/:id
func (h *RoleHandler) DeleteRole(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid role id",
		})
	}

	if err := h.roleService.Delete(c.Context(), id); err != nil {
		return h.roleError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Role deleted successfully",
	})
}

// GetAvailablePermissions lists the configured permission catalogue
// GET /api/v1/roles/permissions
func (h *RoleHandler) GetAvailablePermissions(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"permissions": h.permissions.AvailablePermissions(),
	})
}

// AssignRoleToUser grants a role to a user
// POST /api/v1/users/:userId/roles/:roleId
func (h *RoleHandler) AssignRoleToUser(c *fiber.Ctx) error {
	userID, roleID, err := userRoleParams(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if err := h.roleService.Assign(c.Context(), userID, roleID); err != nil {
		return h.roleError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Role assigned successfully",
	})
}

// RemoveRoleFromUser revokes a role from a user
// DELETE /api/v1/users/:userId/roles/:roleId
func (h *RoleHandler) RemoveRoleFromUser(c *fiber.Ctx) error {
	userID, roleID, err := userRoleParams(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if err := h.roleService.Remove(c.Context(), userID, roleID); err != nil {
		return h.roleError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Role removed successfully",
	})
}

// GetUserRoles lists a user's roles
// GET /api/v1/users/:userId/roles
func (h *RoleHandler) GetUserRoles(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("userId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid user id",
		})
	}

	roles, err := h.roleService.UserRoles(c.Context(), userID)
	if err != nil {
		return h.roleError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"roles": roles,
	})
}

func (h *RoleHandler) roleError(c *fiber.Ctx, err error) error {
	var systemErr *service.SystemRoleError
	var invalidPerms *service.InvalidPermissionsError

	switch {
	case errors.Is(err, service.ErrRoleNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, service.ErrRoleSlugExists):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.As(err, &systemErr):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": systemErr.Error(),
			"code":  "system_role_protected",
		})
	case errors.As(err, &invalidPerms):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":               invalidPerms.Error(),
			"invalid_permissions": invalidPerms.Permissions,
		})
	default:
		log.Printf("[ROLE] operation failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}
}

func userRoleParams(c *fiber.Ctx) (userID, roleID uuid.UUID, err error) {
	userID, err = uuid.Parse(c.Params("userId"))
	if err != nil {
		return uuid.Nil, uuid.Nil, errors.New("invalid user id")
	}
	roleID, err = uuid.Parse(c.Params("roleId"))
	if err != nil {
		return uuid.Nil, uuid.Nil, errors.New("invalid role id")
	}
	return userID, roleID, nil
}
