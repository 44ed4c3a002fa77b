package handler

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ifanfairuz/nduoseh/internal/domain"
	"github.com/ifanfairuz/nduoseh/internal/service"
	"github.com/ifanfairuz/nduoseh/pkg/validator"
)

type AuthHandler struct {
	authService *service.AuthService
	permissions *service.PermissionService
	roleService *service.RoleService
	validator   *validator.Validator
	cookiePath  string
}

func NewAuthHandler(
	authService *service.AuthService,
	permissions *service.PermissionService,
	roleService *service.RoleService,
	validator *validator.Validator,
	cookiePath string,
) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		permissions: permissions,
		roleService: roleService,
		validator:   validator,
		cookiePath:  cookiePath,
	}
}

// Login handles user login
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req service.LoginRequest
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

	resp, err := h.authService.Login(c.Context(), req, clientInfo(c))
	if err != nil {
		if errors.Is(err, service.ErrEmailNotFound) || errors.Is(err, service.ErrInvalidCredentials) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		log.Printf("[AUTH] login failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}

	setRefreshCookie(c, h.cookiePath, resp.RefreshToken.Token, resp.RefreshToken.ExpiresAtTime())
	return c.Status(fiber.StatusOK).JSON(resp)
}

// Register handles user registration
// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req service.RegisterRequest
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

	resp, err := h.authService.Register(c.Context(), req, clientInfo(c))
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		log.Printf("[AUTH] registration failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}

	setRefreshCookie(c, h.cookiePath, resp.RefreshToken.Token, resp.RefreshToken.ExpiresAtTime())
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// Logout tears down the caller's session. The response is success regardless
// of teardown outcome; failures are logged server-side.
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	clearRefreshCookie(c, h.cookiePath)

	sessionID, ok := c.Locals("session_id").(uuid.UUID)
	if ok {
		if err := h.authService.Logout(c.Context(), sessionID); err != nil {
			log.Printf("[AUTH] logout teardown failed for session %s: %v", sessionID, err)
		}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Logged out successfully",
	})
}

// Me returns the authenticated user with their permissions, modules and roles
// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user, ok := c.Locals("user").(*domain.User)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	info, err := h.permissions.GetInfo(c.Context(), user.ID)
	if err != nil {
		log.Printf("[AUTH] failed to resolve permissions for user %s: %v", user.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}

	roles, err := h.roleService.UserRoles(c.Context(), user.ID)
	if err != nil {
		log.Printf("[AUTH] failed to load roles for user %s: %v", user.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"user":        user,
		"permissions": info.Permissions,
		"modules":     info.Modules,
		"roles":       roles,
	})
}
