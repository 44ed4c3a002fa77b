package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ifanfairuz/nduoseh/internal/service"
)

// RequirePermissions verifies that the authenticated user holds every listed
// permission. The required list is disclosed on denial; it is not secret and
// helps clients render what is missing.
func RequirePermissions(permissions *service.PermissionService, required ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := c.Locals("user_id").(uuid.UUID)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		allowed, err := permissions.HasPermissions(c.Context(), userID, required)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to check permissions",
			})
		}
		if !allowed {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error":                "Forbidden: insufficient permissions",
				"required_permissions": required,
			})
		}

		return c.Next()
	}
}
