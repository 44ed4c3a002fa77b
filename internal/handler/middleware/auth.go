package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ifanfairuz/nduoseh/internal/domain"
	"github.com/ifanfairuz/nduoseh/internal/service"
)

// ClientInfo extracts the network and device characteristics of the request.
// The device id travels in the X-Device-Id header; absent fields stay empty.
func ClientInfo(c *fiber.Ctx) domain.ClientInfo {
	return domain.ClientInfo{
		IPAddress: c.IP(),
		UserAgent: c.Get("User-Agent"),
		DeviceID:  c.Get("X-Device-Id"),
	}
}

// AuthMiddleware verifies the bearer token and loads the user behind it.
// On success it stores user, user_id and session_id in fiber locals.
func AuthMiddleware(verifier *service.AuthVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing authorization header",
			})
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid authorization header format",
			})
		}

		user, verified, err := verifier.VerifyAndLoadUser(c.Context(), parts[1], ClientInfo(c))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid token",
			})
		}

		c.Locals("user", user)
		c.Locals("user_id", user.ID)
		c.Locals("session_id", verified.SessionID)

		return c.Next()
	}
}
