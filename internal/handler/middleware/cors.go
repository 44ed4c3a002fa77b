package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// CORSMiddleware configures and returns CORS middleware. Credentials are
// needed because the refresh token travels as a cookie, but fiber refuses
// credentials combined with a wildcard origin, so the wildcard default runs
// without them until concrete origins are configured.
func CORSMiddleware(allowOrigins string) fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE",
		AllowHeaders:     "Content-Type,Authorization,X-Device-Id",
		AllowCredentials: allowOrigins != "*",
	})
}
