package handler

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ifanfairuz/nduoseh/internal/domain"
	"github.com/ifanfairuz/nduoseh/internal/handler/middleware"
)

const refreshCookieName = "refresh_token"

func clientInfo(c *fiber.Ctx) domain.ClientInfo {
	return middleware.ClientInfo(c)
}

// setRefreshCookie stores the refresh token as an HTTP-only strict-same-site
// cookie scoped to the refresh path, so browsers only send it where it is
// redeemed.
func setRefreshCookie(c *fiber.Ctx, path, token string, expiresAt time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     path,
		Expires:  expiresAt,
		HTTPOnly: true,
		Secure:   true,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

func clearRefreshCookie(c *fiber.Ctx, path string) {
	c.Cookie(&fiber.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     path,
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   true,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

// bearerToken extracts the token from the Authorization header, or "" when
// absent or malformed.
func bearerToken(c *fiber.Ctx) string {
	parts := strings.SplitN(c.Get("Authorization"), " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

// refreshTokenFrom reads the refresh token from the cookie, falling back to
// the request body for non-browser clients.
func refreshTokenFrom(c *fiber.Ctx) string {
	if token := c.Cookies(refreshCookieName); token != "" {
		return token
	}

	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.BodyParser(&req); err != nil {
		return ""
	}
	return req.RefreshToken
}
