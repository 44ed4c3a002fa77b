package handler

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/ifanfairuz/nduoseh/internal/service"
)

type TokenHandler struct {
	authService *service.AuthService
	verifier    *service.AuthVerifier
	cookiePath  string
}

func NewTokenHandler(authService *service.AuthService, verifier *service.AuthVerifier, cookiePath string) *TokenHandler {
	return &TokenHandler{
		authService: authService,
		verifier:    verifier,
		cookiePath:  cookiePath,
	}
}

// Refresh redeems a refresh token from the cookie or body and rotates the
// pair. Every protocol failure collapses to a generic unauthorized response
// and clears the cookie; the exact failing step is only logged server-side.
// POST /api/v1/auth/token/refresh
func (h *TokenHandler) Refresh(c *fiber.Ctx) error {
	token := refreshTokenFrom(c)
	if token == "" {
		clearRefreshCookie(c, h.cookiePath)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "invalid refresh token",
		})
	}

	resp, err := h.authService.Refresh(c.Context(), token, clientInfo(c))
	if err != nil {
		clearRefreshCookie(c, h.cookiePath)

		var refreshErr *service.RefreshError
		if errors.As(err, &refreshErr) || errors.Is(err, service.ErrTokenInvalid) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid refresh token",
			})
		}
		log.Printf("[AUTH] refresh failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}

	setRefreshCookie(c, h.cookiePath, resp.RefreshToken.Token, resp.RefreshToken.ExpiresAtTime())
	return c.Status(fiber.StatusOK).JSON(resp)
}

// Verify checks a bearer access token for gateways and sibling services
// GET /api/v1/auth/token/verify
func (h *TokenHandler) Verify(c *fiber.Ctx) error {
	token := bearerToken(c)
	if token == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "missing token",
		})
	}

	verified, err := h.verifier.Verify(c.Context(), token, clientInfo(c))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "invalid token",
		})
	}

	return c.Status(fiber.StatusOK).JSON(verified)
}
