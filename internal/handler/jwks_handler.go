package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ifanfairuz/nduoseh/pkg/keys"
)

type JWKSHandler struct {
	keys *keys.KeyManager
}

func NewJWKSHandler(km *keys.KeyManager) *JWKSHandler {
	return &JWKSHandler{keys: km}
}

// GetJWKS serves the active public key. The etag is fixed for the process
// lifetime because the key pair never rotates in-process, so a matching
// If-None-Match short-circuits without re-exporting the key.
// GET /.well-known/jwks.json
func (h *JWKSHandler) GetJWKS(c *fiber.Ctx) error {
	etag := h.keys.ETag()

	if c.Get("If-None-Match") == etag {
		return c.SendStatus(fiber.StatusNotModified)
	}

	c.Set("ETag", etag)
	c.Set("Cache-Control", "public, max-age=86400")
	return c.Status(fiber.StatusOK).JSON([]keys.JWK{h.keys.ExportJWK()})
}
