package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	goredis "github.com/redis/go-redis/v9"
)

type HealthHandler struct {
	db    *sqlx.DB
	redis *goredis.Client
}

func NewHealthHandler(db *sqlx.DB, redis *goredis.Client) *HealthHandler {
	return &HealthHandler{db: db, redis: redis}
}

// Health returns basic health status
// GET /health
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":  "ok",
		"service": "identity-service",
	})
}

// Ready checks the backing stores
// GET /ready
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	checks := fiber.Map{
		"database": "ok",
		"cache":    "ok",
	}
	healthy := true

	if err := h.db.PingContext(c.Context()); err != nil {
		checks["database"] = err.Error()
		healthy = false
	}
	if err := h.redis.Ping(c.Context()).Err(); err != nil {
		checks["cache"] = err.Error()
		healthy = false
	}

	if !healthy {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unavailable",
			"checks": checks,
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "ready",
		"checks": checks,
	})
}
