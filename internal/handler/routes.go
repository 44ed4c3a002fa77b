package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ifanfairuz/nduoseh/internal/handler/middleware"
	"github.com/ifanfairuz/nduoseh/internal/service"
)

func SetupRoutes(
	app *fiber.App,
	authHandler *AuthHandler,
	tokenHandler *TokenHandler,
	roleHandler *RoleHandler,
	jwksHandler *JWKSHandler,
	healthHandler *HealthHandler,
	verifier *service.AuthVerifier,
	permissions *service.PermissionService,
) {
	authRequired := middleware.AuthMiddleware(verifier)

	// Health checks (public)
	app.Get("/health", healthHandler.Health)
	app.Get("/ready", healthHandler.Ready)

	// Public key distribution (public)
	app.Get("/.well-known/jwks.json", jwksHandler.GetJWKS)

	// API v1
	api := app.Group("/api/v1")

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/token/refresh", tokenHandler.Refresh)
	auth.Get("/token/verify", tokenHandler.Verify)
	auth.Post("/logout", authRequired, authHandler.Logout)
	auth.Get("/me", authRequired, authHandler.Me)

	// Role management (permission-gated)
	roles := api.Group("/roles", authRequired)
	roles.Get("/permissions", middleware.RequirePermissions(permissions, "roles.read"), roleHandler.GetAvailablePermissions)
	roles.Post("/", middleware.RequirePermissions(permissions, "roles.create"), roleHandler.CreateRole)
	roles.Get("/", middleware.RequirePermissions(permissions, "roles.read"), roleHandler.GetRoles)
	roles.Get("/:id", middleware.RequirePermissions(permissions, "roles.read"), roleHandler.GetRole)
	roles.Put("/:id", middleware.RequirePermissions(permissions, "roles.update"), roleHandler.UpdateRole)
	roles.Delete("/:id", middleware.RequirePermissions(permissions, "roles.delete"), roleHandler.DeleteRole)

	// Role assignment (permission-gated)
	users := api.Group("/users", authRequired)
	users.Get("/:userId/roles", middleware.RequirePermissions(permissions, "roles.read"), roleHandler.GetUserRoles)
	users.Post("/:userId/roles/:roleId", middleware.RequirePermissions(permissions, "roles.assign"), roleHandler.AssignRoleToUser)
	users.Delete("/:userId/roles/:roleId", middleware.RequirePermissions(permissions, "roles.assign"), roleHandler.RemoveRoleFromUser)
}
