package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/ifanfairuz/nduoseh/internal/config"
	"github.com/ifanfairuz/nduoseh/internal/handler"
	"github.com/ifanfairuz/nduoseh/internal/handler/middleware"
	"github.com/ifanfairuz/nduoseh/internal/repository/postgres"
	redisrepo "github.com/ifanfairuz/nduoseh/internal/repository/redis"
	"github.com/ifanfairuz/nduoseh/internal/service"
	"github.com/ifanfairuz/nduoseh/pkg/cipher"
	"github.com/ifanfairuz/nduoseh/pkg/jwt"
	"github.com/ifanfairuz/nduoseh/pkg/keys"
	"github.com/ifanfairuz/nduoseh/pkg/validator"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database connection
	db, err := initDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database connection: %v", err)
		}
	}()
	log.Println("✓ Database connection established")

	// Initialize Redis client
	redisClient, err := initRedis(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize Redis: %v", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Printf("Error closing Redis connection: %v", err)
		}
	}()
	log.Println("✓ Redis connection established")

	// Generate the process signing key pair
	keyManager, err := keys.NewKeyManager()
	if err != nil {
		log.Fatalf("Failed to generate signing keys: %v", err)
	}
	log.Println("✓ Ed25519 signing keys generated")

	// Refresh-token envelope cipher
	envelope, err := cipher.NewCipher(cfg.Auth.CipherKey)
	if err != nil {
		log.Fatalf("Failed to initialize refresh-token cipher: %v", err)
	}

	// Initialize validator
	validate := validator.NewValidator()

	// Initialize repositories
	userRepo := postgres.NewUserRepository(db)
	accountRepo := postgres.NewAccountRepository(db)
	sessionRepo := postgres.NewSessionRepository(db)
	refreshTokenRepo := postgres.NewRefreshTokenRepository(db)
	roleRepo := postgres.NewRoleRepository(db)
	txRunner := postgres.NewTxRunner(db)
	witnessCache := redisrepo.NewAccessTokenCache(redisClient)
	permissionCache := redisrepo.NewPermissionCache(redisClient)

	// Initialize services
	codec := jwt.NewTokenCodec(keyManager.PrivateKey(), keyManager.PublicKey(), cfg.Auth.ServerName)
	tokenService := service.NewTokenService(codec, envelope, cfg.Auth.AccessTokenExpiry, cfg.Auth.RefreshTokenExpiry)
	permissionService := service.NewPermissionService(roleRepo, permissionCache, nil)
	roleService := service.NewRoleService(roleRepo, permissionCache, permissionService)
	authService := service.NewAuthService(
		userRepo,
		accountRepo,
		sessionRepo,
		refreshTokenRepo,
		witnessCache,
		tokenService,
		permissionService,
		roleRepo,
		txRunner,
	)

	// Token verification strategy: local signature+witness checks, or
	// delegation to a remote authority when REMOTE_AUTH_URL is set
	var tokenVerifier service.TokenVerifier
	if cfg.Auth.RemoteAuthURL != "" {
		tokenVerifier = service.NewRemoteTokenVerifier(
			&http.Client{Timeout: cfg.Auth.VerifyTimeout},
			cfg.Auth.RemoteAuthURL,
		)
		log.Printf("✓ Token verification delegated to %s", cfg.Auth.RemoteAuthURL)
	} else {
		tokenVerifier = service.NewLocalTokenVerifier(codec, witnessCache)
		log.Println("✓ Local token verification enabled")
	}
	authVerifier := service.NewAuthVerifier(tokenVerifier, userRepo)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService, permissionService, roleService, validate, cfg.Auth.RefreshCookiePath)
	tokenHandler := handler.NewTokenHandler(authService, authVerifier, cfg.Auth.RefreshCookiePath)
	roleHandler := handler.NewRoleHandler(roleService, permissionService, validate)
	jwksHandler := handler.NewJWKSHandler(keyManager)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Identity Service v1.0",
		ErrorHandler: customErrorHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	})

	// Setup global middlewares
	app.Use(middleware.RecoveryMiddleware())
	app.Use(middleware.LoggerMiddleware())
	app.Use(middleware.CORSMiddleware(cfg.Server.AllowOrigins))

	// Setup routes
	handler.SetupRoutes(
		app,
		authHandler,
		tokenHandler,
		roleHandler,
		jwksHandler,
		healthHandler,
		authVerifier,
		permissionService,
	)

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		log.Printf("🚀 Server starting on http://localhost%s", addr)
		log.Printf("📝 Environment: %s", cfg.Server.Environment)
		if err := app.Listen(addr); err != nil {
			log.Printf("❌ Server failed to start: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Println("⏳ Shutting down server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✓ Server stopped")
}

// initDB initializes PostgreSQL database connection with retry logic
func initDB(cfg *config.Config) (*sqlx.DB, error) {
	dsn := cfg.Database.DSN()

	var db *sqlx.DB
	var err error

	maxRetries := 5
	retryInterval := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		db, err = sqlx.Connect("postgres", dsn)
		if err == nil {
			break
		}

		log.Printf("Failed to connect to database (attempt %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			time.Sleep(retryInterval)
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Printf("Error closing database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// initRedis initializes Redis client and verifies connection
func initRedis(cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
