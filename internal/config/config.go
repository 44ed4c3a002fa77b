package config

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
}

type ServerConfig struct {
	Port         string
	Environment  string
	AllowOrigins string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type AuthConfig struct {
	// ServerName is the token issuer and the iss claim checked on verify.
	ServerName string
	// RemoteAuthURL, when set, switches token verification to the remote
	// authority at that URL instead of local signature+cache checks.
	RemoteAuthURL      string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	// CipherKey is the 32-byte key sealing refresh-token envelopes,
	// base64-encoded in the environment.
	CipherKey []byte
	// RefreshCookiePath scopes the refresh-token cookie.
	RefreshCookiePath string
	// VerifyTimeout bounds remote verification calls.
	VerifyTimeout time.Duration
}

func Load() (*Config, error) {
	// .env is optional in production
	_ = godotenv.Load()

	cipherKey, err := loadCipherKey()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			AllowOrigins: getEnv("CORS_ALLOW_ORIGINS", "*"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "identity"),
			Password: getEnv("DB_PASSWORD", "identity"),
			DBName:   getEnv("DB_NAME", "identitydb"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			ServerName:         getEnv("AUTH_SERVER_NAME", "identity-service"),
			RemoteAuthURL:      getEnv("REMOTE_AUTH_URL", ""),
			AccessTokenExpiry:  getDurationEnv("AUTH_ACCESS_EXPIRY", 10*time.Minute),
			RefreshTokenExpiry: getDurationEnv("AUTH_REFRESH_EXPIRY", 10*24*time.Hour),
			CipherKey:          cipherKey,
			RefreshCookiePath:  getEnv("AUTH_REFRESH_COOKIE_PATH", "/api/v1/auth/token/refresh"),
			VerifyTimeout:      getDurationEnv("AUTH_VERIFY_TIMEOUT", 5*time.Second),
		},
	}

	return cfg, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// loadCipherKey decodes AUTH_CIPHER_KEY or, outside production, generates a
// throwaway key so refresh tokens survive only the current process.
func loadCipherKey() ([]byte, error) {
	encoded := os.Getenv("AUTH_CIPHER_KEY")
	if encoded == "" {
		if os.Getenv("ENVIRONMENT") == "production" {
			return nil, fmt.Errorf("AUTH_CIPHER_KEY is required in production")
		}
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate cipher key: %w", err)
		}
		return key, nil
	}

	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid AUTH_CIPHER_KEY: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("AUTH_CIPHER_KEY must decode to 32 bytes, got %d", len(key))
	}

	return key, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
