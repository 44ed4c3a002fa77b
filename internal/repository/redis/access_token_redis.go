package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/ifanfairuz/nduoseh/internal/domain"
	"github.com/ifanfairuz/nduoseh/internal/repository"
)

const accessTokenKeyPrefix = "auth:access_token:"

type accessTokenCache struct {
	client *goredis.Client
}

// NewAccessTokenCache creates a Redis-backed access-token witness cache
func NewAccessTokenCache(client *goredis.Client) repository.AccessTokenCache {
	return &accessTokenCache{client: client}
}

// Store writes the witness under the session key with a TTL equal to the
// remaining token lifetime. An already-expired witness is not written.
func (c *accessTokenCache) Store(ctx context.Context, witness *domain.AccessTokenWitness) error {
	ttl := time.Until(witness.ExpiresAt)
	if ttl <= 0 {
		return nil
	}

	payload, err := json.Marshal(witness)
	if err != nil {
		return fmt.Errorf("failed to encode access token witness: %w", err)
	}

	key := accessTokenKeyPrefix + witness.SessionID.String()
	if err := c.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache access token witness: %w", err)
	}

	return nil
}

// GetBySessionID returns (nil, nil) on a cache miss.
func (c *accessTokenCache) GetBySessionID(ctx context.Context, sessionID uuid.UUID) (*domain.AccessTokenWitness, error) {
	key := accessTokenKeyPrefix + sessionID.String()

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get access token witness: %w", err)
	}

	var witness domain.AccessTokenWitness
	if err := json.Unmarshal(data, &witness); err != nil {
		return nil, fmt.Errorf("failed to decode access token witness: %w", err)
	}

	return &witness, nil
}

func (c *accessTokenCache) DeleteBySessionID(ctx context.Context, sessionID uuid.UUID) error {
	key := accessTokenKeyPrefix + sessionID.String()

	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete access token witness: %w", err)
	}

	return nil
}
