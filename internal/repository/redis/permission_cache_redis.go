package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/ifanfairuz/nduoseh/internal/repository"
)

const permissionKeyPrefix = "user:permissions:"

type permissionCache struct {
	client *goredis.Client
}

// NewPermissionCache creates a Redis-backed permission cache. Entries carry
// no TTL; role and assignment mutations invalidate them explicitly.
func NewPermissionCache(client *goredis.Client) repository.PermissionCache {
	return &permissionCache{client: client}
}

// Get returns (nil, nil) on a cache miss.
func (c *permissionCache) Get(ctx context.Context, userID uuid.UUID) ([]string, error) {
	key := permissionKeyPrefix + userID.String()

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cached permissions: %w", err)
	}

	var permissions []string
	if err := json.Unmarshal(data, &permissions); err != nil {
		return nil, fmt.Errorf("failed to decode cached permissions: %w", err)
	}

	if permissions == nil {
		permissions = []string{}
	}
	return permissions, nil
}

func (c *permissionCache) Set(ctx context.Context, userID uuid.UUID, permissions []string) error {
	if permissions == nil {
		permissions = []string{}
	}

	payload, err := json.Marshal(permissions)
	if err != nil {
		return fmt.Errorf("failed to encode permissions: %w", err)
	}

	key := permissionKeyPrefix + userID.String()
	if err := c.client.Set(ctx, key, payload, 0).Err(); err != nil {
		return fmt.Errorf("failed to cache permissions: %w", err)
	}

	return nil
}

func (c *permissionCache) Invalidate(ctx context.Context, userIDs ...uuid.UUID) error {
	if len(userIDs) == 0 {
		return nil
	}

	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = permissionKeyPrefix + id.String()
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate permission cache: %w", err)
	}

	return nil
}
