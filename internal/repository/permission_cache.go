package repository

import (
	"context"

	"github.com/google/uuid"
)

// PermissionCache stores a user's effective permission set without TTL;
// correctness depends on active invalidation at role/assignment mutation.
type PermissionCache interface {
	// Get returns (nil, nil) on a cache miss.
	Get(ctx context.Context, userID uuid.UUID) ([]string, error)
	Set(ctx context.Context, userID uuid.UUID, permissions []string) error
	Invalidate(ctx context.Context, userIDs ...uuid.UUID) error
}
