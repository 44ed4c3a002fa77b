package repository

import "context"

// Atomic runs a unit of work in one database transaction: every repository
// write inside fn commits together or not at all. Implementations carry the
// transaction through the context.
type Atomic interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
