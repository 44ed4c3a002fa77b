package postgres

import (
	"context"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"

	"github.com/ifanfairuz/nduoseh/internal/repository"
)

type txKey struct{}

// TxRunner implements repository.Atomic over sqlx. The open transaction is
// carried through the context so the repositories in this package pick it up
// transparently.
type TxRunner struct {
	db *sqlx.DB
}

func NewTxRunner(db *sqlx.DB) repository.Atomic {
	return &TxRunner{db: db}
}

func (r *TxRunner) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Printf("[TX] rollback failed: %v", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// executor returns the transaction bound to ctx, or the base connection pool
// when no transaction is open.
func executor(ctx context.Context, db *sqlx.DB) sqlx.ExtContext {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return db
}
