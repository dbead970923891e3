// Package postgres implements internal/store.Store against PostgreSQL
// using github.com/jackc/pgx/v5, with row-level locking and SKIP LOCKED
// driving the claim protocol. There is no sqlc layer here: queries are
// hand-written parameterized SQL.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arashn/taskqueue/internal/store"
)

// Store is the PostgreSQL-backed implementation of store.Store.
type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

// NewStore wraps an already-configured connection pool. Use Open to also
// run migrations and build the pool from a DSN.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Pool returns the underlying connection pool, for callers that need raw
// access (the archiver's read-only scans, for instance).
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// Close closes the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// finalizeTx commits on success, rolls back and folds the rollback error
// into *err on failure. Panics are handled by the caller's defer before
// finalizeTx runs.
func finalizeTx(ctx context.Context, tx pgx.Tx, err *error) {
	if *err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			slog.ErrorContext(ctx, "rollback failed",
				"original_error", *err,
				"rollback_error", rbErr)
			*err = fmt.Errorf("transaction failed: %w (rollback error: %v)", *err, rbErr)
		}
		return
	}
	*err = tx.Commit(ctx)
	if *err != nil {
		slog.ErrorContext(ctx, "transaction commit failed", "error", *err)
	}
}

// withTx runs fn inside a transaction, logging duration and recovering
// from panics with a rollback before re-panicking.
func (s *Store) withTx(ctx context.Context, operation string, fn func(tx pgx.Tx) error) (err error) {
	start := time.Now().UTC()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			slog.ErrorContext(ctx, "transaction panic, rolling back",
				"operation", operation, "panic", p)
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				slog.ErrorContext(ctx, "rollback after panic failed",
					"operation", operation, "rollback_error", rbErr)
			}
			panic(p)
		}
		finalizeTx(ctx, tx, &err)
		if err == nil {
			slog.DebugContext(ctx, "transaction completed",
				"operation", operation, "duration_ms", time.Since(start).Milliseconds())
		}
	}()

	return fn(tx)
}
