// Package store owns every write that spans more than one statement, plus the
// Postgres advisory locks that keep the worker and sequencer from overlapping.
// Plain reads go straight to db.Querier.
//
// store imports db only.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nyashahama/retreat-registration-backend/internal/db"
)

// Store pairs the connection pool with its prepared queries. The pool begins
// transactions and pins connections for advisory locks.
type Store struct {
	pool    *sql.DB
	queries *db.Queries
}

// New returns a Store over an open pool and the queries prepared on it.
func New(pool *sql.DB, queries *db.Queries) *Store {
	return &Store{pool: pool, queries: queries}
}

// inTx runs fn against queries bound to a read-committed transaction. Every
// write fn issues is a single atomic statement, so the weaker isolation level
// is enough. fn's error rolls the transaction back; a panic does too and is
// re-raised.
func (s *Store) inTx(ctx context.Context, fn func(ctx context.Context, q db.Querier) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) && err != nil {
			err = errors.Join(err, fmt.Errorf("store: rollback: %w", rbErr))
		}
	}()

	if err = fn(ctx, s.queries.WithTx(tx)); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	committed = true
	return nil
}
