package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Batch is a write scope spanning one transaction. Each staged write runs in
// its own savepoint so a failing statement does not poison the transaction;
// Commit publishes every write that staged successfully.
type Batch struct {
	tx     pgx.Tx
	staged int
	closed bool
}

// BeginBatch opens a transaction on db.
func BeginBatch(ctx context.Context, db DBTX) (*Batch, error) {
	tx, err := db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin batch: %w", err)
	}
	return &Batch{tx: tx}, nil
}

// Stage runs fn inside a savepoint. On error the savepoint is rolled back and
// the batch stays usable.
func (b *Batch) Stage(ctx context.Context, fn func(q pgx.Tx) error) error {
	if b.closed {
		return pgx.ErrTxClosed
	}

	sp, err := b.tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin savepoint: %w", err)
	}

	if err := fn(sp); err != nil {
		if rbErr := sp.Rollback(ctx); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback savepoint: %w", rbErr))
		}
		return err
	}

	if err := sp.Commit(ctx); err != nil {
		return fmt.Errorf("release savepoint: %w", err)
	}
	b.staged++
	return nil
}

// Tx exposes the underlying transaction for reads that must observe staged writes.
func (b *Batch) Tx() pgx.Tx {
	return b.tx
}

// Staged returns the number of writes staged so far.
func (b *Batch) Staged() int {
	return b.staged
}

// Commit commits the transaction and returns the number of staged writes.
func (b *Batch) Commit(ctx context.Context) (int, error) {
	if b.closed {
		return 0, pgx.ErrTxClosed
	}
	b.closed = true
	if err := b.tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit batch: %w", err)
	}
	return b.staged, nil
}

// Rollback discards the batch. It is a no-op after Commit or a previous Rollback.
func (b *Batch) Rollback(ctx context.Context) error {
	if b.closed {
		return nil
	}
	b.closed = true
	if err := b.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("rollback batch: %w", err)
	}
	return nil
}
