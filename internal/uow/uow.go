// Package uow runs storage work inside a single transaction and
// defers side effects until the transaction has committed.
package uow

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AfterCommit is a function that runs after a successful transaction commit.
type AfterCommit func(ctx context.Context)

const defaultAttempts = 3

// txBeginner opens transactions. Satisfied by *pgxpool.Pool.
type txBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// UoW represents a unit of work. Transactions run serializable by
// default and are retried on serialization failure, so callers can
// read-check-write without explicit row locks.
type UoW struct {
	db       txBeginner
	attempts int
}

func NewUoW(pool *pgxpool.Pool) *UoW {
	return &UoW{db: pool, attempts: defaultAttempts}
}

// Do runs fn inside the transaction. After a successful commit,
// it executes all after-commit hooks registered through after.
func (u *UoW) Do(
	ctx context.Context,
	fn func(ctx context.Context, tx pgx.Tx, after func(AfterCommit)) error,
) error {
	return u.DoWithOpts(ctx, nil, fn)
}

// DoWithOpts runs fn inside the transaction with the given options.
// Hooks never run for a failed attempt; on retry, fn starts with an
// empty hook list again.
func (u *UoW) DoWithOpts(
	ctx context.Context,
	opts *pgx.TxOptions,
	fn func(ctx context.Context, tx pgx.Tx, after func(AfterCommit)) error,
) error {
	var err error
	for attempt := 0; attempt < u.attempts; attempt++ {
		var hooks []AfterCommit

		err = u.attempt(ctx, opts, fn, &hooks)
		if err == nil {
			for _, h := range hooks {
				h(ctx)
			}
			return nil
		}

		if !retryable(err) {
			return err
		}
	}

	return fmt.Errorf("uow: retries exhausted: %w", err)
}

func (u *UoW) attempt(
	ctx context.Context,
	opts *pgx.TxOptions,
	fn func(ctx context.Context, tx pgx.Tx, after func(AfterCommit)) error,
	hooks *[]AfterCommit,
) error {
	txOpts := pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	}

	if opts != nil {
		txOpts.IsoLevel = opts.IsoLevel
		txOpts.AccessMode = opts.AccessMode
		txOpts.DeferrableMode = opts.DeferrableMode
	}

	tx, err := u.db.BeginTx(ctx, txOpts)
	if err != nil {
		return err
	}

	defer tx.Rollback(ctx)

	if err := fn(ctx, tx, func(h AfterCommit) {
		*hooks = append(*hooks, h)
	}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

// retryable reports whether the error is a serialization failure or
// deadlock that a fresh attempt can resolve.
func retryable(err error) bool {
	var pge *pgconn.PgError

	if errors.As(err, &pge) {
		switch pge.Code {
		case "40001", "40P01":
			return true
		}
	}

	return false
}
