package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kyochen/tablecart/internal/domain"
)

type SoldOutRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *SoldOutRepo) With(db DB) *SoldOutRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *SoldOutRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *SoldOutRepo) List(ctx context.Context) ([]domain.SoldOutEntry, error) {
	const op = "postgres.SoldOutRepo.List"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT category_idx, item_idx FROM soldout ORDER BY category_idx, item_idx`,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	out := []domain.SoldOutEntry{}
	for rows.Next() {
		var e domain.SoldOutEntry
		if err := rows.Scan(&e.CategoryIdx, &e.ItemIdx); err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}

// Replace swaps the entire sold-out set atomically.
func (r *SoldOutRepo) Replace(
	ctx context.Context,
	entries []domain.SoldOutEntry,
	at time.Time,
) (int, error) {
	const op = "postgres.SoldOutRepo.Replace"

	if r.db != nil {
		n, err := r.replaceCore(ctx, r.db, entries, at)
		if err != nil {
			return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		return n, nil
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer tx.Rollback(ctx)

	n, err := r.replaceCore(ctx, tx, entries, at)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return n, nil
}

func (r *SoldOutRepo) replaceCore(
	ctx context.Context,
	db DB,
	entries []domain.SoldOutEntry,
	at time.Time,
) (int, error) {
	if _, err := db.Exec(ctx, `DELETE FROM soldout`); err != nil {
		return 0, err
	}

	if len(entries) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(
			`INSERT INTO soldout (category_idx, item_idx, updated_at)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (category_idx, item_idx) DO UPDATE SET
				updated_at = excluded.updated_at`,
			e.CategoryIdx, e.ItemIdx, at,
		)
	}
	if err := db.SendBatch(ctx, batch).Close(); err != nil {
		return 0, err
	}

	return len(entries), nil
}
