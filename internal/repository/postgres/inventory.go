package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kyochen/tablecart/internal/domain"
	"github.com/kyochen/tablecart/internal/repository"
)

type InventoryRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *InventoryRepo) With(db DB) *InventoryRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *InventoryRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *InventoryRepo) List(ctx context.Context) ([]domain.InventoryItem, error) {
	const op = "postgres.InventoryRepo.List"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT
			i.id, i.name, i.category, i.category_idx, i.item_idx, i.stock,
			EXISTS(
				SELECT 1 FROM soldout s
				WHERE s.category_idx = i.category_idx
				  AND s.item_idx = i.item_idx
			) AS is_soldout
		 FROM inventory i
		 ORDER BY i.category, i.name`,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	out := []domain.InventoryItem{}
	for rows.Next() {
		var it domain.InventoryItem
		if err := rows.Scan(
			&it.ID, &it.Name, &it.Category, &it.CategoryIdx, &it.ItemIdx,
			&it.Stock, &it.SoldOut,
		); err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}

// SetStock writes an absolute stock value (clamped at zero) and syncs
// the soldout flag for the item's menu position.
func (r *InventoryRepo) SetStock(ctx context.Context, id int64, stock int, at time.Time) (int, error) {
	const op = "postgres.InventoryRepo.SetStock"

	if stock < 0 {
		stock = 0
	}

	n, err := r.applyStock(ctx, id, at, func(current int) int { return stock })
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	return n, nil
}

// AddStock adjusts stock by a signed delta, clamped at zero, and syncs
// the soldout flag.
func (r *InventoryRepo) AddStock(ctx context.Context, id int64, delta int, at time.Time) (int, error) {
	const op = "postgres.InventoryRepo.AddStock"

	n, err := r.applyStock(ctx, id, at, func(current int) int {
		next := current + delta
		if next < 0 {
			next = 0
		}
		return next
	})
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	return n, nil
}

func (r *InventoryRepo) applyStock(
	ctx context.Context,
	id int64,
	at time.Time,
	next func(current int) int,
) (int, error) {
	if r.db != nil {
		return r.applyStockCore(ctx, r.db, id, at, next)
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return 0, translateDBErr(err)
	}

	defer tx.Rollback(ctx)

	n, err := r.applyStockCore(ctx, tx, id, at, next)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, translateDBErr(err)
	}

	return n, nil
}

func (r *InventoryRepo) applyStockCore(
	ctx context.Context,
	db DB,
	id int64,
	at time.Time,
	next func(current int) int,
) (int, error) {
	var (
		current     int
		categoryIdx *int
		itemIdx     *int
	)
	err := db.QueryRow(ctx,
		`SELECT stock, category_idx, item_idx FROM inventory WHERE id = $1 FOR UPDATE`,
		id,
	).Scan(&current, &categoryIdx, &itemIdx)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, repository.ErrNotFound
		}
		return 0, translateDBErr(err)
	}

	stock := next(current)

	if _, err := db.Exec(ctx,
		`UPDATE inventory SET stock = $2, updated_at = $3 WHERE id = $1`,
		id, stock, at,
	); err != nil {
		return 0, translateDBErr(err)
	}

	// Items without a menu position carry no soldout flag.
	if categoryIdx == nil || itemIdx == nil {
		return stock, nil
	}

	if stock <= 0 {
		_, err = db.Exec(ctx,
			`INSERT INTO soldout (category_idx, item_idx, updated_at)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (category_idx, item_idx) DO UPDATE SET
				updated_at = excluded.updated_at`,
			*categoryIdx, *itemIdx, at,
		)
	} else {
		_, err = db.Exec(ctx,
			`DELETE FROM soldout WHERE category_idx = $1 AND item_idx = $2`,
			*categoryIdx, *itemIdx,
		)
	}
	if err != nil {
		return 0, translateDBErr(err)
	}

	return stock, nil
}
