package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kyochen/tablecart/internal/domain"
)

type OrderRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *OrderRepo) With(db DB) *OrderRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *OrderRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *OrderRepo) Get(ctx context.Context, id int64) (*domain.Order, error) {
	const op = "postgres.OrderRepo.Get"

	db := r.handle()

	var (
		o        domain.Order
		rawItems []byte
	)
	err := db.QueryRow(ctx,
		`SELECT id, session_code, table_label, placed_at, items, status
		 FROM orders WHERE id = $1`,
		id,
	).Scan(&o.ID, &o.SessionCode, &o.TableLabel, &o.PlacedAt, &rawItems, &o.Status)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	o.Items = scanItems(rawItems)

	return &o, nil
}

// LatestIDForSession pins legacy sessions (bound before the order_id
// column existed) to their most recent order. Returns 0 when the
// session has no orders.
func (r *OrderRepo) LatestIDForSession(ctx context.Context, code string) (int64, error) {
	const op = "postgres.OrderRepo.LatestIDForSession"

	db := r.handle()

	var id *int64
	err := db.QueryRow(ctx,
		`SELECT MAX(id) FROM orders WHERE session_code = $1`,
		code,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if id == nil {
		return 0, nil
	}

	return *id, nil
}
