package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kyochen/tablecart/internal/domain"
	"github.com/kyochen/tablecart/internal/repository"
)

type SessionRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *SessionRepo) With(db DB) *SessionRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *SessionRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *SessionRepo) Get(ctx context.Context, code string) (*domain.Session, error) {
	const op = "postgres.SessionRepo.Get"

	db := r.handle()

	var (
		s       domain.Session
		rawCart []byte
		orderID *int64
	)
	err := db.QueryRow(ctx,
		`SELECT code, cart, created_at, expires_at, updated_at, order_id
		 FROM sessions WHERE code = $1`,
		code,
	).Scan(&s.Code, &rawCart, &s.CreatedAt, &s.ExpiresAt, &s.UpdatedAt, &orderID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	s.Cart = scanItems(rawCart)
	if orderID != nil {
		s.OrderID = *orderID
	}

	return &s, nil
}

func (r *SessionRepo) Create(ctx context.Context, code string, now, expires time.Time) error {
	const op = "postgres.SessionRepo.Create"

	db := r.handle()

	_, err := db.Exec(ctx,
		`INSERT INTO sessions (code, cart, created_at, expires_at, updated_at, order_id)
		 VALUES ($1, '[]', $2, $3, $2, NULL)`,
		code, now, expires,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

func (r *SessionRepo) Reset(ctx context.Context, code string, now, expires time.Time) error {
	const op = "postgres.SessionRepo.Reset"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE sessions
		 SET cart = '[]', created_at = $2, expires_at = $3, updated_at = $2, order_id = NULL
		 WHERE code = $1`,
		code, now, expires,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

func (r *SessionRepo) SaveCart(
	ctx context.Context,
	code string,
	cart []domain.CartLine,
	now, expires time.Time,
) error {
	const op = "postgres.SessionRepo.SaveCart"

	db := r.handle()

	_, err := db.Exec(ctx,
		`INSERT INTO sessions (code, cart, created_at, expires_at, updated_at)
		 VALUES ($1, $2, $3, $4, $3)
		 ON CONFLICT (code) DO UPDATE SET
			cart = excluded.cart,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`,
		code, itemsJSON(cart), now, expires,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

func (r *SessionRepo) BindOrder(ctx context.Context, code string, orderID int64) error {
	const op = "postgres.SessionRepo.BindOrder"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE sessions SET order_id = $2 WHERE code = $1`,
		code, orderID,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}
