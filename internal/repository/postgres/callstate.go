package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kyochen/tablecart/internal/domain"
)

type CallStateRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *CallStateRepo) With(db DB) *CallStateRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *CallStateRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *CallStateRepo) Get(ctx context.Context) (*domain.CallState, error) {
	const op = "postgres.CallStateRepo.Get"

	db := r.handle()

	var st domain.CallState
	err := db.QueryRow(ctx,
		`SELECT code, updated_at FROM call_state WHERE id = 1`,
	).Scan(&st.Code, &st.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &st, nil
}

func (r *CallStateRepo) Set(ctx context.Context, code string, updatedAt int64) error {
	const op = "postgres.CallStateRepo.Set"

	db := r.handle()

	_, err := db.Exec(ctx,
		`INSERT INTO call_state (id, code, updated_at)
		 VALUES (1, $1, $2)
		 ON CONFLICT (id) DO UPDATE SET
			code = excluded.code,
			updated_at = excluded.updated_at`,
		code, updatedAt,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}
