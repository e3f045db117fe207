package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kyochen/tablecart/internal/domain"
	"github.com/kyochen/tablecart/internal/repository"
)

type TicketRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *TicketRepo) With(db DB) *TicketRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *TicketRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *TicketRepo) ListRecent(ctx context.Context, limit int) ([]domain.Ticket, error) {
	const op = "postgres.TicketRepo.ListRecent"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT id, order_id, session_code, table_label, placed_at, items, status, batch_no
		 FROM order_tickets
		 ORDER BY id DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	var out []domain.Ticket
	for rows.Next() {
		var (
			t        domain.Ticket
			rawItems []byte
		)
		if err := rows.Scan(
			&t.ID, &t.OrderID, &t.SessionCode, &t.TableLabel,
			&t.PlacedAt, &rawItems, &t.Status, &t.BatchNo,
		); err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		t.Items = scanItems(rawItems)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}

func (r *TicketRepo) Get(ctx context.Context, id int64) (*domain.Ticket, error) {
	const op = "postgres.TicketRepo.Get"

	db := r.handle()

	var (
		t        domain.Ticket
		rawItems []byte
	)
	err := db.QueryRow(ctx,
		`SELECT id, order_id, session_code, table_label, placed_at, items, status, batch_no
		 FROM order_tickets WHERE id = $1`,
		id,
	).Scan(&t.ID, &t.OrderID, &t.SessionCode, &t.TableLabel,
		&t.PlacedAt, &rawItems, &t.Status, &t.BatchNo)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	t.Items = scanItems(rawItems)

	return &t, nil
}

// UpdateStatus is a compare-and-swap on the status column so that two
// staff panels racing the same ticket cannot both win.
func (r *TicketRepo) UpdateStatus(ctx context.Context, id int64, from, to domain.Status) error {
	const op = "postgres.TicketRepo.UpdateStatus"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE order_tickets SET status = $2 WHERE id = $1 AND status = $3`,
		id, to, from,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		var exists bool
		err := db.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM order_tickets WHERE id = $1)`,
			id,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("%s:%w", op, translateDBErr(err))
		}

		if !exists {
			return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
		}

		return fmt.Errorf("%s:%w", op, repository.ErrConflict)
	}

	return nil
}
