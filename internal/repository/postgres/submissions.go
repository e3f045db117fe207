package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/kyochen/tablecart/internal/domain"
	"github.com/kyochen/tablecart/internal/repository"
	"github.com/kyochen/tablecart/internal/uow"
)

// SubmissionRepo runs submission work inside one serializable
// transaction, retried on serialization failures, so that concurrent
// submissions for one order cannot both open a ticket batch.
type SubmissionRepo struct {
	store *Store
	u     *uow.UoW
}

func (r *SubmissionRepo) InTx(
	ctx context.Context,
	fn func(ctx context.Context, tx repository.SubmissionTx, after func(func(context.Context))) error,
) error {
	return r.u.Do(ctx, func(ctx context.Context, tx pgx.Tx, after func(uow.AfterCommit)) error {
		return fn(ctx, &submissionTx{db: tx, store: r.store}, func(h func(context.Context)) {
			after(h)
		})
	})
}

type submissionTx struct {
	db    DB
	store *Store
}

func (t *submissionTx) SessionOrderID(ctx context.Context, code string) (int64, error) {
	const op = "postgres.submissionTx.SessionOrderID"

	var orderID *int64
	err := t.db.QueryRow(ctx,
		`SELECT order_id FROM sessions WHERE code = $1`,
		code,
	).Scan(&orderID)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if orderID == nil {
		return 0, nil
	}

	return *orderID, nil
}

func (t *submissionTx) BindOrder(ctx context.Context, code string, orderID int64) error {
	return t.store.Sessions().With(t.db).BindOrder(ctx, code, orderID)
}

func (t *submissionTx) LatestOrderID(ctx context.Context, code string) (int64, error) {
	return t.store.Orders().With(t.db).LatestIDForSession(ctx, code)
}

func (t *submissionTx) CreateOrder(ctx context.Context, o *domain.Order) (int64, error) {
	const op = "postgres.submissionTx.CreateOrder"

	var id int64
	err := t.db.QueryRow(ctx,
		`INSERT INTO orders (session_code, table_label, placed_at, items, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		o.SessionCode, o.TableLabel, o.PlacedAt, itemsJSON(o.Items), o.Status,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return id, nil
}

func (t *submissionTx) AppendOrderItems(
	ctx context.Context,
	orderID int64,
	tableLabel string,
	items []domain.CartLine,
) error {
	const op = "postgres.submissionTx.AppendOrderItems"

	tag, err := t.db.Exec(ctx,
		`UPDATE orders
		 SET items = items || $2::jsonb, table_label = $3
		 WHERE id = $1`,
		orderID, itemsJSON(items), tableLabel,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

func (t *submissionTx) OpenTicket(ctx context.Context, orderID int64) (*domain.Ticket, error) {
	const op = "postgres.submissionTx.OpenTicket"

	var (
		tk       domain.Ticket
		rawItems []byte
	)
	err := t.db.QueryRow(ctx,
		`SELECT id, order_id, session_code, table_label, placed_at, items, status, batch_no
		 FROM order_tickets
		 WHERE order_id = $1 AND status = 'new'
		 ORDER BY id DESC
		 LIMIT 1`,
		orderID,
	).Scan(&tk.ID, &tk.OrderID, &tk.SessionCode, &tk.TableLabel,
		&tk.PlacedAt, &rawItems, &tk.Status, &tk.BatchNo)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	tk.Items = scanItems(rawItems)

	return &tk, nil
}

func (t *submissionTx) NextBatchNo(ctx context.Context, orderID int64) (int, error) {
	const op = "postgres.submissionTx.NextBatchNo"

	var max int
	err := t.db.QueryRow(ctx,
		`SELECT COALESCE(MAX(batch_no), 0) FROM order_tickets WHERE order_id = $1`,
		orderID,
	).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return max + 1, nil
}

func (t *submissionTx) CreateTicket(ctx context.Context, tk *domain.Ticket) (int64, error) {
	const op = "postgres.submissionTx.CreateTicket"

	var id int64
	err := t.db.QueryRow(ctx,
		`INSERT INTO order_tickets (order_id, session_code, table_label, placed_at, items, status, batch_no)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		tk.OrderID, tk.SessionCode, tk.TableLabel, tk.PlacedAt,
		itemsJSON(tk.Items), tk.Status, tk.BatchNo,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return id, nil
}

func (t *submissionTx) MergeTicket(
	ctx context.Context,
	ticketID int64,
	items []domain.CartLine,
	at time.Time,
) error {
	const op = "postgres.submissionTx.MergeTicket"

	tag, err := t.db.Exec(ctx,
		`UPDATE order_tickets
		 SET items = items || $2::jsonb, placed_at = $3
		 WHERE id = $1`,
		ticketID, itemsJSON(items), at,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

var _ repository.SubmissionTx = (*submissionTx)(nil)
var _ repository.Submissions = (*SubmissionRepo)(nil)
