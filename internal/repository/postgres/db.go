package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kyochen/tablecart/internal/uow"
)

type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool: pool,
	}
}

func (s *Store) Sessions() *SessionRepo { return &SessionRepo{pool: s.pool} }

func (s *Store) Orders() *OrderRepo { return &OrderRepo{pool: s.pool} }

func (s *Store) Tickets() *TicketRepo { return &TicketRepo{pool: s.pool} }

func (s *Store) Submissions() *SubmissionRepo {
	return &SubmissionRepo{store: s, u: uow.NewUoW(s.pool)}
}

func (s *Store) CallStates() *CallStateRepo { return &CallStateRepo{pool: s.pool} }

func (s *Store) SoldOut() *SoldOutRepo { return &SoldOutRepo{pool: s.pool} }

func (s *Store) Inventory() *InventoryRepo { return &InventoryRepo{pool: s.pool} }
