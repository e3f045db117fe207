package postgres

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS sessions (
		code        text PRIMARY KEY,
		cart        jsonb NOT NULL DEFAULT '[]',
		created_at  timestamptz NOT NULL,
		expires_at  timestamptz NOT NULL,
		updated_at  timestamptz NOT NULL,
		order_id    bigint
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id           bigserial PRIMARY KEY,
		session_code text NOT NULL,
		table_label  text NOT NULL DEFAULT '',
		placed_at    timestamptz NOT NULL,
		items        jsonb NOT NULL DEFAULT '[]',
		status       text NOT NULL DEFAULT 'new'
	)`,
	`CREATE INDEX IF NOT EXISTS orders_session_code_idx
		ON orders (session_code, id DESC)`,
	`CREATE TABLE IF NOT EXISTS order_tickets (
		id           bigserial PRIMARY KEY,
		order_id     bigint NOT NULL REFERENCES orders(id),
		session_code text NOT NULL,
		table_label  text NOT NULL DEFAULT '',
		placed_at    timestamptz NOT NULL,
		items        jsonb NOT NULL DEFAULT '[]',
		status       text NOT NULL DEFAULT 'new',
		batch_no     int NOT NULL DEFAULT 1
	)`,
	`CREATE INDEX IF NOT EXISTS order_tickets_order_id_idx
		ON order_tickets (order_id, id DESC)`,
	`CREATE TABLE IF NOT EXISTS call_state (
		id         int PRIMARY KEY CHECK (id = 1),
		code       text NOT NULL DEFAULT '',
		updated_at bigint NOT NULL DEFAULT 0
	)`,
	`INSERT INTO call_state (id, code, updated_at)
		VALUES (1, '', 0)
		ON CONFLICT (id) DO NOTHING`,
	`CREATE TABLE IF NOT EXISTS soldout (
		category_idx int NOT NULL,
		item_idx     int NOT NULL,
		updated_at   timestamptz,
		PRIMARY KEY (category_idx, item_idx)
	)`,
	`CREATE TABLE IF NOT EXISTS inventory (
		id           bigserial PRIMARY KEY,
		name         text NOT NULL,
		category     text NOT NULL DEFAULT '',
		category_idx int,
		item_idx     int,
		stock        int NOT NULL DEFAULT 0,
		updated_at   timestamptz
	)`,
}

// Migrate applies the idempotent schema at startup.
func (s *Store) Migrate(ctx context.Context) error {
	const op = "postgres.Store.Migrate"

	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}
	}

	return nil
}
