// Package repository defines the durable store contracts the services
// are written against. The postgres subpackage provides the production
// implementation; tests substitute in-memory fakes.
package repository

import (
	"context"
	"time"

	"github.com/kyochen/tablecart/internal/domain"
)

// Sessions is the durable code -> cart snapshot mapping. Sessions are
// never deleted; they soft-expire and are reset in place.
type Sessions interface {
	// Get returns ErrNotFound for a code that has never been used.
	Get(ctx context.Context, code string) (*domain.Session, error)
	// Create inserts a fresh empty-cart session row.
	Create(ctx context.Context, code string, now, expires time.Time) error
	// Reset clears the cart, unbinds the order, and extends the expiry.
	Reset(ctx context.Context, code string, now, expires time.Time) error
	// SaveCart atomically replaces the cart and refreshes the expiry
	// window, creating the row if it does not exist.
	SaveCart(ctx context.Context, code string, cart []domain.CartLine, now, expires time.Time) error
	// BindOrder pins the session to its durable order identity.
	BindOrder(ctx context.Context, code string, orderID int64) error
}

// Orders reads order headers outside a submission transaction.
type Orders interface {
	Get(ctx context.Context, id int64) (*domain.Order, error)
	// LatestIDForSession returns the highest order id recorded for the
	// session code, or 0 when the session has no orders yet.
	LatestIDForSession(ctx context.Context, code string) (int64, error)
}

// Tickets is the staff-facing ticket ledger.
type Tickets interface {
	ListRecent(ctx context.Context, limit int) ([]domain.Ticket, error)
	Get(ctx context.Context, id int64) (*domain.Ticket, error)
	// UpdateStatus writes the new status only while the stored status
	// still equals from. A ticket that moved in between yields
	// ErrConflict, a missing ticket ErrNotFound.
	UpdateStatus(ctx context.Context, id int64, from, to domain.Status) error
}

// SubmissionTx is the transactional view the submission engine works
// through. Every method runs inside one storage transaction so that
// order binding, header append, and ticket merge commit or fail
// together.
type SubmissionTx interface {
	// SessionOrderID returns the order id bound to the session, 0 when
	// unbound, ErrNotFound when the session row does not exist.
	SessionOrderID(ctx context.Context, code string) (int64, error)
	BindOrder(ctx context.Context, code string, orderID int64) error
	// LatestOrderID returns the highest pre-existing order id for the
	// session code, or 0 when there is none.
	LatestOrderID(ctx context.Context, code string) (int64, error)
	CreateOrder(ctx context.Context, o *domain.Order) (int64, error)
	// AppendOrderItems appends to the header's cumulative item history
	// and refreshes the table label.
	AppendOrderItems(ctx context.Context, orderID int64, tableLabel string, items []domain.CartLine) error
	// OpenTicket returns the most recent ticket still in status new,
	// or ErrNotFound when no ticket for the order is open.
	OpenTicket(ctx context.Context, orderID int64) (*domain.Ticket, error)
	NextBatchNo(ctx context.Context, orderID int64) (int, error)
	CreateTicket(ctx context.Context, t *domain.Ticket) (int64, error)
	MergeTicket(ctx context.Context, ticketID int64, items []domain.CartLine, at time.Time) error
}

// Submissions runs a function inside one serialized transaction. The
// implementation must guarantee that two concurrent submissions for
// the same order cannot both observe "no open ticket". Hooks
// registered through after run exactly once, only after the
// transaction has committed; a retried attempt starts with an empty
// hook list.
type Submissions interface {
	InTx(
		ctx context.Context,
		fn func(ctx context.Context, tx SubmissionTx, after func(func(context.Context))) error,
	) error
}

// CallStates is the singleton announcement record.
type CallStates interface {
	Get(ctx context.Context) (*domain.CallState, error)
	Set(ctx context.Context, code string, updatedAt int64) error
}

// SoldOut is the (categoryIdx, itemIdx) unavailability set. The core
// stores these pairs without interpreting them.
type SoldOut interface {
	List(ctx context.Context) ([]domain.SoldOutEntry, error)
	// Replace swaps the whole set and returns how many rows were kept.
	Replace(ctx context.Context, entries []domain.SoldOutEntry, at time.Time) (int, error)
}

// Inventory tracks stock per menu position and keeps the soldout set
// in sync: stock dropping to zero marks the position, restocking
// clears it.
type Inventory interface {
	List(ctx context.Context) ([]domain.InventoryItem, error)
	SetStock(ctx context.Context, id int64, stock int, at time.Time) (int, error)
	AddStock(ctx context.Context, id int64, delta int, at time.Time) (int, error)
}
