package domain

import (
	"bytes"
	"strconv"
	"time"
)

// Status is the staff-facing lifecycle of an order or ticket.
type Status string

const (
	StatusNew       Status = "new"
	StatusMaking    Status = "making"
	StatusDone      Status = "done"
	StatusCancelled Status = "cancelled"
)

// ValidStatus reports whether s is one of the four known states.
func ValidStatus(s Status) bool {
	switch s {
	case StatusNew, StatusMaking, StatusDone, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether a ticket may move from one status to
// the target. done and cancelled are terminal; cancelled is reachable
// only from new or making.
func CanTransition(from, to Status) bool {
	if !ValidStatus(to) {
		return false
	}
	switch from {
	case StatusNew:
		return to == StatusMaking || to == StatusDone || to == StatusCancelled
	case StatusMaking:
		return to == StatusDone || to == StatusCancelled
	}
	return false
}

// Amount is an integer in minor currency units. It tolerates sloppy
// client payloads: JSON numbers, numeric strings, null, and floats all
// decode, and anything unparseable decodes to 0 instead of erroring.
type Amount int

func (a *Amount) UnmarshalJSON(b []byte) error {
	s := string(bytes.Trim(bytes.TrimSpace(b), `"`))
	if s == "" || s == "null" {
		*a = 0
		return nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		*a = Amount(n)
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		*a = Amount(int(f))
		return nil
	}
	*a = 0
	return nil
}

// AddOn is one extra attached to a cart line.
type AddOn struct {
	Key   string `json:"key"`
	Name  string `json:"name"`
	Price Amount `json:"price"`
}

// CartLine is one entry in a session's shared cart. The JSON shape is
// the wire and storage contract for cart and ticket item documents.
type CartLine struct {
	LineID   string  `json:"lineId"`
	Name     string  `json:"name"`
	EnName   string  `json:"enName,omitempty"`
	Price    Amount  `json:"price"`
	Qty      Amount  `json:"qty"`
	Remark   string  `json:"remark"`
	Temp     string  `json:"temp,omitempty"`
	AddOns   []AddOn `json:"addOns"`
	AddedBy  string  `json:"addedBy,omitempty"`
	Category string  `json:"category,omitempty"`
}

// Session is one table's shared ordering session. A zero OrderID means
// no order has been bound yet.
type Session struct {
	Code      string
	Cart      []CartLine
	CreatedAt time.Time
	ExpiresAt time.Time
	UpdatedAt time.Time
	OrderID   int64
}

// ActiveAt reports whether the session has not yet expired at t.
func (s *Session) ActiveAt(t time.Time) bool {
	return !s.ExpiresAt.IsZero() && t.Before(s.ExpiresAt)
}

// Order is the durable cumulative record of everything submitted under
// one session code. Items are the append-only full history.
type Order struct {
	ID          int64
	SessionCode string
	TableLabel  string
	PlacedAt    time.Time
	Items       []CartLine
	Status      Status
}

// Ticket is one kitchen-facing batch of submitted items.
type Ticket struct {
	ID          int64
	OrderID     int64
	SessionCode string
	TableLabel  string
	PlacedAt    time.Time
	Items       []CartLine
	Status      Status
	BatchNo     int
}

// SubmitResult describes the outcome of folding a cart into the order
// and ticket store.
type SubmitResult struct {
	OrderID  int64 `json:"orderId"`
	TicketID int64 `json:"ticketId"`
	BatchNo  int   `json:"batchNo"`
	Merged   bool  `json:"merged"`
}

// CallState is the singleton "currently being called" announcement.
type CallState struct {
	Code      string `json:"code"`
	UpdatedAt int64  `json:"updatedAt"`
}

// SoldOutEntry marks one menu position as unavailable.
type SoldOutEntry struct {
	CategoryIdx int
	ItemIdx     int
}

// InventoryItem is a stocked menu position. CategoryIdx/ItemIdx may be
// nil for items that do not map onto a menu cell.
type InventoryItem struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	CategoryIdx *int   `json:"categoryIdx"`
	ItemIdx     *int   `json:"itemIdx"`
	Stock       int    `json:"stock"`
	SoldOut     bool   `json:"soldout"`
}
