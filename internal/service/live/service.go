// Package live is the coordination point for every connection-scoped
// operation on a session: presence, advisory line locks, shared cart
// edits, and submission. All mutations for one session funnel through
// a per-session mutex so read-modify-write cycles on the shared cart
// cannot lose updates, and every accepted mutation ends with a full
// state snapshot pushed to the room.
package live

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kyochen/tablecart/internal/clock"
	"github.com/kyochen/tablecart/internal/domain"
	"github.com/kyochen/tablecart/internal/metrics"
	"github.com/kyochen/tablecart/internal/repository"
	"github.com/kyochen/tablecart/internal/room"
	cartsvc "github.com/kyochen/tablecart/internal/service/cart"
	submissionsvc "github.com/kyochen/tablecart/internal/service/submission"
)

// Event names pushed over a session stream.
const (
	EventHello       = "hello"
	EventState       = "session_state"
	EventLockUpdate  = "lock_update"
	EventLockRemove  = "lock_remove"
	EventOrderDetail = "order_detail_result"
	EventCallUpdate  = "call_update"
)

type Service struct {
	cart     *cartsvc.Service
	submit   *submissionsvc.Service
	sessions repository.Sessions
	orders   repository.Orders
	registry *room.Registry
	hub      *room.Hub
	clk      *clock.Clock
	metrics  *metrics.Registry

	mu        sync.Mutex
	sessionMu map[string]*sync.Mutex
}

func New(
	cart *cartsvc.Service,
	submit *submissionsvc.Service,
	sessions repository.Sessions,
	orders repository.Orders,
	registry *room.Registry,
	hub *room.Hub,
	clk *clock.Clock,
	m *metrics.Registry,
) *Service {
	s := &Service{
		cart:      cart,
		submit:    submit,
		sessions:  sessions,
		orders:    orders,
		registry:  registry,
		hub:       hub,
		clk:       clk,
		metrics:   m,
		sessionMu: make(map[string]*sync.Mutex),
	}

	if m != nil {
		hub.OnDrop = func(session, connID string) {
			m.DroppedEvents.Inc()
		}
	}

	return s
}

// sessionLock serializes cart read-modify-write cycles per session.
func (s *Service) sessionLock(code string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	mu, ok := s.sessionMu[code]
	if !ok {
		mu = &sync.Mutex{}
		s.sessionMu[code] = mu
	}
	return mu
}

// StateSnapshot is the full room view pushed after every accepted
// mutation. A full push, not a diff: carts are small and convergence
// beats bandwidth here.
type StateSnapshot struct {
	SessionCode string                   `json:"sessionId"`
	Cart        []domain.CartLine        `json:"cart"`
	Total       int                      `json:"total"`
	Users       []room.User              `json:"users"`
	Locks       map[string]room.LockView `json:"locks"`
}

type helloPayload struct {
	ConnID string `json:"connId"`
}

type lockPayload struct {
	LineID string `json:"lineId"`
	ByName string `json:"byName,omitempty"`
}

// Join attaches a connection to a session's stream. Strict: unknown
// and expired sessions are rejected with cart.ErrSessionNotFound
// rather than fabricated. The returned channel carries a hello event
// first, then state snapshots.
func (s *Service) Join(ctx context.Context, code, connID, nickname string) (<-chan room.Event, error) {
	const op = "service.live.Join"

	if err := s.cart.RequireActive(ctx, code); err != nil {
		return nil, err
	}

	ch := s.hub.Attach(code, connID)
	s.registry.Join(code, connID, domain.NormalizeNickname(nickname))

	s.hub.PublishTo(code, connID, room.Event{
		Name: EventHello,
		Data: helloPayload{ConnID: connID},
	})

	// Presence never expires on its own, so a failed join must not
	// leave the connection registered.
	if err := s.broadcastState(ctx, code); err != nil {
		s.registry.Leave(code, connID)
		s.hub.Detach(code, connID)
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if s.metrics != nil {
		s.metrics.ActiveStreams.Inc()
	}

	return ch, nil
}

// Leave cleans up after a disconnected connection: every lock it held
// is released and announced individually, then the remaining room
// members get a fresh snapshot.
func (s *Service) Leave(ctx context.Context, code, connID string) {
	released := s.registry.Leave(code, connID)
	for _, lineID := range released {
		s.hub.Publish(code, room.Event{
			Name: EventLockRemove,
			Data: lockPayload{LineID: lineID},
		})
	}

	s.hub.Detach(code, connID)

	if s.metrics != nil {
		s.metrics.ActiveStreams.Dec()
	}

	// Best effort: the room should converge even if this read fails.
	_ = s.broadcastState(ctx, code)
}

func (s *Service) broadcastState(ctx context.Context, code string) error {
	cart, err := s.cart.GetCart(ctx, code)
	if err != nil {
		return err
	}

	s.hub.Publish(code, room.Event{
		Name: EventState,
		Data: StateSnapshot{
			SessionCode: code,
			Cart:        cart,
			Total:       s.cart.ComputeTotal(cart),
			Users:       s.registry.Users(code),
			Locks:       s.registry.Locks(code),
		},
	})

	if s.metrics != nil {
		s.metrics.Broadcasts.Inc()
	}

	return nil
}

// OrderView is the customer-facing merged order detail.
type OrderView struct {
	ID          int64             `json:"id"`
	SessionCode string            `json:"sessionId"`
	TableLabel  string            `json:"tableNo"`
	Time        string            `json:"time"`
	Status      domain.Status     `json:"status"`
	Items       []domain.CartLine `json:"items"`
	Total       int               `json:"total"`
	Timestamp   int64             `json:"timestamp"`
}

// OrderDetail resolves the session's bound order. Sessions touched
// before order binding existed are pinned to their most recent order
// on first read, so the displayed order number never changes again.
func (s *Service) OrderDetail(ctx context.Context, code string) (*OrderView, error) {
	const op = "service.live.OrderDetail"

	sess, err := s.sessions.Get(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	orderID := sess.OrderID
	if orderID == 0 {
		orderID, err = s.orders.LatestIDForSession(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		if orderID == 0 {
			return nil, nil
		}

		if err := s.sessions.BindOrder(ctx, code, orderID); err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
	}

	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	items := domain.NormalizeCart(o.Items, clock.NewLineID)

	return &OrderView{
		ID:          o.ID,
		SessionCode: o.SessionCode,
		TableLabel:  o.TableLabel,
		Time:        s.clk.Format(o.PlacedAt),
		Status:      o.Status,
		Items:       items,
		Total:       domain.CartTotal(items),
		Timestamp:   o.PlacedAt.UnixMilli(),
	}, nil
}

type orderDetailPayload struct {
	OK     bool       `json:"ok"`
	Exists bool       `json:"exists"`
	Order  *OrderView `json:"order"`
}
