package live

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kyochen/tablecart/internal/clock"
	"github.com/kyochen/tablecart/internal/domain"
	"github.com/kyochen/tablecart/internal/repository"
	"github.com/kyochen/tablecart/internal/room"
	cartsvc "github.com/kyochen/tablecart/internal/service/cart"
	submissionsvc "github.com/kyochen/tablecart/internal/service/submission"
)

var testTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// memSessions is a map-backed Sessions store shared by the cart and
// live layers in these tests.
type memSessions struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
}

func newMemSessions(codes ...string) *memSessions {
	s := &memSessions{sessions: make(map[string]*domain.Session)}
	for _, c := range codes {
		s.sessions[c] = &domain.Session{
			Code:      c,
			Cart:      []domain.CartLine{},
			ExpiresAt: testTime.Add(time.Hour),
		}
	}
	return s
}

func (s *memSessions) Get(ctx context.Context, code string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[code]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *sess
	cp.Cart = append([]domain.CartLine(nil), sess.Cart...)
	return &cp, nil
}

func (s *memSessions) Create(ctx context.Context, code string, now, expires time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[code] = &domain.Session{Code: code, Cart: []domain.CartLine{}, CreatedAt: now, ExpiresAt: expires}
	return nil
}

func (s *memSessions) Reset(ctx context.Context, code string, now, expires time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[code] = &domain.Session{Code: code, Cart: []domain.CartLine{}, CreatedAt: now, ExpiresAt: expires}
	return nil
}

func (s *memSessions) SaveCart(ctx context.Context, code string, cart []domain.CartLine, now, expires time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[code]
	if !ok {
		sess = &domain.Session{Code: code}
		s.sessions[code] = sess
	}
	sess.Cart = append([]domain.CartLine(nil), cart...)
	sess.UpdatedAt = now
	sess.ExpiresAt = expires
	return nil
}

func (s *memSessions) BindOrder(ctx context.Context, code string, orderID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[code]
	if !ok {
		return repository.ErrNotFound
	}
	sess.OrderID = orderID
	return nil
}

// flakySessions serves reads from the wrapped store until failFrom
// calls have been made, then fails every Get.
type flakySessions struct {
	*memSessions
	calls    int
	failFrom int
}

func (s *flakySessions) Get(ctx context.Context, code string) (*domain.Session, error) {
	s.calls++
	if s.calls >= s.failFrom {
		return nil, errors.New("session store unavailable")
	}
	return s.memSessions.Get(ctx, code)
}

type memOrders struct {
	orders map[int64]*domain.Order
}

func (m *memOrders) Get(ctx context.Context, id int64) (*domain.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memOrders) LatestIDForSession(ctx context.Context, code string) (int64, error) {
	var latest int64
	for id, o := range m.orders {
		if o.SessionCode == code && id > latest {
			latest = id
		}
	}
	return latest, nil
}

// memSubs mirrors the serialized-transaction contract over the same
// maps used by memOrders, so submit commands exercise the full path.
type memSubs struct {
	mu       sync.Mutex
	sessions *memSessions
	orders   *memOrders
	tickets  map[int64]*domain.Ticket
	nextID   int64
}

func (s *memSubs) InTx(
	ctx context.Context,
	fn func(ctx context.Context, tx repository.SubmissionTx, after func(func(context.Context))) error,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var hooks []func(context.Context)
	if err := fn(ctx, &memSubTx{s: s}, func(h func(context.Context)) {
		hooks = append(hooks, h)
	}); err != nil {
		return err
	}
	for _, h := range hooks {
		h(ctx)
	}
	return nil
}

type memSubTx struct {
	s *memSubs
}

func (t *memSubTx) SessionOrderID(ctx context.Context, code string) (int64, error) {
	sess, err := t.s.sessions.Get(ctx, code)
	if err != nil {
		return 0, err
	}
	return sess.OrderID, nil
}

func (t *memSubTx) BindOrder(ctx context.Context, code string, orderID int64) error {
	return t.s.sessions.BindOrder(ctx, code, orderID)
}

func (t *memSubTx) LatestOrderID(ctx context.Context, code string) (int64, error) {
	return t.s.orders.LatestIDForSession(ctx, code)
}

func (t *memSubTx) CreateOrder(ctx context.Context, o *domain.Order) (int64, error) {
	t.s.nextID++
	o.ID = t.s.nextID
	cp := *o
	t.s.orders.orders[o.ID] = &cp
	return o.ID, nil
}

func (t *memSubTx) AppendOrderItems(ctx context.Context, orderID int64, tableLabel string, items []domain.CartLine) error {
	o, ok := t.s.orders.orders[orderID]
	if !ok {
		return repository.ErrNotFound
	}
	o.Items = append(o.Items, items...)
	o.TableLabel = tableLabel
	return nil
}

func (t *memSubTx) OpenTicket(ctx context.Context, orderID int64) (*domain.Ticket, error) {
	var open *domain.Ticket
	for _, tk := range t.s.tickets {
		if tk.OrderID == orderID && tk.Status == domain.StatusNew {
			if open == nil || tk.ID > open.ID {
				open = tk
			}
		}
	}
	if open == nil {
		return nil, repository.ErrNotFound
	}
	cp := *open
	return &cp, nil
}

func (t *memSubTx) NextBatchNo(ctx context.Context, orderID int64) (int, error) {
	n := 0
	for _, tk := range t.s.tickets {
		if tk.OrderID == orderID && tk.BatchNo > n {
			n = tk.BatchNo
		}
	}
	return n + 1, nil
}

func (t *memSubTx) CreateTicket(ctx context.Context, tk *domain.Ticket) (int64, error) {
	t.s.nextID++
	tk.ID = t.s.nextID
	cp := *tk
	t.s.tickets[tk.ID] = &cp
	return tk.ID, nil
}

func (t *memSubTx) MergeTicket(ctx context.Context, ticketID int64, items []domain.CartLine, at time.Time) error {
	tk, ok := t.s.tickets[ticketID]
	if !ok {
		return repository.ErrNotFound
	}
	tk.Items = append(tk.Items, items...)
	tk.PlacedAt = at
	return nil
}

type fixture struct {
	svc      *Service
	sessions *memSessions
	registry *room.Registry
	hub      *room.Hub
}

func newFixture(t *testing.T, codes ...string) *fixture {
	t.Helper()

	sessions := newMemSessions(codes...)
	orders := &memOrders{orders: make(map[int64]*domain.Order)}
	subs := &memSubs{sessions: sessions, orders: orders, tickets: make(map[int64]*domain.Ticket)}

	clk := clock.NewFixed(testTime)
	cart := cartsvc.New(sessions, nil, clk, cartsvc.Config{})
	submit := submissionsvc.New(subs, nil, nil, clk, submissionsvc.Config{})

	registry := room.NewRegistry(12 * time.Second)
	hub := room.NewHub()

	return &fixture{
		svc:      New(cart, submit, sessions, orders, registry, hub, clk, nil),
		sessions: sessions,
		registry: registry,
		hub:      hub,
	}
}

// drain empties the buffered channel and returns everything read.
func drain(ch <-chan room.Event) []room.Event {
	var out []room.Event
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, ev)
		default:
			return out
		}
	}
}

func lastState(t *testing.T, evs []room.Event) StateSnapshot {
	t.Helper()
	for i := len(evs) - 1; i >= 0; i-- {
		if evs[i].Name == EventState {
			return evs[i].Data.(StateSnapshot)
		}
	}
	t.Fatal("no session_state event seen")
	return StateSnapshot{}
}

func TestJoin(t *testing.T) {
	t.Run("rejectsUnknownSession", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.Join(context.Background(), "0000", "c1", "amy")
		if !errors.Is(err, cartsvc.ErrSessionNotFound) {
			t.Fatalf("Join = %v, want ErrSessionNotFound", err)
		}
		if f.hub.ConnCount() != 0 {
			t.Errorf("ConnCount = %d after rejected join, want 0", f.hub.ConnCount())
		}
	})

	t.Run("snapshotFailureUnregisters", func(t *testing.T) {
		sessions := &flakySessions{memSessions: newMemSessions("1234"), failFrom: 2}
		orders := &memOrders{orders: make(map[int64]*domain.Order)}
		subs := &memSubs{sessions: sessions.memSessions, orders: orders, tickets: make(map[int64]*domain.Ticket)}

		clk := clock.NewFixed(testTime)
		cart := cartsvc.New(sessions, nil, clk, cartsvc.Config{})
		submit := submissionsvc.New(subs, nil, nil, clk, submissionsvc.Config{})
		registry := room.NewRegistry(12 * time.Second)
		hub := room.NewHub()
		svc := New(cart, submit, sessions, orders, registry, hub, clk, nil)

		_, err := svc.Join(context.Background(), "1234", "c1", "amy")
		if err == nil {
			t.Fatal("Join succeeded despite the snapshot read failing")
		}
		if n := hub.ConnCount(); n != 0 {
			t.Errorf("ConnCount = %d after failed join, want 0", n)
		}
		if users := registry.Users("1234"); len(users) != 0 {
			t.Errorf("users = %+v after failed join, want none", users)
		}
	})

	t.Run("helloThenSnapshot", func(t *testing.T) {
		f := newFixture(t, "1234")

		ch, err := f.svc.Join(context.Background(), "1234", "c1", "amy")
		if err != nil {
			t.Fatalf("Join: %v", err)
		}

		evs := drain(ch)
		if len(evs) < 2 {
			t.Fatalf("got %d events, want hello + state", len(evs))
		}
		if evs[0].Name != EventHello {
			t.Errorf("first event = %q, want hello", evs[0].Name)
		}
		if evs[0].Data.(helloPayload).ConnID != "c1" {
			t.Errorf("hello connId = %v, want c1", evs[0].Data)
		}
		st := lastState(t, evs)
		if len(st.Users) != 1 || st.Users[0].Nickname != "amy" {
			t.Errorf("users = %+v, want [amy]", st.Users)
		}
	})
}

func TestDispatchCartAdd(t *testing.T) {
	f := newFixture(t, "1234")
	ch, err := f.svc.Join(context.Background(), "1234", "c1", "amy")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	drain(ch)

	res, err := f.svc.Dispatch(context.Background(), "1234", Command{
		ConnID: "c1",
		Type:   CmdCartAdd,
		Line:   &domain.CartLine{Name: "Tea", Price: 30, Qty: 2, AddedBy: "amy"},
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !res.OK {
		t.Fatalf("res = %+v, want ok", res)
	}

	st := lastState(t, drain(ch))
	if len(st.Cart) != 1 || st.Cart[0].Name != "Tea" {
		t.Fatalf("cart = %+v, want one Tea line", st.Cart)
	}
	if st.Cart[0].LineID == "" {
		t.Error("expected the stored line to get an id")
	}
	if st.Total != 60 {
		t.Errorf("total = %d, want 60", st.Total)
	}

	sess, _ := f.sessions.Get(context.Background(), "1234")
	if len(sess.Cart) != 1 {
		t.Errorf("persisted cart has %d lines, want 1", len(sess.Cart))
	}
}

func TestDispatchLocking(t *testing.T) {
	f := newFixture(t, "1234")
	ch1, err := f.svc.Join(context.Background(), "1234", "c1", "amy")
	if err != nil {
		t.Fatalf("Join c1: %v", err)
	}
	ch2, err := f.svc.Join(context.Background(), "1234", "c2", "ben")
	if err != nil {
		t.Fatalf("Join c2: %v", err)
	}

	if _, err := f.svc.Dispatch(context.Background(), "1234", Command{
		ConnID: "c1",
		Type:   CmdCartAdd,
		Line:   &domain.CartLine{LineID: "l1", Name: "Tea", Price: 30, Qty: 1},
	}); err != nil {
		t.Fatalf("cart_add: %v", err)
	}
	drain(ch1)
	drain(ch2)

	t.Run("lockGrantBroadcasts", func(t *testing.T) {
		res, err := f.svc.Dispatch(context.Background(), "1234", Command{
			ConnID: "c1", Type: CmdLockLine, LineID: "l1", Nickname: "amy",
		})
		if err != nil {
			t.Fatalf("lock_line: %v", err)
		}
		if !res.OK {
			t.Fatalf("res = %+v, want granted", res)
		}

		evs := drain(ch2)
		found := false
		for _, ev := range evs {
			if ev.Name == EventLockUpdate && ev.Data.(lockPayload).LineID == "l1" {
				found = true
			}
		}
		if !found {
			t.Error("other member never saw lock_update")
		}
		drain(ch1)
	})

	t.Run("secondLockDenied", func(t *testing.T) {
		res, err := f.svc.Dispatch(context.Background(), "1234", Command{
			ConnID: "c2", Type: CmdLockLine, LineID: "l1", Nickname: "ben",
		})
		if err != nil {
			t.Fatalf("lock_line: %v", err)
		}
		if res.OK || res.Event != "lock_denied" || res.ByName != "amy" {
			t.Fatalf("res = %+v, want lock_denied by amy", res)
		}
	})

	t.Run("editByNonHolderRejectedAndCartUnchanged", func(t *testing.T) {
		res, err := f.svc.Dispatch(context.Background(), "1234", Command{
			ConnID: "c2", Type: CmdCartSetQty, LineID: "l1", Qty: 5,
		})
		if err != nil {
			t.Fatalf("cart_set_qty: %v", err)
		}
		if res.OK || res.Event != "op_rejected" {
			t.Fatalf("res = %+v, want op_rejected", res)
		}

		sess, _ := f.sessions.Get(context.Background(), "1234")
		if sess.Cart[0].Qty != 1 {
			t.Errorf("qty = %d after rejected edit, want 1", sess.Cart[0].Qty)
		}
	})

	t.Run("holderEditsThroughOwnLock", func(t *testing.T) {
		res, err := f.svc.Dispatch(context.Background(), "1234", Command{
			ConnID: "c1", Type: CmdCartSetQty, LineID: "l1", Qty: 3,
		})
		if err != nil {
			t.Fatalf("cart_set_qty: %v", err)
		}
		if !res.OK {
			t.Fatalf("res = %+v, want ok", res)
		}

		sess, _ := f.sessions.Get(context.Background(), "1234")
		if sess.Cart[0].Qty != 3 {
			t.Errorf("qty = %d, want 3", sess.Cart[0].Qty)
		}
	})

	t.Run("nonHolderUnlockIsNoop", func(t *testing.T) {
		if _, err := f.svc.Dispatch(context.Background(), "1234", Command{
			ConnID: "c2", Type: CmdUnlockLine, LineID: "l1",
		}); err != nil {
			t.Fatalf("unlock_line: %v", err)
		}
		if holder := f.registry.Blocker("1234", "l1", "c2"); holder != "amy" {
			t.Errorf("blocker = %q after foreign unlock, want amy", holder)
		}
	})

	t.Run("removeReleasesLock", func(t *testing.T) {
		drain(ch2)
		res, err := f.svc.Dispatch(context.Background(), "1234", Command{
			ConnID: "c1", Type: CmdCartRemove, LineID: "l1",
		})
		if err != nil {
			t.Fatalf("cart_remove: %v", err)
		}
		if !res.OK {
			t.Fatalf("res = %+v, want ok", res)
		}

		sess, _ := f.sessions.Get(context.Background(), "1234")
		if len(sess.Cart) != 0 {
			t.Errorf("cart has %d lines after remove, want 0", len(sess.Cart))
		}

		sawRemove := false
		for _, ev := range drain(ch2) {
			if ev.Name == EventLockRemove && ev.Data.(lockPayload).LineID == "l1" {
				sawRemove = true
			}
		}
		if !sawRemove {
			t.Error("other member never saw lock_remove")
		}
	})
}

func TestDispatchSubmit(t *testing.T) {
	t.Run("emptyCartRejected", func(t *testing.T) {
		f := newFixture(t, "1234")

		res, err := f.svc.Dispatch(context.Background(), "1234", Command{ConnID: "c1", Type: CmdSubmit})
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
		if res.OK || res.Event != "op_rejected" {
			t.Fatalf("res = %+v, want op_rejected", res)
		}
	})

	t.Run("clearsCartAndLocks", func(t *testing.T) {
		f := newFixture(t, "1234")
		ch, err := f.svc.Join(context.Background(), "1234", "c1", "amy")
		if err != nil {
			t.Fatalf("Join: %v", err)
		}

		if _, err := f.svc.Dispatch(context.Background(), "1234", Command{
			ConnID: "c1", Type: CmdCartAdd,
			Line: &domain.CartLine{LineID: "l1", Name: "Tea", Price: 30, Qty: 1},
		}); err != nil {
			t.Fatalf("cart_add: %v", err)
		}
		if _, err := f.svc.Dispatch(context.Background(), "1234", Command{
			ConnID: "c1", Type: CmdLockLine, LineID: "l1", Nickname: "amy",
		}); err != nil {
			t.Fatalf("lock_line: %v", err)
		}
		drain(ch)

		res, err := f.svc.Dispatch(context.Background(), "1234", Command{
			ConnID: "c1", Type: CmdSubmit, Table: "A1",
		})
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
		if !res.OK {
			t.Fatalf("res = %+v, want ok", res)
		}

		sub, ok := res.Data.(*domain.SubmitResult)
		if !ok {
			t.Fatalf("Data = %T, want *domain.SubmitResult", res.Data)
		}
		if sub.BatchNo != 1 || sub.Merged {
			t.Errorf("result = %+v, want batch 1 unmerged", sub)
		}

		sess, _ := f.sessions.Get(context.Background(), "1234")
		if len(sess.Cart) != 0 {
			t.Errorf("cart has %d lines after submit, want 0", len(sess.Cart))
		}
		if sess.OrderID == 0 {
			t.Error("session must be bound to its order after submit")
		}
		if locks := f.registry.Locks("1234"); len(locks) != 0 {
			t.Errorf("locks = %v after submit, want none", locks)
		}

		evs := drain(ch)
		sawDetail := false
		for _, ev := range evs {
			if ev.Name == EventOrderDetail {
				sawDetail = true
			}
		}
		if !sawDetail {
			t.Error("room never saw order_detail_result")
		}
		st := lastState(t, evs)
		if len(st.Cart) != 0 {
			t.Errorf("broadcast cart = %+v, want empty", st.Cart)
		}
	})
}

func TestLeaveReleasesLocks(t *testing.T) {
	f := newFixture(t, "1234")
	ch1, err := f.svc.Join(context.Background(), "1234", "c1", "amy")
	if err != nil {
		t.Fatalf("Join c1: %v", err)
	}
	ch2, err := f.svc.Join(context.Background(), "1234", "c2", "ben")
	if err != nil {
		t.Fatalf("Join c2: %v", err)
	}

	if _, err := f.svc.Dispatch(context.Background(), "1234", Command{
		ConnID: "c1", Type: CmdCartAdd,
		Line: &domain.CartLine{LineID: "l1", Name: "Tea", Price: 30, Qty: 1},
	}); err != nil {
		t.Fatalf("cart_add: %v", err)
	}
	if _, err := f.svc.Dispatch(context.Background(), "1234", Command{
		ConnID: "c1", Type: CmdLockLine, LineID: "l1", Nickname: "amy",
	}); err != nil {
		t.Fatalf("lock_line: %v", err)
	}
	drain(ch1)
	drain(ch2)

	f.svc.Leave(context.Background(), "1234", "c1")

	if holder := f.registry.Blocker("1234", "l1", "c2"); holder != "" {
		t.Errorf("blocker = %q after leave, want released", holder)
	}

	evs := drain(ch2)
	sawRemove := false
	for _, ev := range evs {
		if ev.Name == EventLockRemove && ev.Data.(lockPayload).LineID == "l1" {
			sawRemove = true
		}
	}
	if !sawRemove {
		t.Error("remaining member never saw lock_remove")
	}
	st := lastState(t, evs)
	if len(st.Users) != 1 || st.Users[0].Nickname != "ben" {
		t.Errorf("users = %+v, want only ben", st.Users)
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	f := newFixture(t, "1234")

	_, err := f.svc.Dispatch(context.Background(), "1234", Command{ConnID: "c1", Type: "dance"})
	if !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("Dispatch = %v, want ErrUnknownCommand", err)
	}
}
