package live

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kyochen/tablecart/internal/domain"
	"github.com/kyochen/tablecart/internal/room"
	submissionsvc "github.com/kyochen/tablecart/internal/service/submission"
)

// Command types accepted by Dispatch.
const (
	CmdSetNickname   = "set_nickname"
	CmdLockLine      = "lock_line"
	CmdUnlockLine    = "unlock_line"
	CmdCartAdd       = "cart_add"
	CmdCartSetQty    = "cart_set_qty"
	CmdCartSetRemark = "cart_set_remark"
	CmdCartRemove    = "cart_remove"
	CmdSubmit        = "submit"
	CmdOrderDetail   = "order_detail"
)

// Command is one client request against a session. ConnID identifies
// the issuing connection (from the hello event of its stream).
type Command struct {
	ConnID   string           `json:"connId"`
	Type     string           `json:"type"`
	Nickname string           `json:"nickname,omitempty"`
	LineID   string           `json:"lineId,omitempty"`
	Qty      int              `json:"qty,omitempty"`
	Remark   string           `json:"remark,omitempty"`
	Line     *domain.CartLine `json:"item,omitempty"`
	Table    string           `json:"table,omitempty"`
	IdemKey  string           `json:"-"`
}

// Result is the caller-only answer to a command. Rejections carry the
// rejection kind and reason; they are never broadcast to the room, so
// one participant's bounced request cannot confuse the others.
type Result struct {
	OK     bool   `json:"ok"`
	Event  string `json:"event,omitempty"`
	Reason string `json:"reason,omitempty"`
	LineID string `json:"lineId,omitempty"`
	ByName string `json:"byName,omitempty"`
	Data   any    `json:"data,omitempty"`
}

func okResult() *Result { return &Result{OK: true} }

func opRejected(reason string) *Result {
	return &Result{OK: false, Event: "op_rejected", Reason: reason}
}

func lockDenied(lineID, holder string) *Result {
	return &Result{OK: false, Event: "lock_denied", LineID: lineID, ByName: holder}
}

// Dispatch runs one command under the session's mutex. Hard failures
// (storage, unknown command, inactive session) come back as errors;
// domain rejections come back as ok=false results.
func (s *Service) Dispatch(ctx context.Context, code string, cmd Command) (*Result, error) {
	if s.metrics != nil {
		start := time.Now()
		defer func() {
			s.metrics.CommandLatencySec.Observe(time.Since(start).Seconds())
		}()
	}

	mu := s.sessionLock(code)
	mu.Lock()
	defer mu.Unlock()

	res, err := s.dispatch(ctx, code, cmd)
	if err == nil && res != nil && !res.OK && s.metrics != nil {
		s.metrics.CommandsRejected.Inc()
	}

	return res, err
}

func (s *Service) dispatch(ctx context.Context, code string, cmd Command) (*Result, error) {
	switch cmd.Type {
	case CmdSetNickname:
		return s.setNickname(ctx, code, cmd)
	case CmdLockLine:
		return s.lockLine(code, cmd)
	case CmdUnlockLine:
		return s.unlockLine(code, cmd)
	case CmdCartAdd:
		return s.cartAdd(ctx, code, cmd)
	case CmdCartSetQty, CmdCartSetRemark, CmdCartRemove:
		return s.cartEditLine(ctx, code, cmd)
	case CmdSubmit:
		return s.submitCart(ctx, code, cmd)
	case CmdOrderDetail:
		return s.orderDetail(ctx, code)
	}

	return nil, fmt.Errorf("service.live.Dispatch:%w: %q", ErrUnknownCommand, cmd.Type)
}

func (s *Service) setNickname(ctx context.Context, code string, cmd Command) (*Result, error) {
	name := domain.NormalizeNickname(cmd.Nickname)
	if !s.registry.SetNickname(code, cmd.ConnID, name) {
		return opRejected("unknown connection"), nil
	}

	if err := s.broadcastState(ctx, code); err != nil {
		return nil, err
	}

	return okResult(), nil
}

func (s *Service) lockLine(code string, cmd Command) (*Result, error) {
	if cmd.LineID == "" {
		return opRejected("missing lineId"), nil
	}

	name := domain.NormalizeNickname(cmd.Nickname)
	ok, holder := s.registry.Lock(code, cmd.LineID, cmd.ConnID, name)
	if !ok {
		return lockDenied(cmd.LineID, holder), nil
	}

	s.hub.Publish(code, room.Event{
		Name: EventLockUpdate,
		Data: lockPayload{LineID: cmd.LineID, ByName: name},
	})

	return okResult(), nil
}

func (s *Service) unlockLine(code string, cmd Command) (*Result, error) {
	if cmd.LineID == "" {
		return opRejected("missing lineId"), nil
	}

	// Only the holder may release; anything else is a silent no-op.
	if !s.registry.Unlock(code, cmd.LineID, cmd.ConnID) {
		return okResult(), nil
	}

	s.hub.Publish(code, room.Event{
		Name: EventLockRemove,
		Data: lockPayload{LineID: cmd.LineID},
	})

	return okResult(), nil
}

func (s *Service) cartAdd(ctx context.Context, code string, cmd Command) (*Result, error) {
	if cmd.Line == nil {
		return opRejected("missing item"), nil
	}

	if err := s.cart.RequireActive(ctx, code); err != nil {
		return nil, err
	}

	cart, err := s.cart.GetCart(ctx, code)
	if err != nil {
		return nil, err
	}

	if _, err := s.cart.SaveCart(ctx, code, append(cart, *cmd.Line)); err != nil {
		return nil, err
	}

	if err := s.broadcastState(ctx, code); err != nil {
		return nil, err
	}

	return okResult(), nil
}

// cartEditLine covers the three line-scoped edits. They share the
// same gate: the line must exist and must not be locked by another
// live connection.
func (s *Service) cartEditLine(ctx context.Context, code string, cmd Command) (*Result, error) {
	if cmd.LineID == "" {
		return opRejected("missing lineId"), nil
	}

	if holder := s.registry.Blocker(code, cmd.LineID, cmd.ConnID); holder != "" {
		return opRejected("locked by " + holder), nil
	}

	if err := s.cart.RequireActive(ctx, code); err != nil {
		return nil, err
	}

	cart, err := s.cart.GetCart(ctx, code)
	if err != nil {
		return nil, err
	}

	idx := domain.FindLine(cart, cmd.LineID)
	if idx < 0 {
		return opRejected("line not found"), nil
	}

	switch cmd.Type {
	case CmdCartSetQty:
		qty := cmd.Qty
		if qty < 1 {
			qty = 1
		}
		cart[idx].Qty = domain.Amount(qty)
	case CmdCartSetRemark:
		cart[idx].Remark = strings.TrimSpace(cmd.Remark)
	case CmdCartRemove:
		cart = append(cart[:idx], cart[idx+1:]...)
		if s.registry.ReleaseLine(code, cmd.LineID) {
			s.hub.Publish(code, room.Event{
				Name: EventLockRemove,
				Data: lockPayload{LineID: cmd.LineID},
			})
		}
	}

	if _, err := s.cart.SaveCart(ctx, code, cart); err != nil {
		return nil, err
	}

	if err := s.broadcastState(ctx, code); err != nil {
		return nil, err
	}

	return okResult(), nil
}

func (s *Service) submitCart(ctx context.Context, code string, cmd Command) (*Result, error) {
	if err := s.cart.RequireActive(ctx, code); err != nil {
		return nil, err
	}

	cart, err := s.cart.GetCart(ctx, code)
	if err != nil {
		return nil, err
	}

	res, err := s.submit.SubmitIdempotent(ctx, code, cmd.Table, cart, cmd.IdemKey)
	if err != nil {
		if errors.Is(err, submissionsvc.ErrEmptyCart) {
			return opRejected("cart empty"), nil
		}

		return nil, err
	}

	if _, err := s.cart.SaveCart(ctx, code, nil); err != nil {
		return nil, err
	}

	for _, lineID := range s.registry.ClearLocks(code) {
		s.hub.Publish(code, room.Event{
			Name: EventLockRemove,
			Data: lockPayload{LineID: lineID},
		})
	}

	if s.metrics != nil {
		s.metrics.Submissions.Inc()
		if res.Merged {
			s.metrics.SubmissionsMerged.Inc()
		}
	}

	// The room sees the refreshed order detail and the now-empty cart;
	// the submit result itself goes only to the caller.
	if view, derr := s.OrderDetail(ctx, code); derr == nil {
		s.hub.Publish(code, room.Event{
			Name: EventOrderDetail,
			Data: orderDetailPayload{OK: true, Exists: view != nil, Order: view},
		})
	}

	if err := s.broadcastState(ctx, code); err != nil {
		return nil, err
	}

	return &Result{OK: true, Data: res}, nil
}

func (s *Service) orderDetail(ctx context.Context, code string) (*Result, error) {
	view, err := s.OrderDetail(ctx, code)
	if err != nil {
		return nil, err
	}

	return &Result{
		OK:   true,
		Data: orderDetailPayload{OK: true, Exists: view != nil, Order: view},
	}, nil
}
