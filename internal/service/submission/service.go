package submission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kyochen/tablecart/internal/clock"
	"github.com/kyochen/tablecart/internal/domain"
	redisx "github.com/kyochen/tablecart/internal/redis"
	"github.com/kyochen/tablecart/internal/repository"
	redisrepo "github.com/kyochen/tablecart/internal/repository/redis"
)

type Config struct {
	// CachedListLimits are the staff list page sizes whose cache
	// entries get dropped after every successful submission.
	CachedListLimits []int
	IdemLockTTL      time.Duration
}

type Service struct {
	subs  repository.Submissions
	cache *redisrepo.Cache
	idem  *redisrepo.IdempotencyStore
	clk   *clock.Clock
	cfg   Config
}

func New(
	subs repository.Submissions,
	cache *redisrepo.Cache,
	idem *redisrepo.IdempotencyStore,
	clk *clock.Clock,
	cfg Config,
) *Service {
	if len(cfg.CachedListLimits) == 0 {
		cfg.CachedListLimits = []int{200, 500}
	}

	if cfg.IdemLockTTL <= 0 {
		cfg.IdemLockTTL = 10 * time.Second
	}

	return &Service{
		subs:  subs,
		cache: cache,
		idem:  idem,
		clk:   clk,
		cfg:   cfg,
	}
}

// Submit folds the cart into the session's durable order. It resolves
// the bound order id (binding to the most recent legacy order, or
// creating a fresh header, when unbound), appends the lines to the
// header's cumulative history, and merges into the open "new" ticket
// or creates the next batch. All steps run in one serialized
// transaction so two concurrent submissions cannot both open a ticket.
//
// Returns:
//   - *domain.SubmitResult: order id, ticket id, batch number, merged flag.
//   - error: submission.ErrEmptyCart when there is nothing to submit.
//   - error: submission.ErrSessionNotFound when the session row does not exist.
func (s *Service) Submit(
	ctx context.Context,
	code, tableLabel string,
	lines []domain.CartLine,
) (*domain.SubmitResult, error) {
	const op = "service.submission.Submit"

	cart := domain.NormalizeCart(lines, clock.NewLineID)
	if len(cart) == 0 {
		return nil, fmt.Errorf("%s:%w", op, ErrEmptyCart)
	}

	now := s.clk.Now()

	var res domain.SubmitResult
	err := s.subs.InTx(ctx, func(
		ctx context.Context,
		tx repository.SubmissionTx,
		after func(func(context.Context)),
	) error {
		orderID, err := s.resolveOrder(ctx, tx, code, tableLabel, now)
		if err != nil {
			return err
		}

		// The header is the cumulative history of every submission.
		if err := tx.AppendOrderItems(ctx, orderID, tableLabel, cart); err != nil {
			return err
		}

		open, err := tx.OpenTicket(ctx, orderID)
		switch {
		case err == nil:
			if err := tx.MergeTicket(ctx, open.ID, cart, now); err != nil {
				return err
			}
			res = domain.SubmitResult{
				OrderID:  orderID,
				TicketID: open.ID,
				BatchNo:  open.BatchNo,
				Merged:   true,
			}
		case errors.Is(err, repository.ErrNotFound):
			batchNo, err := tx.NextBatchNo(ctx, orderID)
			if err != nil {
				return err
			}

			ticketID, err := tx.CreateTicket(ctx, &domain.Ticket{
				OrderID:     orderID,
				SessionCode: code,
				TableLabel:  tableLabel,
				PlacedAt:    now,
				Items:       cart,
				Status:      domain.StatusNew,
				BatchNo:     batchNo,
			})
			if err != nil {
				return err
			}
			res = domain.SubmitResult{
				OrderID:  orderID,
				TicketID: ticketID,
				BatchNo:  batchNo,
				Merged:   false,
			}
		default:
			return err
		}

		if s.cache != nil {
			after(func(ctx context.Context) {
				_ = s.cache.InvalidateTickets(ctx, s.cfg.CachedListLimits...)
			})
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &res, nil
}

// resolveOrder returns the session's stable order identity: the bound
// id when present, else the most recent pre-existing order for the
// code (legacy data), else a freshly created header. Either way the
// binding is persisted so every later submission resolves to the same
// order.
func (s *Service) resolveOrder(
	ctx context.Context,
	tx repository.SubmissionTx,
	code, tableLabel string,
	now time.Time,
) (int64, error) {
	const op = "service.submission.resolveOrder"

	orderID, err := tx.SessionOrderID(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, fmt.Errorf("%s:%w", op, ErrSessionNotFound)
		}

		return 0, err
	}

	if orderID != 0 {
		return orderID, nil
	}

	orderID, err = tx.LatestOrderID(ctx, code)
	if err != nil {
		return 0, err
	}

	if orderID == 0 {
		orderID, err = tx.CreateOrder(ctx, &domain.Order{
			SessionCode: code,
			TableLabel:  tableLabel,
			PlacedAt:    now,
			Status:      domain.StatusNew,
		})
		if err != nil {
			return 0, err
		}
	}

	if err := tx.BindOrder(ctx, code, orderID); err != nil {
		return 0, err
	}

	return orderID, nil
}

// SubmitIdempotent wraps Submit with an Idempotency-Key replay store:
// a repeated key returns the originally stored result without touching
// the order again. An empty key submits directly.
func (s *Service) SubmitIdempotent(
	ctx context.Context,
	code, tableLabel string,
	lines []domain.CartLine,
	idemKey string,
) (*domain.SubmitResult, error) {
	const op = "service.submission.SubmitIdempotent"

	if s.idem == nil || idemKey == "" {
		return s.Submit(ctx, code, tableLabel, lines)
	}

	key := redisx.KeyIdemSubmit(code, idemKey)

	if payload, ok, err := s.idem.GetResult(ctx, key); err == nil && ok {
		return decodeResult(payload)
	}

	locked, err := s.idem.AcquireLock(ctx, key, s.cfg.IdemLockTTL)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	if !locked {
		// Lost the race: either a result landed in the meantime or the
		// first request is still running.
		if payload, ok, err := s.idem.GetResult(ctx, key); err == nil && ok {
			return decodeResult(payload)
		}
		return nil, fmt.Errorf("%s:%w", op, ErrInFlight)
	}

	res, err := s.Submit(ctx, code, tableLabel, lines)
	if err != nil {
		_ = s.idem.Release(ctx, key)
		return nil, err
	}

	if payload, merr := json.Marshal(res); merr == nil {
		_ = s.idem.SaveResult(ctx, key, string(payload))
	}

	return res, nil
}

func decodeResult(payload string) (*domain.SubmitResult, error) {
	var res domain.SubmitResult
	if err := json.Unmarshal([]byte(payload), &res); err != nil {
		return nil, err
	}

	return &res, nil
}
