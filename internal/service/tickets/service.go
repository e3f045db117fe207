package tickets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kyochen/tablecart/internal/clock"
	"github.com/kyochen/tablecart/internal/domain"
	redisx "github.com/kyochen/tablecart/internal/redis"
	"github.com/kyochen/tablecart/internal/repository"
	redisrepo "github.com/kyochen/tablecart/internal/repository/redis"
)

// Announcer receives the owning session code when a ticket reaches
// done. Satisfied by the call service.
type Announcer interface {
	Announce(ctx context.Context, code string) error
}

type Config struct {
	DefaultLimit int
	MaxLimit     int
	ListTTL      time.Duration
}

type Service struct {
	tickets   repository.Tickets
	cache     *redisrepo.Cache
	announcer Announcer
	clk       *clock.Clock
	cfg       Config
}

func New(
	tickets repository.Tickets,
	cache *redisrepo.Cache,
	announcer Announcer,
	clk *clock.Clock,
	cfg Config,
) *Service {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 200
	}

	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = 500
	}

	if cfg.ListTTL <= 0 {
		cfg.ListTTL = 3 * time.Second
	}

	return &Service{
		tickets:   tickets,
		cache:     cache,
		announcer: announcer,
		clk:       clk,
		cfg:       cfg,
	}
}

// View is the staff panel's ticket summary shape.
type View struct {
	ID          int64             `json:"id"`
	OrderID     int64             `json:"orderId"`
	BatchNo     int               `json:"batchNo"`
	SessionCode string            `json:"sessionId"`
	TableLabel  string            `json:"tableNo"`
	Time        string            `json:"time"`
	Status      domain.Status     `json:"status"`
	Items       []domain.CartLine `json:"items"`
	Total       int               `json:"total"`
	Timestamp   int64             `json:"timestamp"`
}

// ListRecent returns the newest tickets first with computed totals.
// The result is cached briefly so a staff panel polling every second
// does not hammer the store.
func (s *Service) ListRecent(ctx context.Context, limit int) ([]View, error) {
	const op = "service.tickets.ListRecent"

	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}

	if limit > s.cfg.MaxLimit {
		limit = s.cfg.MaxLimit
	}

	if s.cache == nil {
		views, err := s.loadViews(ctx, limit)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		return views, nil
	}

	views, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisx.KeyTicketList(limit),
		s.cfg.ListTTL,
		func(ctx context.Context) ([]View, error) {
			return s.loadViews(ctx, limit)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return views, nil
}

func (s *Service) loadViews(ctx context.Context, limit int) ([]View, error) {
	list, err := s.tickets.ListRecent(ctx, limit)
	if err != nil {
		return nil, err
	}

	views := make([]View, 0, len(list))
	for _, t := range list {
		items := domain.NormalizeCart(t.Items, clock.NewLineID)
		views = append(views, View{
			ID:          t.ID,
			OrderID:     t.OrderID,
			BatchNo:     t.BatchNo,
			SessionCode: t.SessionCode,
			TableLabel:  t.TableLabel,
			Time:        s.clk.Format(t.PlacedAt),
			Status:      t.Status,
			Items:       items,
			Total:       domain.CartTotal(items),
			Timestamp:   t.PlacedAt.UnixMilli(),
		})
	}

	return views, nil
}

// UpdateStatus moves a ticket through the new → making → done
// lifecycle (cancelled from new or making; done and cancelled are
// terminal). The status value is validated before the ticket lookup,
// so a malformed value never reports not-found. Reaching done
// announces the ticket's session code.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status string) error {
	const op = "service.tickets.UpdateStatus"

	target := domain.Status(strings.ToLower(strings.TrimSpace(status)))
	if !domain.ValidStatus(target) {
		return fmt.Errorf("%s:%w", op, ErrInvalidStatus)
	}

	t, err := s.tickets.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%s:%w", op, ErrTicketNotFound)
		}

		return fmt.Errorf("%s:%w", op, err)
	}

	if !domain.CanTransition(t.Status, target) {
		return fmt.Errorf("%s:%w: %s -> %s", op, ErrInvalidTransition, t.Status, target)
	}

	if err := s.tickets.UpdateStatus(ctx, id, t.Status, target); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%s:%w", op, ErrTicketNotFound)
		}

		// The ticket moved between the read and the write, so the
		// transition we validated no longer applies.
		if errors.Is(err, repository.ErrConflict) {
			return fmt.Errorf("%s:%w", op, ErrInvalidTransition)
		}

		return fmt.Errorf("%s:%w", op, err)
	}

	if s.cache != nil {
		_ = s.cache.InvalidateTickets(ctx, s.cfg.DefaultLimit, s.cfg.MaxLimit)
	}

	if target == domain.StatusDone && s.announcer != nil {
		if err := s.announcer.Announce(ctx, t.SessionCode); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}
	}

	return nil
}
