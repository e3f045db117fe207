package call

import (
	"context"
	"errors"
	"fmt"

	"github.com/kyochen/tablecart/internal/clock"
	"github.com/kyochen/tablecart/internal/domain"
	redisx "github.com/kyochen/tablecart/internal/redis"
	"github.com/kyochen/tablecart/internal/repository"
)

// Service owns the singleton "currently being called" code. Announce
// persists it and publishes a call_update on the redis channel; the
// app-level subscriber fans that out to every connected stream.
type Service struct {
	states repository.CallStates
	pubsub *redisx.CallPubSub
	clk    *clock.Clock
}

func New(states repository.CallStates, pubsub *redisx.CallPubSub, clk *clock.Clock) *Service {
	return &Service{
		states: states,
		pubsub: pubsub,
		clk:    clk,
	}
}

// Set validates the code's shape and announces it. Shape validation
// happens only here at the staff-facing boundary; internal callers
// announce session codes that are well-formed by construction.
func (s *Service) Set(ctx context.Context, code string) error {
	const op = "service.call.Set"

	if !validCode(code) {
		return fmt.Errorf("%s:%w", op, ErrBadCode)
	}

	return s.Announce(ctx, code)
}

// Announce stores the code with the current timestamp and publishes
// the update. Publish failures are not fatal: the durable state is
// already correct and pollers converge on the next read.
func (s *Service) Announce(ctx context.Context, code string) error {
	const op = "service.call.Announce"

	ts := s.clk.Now().UnixMilli()

	if err := s.states.Set(ctx, code, ts); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if s.pubsub != nil {
		_ = s.pubsub.PublishCallUpdate(ctx, code, ts)
	}

	return nil
}

// Get returns the current announcement, zero-valued when nothing has
// been called yet.
func (s *Service) Get(ctx context.Context) (*domain.CallState, error) {
	const op = "service.call.Get"

	st, err := s.states.Get(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &domain.CallState{}, nil
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return st, nil
}

func validCode(code string) bool {
	if len(code) != 4 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
