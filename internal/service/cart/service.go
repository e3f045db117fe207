package cart

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/kyochen/tablecart/internal/clock"
	"github.com/kyochen/tablecart/internal/domain"
	"github.com/kyochen/tablecart/internal/repository"
	redisrepo "github.com/kyochen/tablecart/internal/repository/redis"
)

type Config struct {
	SessionTTL   time.Duration
	CodeAttempts int
}

type Service struct {
	sessions repository.Sessions
	limiter  *redisrepo.SlidingWindowLimiter
	clk      *clock.Clock
	cfg      Config

	// randCode is swapped out in tests for a deterministic sequence.
	randCode func() string
}

func New(
	sessions repository.Sessions,
	limiter *redisrepo.SlidingWindowLimiter,
	clk *clock.Clock,
	cfg Config,
) *Service {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}

	if cfg.CodeAttempts <= 0 {
		cfg.CodeAttempts = 300
	}

	return &Service{
		sessions: sessions,
		limiter:  limiter,
		clk:      clk,
		cfg:      cfg,
		randCode: func() string {
			return fmt.Sprintf("%04d", 1000+rand.IntN(9000))
		},
	}
}

// GetCart returns the session's normalized cart, or an empty cart for
// an unknown code.
func (s *Service) GetCart(ctx context.Context, code string) ([]domain.CartLine, error) {
	const op = "service.cart.GetCart"

	sess, err := s.sessions.Get(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return []domain.CartLine{}, nil
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return domain.NormalizeCart(sess.Cart, clock.NewLineID), nil
}

// SaveCart normalizes every line, replaces the stored cart atomically,
// and refreshes the session's expiry window. It returns the normalized
// cart as persisted.
func (s *Service) SaveCart(ctx context.Context, code string, lines []domain.CartLine) ([]domain.CartLine, error) {
	const op = "service.cart.SaveCart"

	cart := domain.NormalizeCart(lines, clock.NewLineID)

	now := s.clk.Now()
	if err := s.sessions.SaveCart(ctx, code, cart, now, now.Add(s.cfg.SessionTTL)); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return cart, nil
}

func (s *Service) ComputeTotal(lines []domain.CartLine) int {
	return domain.CartTotal(lines)
}

// EnsureSession creates the session row if absent; if present and
// expired, or if forceReset is requested, it resets the cart to empty
// and extends the expiry. Otherwise it is a no-op. This is the single
// permissive gate; live mutations go through RequireActive instead.
func (s *Service) EnsureSession(ctx context.Context, code string, forceReset bool) error {
	const op = "service.cart.EnsureSession"

	now := s.clk.Now()
	expires := now.Add(s.cfg.SessionTTL)

	sess, err := s.sessions.Get(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			if err := s.sessions.Create(ctx, code, now, expires); err != nil {
				return fmt.Errorf("%s:%w", op, err)
			}
			return nil
		}

		return fmt.Errorf("%s:%w", op, err)
	}

	if forceReset || !sess.ActiveAt(now) {
		if err := s.sessions.Reset(ctx, code, now, expires); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}
	}

	return nil
}

// SessionIsActive reports whether the session exists and has not
// expired yet.
func (s *Service) SessionIsActive(ctx context.Context, code string) (bool, error) {
	const op = "service.cart.SessionIsActive"

	sess, err := s.sessions.Get(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}

		return false, fmt.Errorf("%s:%w", op, err)
	}

	return sess.ActiveAt(s.clk.Now()), nil
}

// RequireActive is the strict gate for live mutations: it rejects
// unknown and expired sessions instead of fabricating one.
func (s *Service) RequireActive(ctx context.Context, code string) error {
	const op = "service.cart.RequireActive"

	active, err := s.SessionIsActive(ctx, code)
	if err != nil {
		return err
	}

	if !active {
		return fmt.Errorf("%s:%w", op, ErrSessionNotFound)
	}

	return nil
}

// NewSession draws random 4-digit codes until one does not collide
// with an active session, then creates (or reclaims) that session with
// an empty cart. rlKey, when non-empty, is rate limited.
func (s *Service) NewSession(ctx context.Context, rlKey string) (string, error) {
	const op = "service.cart.NewSession"

	if s.limiter != nil && rlKey != "" {
		ok, _, retry, err := s.limiter.Allow(ctx, rlKey)
		if err != nil {
			return "", fmt.Errorf("%s:%w", op, err)
		}
		if !ok {
			return "", fmt.Errorf("%s:%w: retry in %s", op, ErrRateLimited, retry)
		}
	}

	for attempt := 0; attempt < s.cfg.CodeAttempts; attempt++ {
		code := s.randCode()

		active, err := s.SessionIsActive(ctx, code)
		if err != nil {
			return "", fmt.Errorf("%s:%w", op, err)
		}
		if active {
			continue
		}

		if err := s.EnsureSession(ctx, code, true); err != nil {
			return "", fmt.Errorf("%s:%w", op, err)
		}

		return code, nil
	}

	return "", fmt.Errorf("%s:%w", op, ErrCodesExhausted)
}
