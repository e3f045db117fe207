// Package inventory tracks stock per menu position and keeps the
// sold-out set in sync through the store: stock hitting zero marks the
// position unavailable, restocking clears it.
package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/kyochen/tablecart/internal/clock"
	"github.com/kyochen/tablecart/internal/domain"
	"github.com/kyochen/tablecart/internal/repository"
)

var ErrItemNotFound = errors.New("inventory item not found")

type Service struct {
	inv repository.Inventory
	clk *clock.Clock
}

func New(inv repository.Inventory, clk *clock.Clock) *Service {
	return &Service{inv: inv, clk: clk}
}

func (s *Service) List(ctx context.Context) ([]domain.InventoryItem, error) {
	const op = "service.inventory.List"

	items, err := s.inv.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return items, nil
}

// SetStock overwrites the item's stock, clamped at zero, and returns
// the stored value.
func (s *Service) SetStock(ctx context.Context, id int64, stock int) (int, error) {
	const op = "service.inventory.SetStock"

	n, err := s.inv.SetStock(ctx, id, stock, s.clk.Now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, fmt.Errorf("%s:%w", op, ErrItemNotFound)
		}

		return 0, fmt.Errorf("%s:%w", op, err)
	}

	return n, nil
}

// AddStock applies a signed delta, clamped at zero, and returns the
// stored value.
func (s *Service) AddStock(ctx context.Context, id int64, delta int) (int, error) {
	const op = "service.inventory.AddStock"

	n, err := s.inv.AddStock(ctx, id, delta, s.clk.Now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, fmt.Errorf("%s:%w", op, ErrItemNotFound)
		}

		return 0, fmt.Errorf("%s:%w", op, err)
	}

	return n, nil
}
