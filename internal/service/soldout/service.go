// Package soldout maintains the set of (categoryIdx, itemIdx) menu
// positions currently unavailable. The pairs are opaque to the core;
// the frontend maps them onto its menu grid.
package soldout

import (
	"context"
	"fmt"

	"github.com/kyochen/tablecart/internal/clock"
	"github.com/kyochen/tablecart/internal/domain"
	"github.com/kyochen/tablecart/internal/repository"
)

type Service struct {
	soldout repository.SoldOut
	clk     *clock.Clock
}

func New(soldout repository.SoldOut, clk *clock.Clock) *Service {
	return &Service{soldout: soldout, clk: clk}
}

func (s *Service) List(ctx context.Context) ([]domain.SoldOutEntry, error) {
	const op = "service.soldout.List"

	entries, err := s.soldout.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return entries, nil
}

// Replace swaps the whole set for the given entries, dropping
// duplicates, and returns the number of pairs kept.
func (s *Service) Replace(ctx context.Context, entries []domain.SoldOutEntry) (int, error) {
	const op = "service.soldout.Replace"

	seen := make(map[domain.SoldOutEntry]struct{}, len(entries))
	clean := make([]domain.SoldOutEntry, 0, len(entries))
	for _, e := range entries {
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		clean = append(clean, e)
	}

	n, err := s.soldout.Replace(ctx, clean, s.clk.Now())
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	return n, nil
}
