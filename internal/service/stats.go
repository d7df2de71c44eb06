package service

import (
	"context"
	"fmt"

	"github.com/maharaja-pos/api/internal/store"
)

// TableStats summarizes table occupancy and order volume. A table is
// occupied while at least one non-closed order references it.
type TableStats struct {
	OccupiedTableCount int
	ActiveOrderCount   int
	ClosedOrderCount   int64
	TotalOrderCount    int64
	StatusBreakdown    map[Status]int64
	OrdersByTable      map[string][]store.Order
}

// TableOccupancyStats computes occupancy from the current active orders.
func (s *OrderService) TableOccupancyStats(ctx context.Context) (*TableStats, error) {
	active, err := s.store.ListActiveOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active orders: %w", err)
	}

	byTable := make(map[string][]store.Order)
	for _, o := range active {
		byTable[o.TableNumber] = append(byTable[o.TableNumber], o)
	}

	total, err := s.store.CountOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}
	closed, err := s.store.CountOrdersByStatus(ctx, string(StatusClosed))
	if err != nil {
		return nil, fmt.Errorf("count closed orders: %w", err)
	}

	breakdown := make(map[Status]int64, len(statusSequence))
	for _, st := range statusSequence {
		n, err := s.store.CountOrdersByStatus(ctx, string(st))
		if err != nil {
			return nil, fmt.Errorf("count %s orders: %w", st, err)
		}
		breakdown[st] = n
	}

	return &TableStats{
		OccupiedTableCount: len(byTable),
		ActiveOrderCount:   len(active),
		ClosedOrderCount:   closed,
		TotalOrderCount:    total,
		StatusBreakdown:    breakdown,
		OrdersByTable:      byTable,
	}, nil
}
