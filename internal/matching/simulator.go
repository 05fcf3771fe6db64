// Package matching simulates order execution against historical bars. It
// holds the pending-order queue for a single backtest run and applies the
// fill rules for market, limit, and stop orders. Fills are all-or-nothing;
// partial fills are not modeled.
package matching

import (
	"fmt"
	"time"

	"marlin/internal/domain"
)

// Simulator evaluates pending orders against bar data. Each run owns its own
// Simulator; the type is not safe for concurrent use.
type Simulator struct {
	slippageRate   float64
	commissionRate float64

	pending []*domain.Order // submission order, preserved for deterministic fills
}

// NewSimulator creates a Simulator with the given slippage and commission
// rates (both fractions, e.g. 0.0005 for 5 bps).
func NewSimulator(slippageRate, commissionRate float64) *Simulator {
	return &Simulator{
		slippageRate:   slippageRate,
		commissionRate: commissionRate,
	}
}

// Submit enqueues a pending order for matching. The order must be pending
// with a positive quantity.
func (s *Simulator) Submit(o *domain.Order) error {
	if o.Status != domain.OrderStatusPending {
		return fmt.Errorf("order %s is %s, not pending", o.ID, o.Status)
	}
	if o.Qty <= 0 {
		return fmt.Errorf("order %s has non-positive quantity %v", o.ID, o.Qty)
	}
	s.pending = append(s.pending, o)
	return nil
}

// Cancel transitions a pending order to cancelled. It returns false when the
// order is unknown or already terminal; cancellation never errors.
func (s *Simulator) Cancel(id string) bool {
	for i, o := range s.pending {
		if o.ID == id {
			o.Status = domain.OrderStatusCancelled
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return true
		}
	}
	return false
}

// Pending returns the orders still awaiting a fill, in submission order.
func (s *Simulator) Pending() []*domain.Order {
	out := make([]*domain.Order, len(s.pending))
	copy(out, s.pending)
	return out
}

// Match evaluates every pending order against the bar snapshot for timestamp
// at and returns the orders filled, in submission order. Orders whose symbol
// has no bar in the snapshot remain pending.
func (s *Simulator) Match(at time.Time, snapshot map[string]domain.Bar) []*domain.Order {
	var fills []*domain.Order
	remaining := s.pending[:0]

	for _, o := range s.pending {
		bar, ok := snapshot[o.Symbol]
		if !ok {
			remaining = append(remaining, o)
			continue
		}

		price, filled := s.fillPrice(o, bar)
		if !filled {
			remaining = append(remaining, o)
			continue
		}

		o.Status = domain.OrderStatusFilled
		o.FilledAt = at
		o.FilledPrice = price
		o.FilledQty = o.Qty
		o.Commission = abs(o.Qty*price) * s.commissionRate
		fills = append(fills, o)
	}

	s.pending = remaining
	return fills
}

// fillPrice applies the per-type fill rule and returns the execution price
// when the bar triggers a fill.
func (s *Simulator) fillPrice(o *domain.Order, bar domain.Bar) (float64, bool) {
	switch o.Type {
	case domain.OrderTypeMarket:
		// Market orders execute at the bar open, slipped against the trader.
		if o.Side == domain.OrderSideBuy {
			return bar.Open * (1 + s.slippageRate), true
		}
		return bar.Open * (1 - s.slippageRate), true

	case domain.OrderTypeLimit:
		// Limit orders fill at the limit price exactly, no improvement.
		if o.Side == domain.OrderSideBuy && bar.Low <= o.LimitPrice {
			return o.LimitPrice, true
		}
		if o.Side == domain.OrderSideSell && bar.High >= o.LimitPrice {
			return o.LimitPrice, true
		}

	case domain.OrderTypeStop:
		// Stop orders trigger when the range crosses the stop and execute at
		// the stop price slipped in the order's direction.
		if o.Side == domain.OrderSideBuy && bar.High >= o.StopPrice {
			return o.StopPrice * (1 + s.slippageRate), true
		}
		if o.Side == domain.OrderSideSell && bar.Low <= o.StopPrice {
			return o.StopPrice * (1 - s.slippageRate), true
		}
	}
	return 0, false
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
