package matching

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"marlin/internal/domain"
)

var matchTime = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func pendingOrder(side domain.OrderSide, typ domain.OrderType, qty, limit, stop float64) *domain.Order {
	return &domain.Order{
		ID:         uuid.New().String(),
		Symbol:     "AAPL",
		Side:       side,
		Type:       typ,
		Qty:        qty,
		LimitPrice: limit,
		StopPrice:  stop,
		Status:     domain.OrderStatusPending,
		CreatedAt:  matchTime,
	}
}

func snapshot(open, high, low, close float64) map[string]domain.Bar {
	return map[string]domain.Bar{
		"AAPL": {Symbol: "AAPL", Timestamp: matchTime, Open: open, High: high, Low: low, Close: close},
	}
}

func TestMarketOrderFillsAtOpenWithSlippage(t *testing.T) {
	s := NewSimulator(0.001, 0.0005)

	buy := pendingOrder(domain.OrderSideBuy, domain.OrderTypeMarket, 10, 0, 0)
	sell := pendingOrder(domain.OrderSideSell, domain.OrderTypeMarket, 5, 0, 0)
	if err := s.Submit(buy); err != nil {
		t.Fatalf("Submit(buy): %v", err)
	}
	if err := s.Submit(sell); err != nil {
		t.Fatalf("Submit(sell): %v", err)
	}

	fills := s.Match(matchTime, snapshot(100, 105, 95, 102))
	if len(fills) != 2 {
		t.Fatalf("Match returned %d fills, want 2", len(fills))
	}

	if got, want := buy.FilledPrice, 100*1.001; got != want {
		t.Errorf("buy FilledPrice = %v, want %v", got, want)
	}
	if got, want := sell.FilledPrice, 100*0.999; got != want {
		t.Errorf("sell FilledPrice = %v, want %v", got, want)
	}
	if buy.Status != domain.OrderStatusFilled || buy.FilledQty != 10 {
		t.Errorf("buy = %s qty %v, want filled qty 10", buy.Status, buy.FilledQty)
	}
	if !buy.FilledAt.Equal(matchTime) {
		t.Errorf("buy FilledAt = %v, want %v", buy.FilledAt, matchTime)
	}
	if got, want := buy.Commission, 10*100*1.001*0.0005; got != want {
		t.Errorf("buy Commission = %v, want %v", got, want)
	}
	if len(s.Pending()) != 0 {
		t.Errorf("pending queue has %d orders after fills, want 0", len(s.Pending()))
	}
}

func TestLimitOrderFillRules(t *testing.T) {
	tests := []struct {
		name      string
		side      domain.OrderSide
		limit     float64
		bar       map[string]domain.Bar
		wantFill  bool
		wantPrice float64
	}{
		{"buy fills when low touches limit", domain.OrderSideBuy, 98, snapshot(100, 105, 98, 102), true, 98},
		{"buy stays pending above range", domain.OrderSideBuy, 90, snapshot(100, 105, 95, 102), false, 0},
		{"sell fills when high touches limit", domain.OrderSideSell, 105, snapshot(100, 105, 95, 102), true, 105},
		{"sell stays pending below range", domain.OrderSideSell, 110, snapshot(100, 105, 95, 102), false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSimulator(0.001, 0)
			o := pendingOrder(tt.side, domain.OrderTypeLimit, 10, tt.limit, 0)
			if err := s.Submit(o); err != nil {
				t.Fatalf("Submit: %v", err)
			}

			fills := s.Match(matchTime, tt.bar)
			if tt.wantFill {
				if len(fills) != 1 {
					t.Fatalf("Match returned %d fills, want 1", len(fills))
				}
				// Limit fills execute at the limit price exactly — no
				// slippage, no improvement.
				if o.FilledPrice != tt.wantPrice {
					t.Errorf("FilledPrice = %v, want %v", o.FilledPrice, tt.wantPrice)
				}
			} else {
				if len(fills) != 0 {
					t.Fatalf("Match returned %d fills, want 0", len(fills))
				}
				if o.Status != domain.OrderStatusPending {
					t.Errorf("order status = %s, want pending", o.Status)
				}
			}
		})
	}
}

func TestStopOrderFillRules(t *testing.T) {
	tests := []struct {
		name      string
		side      domain.OrderSide
		stop      float64
		bar       map[string]domain.Bar
		wantFill  bool
		wantPrice float64
	}{
		{"buy stop triggers on high", domain.OrderSideBuy, 104, snapshot(100, 105, 95, 102), true, 104 * 1.001},
		{"buy stop stays pending", domain.OrderSideBuy, 110, snapshot(100, 105, 95, 102), false, 0},
		{"sell stop triggers on low", domain.OrderSideSell, 96, snapshot(100, 105, 95, 102), true, 96 * 0.999},
		{"sell stop stays pending", domain.OrderSideSell, 90, snapshot(100, 105, 95, 102), false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSimulator(0.001, 0)
			o := pendingOrder(tt.side, domain.OrderTypeStop, 10, 0, tt.stop)
			if err := s.Submit(o); err != nil {
				t.Fatalf("Submit: %v", err)
			}

			fills := s.Match(matchTime, tt.bar)
			if tt.wantFill {
				if len(fills) != 1 {
					t.Fatalf("Match returned %d fills, want 1", len(fills))
				}
				if o.FilledPrice != tt.wantPrice {
					t.Errorf("FilledPrice = %v, want %v", o.FilledPrice, tt.wantPrice)
				}
			} else if len(fills) != 0 {
				t.Fatalf("Match returned %d fills, want 0", len(fills))
			}
		})
	}
}

func TestMatchSkipsSymbolsWithoutBar(t *testing.T) {
	s := NewSimulator(0, 0)
	o := pendingOrder(domain.OrderSideBuy, domain.OrderTypeMarket, 10, 0, 0)
	o.Symbol = "MSFT"
	if err := s.Submit(o); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	fills := s.Match(matchTime, snapshot(100, 105, 95, 102)) // snapshot has AAPL only
	if len(fills) != 0 {
		t.Fatalf("Match returned %d fills, want 0", len(fills))
	}
	if len(s.Pending()) != 1 {
		t.Errorf("pending queue has %d orders, want 1", len(s.Pending()))
	}
}

func TestCancel(t *testing.T) {
	s := NewSimulator(0, 0)
	o := pendingOrder(domain.OrderSideBuy, domain.OrderTypeLimit, 10, 90, 0)
	if err := s.Submit(o); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if !s.Cancel(o.ID) {
		t.Fatal("Cancel returned false for a pending order")
	}
	if o.Status != domain.OrderStatusCancelled {
		t.Errorf("order status = %s, want cancelled", o.Status)
	}

	// Cancelling again (now terminal) returns false, never errors.
	if s.Cancel(o.ID) {
		t.Error("Cancel returned true for an already-cancelled order")
	}
	if s.Cancel("unknown-id") {
		t.Error("Cancel returned true for an unknown order")
	}
}

func TestSubmitRejectsInvalidOrders(t *testing.T) {
	s := NewSimulator(0, 0)

	filled := pendingOrder(domain.OrderSideBuy, domain.OrderTypeMarket, 10, 0, 0)
	filled.Status = domain.OrderStatusFilled
	if err := s.Submit(filled); err == nil {
		t.Error("Submit should reject a non-pending order")
	}

	zero := pendingOrder(domain.OrderSideBuy, domain.OrderTypeMarket, 0, 0, 0)
	if err := s.Submit(zero); err == nil {
		t.Error("Submit should reject a zero-quantity order")
	}
}
