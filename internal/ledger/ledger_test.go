package ledger

import (
	"math"
	"testing"
	"time"

	"marlin/internal/domain"
	"marlin/internal/util"
)

func newTestLedger(t *testing.T, capital float64) *Ledger {
	t.Helper()
	clock, err := util.NewSessionClock("")
	if err != nil {
		t.Fatalf("NewSessionClock: %v", err)
	}
	return New(capital, clock)
}

func filledOrder(symbol string, side domain.OrderSide, qty, price, commission float64, at time.Time) *domain.Order {
	return &domain.Order{
		ID:          symbol + "-" + string(side),
		Symbol:      symbol,
		Side:        side,
		Type:        domain.OrderTypeMarket,
		Qty:         qty,
		Status:      domain.OrderStatusFilled,
		FilledAt:    at,
		FilledPrice: price,
		FilledQty:   qty,
		Commission:  commission,
	}
}

func ts(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func TestApplyFillAveragesSameDirection(t *testing.T) {
	l := newTestLedger(t, 100000)

	l.ApplyFill(filledOrder("AAPL", domain.OrderSideBuy, 10, 100, 0, ts(2)))
	l.ApplyFill(filledOrder("AAPL", domain.OrderSideBuy, 10, 110, 0, ts(3)))

	pos := l.Position("AAPL")
	if pos.Qty != 20 {
		t.Errorf("Qty = %v, want 20", pos.Qty)
	}
	if pos.AvgPrice != 105 {
		t.Errorf("AvgPrice = %v, want 105", pos.AvgPrice)
	}
	if got, want := l.Cash(), 100000.0-10*100-10*110; got != want {
		t.Errorf("Cash = %v, want %v", got, want)
	}
}

func TestApplyFillRealizesOnReduction(t *testing.T) {
	l := newTestLedger(t, 100000)

	l.ApplyFill(filledOrder("AAPL", domain.OrderSideBuy, 10, 100, 0, ts(2)))
	l.ApplyFill(filledOrder("AAPL", domain.OrderSideSell, 4, 110, 0, ts(3)))

	pos := l.Position("AAPL")
	if pos.Qty != 6 {
		t.Errorf("Qty = %v, want 6", pos.Qty)
	}
	if pos.AvgPrice != 100 {
		t.Errorf("AvgPrice = %v, want 100 (reduction keeps entry average)", pos.AvgPrice)
	}
	if pos.RealizedPnL != 40 {
		t.Errorf("RealizedPnL = %v, want 40", pos.RealizedPnL)
	}

	rs := l.Realizations()
	if len(rs) != 1 {
		t.Fatalf("Realizations = %d records, want 1", len(rs))
	}
	if rs[0].Qty != 4 || rs[0].PnL != 40 {
		t.Errorf("realization = qty %v pnl %v, want qty 4 pnl 40", rs[0].Qty, rs[0].PnL)
	}
}

// Short 10 @ avg 100, then BUY 15 @ 90: realize (100-90)*10 = 100 and come
// out long 5 at avg 90. The old average must never blend into the new
// opposite-direction position.
func TestApplyFillReversal(t *testing.T) {
	l := newTestLedger(t, 100000)

	l.ApplyFill(filledOrder("AAPL", domain.OrderSideSell, 10, 100, 0, ts(2)))
	pos := l.Position("AAPL")
	if pos.Qty != -10 || pos.AvgPrice != 100 {
		t.Fatalf("short position = qty %v avg %v, want -10 @ 100", pos.Qty, pos.AvgPrice)
	}

	l.ApplyFill(filledOrder("AAPL", domain.OrderSideBuy, 15, 90, 0, ts(3)))
	pos = l.Position("AAPL")
	if pos.Qty != 5 {
		t.Errorf("Qty = %v, want +5", pos.Qty)
	}
	if pos.AvgPrice != 90 {
		t.Errorf("AvgPrice = %v, want 90 (fresh position at fill price)", pos.AvgPrice)
	}
	if pos.RealizedPnL != 100 {
		t.Errorf("RealizedPnL = %v, want 100", pos.RealizedPnL)
	}
}

func TestApplyFillFlatResetsAverage(t *testing.T) {
	l := newTestLedger(t, 100000)

	l.ApplyFill(filledOrder("AAPL", domain.OrderSideBuy, 10, 100, 0, ts(2)))
	l.ApplyFill(filledOrder("AAPL", domain.OrderSideSell, 10, 105, 0, ts(3)))

	pos := l.Position("AAPL")
	if pos.Qty != 0 {
		t.Fatalf("Qty = %v, want 0", pos.Qty)
	}
	if pos.AvgPrice != 0 {
		t.Errorf("AvgPrice = %v, want 0 after returning to flat", pos.AvgPrice)
	}
	// Flat positions stay in the ledger as zeroed records.
	if got := len(l.Positions()); got != 1 {
		t.Errorf("Positions() returned %d records, want 1", got)
	}
}

// Cash conservation: cash == initial - Σ(signed notional) - Σ(commission)
// for any fill sequence.
func TestCashConservation(t *testing.T) {
	l := newTestLedger(t, 50000)

	fills := []*domain.Order{
		filledOrder("AAPL", domain.OrderSideBuy, 10, 100, 1.0, ts(2)),
		filledOrder("AAPL", domain.OrderSideSell, 25, 95, 2.375, ts(3)),
		filledOrder("MSFT", domain.OrderSideBuy, 5, 400, 2.0, ts(3)),
		filledOrder("AAPL", domain.OrderSideBuy, 15, 97, 1.455, ts(4)),
		filledOrder("MSFT", domain.OrderSideSell, 5, 410, 2.05, ts(5)),
	}

	var notional, commission float64
	for _, o := range fills {
		l.ApplyFill(o)
		signed := o.FilledQty * o.FilledPrice
		if o.Side == domain.OrderSideSell {
			signed = -signed
		}
		notional += signed
		commission += o.Commission
	}

	want := 50000 - notional - commission
	if got := l.Cash(); math.Abs(got-want) > 1e-9 {
		t.Errorf("Cash = %v, want %v", got, want)
	}
	if got := l.Account().CommissionPaid; math.Abs(got-commission) > 1e-9 {
		t.Errorf("CommissionPaid = %v, want %v", got, commission)
	}
}

func TestMarkToMarket(t *testing.T) {
	l := newTestLedger(t, 100000)

	l.ApplyFill(filledOrder("AAPL", domain.OrderSideBuy, 10, 100, 0, ts(2)))
	l.ApplyFill(filledOrder("MSFT", domain.OrderSideSell, 5, 400, 0, ts(2)))

	l.MarkToMarket(map[string]float64{"AAPL": 110, "MSFT": 390})

	long := l.Position("AAPL")
	if long.MarketValue != 1100 {
		t.Errorf("long MarketValue = %v, want 1100", long.MarketValue)
	}
	if long.UnrealizedPnL != 100 {
		t.Errorf("long UnrealizedPnL = %v, want 100", long.UnrealizedPnL)
	}

	short := l.Position("MSFT")
	if short.MarketValue != 5*390 {
		t.Errorf("short MarketValue = %v, want %v", short.MarketValue, 5*390)
	}
	// Short profits when price falls: (400-390)*5 = 50.
	if short.UnrealizedPnL != 50 {
		t.Errorf("short UnrealizedPnL = %v, want 50", short.UnrealizedPnL)
	}
}

func TestMarkToMarketKeepsLastPrice(t *testing.T) {
	l := newTestLedger(t, 100000)
	l.ApplyFill(filledOrder("AAPL", domain.OrderSideBuy, 10, 100, 0, ts(2)))

	l.MarkToMarket(map[string]float64{"AAPL": 105})
	// Next tick has no AAPL bar — the last seen price carries over.
	l.MarkToMarket(map[string]float64{})

	pos := l.Position("AAPL")
	if pos.MarketValue != 1050 {
		t.Errorf("MarketValue = %v, want 1050 (last seen price)", pos.MarketValue)
	}
}

func TestTotalValueMatchesCrossCheck(t *testing.T) {
	l := newTestLedger(t, 100000)

	l.ApplyFill(filledOrder("AAPL", domain.OrderSideBuy, 10, 100, 0.5, ts(2)))
	l.ApplyFill(filledOrder("AAPL", domain.OrderSideSell, 4, 110, 0.22, ts(3)))
	l.MarkToMarket(map[string]float64{"AAPL": 108})

	if diff := math.Abs(l.TotalValue() - l.CheckValue()); diff > 1e-9 {
		t.Errorf("TotalValue %v and CheckValue %v diverge by %v", l.TotalValue(), l.CheckValue(), diff)
	}
}

func TestEquityAndDailyReturns(t *testing.T) {
	l := newTestLedger(t, 10000)

	// Two points on day 2, one on day 3.
	l.RecordEquity(time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC))
	l.ApplyFill(filledOrder("AAPL", domain.OrderSideBuy, 10, 100, 0, ts(2)))
	l.MarkToMarket(map[string]float64{"AAPL": 110})
	l.RecordEquity(time.Date(2024, 1, 2, 16, 0, 0, 0, time.UTC))

	l.MarkToMarket(map[string]float64{"AAPL": 121})
	l.RecordEquity(time.Date(2024, 1, 3, 16, 0, 0, 0, time.UTC))
	l.CloseFinalSession()

	curve := l.EquityCurve()
	if len(curve) != 3 {
		t.Fatalf("EquityCurve has %d points, want 3", len(curve))
	}
	if curve[0].TotalValue != 10000 {
		t.Errorf("first equity point = %v, want 10000", curve[0].TotalValue)
	}
	// Day 2 close: cash 9000 + 10*110 = 10100.
	if curve[1].TotalValue != 10100 {
		t.Errorf("day-2 close = %v, want 10100", curve[1].TotalValue)
	}

	daily := l.DailyReturns()
	if len(daily) != 2 {
		t.Fatalf("DailyReturns has %d entries, want 2", len(daily))
	}
	// Day one measures against initial capital.
	if want := (10100.0 - 10000.0) / 10000.0; math.Abs(daily[0].Return-want) > 1e-12 {
		t.Errorf("day-1 return = %v, want %v", daily[0].Return, want)
	}
	if daily[0].Date != "2024-01-02" {
		t.Errorf("day-1 date = %q, want 2024-01-02", daily[0].Date)
	}
	// Day two: 10210 vs 10100.
	if want := (10210.0 - 10100.0) / 10100.0; math.Abs(daily[1].Return-want) > 1e-12 {
		t.Errorf("day-2 return = %v, want %v", daily[1].Return, want)
	}
}
