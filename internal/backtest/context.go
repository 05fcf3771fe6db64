package backtest

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"marlin/internal/domain"
	"marlin/internal/ledger"
	"marlin/internal/matching"
	"marlin/internal/replay"
	"marlin/internal/strategy"
)

var _ strategy.Context = (*runContext)(nil)

// runContext is the strategy.Context bound to a single run. The orchestrator
// stamps now before each callback; every read and every order creation is
// anchored to that tick.
type runContext struct {
	rep  *replay.Replay
	sim  *matching.Simulator
	led  *ledger.Ledger
	risk *RiskManager
	now  time.Time

	// orders holds every order created during the run, in creation order,
	// regardless of final status. It becomes the result's trade records.
	orders []*domain.Order
}

func (rc *runContext) RecentBars(symbol string, n int) []domain.Bar {
	return rc.rep.Window(symbol, rc.now, n)
}

func (rc *runContext) Position(symbol string) domain.Position {
	return rc.led.Position(symbol)
}

func (rc *runContext) Account() domain.AccountInfo {
	return rc.led.Account()
}

func (rc *runContext) Buy(symbol string, qty float64) (string, error) {
	return rc.submit(symbol, domain.OrderSideBuy, domain.OrderTypeMarket, qty, 0, 0)
}

func (rc *runContext) Sell(symbol string, qty float64) (string, error) {
	return rc.submit(symbol, domain.OrderSideSell, domain.OrderTypeMarket, qty, 0, 0)
}

func (rc *runContext) LimitBuy(symbol string, qty, price float64) (string, error) {
	return rc.submit(symbol, domain.OrderSideBuy, domain.OrderTypeLimit, qty, price, 0)
}

func (rc *runContext) LimitSell(symbol string, qty, price float64) (string, error) {
	return rc.submit(symbol, domain.OrderSideSell, domain.OrderTypeLimit, qty, price, 0)
}

func (rc *runContext) StopBuy(symbol string, qty, stop float64) (string, error) {
	return rc.submit(symbol, domain.OrderSideBuy, domain.OrderTypeStop, qty, 0, stop)
}

func (rc *runContext) StopSell(symbol string, qty, stop float64) (string, error) {
	return rc.submit(symbol, domain.OrderSideSell, domain.OrderTypeStop, qty, 0, stop)
}

func (rc *runContext) OrderTargetPercent(symbol string, pct float64) (string, error) {
	bar, ok := rc.rep.Bar(symbol, rc.now)
	if !ok || bar.Close <= 0 {
		return "", fmt.Errorf("no price available for %s", symbol)
	}
	targetQty := pct * rc.led.TotalValue() / bar.Close
	delta := targetQty - rc.led.Position(symbol).Qty
	if math.Abs(delta) < 1e-9 {
		return "", nil
	}
	if delta > 0 {
		return rc.Buy(symbol, delta)
	}
	return rc.Sell(symbol, -delta)
}

func (rc *runContext) Cancel(orderID string) bool {
	return rc.sim.Cancel(orderID)
}

func (rc *runContext) submit(symbol string, side domain.OrderSide, typ domain.OrderType, qty, limit, stop float64) (string, error) {
	o := &domain.Order{
		ID:         uuid.NewString(),
		Symbol:     symbol,
		Side:       side,
		Type:       typ,
		Qty:        qty,
		LimitPrice: limit,
		StopPrice:  stop,
		Status:     domain.OrderStatusPending,
		CreatedAt:  rc.now,
	}
	if rc.risk != nil {
		price := limit
		if price <= 0 {
			if bar, ok := rc.rep.Bar(symbol, rc.now); ok {
				price = bar.Close
			}
		}
		if err := rc.risk.CheckOrder(o, price, rc.led.Account()); err != nil {
			return "", err
		}
	}
	if err := rc.sim.Submit(o); err != nil {
		return "", err
	}
	rc.orders = append(rc.orders, o)
	return o.ID, nil
}
