// Package ledger maintains the portfolio state of a backtest run: cash,
// positions with weighted-average-cost accounting, realized and unrealized
// PnL, the equity curve, and daily returns at session-close boundaries.
package ledger

import (
	"sort"
	"time"

	"marlin/internal/domain"
	"marlin/internal/util"
)

// Ledger is the single source of truth for portfolio state during a run.
// Cash changes only from fills (signed notional) and commission. Total value
// is always derived as cash + sum of position market values; the
// identity-based formula is exposed separately as a cross-check and is never
// used as a source of truth. Each run owns its own Ledger; the type is not
// safe for concurrent use.
type Ledger struct {
	initialCapital float64
	cash           float64
	commissionPaid float64

	positions  map[string]*domain.Position
	lastPrices map[string]float64 // last seen price per symbol, survives snapshot gaps

	equity       []domain.EquityPoint
	daily        []domain.DailyReturn
	realizations []domain.Realization

	clock     *util.SessionClock
	lastDate  string  // session date of the most recent equity point
	lastValue float64 // total value at the most recent equity point
	prevClose float64 // total value at the previous session close
}

// New creates a Ledger starting with the given capital. Daily returns are
// cut at date boundaries in the session clock's timezone; the first day's
// previous close defaults to the initial capital.
func New(initialCapital float64, clock *util.SessionClock) *Ledger {
	return &Ledger{
		initialCapital: initialCapital,
		cash:           initialCapital,
		positions:      make(map[string]*domain.Position),
		lastPrices:     make(map[string]float64),
		clock:          clock,
		prevClose:      initialCapital,
	}
}

// ApplyFill updates the position for the order's symbol and adjusts cash by
// the signed notional and the commission. Commission never enters the
// position cost basis.
//
// Same-direction fills extend the position at a volume-weighted average
// price. Opposite-direction fills realize PnL on the closed quantity; a fill
// larger than the existing position closes it entirely and opens the
// remainder as a fresh position at the fill price — the old average never
// blends into the new direction.
func (l *Ledger) ApplyFill(o *domain.Order) {
	pos, ok := l.positions[o.Symbol]
	if !ok {
		pos = &domain.Position{Symbol: o.Symbol}
		l.positions[o.Symbol] = pos
	}

	fillQty := o.FilledQty
	if o.Side == domain.OrderSideSell {
		fillQty = -fillQty
	}
	price := o.FilledPrice

	oldQty := pos.Qty
	switch {
	case oldQty == 0 || sameSign(oldQty, fillQty):
		// Opening or extending: volume-weighted average entry price.
		totalQty := abs(oldQty) + abs(fillQty)
		pos.AvgPrice = (abs(oldQty)*pos.AvgPrice + abs(fillQty)*price) / totalQty
		pos.Qty = oldQty + fillQty

	default:
		// Reducing, closing, or reversing.
		closeQty := abs(fillQty)
		if abs(oldQty) < closeQty {
			closeQty = abs(oldQty)
		}
		pnl := (price - pos.AvgPrice) * closeQty
		if oldQty < 0 {
			pnl = (pos.AvgPrice - price) * closeQty
		}
		pos.RealizedPnL += pnl
		l.realizations = append(l.realizations, domain.Realization{
			Symbol:     o.Symbol,
			Qty:        closeQty,
			EntryPrice: pos.AvgPrice,
			ExitPrice:  price,
			PnL:        pnl,
			ClosedAt:   o.FilledAt,
		})

		pos.Qty = oldQty + fillQty
		if pos.Qty == 0 {
			pos.AvgPrice = 0
		} else if !sameSign(pos.Qty, oldQty) {
			// Reversal: the remainder is a brand-new position at the fill price.
			pos.AvgPrice = price
		}
	}

	l.cash -= fillQty * price
	l.cash -= o.Commission
	l.commissionPaid += o.Commission
	l.lastPrices[o.Symbol] = price
}

// MarkToMarket revalues every position. Symbols missing from prices keep
// their last seen price.
func (l *Ledger) MarkToMarket(prices map[string]float64) {
	for sym, px := range prices {
		l.lastPrices[sym] = px
	}
	for sym, pos := range l.positions {
		px, ok := l.lastPrices[sym]
		if !ok || pos.Qty == 0 {
			pos.MarketValue = 0
			pos.UnrealizedPnL = 0
			continue
		}
		pos.MarketValue = abs(pos.Qty) * px
		// (price-avg)*qty is correct for both directions: a negative qty
		// flips the sign for shorts.
		pos.UnrealizedPnL = (px - pos.AvgPrice) * pos.Qty
	}
}

// TotalValue returns cash plus the market value of all positions. This is
// the authoritative portfolio value.
func (l *Ledger) TotalValue() float64 {
	total := l.cash
	for _, pos := range l.positions {
		total += pos.MarketValue
	}
	return total
}

// CheckValue returns the identity-based derivation of portfolio value:
// initial capital + realized + unrealized - commission. It exists only as a
// diagnostic cross-check against TotalValue.
func (l *Ledger) CheckValue() float64 {
	total := l.initialCapital - l.commissionPaid
	for _, pos := range l.positions {
		total += pos.RealizedPnL + pos.UnrealizedPnL
	}
	return total
}

// Account returns a snapshot of the account's financial state.
func (l *Ledger) Account() domain.AccountInfo {
	return domain.AccountInfo{
		InitialCapital: l.initialCapital,
		Cash:           l.cash,
		CommissionPaid: l.commissionPaid,
		Equity:         l.TotalValue(),
	}
}

// Position returns a copy of the position for symbol. A symbol that never
// traded yields a zero-quantity position.
func (l *Ledger) Position(symbol string) domain.Position {
	if pos, ok := l.positions[symbol]; ok {
		return *pos
	}
	return domain.Position{Symbol: symbol}
}

// Positions returns copies of all positions, sorted by symbol. Flat
// positions are retained as zeroed records, not dropped.
func (l *Ledger) Positions() []domain.Position {
	out := make([]domain.Position, 0, len(l.positions))
	for _, pos := range l.positions {
		out = append(out, *pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// RecordEquity appends one equity point for the processed timestamp and cuts
// a daily return when ts crosses into a new session date.
func (l *Ledger) RecordEquity(ts time.Time) domain.EquityPoint {
	var mv, upnl, rpnl float64
	for _, pos := range l.positions {
		mv += pos.MarketValue
		upnl += pos.UnrealizedPnL
		rpnl += pos.RealizedPnL
	}
	pt := domain.EquityPoint{
		Timestamp:     ts,
		TotalValue:    l.cash + mv,
		Cash:          l.cash,
		MarketValue:   mv,
		UnrealizedPnL: upnl,
		RealizedPnL:   rpnl,
	}

	date := l.clock.DateOf(ts)
	if l.lastDate != "" && date != l.lastDate {
		l.closeSession()
	}
	l.lastDate = date
	l.lastValue = pt.TotalValue

	l.equity = append(l.equity, pt)
	return pt
}

// CloseFinalSession cuts the daily return for the last (still open) session.
// Call once after the final timestamp has been recorded.
func (l *Ledger) CloseFinalSession() {
	if l.lastDate != "" {
		l.closeSession()
		l.lastDate = ""
	}
}

func (l *Ledger) closeSession() {
	var r float64
	if l.prevClose != 0 {
		r = (l.lastValue - l.prevClose) / l.prevClose
	}
	l.daily = append(l.daily, domain.DailyReturn{Date: l.lastDate, Return: r})
	l.prevClose = l.lastValue
}

// EquityCurve returns the recorded equity points, one per processed timestamp.
func (l *Ledger) EquityCurve() []domain.EquityPoint {
	return l.equity
}

// DailyReturns returns the recorded per-session returns.
func (l *Ledger) DailyReturns() []domain.DailyReturn {
	return l.daily
}

// Realizations returns the round-trip realizations recorded by reducing and
// closing fills.
func (l *Ledger) Realizations() []domain.Realization {
	return l.realizations
}

// Cash returns the current cash balance.
func (l *Ledger) Cash() float64 {
	return l.cash
}

func sameSign(a, b float64) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
