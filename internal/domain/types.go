// Package domain defines the core types shared across the marlin platform:
// bars, orders, positions, account state, and the records produced by a
// backtest run.
package domain

import "time"

// Market identifies which exchange universe a symbol belongs to.
type Market string

// Supported markets.
const (
	MarketUS Market = "us"
	MarketCN Market = "cn"
)

// Bar is one period's OHLCV data for a symbol. Bars are immutable and
// ordered by Timestamp within a symbol.
type Bar struct {
	Symbol     string
	Timestamp  time.Time
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     int64
	TradeCount int64
	VWAP       float64
}

// OrderSide is the direction of an order.
type OrderSide string

// Order sides.
const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderType selects the fill rule used to match an order against a bar.
type OrderType string

// Order types.
const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
	OrderTypeStop   OrderType = "stop"
)

// OrderStatus is the lifecycle state of an order. Orders transition from
// pending to exactly one terminal state and are never mutated afterwards.
type OrderStatus string

// Order statuses.
const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Order is a simulated order. Fills are all-or-nothing: a filled order has
// FilledQty == Qty.
type Order struct {
	ID          string      `json:"id"`
	Symbol      string      `json:"symbol"`
	Side        OrderSide   `json:"side"`
	Type        OrderType   `json:"type"`
	Qty         float64     `json:"qty"`
	LimitPrice  float64     `json:"limit_price,omitempty"`
	StopPrice   float64     `json:"stop_price,omitempty"`
	Status      OrderStatus `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	FilledAt    time.Time   `json:"filled_at,omitempty"`
	FilledPrice float64     `json:"filled_price,omitempty"`
	FilledQty   float64     `json:"filled_qty,omitempty"`
	Commission  float64     `json:"commission,omitempty"`
}

// Position is the holding for one symbol. Qty is signed: positive for long,
// negative for short. AvgPrice is meaningful only while Qty != 0; it resets
// to 0 when the position returns to flat.
type Position struct {
	Symbol        string  `json:"symbol"`
	Qty           float64 `json:"qty"`
	AvgPrice      float64 `json:"avg_price"`
	RealizedPnL   float64 `json:"realized_pnl"`
	MarketValue   float64 `json:"market_value"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
}

// AccountInfo is a snapshot of the simulated account's financial state.
type AccountInfo struct {
	InitialCapital float64 `json:"initial_capital"`
	Cash           float64 `json:"cash"`
	CommissionPaid float64 `json:"commission_paid"`
	Equity         float64 `json:"equity"`
}

// EquityPoint is one append-only sample of portfolio value, recorded once
// per processed timestamp.
type EquityPoint struct {
	Timestamp     time.Time `json:"timestamp"`
	TotalValue    float64   `json:"total_value"`
	Cash          float64   `json:"cash"`
	MarketValue   float64   `json:"market_value"`
	UnrealizedPnL float64   `json:"unrealized_pnl"`
	RealizedPnL   float64   `json:"realized_pnl"`
}

// DailyReturn is the fractional change in total value over one trading day,
// computed at session-close boundaries.
type DailyReturn struct {
	Date   string  `json:"date"` // YYYY-MM-DD in the session timezone
	Return float64 `json:"return"`
}

// Realization records profit taken when a fill reduces or closes an existing
// position. Trade statistics (win rate, profit factor) are computed over
// realizations, not raw fills.
type Realization struct {
	Symbol     string    `json:"symbol"`
	Qty        float64   `json:"qty"` // closed quantity, always positive
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	PnL        float64   `json:"pnl"`
	ClosedAt   time.Time `json:"closed_at"`
}
