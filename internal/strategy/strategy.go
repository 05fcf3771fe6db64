// Package strategy defines the Strategy interface for trading strategies,
// the Context surface strategies use to observe and act on a simulation, and
// a Registry for managing multiple strategy implementations.
package strategy

import (
	"context"
	"sort"

	"marlin/internal/domain"
)

// Context is the only surface exposed to strategy code. It deliberately
// hides the matching simulator and ledger behind a narrow read/write API so
// strategy code can be isolated without reaching into engine internals.
//
// All reads are point-in-time for the current tick: no call ever observes a
// bar with a timestamp after the tick being processed.
type Context interface {
	// RecentBars returns up to n most recent bars for symbol at or before
	// the current tick, oldest first.
	RecentBars(symbol string, n int) []domain.Bar

	// Position returns a snapshot of the current position for symbol. A
	// symbol that never traded yields a zero-quantity position.
	Position(symbol string) domain.Position

	// Account returns a snapshot of the account's financial state.
	Account() domain.AccountInfo

	// Buy submits a market buy order and returns its ID.
	Buy(symbol string, qty float64) (string, error)

	// Sell submits a market sell order and returns its ID.
	Sell(symbol string, qty float64) (string, error)

	// LimitBuy submits a buy order that fills only at price or better.
	LimitBuy(symbol string, qty, price float64) (string, error)

	// LimitSell submits a sell order that fills only at price or better.
	LimitSell(symbol string, qty, price float64) (string, error)

	// StopBuy submits a buy order triggered when the price rises to stop.
	StopBuy(symbol string, qty, stop float64) (string, error)

	// StopSell submits a sell order triggered when the price falls to stop.
	StopSell(symbol string, qty, stop float64) (string, error)

	// OrderTargetPercent submits a market order sized to bring the symbol's
	// position to pct of total portfolio value at the current price. It
	// returns an empty ID when no adjustment is needed.
	OrderTargetPercent(symbol string, pct float64) (string, error)

	// Cancel cancels a pending order. It returns false when the order is
	// unknown or already terminal.
	Cancel(orderID string) bool
}

// Strategy is the interface all trading strategies implement. Init runs once
// before the first bar and may be a no-op; OnBar runs once per simulation
// tick with the snapshot of bars stamped at that tick.
type Strategy interface {
	// Name returns the unique identifier for this strategy.
	Name() string

	// Init performs any one-time setup before the simulation starts.
	Init(ctx context.Context, bt Context) error

	// OnBar is called once per tick. bars holds only the symbols that have
	// a bar at the tick's timestamp.
	OnBar(ctx context.Context, bt Context, bars map[string]domain.Bar) error
}

// Registry holds a named collection of strategies for lookup and enumeration.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry creates an empty strategy Registry.
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[string]Strategy),
	}
}

// Register adds a strategy to the registry, keyed by its Name().
func (r *Registry) Register(s Strategy) {
	r.strategies[s.Name()] = s
}

// Get retrieves a strategy by name. The second return value indicates whether
// the strategy was found.
func (r *Registry) Get(name string) (Strategy, bool) {
	s, ok := r.strategies[name]
	return s, ok
}

// List returns a sorted slice of all registered strategy names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
