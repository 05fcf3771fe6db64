// Package builtins provides built-in strategy implementations that ship with
// the marlin platform.
package builtins

import (
	"context"
	"sort"

	"marlin/internal/domain"
	"marlin/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*SMACross)(nil)

// SMACross implements a simple moving average crossover strategy. It buys
// into a symbol when the short-period SMA crosses above the long-period SMA
// and exits when it crosses below.
type SMACross struct {
	shortPeriod int
	longPeriod  int
	targetPct   float64 // portfolio fraction per symbol while long

	// previous tick's short-minus-long difference per symbol, used to detect
	// the crossing itself rather than the level.
	prevDiff map[string]float64
}

// NewSMACross creates a new SMACross strategy with the specified short and
// long moving average periods. targetPct is the portfolio fraction allocated
// to a symbol while its signal is long.
func NewSMACross(short, long int, targetPct float64) *SMACross {
	return &SMACross{
		shortPeriod: short,
		longPeriod:  long,
		targetPct:   targetPct,
		prevDiff:    make(map[string]float64),
	}
}

// Name returns "sma-cross".
func (s *SMACross) Name() string {
	return "sma-cross"
}

// Init resets crossover tracking state.
func (s *SMACross) Init(_ context.Context, _ strategy.Context) error {
	s.prevDiff = make(map[string]float64)
	return nil
}

// OnBar evaluates the crossover for every symbol present in this tick's
// snapshot and adjusts positions through the strategy context. Symbols are
// visited in sorted order so order submission is deterministic.
func (s *SMACross) OnBar(_ context.Context, bt strategy.Context, bars map[string]domain.Bar) error {
	symbols := make([]string, 0, len(bars))
	for symbol := range bars {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	for _, symbol := range symbols {
		window := bt.RecentBars(symbol, s.longPeriod)
		if len(window) < s.longPeriod {
			continue // not enough history yet
		}

		shortSMA := closeAverage(window[len(window)-s.shortPeriod:])
		longSMA := closeAverage(window)
		diff := shortSMA - longSMA

		prev, seen := s.prevDiff[symbol]
		s.prevDiff[symbol] = diff
		if !seen {
			continue
		}

		pos := bt.Position(symbol)
		switch {
		case prev <= 0 && diff > 0 && pos.Qty == 0:
			if _, err := bt.OrderTargetPercent(symbol, s.targetPct); err != nil {
				return err
			}
		case prev >= 0 && diff < 0 && pos.Qty > 0:
			if _, err := bt.Sell(symbol, pos.Qty); err != nil {
				return err
			}
		}
	}
	return nil
}

func closeAverage(bars []domain.Bar) float64 {
	if len(bars) == 0 {
		return 0
	}
	var sum float64
	for _, b := range bars {
		sum += b.Close
	}
	return sum / float64(len(bars))
}
