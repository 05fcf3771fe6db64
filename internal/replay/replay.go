// Package replay provides point-in-time access to historical bar data for a
// backtest run. A Replay owns an immutable, per-symbol sorted copy of the
// bars in the requested range and serves lookups with zero lookahead: no call
// ever returns a bar with a timestamp after the queried time.
package replay

import (
	"context"
	"fmt"
	"sort"
	"time"

	"marlin/internal/domain"
	"marlin/internal/store"
)

// DataUnavailableError reports a symbol with no bar data in the requested
// range. It is returned at load time, before any simulation state exists.
type DataUnavailableError struct {
	Symbol string
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("no bar data available for symbol %s", e.Symbol)
}

// Replay serves point-in-time bar data. Lookups use per-symbol monotonic
// cursors, so the query time must be non-decreasing across calls — the
// backtest clock only moves forward. Each run owns its own Replay; the type
// is not safe for concurrent use.
type Replay struct {
	bars    map[string][]domain.Bar
	cursors map[string]int // index of the first bar not yet at or before the last queried time
	clock   []time.Time    // sorted union of all symbols' bar timestamps
}

// Load reads bars for every symbol from the store and builds a Replay over
// [start, end]. A symbol with no bars in the range yields a
// DataUnavailableError.
func Load(ctx context.Context, bs store.BarStore, market domain.Market, symbols []string, start, end time.Time) (*Replay, error) {
	r := &Replay{
		bars:    make(map[string][]domain.Bar, len(symbols)),
		cursors: make(map[string]int, len(symbols)),
	}

	seen := make(map[int64]struct{})
	for _, sym := range symbols {
		bars, err := bs.ReadBars(ctx, sym, market, start, end)
		if err != nil {
			return nil, fmt.Errorf("reading bars for %s: %w", sym, err)
		}
		if len(bars) == 0 {
			return nil, &DataUnavailableError{Symbol: sym}
		}
		sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })
		r.bars[sym] = bars

		for _, b := range bars {
			ms := b.Timestamp.UnixMilli()
			if _, dup := seen[ms]; !dup {
				seen[ms] = struct{}{}
				r.clock = append(r.clock, b.Timestamp)
			}
		}
	}

	sort.Slice(r.clock, func(i, j int) bool { return r.clock[i].Before(r.clock[j]) })
	return r, nil
}

// Timestamps returns the sorted union of all symbols' bar timestamps — the
// global clock a backtest iterates over.
func (r *Replay) Timestamps() []time.Time {
	return r.clock
}

// Symbols returns the symbols loaded into this replay, sorted.
func (r *Replay) Symbols() []string {
	syms := make([]string, 0, len(r.bars))
	for s := range r.bars {
		syms = append(syms, s)
	}
	sort.Strings(syms)
	return syms
}

// advance moves the symbol's cursor forward so it points just past the last
// bar with timestamp <= t, and returns the new cursor value. Amortized O(1)
// per tick while t advances monotonically.
func (r *Replay) advance(symbol string, t time.Time) int {
	bars := r.bars[symbol]
	cur := r.cursors[symbol]
	for cur < len(bars) && !bars[cur].Timestamp.After(t) {
		cur++
	}
	r.cursors[symbol] = cur
	return cur
}

// Bar returns the latest bar for symbol with timestamp <= t. The second
// return value is false when the symbol is unknown or has no bar at or
// before t.
func (r *Replay) Bar(symbol string, t time.Time) (domain.Bar, bool) {
	bars, ok := r.bars[symbol]
	if !ok {
		return domain.Bar{}, false
	}
	cur := r.advance(symbol, t)
	if cur == 0 {
		return domain.Bar{}, false
	}
	return bars[cur-1], true
}

// Window returns up to n most recent bars for symbol with timestamp <= t,
// oldest first. The returned slice is a copy.
func (r *Replay) Window(symbol string, t time.Time, n int) []domain.Bar {
	bars, ok := r.bars[symbol]
	if !ok || n <= 0 {
		return nil
	}
	cur := r.advance(symbol, t)
	lo := cur - n
	if lo < 0 {
		lo = 0
	}
	if lo == cur {
		return nil
	}
	out := make([]domain.Bar, cur-lo)
	copy(out, bars[lo:cur])
	return out
}

// At returns the snapshot of bars stamped exactly t, keyed by symbol.
// Symbols without a bar at t are omitted, not zero-filled.
func (r *Replay) At(t time.Time) map[string]domain.Bar {
	snap := make(map[string]domain.Bar)
	for sym, bars := range r.bars {
		cur := r.advance(sym, t)
		if cur > 0 && bars[cur-1].Timestamp.Equal(t) {
			snap[sym] = bars[cur-1]
		}
	}
	return snap
}
