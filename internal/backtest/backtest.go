// Package backtest replays historical bar data through a strategy against a
// simulated order book and portfolio ledger, and summarizes the outcome.
package backtest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"marlin/internal/domain"
	"marlin/internal/ledger"
	"marlin/internal/matching"
	"marlin/internal/replay"
	"marlin/internal/store"
	"marlin/internal/strategy"
	"marlin/internal/util"
)

// BarFrequencyDaily is the only bar interval stored today; the config field
// exists so other intervals can be added without changing the run contract.
const BarFrequencyDaily = "daily"

// RunConfig holds the parameters of a single run.
type RunConfig struct {
	// RunID optionally pre-assigns the run's identifier so callers that
	// launch runs asynchronously can hand out the ID before the run
	// starts. Empty means a fresh UUID is generated.
	RunID string

	Symbols        []string
	Market         domain.Market
	Start          time.Time
	End            time.Time
	InitialCapital float64

	// BarFrequency selects the bar interval driving the clock. Daily is
	// the only frequency the bar store holds; empty means daily.
	BarFrequency string

	SlippageRate   float64
	CommissionRate float64
	RiskFreeRate   float64
	MaxPositionPct float64

	// SessionTimezone names the IANA zone used to cut daily returns at
	// session boundaries. Empty means UTC.
	SessionTimezone string

	// ContinueOnError keeps the run going past strategy callback errors
	// instead of aborting to failed.
	ContinueOnError bool
}

func (cfg *RunConfig) validate() error {
	switch {
	case len(cfg.Symbols) == 0:
		return &ConfigurationError{Reason: "no symbols"}
	case cfg.InitialCapital <= 0:
		return &ConfigurationError{Reason: fmt.Sprintf("initial capital must be positive, got %v", cfg.InitialCapital)}
	case !cfg.Start.Before(cfg.End):
		return &ConfigurationError{Reason: "start must precede end"}
	case cfg.SlippageRate < 0 || cfg.SlippageRate >= 1:
		return &ConfigurationError{Reason: fmt.Sprintf("slippage rate out of range: %v", cfg.SlippageRate)}
	case cfg.CommissionRate < 0 || cfg.CommissionRate >= 1:
		return &ConfigurationError{Reason: fmt.Sprintf("commission rate out of range: %v", cfg.CommissionRate)}
	case cfg.BarFrequency != "" && cfg.BarFrequency != BarFrequencyDaily:
		return &ConfigurationError{Reason: "unsupported bar frequency " + cfg.BarFrequency}
	}
	return nil
}

// Backtester replays historical bar data through a strategy and computes
// performance metrics.
type Backtester struct {
	bars     store.BarStore
	registry *strategy.Registry
	runs     store.RunStore // optional
	sink     StatusSink     // optional
	log      *slog.Logger
}

// NewBacktester creates a Backtester that reads bars from the given store and
// looks up strategies in the provided registry.
func NewBacktester(bars store.BarStore, registry *strategy.Registry, log *slog.Logger) *Backtester {
	return &Backtester{
		bars:     bars,
		registry: registry,
		log:      log,
	}
}

// WithRunStore persists run records and results to rs.
func (bt *Backtester) WithRunStore(rs store.RunStore) *Backtester {
	bt.runs = rs
	return bt
}

// WithStatusSink forwards throttled progress updates to sink.
func (bt *Backtester) WithStatusSink(sink StatusSink) *Backtester {
	bt.sink = sink
	return bt
}

// Run executes a backtest for the named strategy. It returns a Result for
// every run that got past configuration and data loading, including failed
// and cancelled ones: those carry the partial equity curve plus a non-nil
// error describing what stopped the run.
func (bt *Backtester) Run(ctx context.Context, name string, cfg RunConfig) (*Result, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	strat, ok := bt.registry.Get(name)
	if !ok {
		return nil, &ConfigurationError{Reason: "unknown strategy " + name}
	}
	clock, err := util.NewSessionClock(cfg.SessionTimezone)
	if err != nil {
		return nil, &ConfigurationError{Reason: "bad session timezone: " + err.Error()}
	}

	rep, err := replay.Load(ctx, bt.bars, cfg.Market, cfg.Symbols, cfg.Start, cfg.End)
	if err != nil {
		return nil, err
	}

	runID := cfg.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	res := &Result{
		RunID:          runID,
		Strategy:       name,
		Status:         StatusPending,
		InitialCapital: cfg.InitialCapital,
	}
	log := bt.log.With("run_id", res.RunID, "strategy", name)
	bt.createRun(ctx, res, cfg, log)

	led := ledger.New(cfg.InitialCapital, clock)
	sim := matching.NewSimulator(cfg.SlippageRate, cfg.CommissionRate)
	rc := &runContext{rep: rep, sim: sim, led: led}
	if cfg.MaxPositionPct > 0 {
		rc.risk = NewRiskManager(cfg.MaxPositionPct)
	}

	res.Status = StatusRunning
	bt.report(ctx, res.RunID, StatusRunning, 0)
	log.Info("backtest started",
		"symbols", strings.Join(cfg.Symbols, ","),
		"start", cfg.Start.Format(time.DateOnly),
		"end", cfg.End.Format(time.DateOnly),
		"ticks", len(rep.Timestamps()))

	if err := guard(cfg.Start, func() error { return strat.Init(ctx, rc) }); err != nil {
		return bt.abort(ctx, res, rc, led, cfg, StatusFailed, err, log)
	}

	ticks := rep.Timestamps()
	lastPct := 0
	for i, ts := range ticks {
		if ctx.Err() != nil {
			return bt.abort(ctx, res, rc, led, cfg, StatusCancelled, ctx.Err(), log)
		}
		rc.now = ts
		snap := rep.At(ts)

		// Orders pending from earlier ticks match first, then the
		// strategy sees the tick, then orders it just created get a
		// same-tick match against the same bars.
		bt.applyFills(led, sim.Match(ts, snap), log)
		prices := closePrices(snap)
		led.MarkToMarket(prices)

		if err := guard(ts, func() error { return strat.OnBar(ctx, rc, snap) }); err != nil {
			if !cfg.ContinueOnError {
				return bt.abort(ctx, res, rc, led, cfg, StatusFailed, err, log)
			}
			log.Warn("strategy error ignored", "tick", ts, "error", err)
		}

		bt.applyFills(led, sim.Match(ts, snap), log)
		led.MarkToMarket(prices)
		led.RecordEquity(ts)

		if pct := (i + 1) * 100 / len(ticks); pct != lastPct {
			lastPct = pct
			bt.report(ctx, res.RunID, StatusRunning, pct)
		}
	}
	led.CloseFinalSession()

	bt.finalize(res, rc, led, cfg, StatusCompleted, nil)
	bt.saveResult(ctx, res, log)
	log.Info("backtest completed",
		"final_capital", res.FinalCapital,
		"total_return", res.TotalReturn,
		"trades", res.TotalTrades)
	return res, nil
}

// guard converts a strategy callback error or panic into a StrategyError
// stamped with the tick it happened on.
func guard(tick time.Time, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &StrategyError{Tick: tick, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	if e := fn(); e != nil {
		return &StrategyError{Tick: tick, Err: e}
	}
	return nil
}

func (bt *Backtester) applyFills(led *ledger.Ledger, fills []*domain.Order, log *slog.Logger) {
	for _, o := range fills {
		led.ApplyFill(o)
		log.Debug("order filled",
			"order_id", o.ID,
			"symbol", o.Symbol,
			"side", string(o.Side),
			"qty", o.FilledQty,
			"price", o.FilledPrice,
			"commission", o.Commission)
	}
}

// abort finishes a run that stopped early, preserving the equity recorded so
// far, and returns the partial result together with the stopping error.
func (bt *Backtester) abort(ctx context.Context, res *Result, rc *runContext, led *ledger.Ledger, cfg RunConfig, status Status, cause error, log *slog.Logger) (*Result, error) {
	led.CloseFinalSession()
	bt.finalize(res, rc, led, cfg, status, cause)
	bt.saveResult(ctx, res, log)
	log.Warn("backtest stopped", "status", string(status), "error", cause)
	return res, cause
}

func (bt *Backtester) finalize(res *Result, rc *runContext, led *ledger.Ledger, cfg RunConfig, status Status, cause error) {
	res.Status = status
	if cause != nil {
		res.Error = cause.Error()
	}
	res.EquityCurve = led.EquityCurve()
	res.DailyReturns = led.DailyReturns()
	res.TradeRecords = make([]domain.Order, 0, len(rc.orders))
	for _, o := range rc.orders {
		res.TradeRecords = append(res.TradeRecords, *o)
	}
	res.FinalCapital = cfg.InitialCapital
	if n := len(res.EquityCurve); n > 0 {
		res.FinalCapital = res.EquityCurve[n-1].TotalValue
	}
	m := Summarize(res.EquityCurve, res.DailyReturns, led.Realizations(), cfg.InitialCapital, cfg.Start, cfg.End, cfg.RiskFreeRate)
	res.TotalReturn = m.TotalReturn
	res.AnnualReturn = m.AnnualReturn
	res.MaxDrawdown = m.MaxDrawdown
	res.SharpeRatio = m.SharpeRatio
	res.SortinoRatio = m.SortinoRatio
	res.WinRate = m.WinRate
	res.ProfitFactor = m.ProfitFactor
	res.TotalTrades = m.TotalTrades
}

func closePrices(snap map[string]domain.Bar) map[string]float64 {
	prices := make(map[string]float64, len(snap))
	for sym, bar := range snap {
		prices[sym] = bar.Close
	}
	return prices
}

// --- run persistence ---

func (bt *Backtester) createRun(ctx context.Context, res *Result, cfg RunConfig, log *slog.Logger) {
	if bt.runs == nil {
		return
	}
	// Callers that pre-assign the run ID may register the record themselves
	// before the run starts; don't insert it twice.
	if _, err := bt.runs.GetRun(ctx, res.RunID); err == nil {
		return
	}
	now := time.Now()
	rec := &store.RunRecord{
		ID:        res.RunID,
		Strategy:  res.Strategy,
		Symbols:   strings.Join(cfg.Symbols, ","),
		Start:     cfg.Start,
		End:       cfg.End,
		Status:    string(StatusPending),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := bt.runs.CreateRun(ctx, rec); err != nil {
		log.Warn("create run record", "error", err)
	}
}

func (bt *Backtester) report(ctx context.Context, runID string, status Status, progress int) {
	if bt.sink != nil {
		bt.sink.ReportProgress(ctx, runID, status, progress)
	}
	if bt.runs != nil {
		if err := bt.runs.UpdateRunProgress(ctx, runID, string(status), progress); err != nil {
			bt.log.Warn("update run progress", "run_id", runID, "error", err)
		}
	}
}

func (bt *Backtester) saveResult(ctx context.Context, res *Result, log *slog.Logger) {
	if bt.sink != nil && res.Status == StatusCompleted {
		bt.sink.ReportProgress(ctx, res.RunID, res.Status, 100)
	}
	if bt.runs == nil {
		return
	}
	// The run record outlives a cancelled context.
	ctx = context.WithoutCancel(ctx)
	body, err := json.Marshal(res)
	if err != nil {
		log.Warn("marshal run result", "error", err)
		return
	}
	if err := bt.runs.SaveRunResult(ctx, res.RunID, string(res.Status), string(body)); err != nil {
		log.Warn("save run result", "error", err)
	}
}
