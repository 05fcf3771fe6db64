package backtest

import "marlin/internal/domain"

// Status is the lifecycle state of a run.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status is a final state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Result is the full output of a run. Failed and cancelled runs carry the
// partial equity curve accumulated up to the point they stopped.
type Result struct {
	RunID    string `json:"run_id"`
	Strategy string `json:"strategy"`
	Status   Status `json:"status"`

	InitialCapital float64 `json:"initial_capital"`
	FinalCapital   float64 `json:"final_capital"`

	TotalReturn  float64 `json:"total_return"`
	AnnualReturn float64 `json:"annual_return"`
	MaxDrawdown  float64 `json:"max_drawdown"`
	SharpeRatio  float64 `json:"sharpe_ratio"`
	SortinoRatio float64 `json:"sortino_ratio"`
	WinRate      float64 `json:"win_rate"`
	ProfitFactor float64 `json:"profit_factor"`
	TotalTrades  int     `json:"total_trades"`

	EquityCurve  []domain.EquityPoint `json:"equity_curve"`
	DailyReturns []domain.DailyReturn `json:"daily_returns"`
	TradeRecords []domain.Order       `json:"trade_records"`

	Error string `json:"error,omitempty"`
}
