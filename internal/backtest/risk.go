package backtest

import (
	"fmt"

	"marlin/internal/domain"
)

// RiskManager enforces pre-trade risk rules such as position sizing limits.
type RiskManager struct {
	maxPositionPct float64
}

// NewRiskManager creates a RiskManager with the specified risk thresholds.
//
//   - maxPositionPct: maximum fraction of equity allowed in a single position
//     (e.g. 0.25 for 25%). Zero or negative disables the check.
func NewRiskManager(maxPositionPct float64) *RiskManager {
	return &RiskManager{maxPositionPct: maxPositionPct}
}

// CheckOrder evaluates whether the proposed order complies with the
// configured risk limits given the current account state. price is the
// latest reference price for the order's symbol.
func (rm *RiskManager) CheckOrder(o *domain.Order, price float64, acct domain.AccountInfo) error {
	if rm.maxPositionPct <= 0 || acct.Equity <= 0 {
		return nil
	}
	notional := o.Qty * price
	limit := rm.maxPositionPct * acct.Equity
	if notional > limit {
		return fmt.Errorf("order notional %.2f exceeds position limit %.2f (%.0f%% of equity)",
			notional, limit, rm.maxPositionPct*100)
	}
	return nil
}
