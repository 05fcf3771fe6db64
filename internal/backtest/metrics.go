package backtest

import (
	"math"
	"time"

	"marlin/internal/domain"
)

// tradingDaysPerYear annualizes daily return statistics.
const tradingDaysPerYear = 252

// Metrics is the pure summary of a finished (or aborted) run. Every field is
// a plain float: degenerate inputs such as an empty curve or zero-variance
// returns yield 0, never NaN or Inf.
type Metrics struct {
	TotalReturn  float64
	AnnualReturn float64
	MaxDrawdown  float64
	SharpeRatio  float64
	SortinoRatio float64
	WinRate      float64
	ProfitFactor float64
	TotalTrades  int
}

// Summarize computes performance metrics from the raw run artifacts. It is a
// pure function of its inputs and may be called any number of times with the
// same result.
func Summarize(curve []domain.EquityPoint, daily []domain.DailyReturn, realizations []domain.Realization, initialCapital float64, start, end time.Time, riskFreeRate float64) Metrics {
	m := Metrics{TotalTrades: len(realizations)}

	final := initialCapital
	if len(curve) > 0 {
		final = curve[len(curve)-1].TotalValue
	}
	if initialCapital > 0 {
		m.TotalReturn = (final - initialCapital) / initialCapital
	}
	m.AnnualReturn = annualReturn(m.TotalReturn, start, end)
	m.MaxDrawdown = maxDrawdown(curve)
	m.SharpeRatio, m.SortinoRatio = riskAdjusted(daily, riskFreeRate)
	m.WinRate, m.ProfitFactor = tradeStats(realizations)
	return m
}

// annualReturn compounds the total return over the run's calendar span using
// a 365-day year. Spans of zero or negative length yield 0.
func annualReturn(totalReturn float64, start, end time.Time) float64 {
	days := end.Sub(start).Hours() / 24
	if days <= 0 {
		return 0
	}
	growth := 1 + totalReturn
	if growth <= 0 {
		return -1
	}
	return math.Pow(growth, 365/days) - 1
}

// maxDrawdown is the largest decline of the equity curve from its reference
// peak, expressed as a positive fraction of that peak. The reference peak is
// the high reached before the first decline; highs reached after a drawdown
// is already on record do not reset it, so the figure reflects loss relative
// to the level the account first failed to hold.
func maxDrawdown(curve []domain.EquityPoint) float64 {
	var peak, maxDD float64
	for _, pt := range curve {
		v := pt.TotalValue
		if maxDD == 0 && v > peak {
			peak = v
		}
		if peak > 0 {
			if dd := (peak - v) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// riskAdjusted computes annualized Sharpe and Sortino ratios from daily
// returns. Fewer than two observations, zero variance, or zero downside
// deviation all yield 0 for the affected ratio.
func riskAdjusted(daily []domain.DailyReturn, riskFreeRate float64) (sharpe, sortino float64) {
	if len(daily) < 2 {
		return 0, 0
	}
	dailyRF := riskFreeRate / tradingDaysPerYear

	var sum float64
	for _, d := range daily {
		sum += d.Return - dailyRF
	}
	mean := sum / float64(len(daily))

	var variance, downside float64
	for _, d := range daily {
		excess := d.Return - dailyRF
		diff := excess - mean
		variance += diff * diff
		if excess < 0 {
			downside += excess * excess
		}
	}
	variance /= float64(len(daily))
	downside /= float64(len(daily))

	scale := math.Sqrt(tradingDaysPerYear)
	if std := math.Sqrt(variance); std > 0 {
		sharpe = mean / std * scale
	}
	if dd := math.Sqrt(downside); dd > 0 {
		sortino = mean / dd * scale
	}
	return sharpe, sortino
}

// tradeStats derives win rate and profit factor from realized round trips.
// No realizations, or no losing trades, yield 0 for the affected stat.
func tradeStats(realizations []domain.Realization) (winRate, profitFactor float64) {
	if len(realizations) == 0 {
		return 0, 0
	}
	var wins int
	var grossProfit, grossLoss float64
	for _, r := range realizations {
		if r.PnL > 0 {
			wins++
			grossProfit += r.PnL
		} else {
			grossLoss += -r.PnL
		}
	}
	winRate = float64(wins) / float64(len(realizations))
	if grossLoss > 0 {
		profitFactor = grossProfit / grossLoss
	}
	return winRate, profitFactor
}
