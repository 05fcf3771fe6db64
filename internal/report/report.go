// Package report renders backtest results as human-readable text.
package report

import (
	"fmt"
	"strings"

	"marlin/internal/backtest"
)

// FormatInt formats an integer with comma separators.
func FormatInt(n int) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	start := len(s) % 3
	if start > 0 {
		b.WriteString(s[:start])
	}
	for i := start; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatMoney formats a dollar value with B/M/K suffixes for large amounts.
func FormatMoney(v float64) string {
	neg := ""
	if v < 0 {
		neg = "-"
		v = -v
	}
	switch {
	case v >= 1e9:
		return fmt.Sprintf("%s$%.2fB", neg, v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("%s$%.2fM", neg, v/1e6)
	default:
		return fmt.Sprintf("%s$%.2f", neg, v)
	}
}

// FormatPct formats a fraction as a signed percentage, dropping the decimal
// for magnitudes of 100% or more to keep width compact.
func FormatPct(f float64) string {
	pct := f * 100
	if pct >= 100 || pct <= -100 {
		return fmt.Sprintf("%+.0f%%", pct)
	}
	return fmt.Sprintf("%+.2f%%", pct)
}

// Render produces a multi-line text summary of a backtest result.
func Render(res *backtest.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run           %s (%s)\n", res.RunID, res.Status)
	fmt.Fprintf(&b, "Strategy      %s\n", res.Strategy)
	fmt.Fprintf(&b, "Capital       %s -> %s\n", FormatMoney(res.InitialCapital), FormatMoney(res.FinalCapital))
	fmt.Fprintf(&b, "Total return  %s  (annualized %s)\n", FormatPct(res.TotalReturn), FormatPct(res.AnnualReturn))
	fmt.Fprintf(&b, "Max drawdown  %.2f%%\n", res.MaxDrawdown*100)
	fmt.Fprintf(&b, "Sharpe        %.2f   Sortino %.2f\n", res.SharpeRatio, res.SortinoRatio)
	fmt.Fprintf(&b, "Trades        %s   win rate %.1f%%   profit factor %.2f\n",
		FormatInt(res.TotalTrades), res.WinRate*100, res.ProfitFactor)
	fmt.Fprintf(&b, "Equity points %s   daily returns %s\n",
		FormatInt(len(res.EquityCurve)), FormatInt(len(res.DailyReturns)))
	if res.Error != "" {
		fmt.Fprintf(&b, "Error         %s\n", res.Error)
	}
	return b.String()
}
