package backtest

import (
	"math"
	"reflect"
	"testing"
	"time"

	"marlin/internal/domain"
)

func curveOf(values ...float64) []domain.EquityPoint {
	pts := make([]domain.EquityPoint, 0, len(values))
	for i, v := range values {
		pts = append(pts, domain.EquityPoint{
			Timestamp:  time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC),
			TotalValue: v,
		})
	}
	return pts
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestMaxDrawdown(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"reference peak holds through later highs", []float64{100, 120, 90, 150, 80}, (120.0 - 80.0) / 120.0},
		{"single decline", []float64{100, 120, 90}, 0.25},
		{"monotonic rise", []float64{100, 110, 120}, 0},
		{"empty curve", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := maxDrawdown(curveOf(tt.values...))
			if !almostEqual(got, tt.want) {
				t.Errorf("maxDrawdown(%v) = %v, want %v", tt.values, got, tt.want)
			}
		})
	}
}

func TestRiskAdjustedDegenerate(t *testing.T) {
	constant := []domain.DailyReturn{
		{Date: "2024-01-01", Return: 0.01},
		{Date: "2024-01-02", Return: 0.01},
		{Date: "2024-01-03", Return: 0.01},
	}
	sharpe, sortino := riskAdjusted(constant, 0)
	if sharpe != 0 {
		t.Errorf("zero-variance sharpe = %v, want 0", sharpe)
	}
	if sortino != 0 {
		t.Errorf("no-downside sortino = %v, want 0", sortino)
	}

	sharpe, sortino = riskAdjusted(nil, 0.02)
	if sharpe != 0 || sortino != 0 {
		t.Errorf("empty series = (%v, %v), want (0, 0)", sharpe, sortino)
	}
	if math.IsNaN(sharpe) || math.IsInf(sharpe, 0) {
		t.Errorf("sharpe must be finite, got %v", sharpe)
	}
}

func TestRiskAdjustedKnownValue(t *testing.T) {
	daily := []domain.DailyReturn{
		{Date: "2024-01-01", Return: 0.02},
		{Date: "2024-01-02", Return: 0.0},
	}
	sharpe, _ := riskAdjusted(daily, 0)
	// mean 0.01, population std 0.01, annualized by sqrt(252)
	want := math.Sqrt(252)
	if !almostEqual(sharpe, want) {
		t.Errorf("sharpe = %v, want %v", sharpe, want)
	}
}

func TestTradeStats(t *testing.T) {
	realizations := []domain.Realization{
		{Symbol: "AAPL", PnL: 10},
		{Symbol: "AAPL", PnL: -5},
		{Symbol: "MSFT", PnL: 15},
	}
	winRate, pf := tradeStats(realizations)
	if !almostEqual(winRate, 2.0/3.0) {
		t.Errorf("winRate = %v, want %v", winRate, 2.0/3.0)
	}
	if !almostEqual(pf, 5.0) {
		t.Errorf("profitFactor = %v, want 5", pf)
	}

	winRate, pf = tradeStats(nil)
	if winRate != 0 || pf != 0 {
		t.Errorf("no realizations = (%v, %v), want (0, 0)", winRate, pf)
	}

	// All winners: profit factor degenerates to 0 rather than infinity.
	_, pf = tradeStats([]domain.Realization{{PnL: 10}, {PnL: 20}})
	if pf != 0 {
		t.Errorf("no-loss profitFactor = %v, want 0", pf)
	}
}

func TestAnnualReturn(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)
	got := annualReturn(0.10, start, end)
	if !almostEqual(got, 0.10) {
		t.Errorf("one-year annual return = %v, want 0.10", got)
	}
	if got := annualReturn(0.10, start, start); got != 0 {
		t.Errorf("zero-span annual return = %v, want 0", got)
	}
	if got := annualReturn(-1.0, start, end); got != -1 {
		t.Errorf("total wipeout annual return = %v, want -1", got)
	}
}

func TestSummarizeIdempotent(t *testing.T) {
	curve := curveOf(10000, 10200, 9800, 10500)
	daily := []domain.DailyReturn{
		{Date: "2024-01-01", Return: 0.02},
		{Date: "2024-01-02", Return: -0.0392},
		{Date: "2024-01-03", Return: 0.0714},
	}
	realizations := []domain.Realization{{Symbol: "AAPL", PnL: 120}, {Symbol: "AAPL", PnL: -40}}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)

	first := Summarize(curve, daily, realizations, 10000, start, end, 0.02)
	second := Summarize(curve, daily, realizations, 10000, start, end, 0.02)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Summarize is not idempotent: %+v vs %+v", first, second)
	}
	if !almostEqual(first.TotalReturn, 0.05) {
		t.Errorf("TotalReturn = %v, want 0.05", first.TotalReturn)
	}
	if first.TotalTrades != 2 {
		t.Errorf("TotalTrades = %d, want 2", first.TotalTrades)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := Summarize(nil, nil, nil, 10000, start, start.AddDate(0, 1, 0), 0)
	if m.TotalReturn != 0 || m.MaxDrawdown != 0 || m.SharpeRatio != 0 || m.WinRate != 0 {
		t.Errorf("empty inputs should produce zero metrics, got %+v", m)
	}
}
