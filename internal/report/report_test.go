package report

import (
	"strings"
	"testing"

	"marlin/internal/backtest"
)

func TestFormatInt(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
	}
	for _, tt := range tests {
		if got := FormatInt(tt.n); got != tt.want {
			t.Errorf("FormatInt(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		v    float64
		want string
	}{
		{100000, "$100000.00"},
		{2500000, "$2.50M"},
		{1.5e9, "$1.50B"},
		{-1234.5, "-$1234.50"},
	}
	for _, tt := range tests {
		if got := FormatMoney(tt.v); got != tt.want {
			t.Errorf("FormatMoney(%v) = %q, want %q", tt.v, got, tt.want)
		}
	}
}

func TestFormatPct(t *testing.T) {
	tests := []struct {
		f    float64
		want string
	}{
		{0.235, "+23.50%"},
		{-0.05, "-5.00%"},
		{1.5, "+150%"},
	}
	for _, tt := range tests {
		if got := FormatPct(tt.f); got != tt.want {
			t.Errorf("FormatPct(%v) = %q, want %q", tt.f, got, tt.want)
		}
	}
}

func TestRenderIncludesKeyFigures(t *testing.T) {
	res := &backtest.Result{
		RunID:          "run-1",
		Strategy:       "sma-cross",
		Status:         backtest.StatusCompleted,
		InitialCapital: 100000,
		FinalCapital:   123456.78,
		TotalReturn:    0.2346,
		MaxDrawdown:    0.123,
		TotalTrades:    42,
		WinRate:        0.55,
	}
	out := Render(res)
	for _, want := range []string{"run-1", "sma-cross", "completed", "+23.46%", "12.30%", "42"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered report missing %q:\n%s", want, out)
		}
	}
}
