package gather

import (
	"context"
	"log/slog"
	"testing"
)

func newTestGatherer(symbols []string, startDate string) *DailyBarGatherer {
	return NewDailyBarGatherer("key", "secret", "https://data.alpaca.markets",
		nil, symbols, 200, 200, startDate, slog.New(slog.DiscardHandler))
}

func TestDailyBarGathererName(t *testing.T) {
	g := newTestGatherer([]string{"AAPL"}, "2016-01-01")
	if got := g.Name(); got != "us-daily" {
		t.Errorf("DailyBarGatherer.Name() = %q, want %q", got, "us-daily")
	}
}

func TestDailyBarGathererRejectsEmptySymbols(t *testing.T) {
	g := newTestGatherer(nil, "2016-01-01")
	if err := g.Run(context.Background()); err == nil {
		t.Error("Run() with no symbols should fail")
	}
}

func TestDailyBarGathererRejectsBadStartDate(t *testing.T) {
	g := newTestGatherer([]string{"AAPL"}, "01/02/2016")
	if err := g.Run(context.Background()); err == nil {
		t.Error("Run() with malformed start date should fail")
	}
}
