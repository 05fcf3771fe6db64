// Runs one backtest from the command line and prints the result as JSON.
//
// Usage:
//
//	marlin-backtest -strategy sma-cross -symbols AAPL,MSFT -start 2022-01-01 -end 2023-12-31 -capital 100000
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"marlin/internal/backtest"
	"marlin/internal/config"
	"marlin/internal/domain"
	"marlin/internal/report"
	"marlin/internal/store"
	"marlin/internal/strategy"
	"marlin/internal/strategy/builtins"
	"marlin/internal/util"
)

func main() {
	var (
		strategyName = flag.String("strategy", "sma-cross", "registered strategy name")
		symbolsFlag  = flag.String("symbols", "", "comma-separated symbols (required)")
		startFlag    = flag.String("start", "", "start date YYYY-MM-DD (required)")
		endFlag      = flag.String("end", "", "end date YYYY-MM-DD (required)")
		capital      = flag.Float64("capital", 100000, "initial capital")
		market       = flag.String("market", "us", "market: us or cn")
		smaShort     = flag.Int("sma-short", 10, "short SMA period for sma-cross")
		smaLong      = flag.Int("sma-long", 30, "long SMA period for sma-cross")
		smaTarget    = flag.Float64("sma-target", 0.9, "target position fraction for sma-cross")
		format       = flag.String("format", "text", "output format: text or json")
	)
	flag.Parse()

	if *symbolsFlag == "" || *startFlag == "" || *endFlag == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfgPath := "config/marlin.yaml"
	if p := os.Getenv("MARLIN_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	start, err := time.Parse("2006-01-02", *startFlag)
	if err != nil {
		log.Fatalf("bad -start: %v", err)
	}
	end, err := time.Parse("2006-01-02", *endFlag)
	if err != nil {
		log.Fatalf("bad -end: %v", err)
	}

	registry := strategy.NewRegistry()
	registry.Register(builtins.NewSMACross(*smaShort, *smaLong, *smaTarget))

	bars := store.NewParquetStore(cfg.Storage.DataDir)
	bt := backtest.NewBacktester(bars, registry, logger).
		WithStatusSink(backtest.NewLogSink(logger))

	if cfg.Storage.SQLitePath != "" {
		runs, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
		if err != nil {
			log.Fatalf("failed to open run store: %v", err)
		}
		defer runs.Close()
		bt.WithRunStore(runs)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	res, err := bt.Run(ctx, *strategyName, backtest.RunConfig{
		Symbols:         strings.Split(*symbolsFlag, ","),
		Market:          domain.Market(*market),
		Start:           start,
		End:             end,
		InitialCapital:  *capital,
		SlippageRate:    cfg.Backtest.SlippageRate,
		CommissionRate:  cfg.Backtest.CommissionRate,
		RiskFreeRate:    cfg.Backtest.RiskFreeRate,
		MaxPositionPct:  cfg.Backtest.MaxPositionPct,
		SessionTimezone: cfg.Backtest.SessionTimezone,
		ContinueOnError: cfg.Backtest.ContinueOnError,
	})
	if err != nil {
		if res != nil {
			// Partial results still print so the failure can be diagnosed.
			printResult(res, *format)
		}
		log.Fatalf("backtest error: %v", err)
	}
	printResult(res, *format)
}

func printResult(res *backtest.Result, format string) {
	if format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			log.Fatalf("encoding result: %v", err)
		}
		return
	}
	os.Stdout.WriteString(report.Render(res))
}
