// Serves the backtest HTTP API.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"marlin/internal/backtest"
	"marlin/internal/config"
	"marlin/internal/httpapi"
	"marlin/internal/store"
	"marlin/internal/strategy"
	"marlin/internal/strategy/builtins"
	"marlin/internal/util"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	flag.Parse()

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

	bars := store.NewParquetStore(cfg.Storage.DataDir)
	runs, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("failed to open run store: %v", err)
	}
	defer runs.Close()

	registry := strategy.NewRegistry()
	registry.Register(builtins.NewSMACross(10, 30, 0.9))

	bt := backtest.NewBacktester(bars, registry, logger).WithRunStore(runs)
	server := httpapi.NewServer(bt, runs, bars, cfg.Backtest, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := server.Serve(ctx, *addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
