// Inspects saved backtest runs.
//
// Usage:
//
//	marlin-runs list [-n 20]
//	marlin-runs show <run-id>
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"marlin/internal/config"
	"marlin/internal/store"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: marlin-runs <command> [options]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  list    List recent backtest runs\n")
		fmt.Fprintf(os.Stderr, "  show    Print the stored result of one run\n")
		fmt.Fprintf(os.Stderr, "\n")
	}

	if len(os.Args) < 2 {
		flag.Usage()
		os.Exit(1)
	}

	cfgPath := "config/marlin.yaml"
	if p := os.Getenv("MARLIN_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	runs, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("failed to open run store: %v", err)
	}
	defer runs.Close()

	ctx := context.Background()

	switch os.Args[1] {
	case "list":
		fs := flag.NewFlagSet("list", flag.ExitOnError)
		limit := fs.Int("n", 20, "max runs to list")
		fs.Parse(os.Args[2:])

		recs, err := runs.ListRuns(ctx, *limit)
		if err != nil {
			log.Fatalf("listing runs: %v", err)
		}
		for _, r := range recs {
			fmt.Printf("%s  %-10s %3d%%  %-12s %s..%s  %s\n",
				r.ID, r.Status, r.Progress, r.Strategy,
				r.Start.Format(time.DateOnly), r.End.Format(time.DateOnly),
				r.Symbols)
		}

	case "show":
		if len(os.Args) < 3 {
			flag.Usage()
			os.Exit(1)
		}
		rec, err := runs.GetRun(ctx, os.Args[2])
		if err != nil {
			log.Fatalf("fetching run: %v", err)
		}
		if rec.Result == "" {
			fmt.Printf("run %s is %s, no result recorded yet\n", rec.ID, rec.Status)
			return
		}
		fmt.Println(rec.Result)

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		flag.Usage()
		os.Exit(1)
	}
}
