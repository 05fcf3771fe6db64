// Package store defines storage interfaces for historical bar data and
// backtest run records, with Parquet and SQLite implementations.
package store

import (
	"context"
	"time"

	"marlin/internal/domain"
)

// BarStore persists and retrieves OHLCV bar data. It is the historical-data
// collaborator queried by the backtest replay at load time.
type BarStore interface {
	// WriteBars persists a batch of bars under the given market.
	WriteBars(ctx context.Context, market domain.Market, bars []domain.Bar) error

	// ReadBars returns bars for the given symbol and market within
	// [start, end], sorted by timestamp ascending.
	ReadBars(ctx context.Context, symbol string, market domain.Market, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols available in the given market.
	ListSymbols(ctx context.Context, market domain.Market) ([]string, error)
}

// RunRecord is the persisted state of one backtest run: identity, lifecycle
// status, coarse progress, and the serialized result once the run finishes.
type RunRecord struct {
	ID        string
	Strategy  string
	Symbols   string // comma-separated
	Start     time.Time
	End       time.Time
	Status    string
	Progress  int // 0-100
	Result    string // JSON-encoded backtest.Result, empty until terminal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RunStore persists and retrieves backtest run records.
type RunStore interface {
	// CreateRun inserts a new run record.
	CreateRun(ctx context.Context, rec *RunRecord) error

	// UpdateRunProgress updates the status and progress of an existing run.
	UpdateRunProgress(ctx context.Context, id, status string, progress int) error

	// SaveRunResult stores the terminal status and serialized result.
	SaveRunResult(ctx context.Context, id, status, result string) error

	// GetRun retrieves a single run record by its ID.
	GetRun(ctx context.Context, id string) (*RunRecord, error)

	// ListRuns returns the most recent run records, up to limit.
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
}
