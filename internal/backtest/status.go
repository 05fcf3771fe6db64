package backtest

import (
	"context"
	"log/slog"
)

// StatusSink receives lifecycle and progress updates for a run. The
// orchestrator throttles calls so a sink only sees integer-percent changes.
type StatusSink interface {
	ReportProgress(ctx context.Context, runID string, status Status, progress int)
}

// LogSink reports run progress to a structured logger.
type LogSink struct {
	log *slog.Logger
}

var _ StatusSink = (*LogSink)(nil)

// NewLogSink creates a StatusSink that logs progress updates.
func NewLogSink(log *slog.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) ReportProgress(_ context.Context, runID string, status Status, progress int) {
	s.log.Info("run progress",
		"run_id", runID,
		"status", string(status),
		"progress", progress)
}
