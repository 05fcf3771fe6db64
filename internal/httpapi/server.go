package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"marlin/internal/backtest"
	"marlin/internal/config"
	"marlin/internal/domain"
	"marlin/internal/store"
)

// Server exposes backtest runs over HTTP. Runs started through the API
// execute asynchronously; clients poll the run record for progress and fetch
// the stored result once the run is terminal.
type Server struct {
	bt       *backtest.Backtester
	runs     store.RunStore
	bars     store.BarStore
	defaults config.BacktestConfig
	log      *slog.Logger

	wg sync.WaitGroup // in-flight runs
}

// NewServer creates a Server backed by the given backtester and stores.
// defaults supplies the simulation parameters not settable per request.
func NewServer(bt *backtest.Backtester, runs store.RunStore, bars store.BarStore, defaults config.BacktestConfig, log *slog.Logger) *Server {
	return &Server{
		bt:       bt,
		runs:     runs,
		bars:     bars,
		defaults: defaults,
		log:      log,
	}
}

// Routes returns the API route table.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/symbols", s.handleListSymbols)
	mux.HandleFunc("GET /api/runs", s.handleListRuns)
	mux.HandleFunc("GET /api/runs/{id}", s.handleGetRun)
	mux.HandleFunc("POST /api/runs", s.handleStartRun)
	return mux
}

// Serve blocks until ctx is cancelled, then shuts the listener down and
// waits for in-flight runs to finish.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.log.Info("http api listening", "addr", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		s.wg.Wait()
		return err
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListSymbols(w http.ResponseWriter, r *http.Request) {
	market := domain.Market(r.URL.Query().Get("market"))
	if market == "" {
		market = domain.MarketUS
	}
	symbols, err := s.bars.ListSymbols(r.Context(), market)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, symbols)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if n := r.URL.Query().Get("n"); n != "" {
		v, err := strconv.Atoi(n)
		if err != nil || v <= 0 {
			s.writeError(w, http.StatusBadRequest, errors.New("n must be a positive integer"))
			return
		}
		limit = v
	}
	recs, err := s.runs.ListRuns(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]RunSummaryJSON, 0, len(recs))
	for _, rec := range recs {
		out = append(out, runSummary(&rec))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	rec, err := s.runs.GetRun(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	detail := RunDetailJSON{RunSummaryJSON: runSummary(rec)}
	if rec.Result != "" {
		detail.Result = json.RawMessage(rec.Result)
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	var req StartRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Strategy == "" || len(req.Symbols) == 0 {
		s.writeError(w, http.StatusBadRequest, errors.New("strategy and symbols are required"))
		return
	}
	start, err := time.Parse("2006-01-02", req.Start)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, errors.New("start must be YYYY-MM-DD"))
		return
	}
	end, err := time.Parse("2006-01-02", req.End)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, errors.New("end must be YYYY-MM-DD"))
		return
	}
	market := domain.Market(req.Market)
	if market == "" {
		market = domain.MarketUS
	}

	cfg := backtest.RunConfig{
		RunID:           uuid.NewString(),
		Symbols:         req.Symbols,
		Market:          market,
		Start:           start,
		End:             end,
		BarFrequency:    req.BarFrequency,
		InitialCapital:  req.InitialCapital,
		SlippageRate:    s.defaults.SlippageRate,
		CommissionRate:  s.defaults.CommissionRate,
		RiskFreeRate:    s.defaults.RiskFreeRate,
		MaxPositionPct:  s.defaults.MaxPositionPct,
		SessionTimezone: s.defaults.SessionTimezone,
		ContinueOnError: s.defaults.ContinueOnError,
	}

	// Register the record before the run starts so the ID handed back below
	// resolves immediately, and so failures that happen before the run loop
	// (unknown strategy, bad parameters, missing data) still leave a
	// diagnosable failed record behind.
	now := time.Now()
	rec := &store.RunRecord{
		ID:        cfg.RunID,
		Strategy:  req.Strategy,
		Symbols:   strings.Join(req.Symbols, ","),
		Start:     start,
		End:       end,
		Status:    string(backtest.StatusPending),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.runs.CreateRun(r.Context(), rec); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	// Each run owns its replay cache, simulator, and ledger, so concurrent
	// runs share nothing mutable.
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		res, err := s.bt.Run(context.Background(), req.Strategy, cfg)
		if err != nil {
			s.log.Warn("run finished with error", "run_id", cfg.RunID, "error", err)
		}
		if err != nil && res == nil {
			// The run was rejected before any state existed, so nothing
			// updated the record. Mark it failed here.
			s.failRun(cfg.RunID, req.Strategy, cfg.InitialCapital, err)
		}
	}()

	writeJSON(w, http.StatusAccepted, StartRunResponse{
		RunID:  cfg.RunID,
		Status: string(backtest.StatusPending),
	})
}

// failRun stores a terminal failed record for a run that was rejected before
// its loop started, so clients polling the ID can read the cause.
func (s *Server) failRun(runID, strategyName string, initialCapital float64, cause error) {
	res := backtest.Result{
		RunID:          runID,
		Strategy:       strategyName,
		Status:         backtest.StatusFailed,
		InitialCapital: initialCapital,
		Error:          cause.Error(),
	}
	body, err := json.Marshal(res)
	if err != nil {
		s.log.Warn("marshal failed-run result", "run_id", runID, "error", err)
		return
	}
	if err := s.runs.SaveRunResult(context.Background(), runID, string(backtest.StatusFailed), string(body)); err != nil {
		s.log.Warn("save failed-run result", "run_id", runID, "error", err)
	}
}

func runSummary(rec *store.RunRecord) RunSummaryJSON {
	return RunSummaryJSON{
		ID:       rec.ID,
		Strategy: rec.Strategy,
		Symbols:  rec.Symbols,
		Start:    rec.Start.Format(time.DateOnly),
		End:      rec.End.Format(time.DateOnly),
		Status:   rec.Status,
		Progress: rec.Progress,
		Created:  rec.CreatedAt.UTC().Format(time.RFC3339),
		Updated:  rec.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, code int, err error) {
	if code >= 500 {
		s.log.Error("request failed", "error", err)
	}
	writeJSON(w, code, ErrorJSON{Error: err.Error()})
}
