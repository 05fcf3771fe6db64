// Package httpapi provides an HTTP REST API for launching backtest runs and
// inspecting their stored results.
package httpapi

import "encoding/json"

// StartRunRequest is the body of POST /api/runs.
type StartRunRequest struct {
	Strategy       string   `json:"strategy"`
	Symbols        []string `json:"symbols"`
	Market         string   `json:"market,omitempty"` // default "us"
	Start          string   `json:"start"`                   // YYYY-MM-DD
	End            string   `json:"end"`                     // YYYY-MM-DD
	BarFrequency   string   `json:"bar_frequency,omitempty"` // default "daily"
	InitialCapital float64  `json:"initial_capital"`
}

// StartRunResponse acknowledges an accepted run.
type StartRunResponse struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
}

// RunSummaryJSON is one row of GET /api/runs.
type RunSummaryJSON struct {
	ID       string `json:"id"`
	Strategy string `json:"strategy"`
	Symbols  string `json:"symbols"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	Created  string `json:"created_at"`
	Updated  string `json:"updated_at"`
}

// RunDetailJSON is the body of GET /api/runs/{id}. Result is the stored
// backtest result, present once the run is terminal.
type RunDetailJSON struct {
	RunSummaryJSON
	Result json.RawMessage `json:"result,omitempty"`
}

// ErrorJSON is the body of every non-2xx response.
type ErrorJSON struct {
	Error string `json:"error"`
}
