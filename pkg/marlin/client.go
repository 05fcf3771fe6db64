// Package marlin provides a Go client for the marlin-server HTTP API.
package marlin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"marlin/internal/httpapi"
)

// Client talks to a marlin-server instance.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new marlin API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Health checks that the server is reachable.
func (c *Client) Health(ctx context.Context) error {
	return c.get(ctx, "/api/health", nil)
}

// ListSymbols retrieves the symbols available in the given market.
func (c *Client) ListSymbols(ctx context.Context, market string) ([]string, error) {
	var symbols []string
	path := "/api/symbols"
	if market != "" {
		path += "?market=" + url.QueryEscape(market)
	}
	if err := c.get(ctx, path, &symbols); err != nil {
		return nil, err
	}
	return symbols, nil
}

// ListRuns retrieves up to n recent backtest runs.
func (c *Client) ListRuns(ctx context.Context, n int) ([]httpapi.RunSummaryJSON, error) {
	var runs []httpapi.RunSummaryJSON
	path := "/api/runs"
	if n > 0 {
		path += "?n=" + strconv.Itoa(n)
	}
	if err := c.get(ctx, path, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

// GetRun retrieves one run, including its stored result once terminal.
func (c *Client) GetRun(ctx context.Context, id string) (*httpapi.RunDetailJSON, error) {
	var detail httpapi.RunDetailJSON
	if err := c.get(ctx, "/api/runs/"+url.PathEscape(id), &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// StartRun launches a backtest asynchronously and returns its run ID.
func (c *Client) StartRun(ctx context.Context, req httpapi.StartRunRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/runs", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		return "", apiError(resp)
	}
	var ack httpapi.StartRunResponse
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	return ack.RunID, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var apiErr httpapi.ErrorJSON
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
		return fmt.Errorf("%s: %s", resp.Status, apiErr.Error)
	}
	return fmt.Errorf("unexpected status %s", resp.Status)
}
