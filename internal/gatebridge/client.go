package gatebridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kingrea/procflow/internal/gate"
)

// Client talks to a running bridge. It implements gate.Notifier so a run can
// publish its gates to a bridge in another process.
type Client struct {
	base string
	http *http.Client
}

var _ gate.Notifier = (*Client)(nil)

// NewClient returns a client for the bridge at baseURL.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &Client{base: strings.TrimRight(strings.TrimSpace(baseURL), "/"), http: httpClient}
}

// Notify implements gate.Notifier by posting req to /gates.
func (c *Client) Notify(ctx context.Context, req gate.Request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("gatebridge: encode gate: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/gates", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("gatebridge: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("gatebridge: post gate: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		return statusError("/gates", resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Gates fetches journal entries newer than since.
func (c *Client) Gates(ctx context.Context, since int64) (GatesResponse, error) {
	url := fmt.Sprintf("%s/gates?since=%d", c.base, since)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return GatesResponse{}, fmt.Errorf("gatebridge: build request: %w", err)
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return GatesResponse{}, fmt.Errorf("gatebridge: list gates: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return GatesResponse{}, statusError("/gates", resp)
	}
	var out GatesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return GatesResponse{}, fmt.Errorf("gatebridge: decode gates: %w", err)
	}
	return out, nil
}

func statusError(path string, resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("gatebridge: %s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(snippet)))
}
