package executor

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
	"github.com/kingrea/procflow/internal/logbook"
	"github.com/kingrea/procflow/internal/task"
)

// DefaultHTTPTimeout bounds a single request to the agent runtime.
const DefaultHTTPTimeout = 10 * time.Minute

// HTTPConfig configures the remote agent runtime client.
type HTTPConfig struct {
	Endpoint    string
	Timeout     time.Duration
	MaxParallel int
	Client      *http.Client
	Logger      Logger
}

// HTTP delegates work to a remote agent runtime.
//
//	POST {endpoint}/tasks  {"effect_id", "descriptor", "args"} -> result object
//	POST {endpoint}/gates  gate request                        -> 2xx
//	POST {endpoint}/logs   {"level", "message"}                -> 2xx
type HTTP struct {
	endpoint    string
	client      *http.Client
	maxParallel int
	logger      Logger
}

// NewHTTP validates cfg and builds the client.
func NewHTTP(cfg HTTPConfig) (*HTTP, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if endpoint == "" {
		return nil, fmt.Errorf("executor: http endpoint is required")
	}
	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultHTTPTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	var logger Logger = nopLogger{}
	if cfg.Logger != nil {
		logger = cfg.Logger
	}
	return &HTTP{endpoint: endpoint, client: client, maxParallel: cfg.MaxParallel, logger: logger}, nil
}

type taskRequest struct {
	EffectID   string          `json:"effect_id"`
	Descriptor task.Descriptor `json:"descriptor"`
	Args       task.Args       `json:"args"`
}

// RunTask implements Executor.
func (h *HTTP) RunTask(ctx context.Context, desc task.Descriptor, args task.Args) (task.Result, error) {
	body := taskRequest{EffectID: effectFromIO(desc.IO), Descriptor: desc, Args: args}
	var out task.Result
	if err := h.post(ctx, "/tasks", body, &out); err != nil {
		return nil, fmt.Errorf("executor: task %s: %w", desc.Name, err)
	}
	if out == nil {
		return nil, fmt.Errorf("%w: %s returned no object", ErrResultMissing, desc.Name)
	}
	return out, nil
}

// RunParallel implements Executor.
func (h *HTTP) RunParallel(ctx context.Context, thunks []Thunk) ([]task.Result, error) {
	return Join(ctx, h.maxParallel, thunks)
}

// Checkpoint implements Executor.
func (h *HTTP) Checkpoint(ctx context.Context, req gate.Request) error {
	req.Kind = gate.KindCheckpoint
	return h.post(ctx, "/gates", req, nil)
}

// Breakpoint implements Executor.
func (h *HTTP) Breakpoint(ctx context.Context, req gate.Request) error {
	req.Kind = gate.KindBreakpoint
	return h.post(ctx, "/gates", req, nil)
}

// Now implements Executor.
func (h *HTTP) Now() time.Time { return time.Now() }

// Log implements Executor. Delivery is best effort.
func (h *HTTP) Log(level logbook.Level, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	payload := map[string]string{"level": string(level), "message": message}
	if err := h.post(ctx, "/logs", payload, nil); err != nil {
		h.logger.Printf("executor: forward log: %v", err)
	}
}

func (h *HTTP) post(ctx context.Context, path string, payload any, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func effectFromIO(paths task.IO) string {
	parts := strings.Split(paths.Input, "/")
	if len(parts) >= 3 && parts[0] == "tasks" {
		return parts[1]
	}
	return ""
}
