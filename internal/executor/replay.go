package executor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/kingrea/procflow/internal/artifact"
	"github.com/kingrea/procflow/internal/gate"
	"github.com/kingrea/procflow/internal/logbook"
	"github.com/kingrea/procflow/internal/task"
)

// Logger is the Printf contract shared with internal/logging.
type Logger interface {
	Printf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

// Replay serves results prepared ahead of time under the task audit trail.
// For every invocation it writes tasks/<effect>/input.json to the run store
// and reads tasks/<effect>/result.json from the results store, which defaults
// to the run store. Effect ids are deterministic, so a results directory
// recorded once can be replayed against later runs.
type Replay struct {
	store       *artifact.Store
	source      *artifact.Store
	processID   string
	runID       string
	notifier    gate.Notifier
	logger      Logger
	maxParallel int
	now         func() time.Time
}

// ReplayOption customizes a Replay executor.
type ReplayOption func(*Replay)

// WithNotifier forwards gates to n.
func WithNotifier(n gate.Notifier) ReplayOption {
	return func(r *Replay) {
		if n != nil {
			r.notifier = n
		}
	}
}

// WithResultsFrom reads results from source instead of the run store.
func WithResultsFrom(source *artifact.Store) ReplayOption {
	return func(r *Replay) {
		if source != nil {
			r.source = source
		}
	}
}

// WithLogger routes Executor.Log to logger.
func WithLogger(logger Logger) ReplayOption {
	return func(r *Replay) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMaxParallel bounds parallel fan-out.
func WithMaxParallel(n int) ReplayOption {
	return func(r *Replay) { r.maxParallel = n }
}

// WithClock overrides Now.
func WithClock(clock func() time.Time) ReplayOption {
	return func(r *Replay) {
		if clock != nil {
			r.now = clock
		}
	}
}

// WithProvenance stamps written input records with the process and run.
func WithProvenance(processID, runID string) ReplayOption {
	return func(r *Replay) {
		r.processID = processID
		r.runID = runID
	}
}

// NewReplay builds a replay executor over store.
func NewReplay(store *artifact.Store, opts ...ReplayOption) *Replay {
	r := &Replay{
		store:     store,
		processID: "procflow",
		runID:     "replay",
		notifier:  gate.Discard,
		logger:    nopLogger{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.source == nil {
		r.source = store
	}
	return r
}

type inputRecord struct {
	Descriptor task.Descriptor `json:"descriptor"`
	Args       task.Args       `json:"args"`
}

// RunTask implements Executor.
func (r *Replay) RunTask(ctx context.Context, desc task.Descriptor, args task.Args) (task.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	meta := artifact.Metadata{ProcessID: r.processID, RunID: r.runID, Task: desc.Name}
	if err := r.store.WriteJSON(desc.IO.Input, inputRecord{Descriptor: desc, Args: args}, meta); err != nil {
		return nil, fmt.Errorf("executor: write input for %s: %w", desc.Name, err)
	}
	payload, _, err := r.source.ReadJSON(desc.IO.Result)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrResultMissing, desc.IO.Result)
		}
		return nil, fmt.Errorf("executor: read result for %s: %w", desc.Name, err)
	}
	r.logger.Printf("replay: %s served from %s", desc.Name, desc.IO.Result)
	return task.Result(payload), nil
}

// RunParallel implements Executor.
func (r *Replay) RunParallel(ctx context.Context, thunks []Thunk) ([]task.Result, error) {
	return Join(ctx, r.maxParallel, thunks)
}

// Checkpoint implements Executor.
func (r *Replay) Checkpoint(ctx context.Context, req gate.Request) error {
	req.Kind = gate.KindCheckpoint
	return r.notifier.Notify(ctx, req)
}

// Breakpoint implements Executor.
func (r *Replay) Breakpoint(ctx context.Context, req gate.Request) error {
	req.Kind = gate.KindBreakpoint
	return r.notifier.Notify(ctx, req)
}

// Now implements Executor.
func (r *Replay) Now() time.Time { return r.now() }

// Log implements Executor.
func (r *Replay) Log(level logbook.Level, message string) {
	r.logger.Printf("[%s] %s", level, message)
}
