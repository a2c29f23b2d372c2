// Package executortest provides a deterministic scripted executor for tests.
package executortest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kingrea/procflow/internal/executor"
	"github.com/kingrea/procflow/internal/gate"
	"github.com/kingrea/procflow/internal/logbook"
	"github.com/kingrea/procflow/internal/task"
)

// Call records one task invocation.
type Call struct {
	EffectID   string
	Name       string
	Args       task.Args
	Descriptor task.Descriptor
}

// LogEntry records one Log call.
type LogEntry struct {
	Level   logbook.Level
	Message string
}

// Handler computes a scripted response.
type Handler func(desc task.Descriptor, args task.Args) (task.Result, error)

// Fake is a scripted Executor. Unscripted tasks answer with the zero value of
// their output schema, success=true and a single markdown artifact named after
// the effect ID. Scripted responses are overlaid onto that default so tests
// only spell out the fields they care about.
//
// Parallel groups run sequentially in call order unless Concurrent is set, so
// the invocation log is deterministic.
type Fake struct {
	// Concurrent runs parallel groups through executor.Join.
	Concurrent bool
	// GateErr is returned from every Checkpoint and Breakpoint call.
	GateErr error

	mu        sync.Mutex
	responses map[string]task.Result
	handlers  map[string]Handler
	failures  map[string]error
	calls     []Call
	gates     []gate.Request
	logs      []LogEntry
	clock     time.Time
}

var _ executor.Executor = (*Fake)(nil)

// New returns an empty fake with a fixed clock.
func New() *Fake {
	return &Fake{
		responses: map[string]task.Result{},
		handlers:  map[string]Handler{},
		failures:  map[string]error{},
		clock:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Respond scripts the result fields for a task name.
func (f *Fake) Respond(name string, result task.Result) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[name] = result
	return f
}

// Handle scripts a task with a function.
func (f *Fake) Handle(name string, h Handler) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[name] = h
	return f
}

// Fail makes a task return err.
func (f *Fake) Fail(name string, err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[name] = err
	return f
}

// RunTask implements executor.Executor.
func (f *Fake) RunTask(ctx context.Context, desc task.Descriptor, args task.Args) (task.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	effectID := effectFromPath(desc.IO.Input)
	f.mu.Lock()
	f.calls = append(f.calls, Call{EffectID: effectID, Name: desc.Name, Args: args, Descriptor: desc})
	failure := f.failures[desc.Name]
	handler := f.handlers[desc.Name]
	scripted := f.responses[desc.Name]
	f.mu.Unlock()

	if failure != nil {
		return nil, failure
	}
	result := defaultResult(desc, effectID)
	if handler != nil {
		got, err := handler(desc, args)
		if err != nil {
			return nil, err
		}
		scripted = got
	}
	for k, v := range scripted {
		result[k] = v
	}
	return result, nil
}

// RunParallel implements executor.Executor.
func (f *Fake) RunParallel(ctx context.Context, thunks []executor.Thunk) ([]task.Result, error) {
	if f.Concurrent {
		return executor.Join(ctx, 0, thunks)
	}
	results := make([]task.Result, len(thunks))
	for i, thunk := range thunks {
		res, err := thunk(ctx)
		if err != nil {
			return nil, &executor.MemberError{Index: i, Err: err}
		}
		results[i] = res
	}
	return results, nil
}

// Checkpoint implements executor.Executor.
func (f *Fake) Checkpoint(_ context.Context, req gate.Request) error {
	req.Kind = gate.KindCheckpoint
	return f.recordGate(req)
}

// Breakpoint implements executor.Executor.
func (f *Fake) Breakpoint(_ context.Context, req gate.Request) error {
	req.Kind = gate.KindBreakpoint
	return f.recordGate(req)
}

func (f *Fake) recordGate(req gate.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gates = append(f.gates, req)
	return f.GateErr
}

// Now implements executor.Executor. The clock advances one second per call.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.clock
	f.clock = f.clock.Add(time.Second)
	return now
}

// Log implements executor.Executor.
func (f *Fake) Log(level logbook.Level, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, LogEntry{Level: level, Message: message})
}

// Calls returns the invocation log.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call{}, f.calls...)
}

// Names returns invoked task names in order.
func (f *Fake) Names() []string {
	calls := f.Calls()
	names := make([]string, len(calls))
	for i, c := range calls {
		names[i] = c.Name
	}
	return names
}

// Called reports whether name was invoked.
func (f *Fake) Called(name string) bool {
	for _, n := range f.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// CallFor returns the last invocation of name.
func (f *Fake) CallFor(name string) (Call, bool) {
	calls := f.Calls()
	for i := len(calls) - 1; i >= 0; i-- {
		if calls[i].Name == name {
			return calls[i], true
		}
	}
	return Call{}, false
}

// Gates returns delivered gate requests.
func (f *Fake) Gates() []gate.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]gate.Request{}, f.gates...)
}

// Logs returns Log calls.
func (f *Fake) Logs() []LogEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]LogEntry{}, f.logs...)
}

// ArtifactPath is the path of the default artifact for an effect.
func ArtifactPath(effectID string) string {
	return fmt.Sprintf("artifacts/%s.md", effectID)
}

func defaultResult(desc task.Descriptor, effectID string) task.Result {
	result := task.Result{}
	if zero, ok := desc.OutputSchema.ZeroValue().(map[string]any); ok {
		for k, v := range zero {
			result[k] = v
		}
	}
	result["success"] = true
	result["artifacts"] = []any{map[string]any{
		"path":   ArtifactPath(effectID),
		"format": "markdown",
		"label":  desc.Name,
	}}
	return result
}

func effectFromPath(input string) string {
	rest, ok := strings.CutPrefix(input, "tasks/")
	if !ok {
		return ""
	}
	id, _, _ := strings.Cut(rest, "/")
	return id
}
