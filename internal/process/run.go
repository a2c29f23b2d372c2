package process

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kingrea/procflow/internal/artifact"
	"github.com/kingrea/procflow/internal/executor"
	"github.com/kingrea/procflow/internal/gate"
	"github.com/kingrea/procflow/internal/logbook"
	"github.com/kingrea/procflow/internal/task"
)

// PhaseStatus enumerates phase outcomes.
type PhaseStatus string

const (
	PhaseSucceeded PhaseStatus = "succeeded"
	PhaseFailed    PhaseStatus = "failed"
	PhaseSkipped   PhaseStatus = "skipped"
)

// PhaseRecord is the persisted trace of one phase.
type PhaseRecord struct {
	Name       string      `json:"name"`
	EffectID   string      `json:"effect_id,omitempty"`
	Group      string      `json:"group,omitempty"`
	Status     PhaseStatus `json:"status"`
	Reason     string      `json:"reason,omitempty"`
	Kind       FailureKind `json:"kind,omitempty"`
	Error      string      `json:"error,omitempty"`
	Artifacts  int         `json:"artifacts"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
}

// Duration returns how long the phase took.
func (p PhaseRecord) Duration() time.Duration {
	if p.FinishedAt.Before(p.StartedAt) {
		return 0
	}
	return p.FinishedAt.Sub(p.StartedAt)
}

// Call pairs a task definition with its arguments for a parallel group.
type Call struct {
	Def  *task.Definition
	Args task.Args
}

// Run is the explicit state of one process execution: resolved input, the
// artifact accumulator, the effect counter and every phase result retained
// for later phases. A Run is driven by one goroutine.
type Run struct {
	info     RunInfo
	input    Input
	exec     executor.Executor
	sink     *artifact.Sink
	book     *logbook.Logbook
	notifier gate.Notifier
	logger   Logger
	validate bool
	onPhase  func(PhaseRecord)

	mu      sync.Mutex
	seq     int
	results map[string]task.Result
	phases  []PhaseRecord
}

type runConfig struct {
	info     RunInfo
	input    Input
	exec     executor.Executor
	book     *logbook.Logbook
	notifier gate.Notifier
	logger   Logger
	validate bool
	onPhase  func(PhaseRecord)
}

func newRun(cfg runConfig) *Run {
	notifier := cfg.notifier
	if notifier == nil {
		notifier = gate.Discard
	}
	logger := cfg.logger
	if logger == nil {
		logger = nopLogger{}
	}
	return &Run{
		info:     cfg.info,
		input:    cfg.input,
		exec:     cfg.exec,
		sink:     artifact.NewSink(),
		book:     cfg.book,
		notifier: notifier,
		logger:   logger,
		validate: cfg.validate,
		onPhase:  cfg.onPhase,
		results:  map[string]task.Result{},
	}
}

// ID returns the run identifier.
func (r *Run) ID() string { return r.info.RunID }

// ProcessID returns the id of the running process.
func (r *Run) ProcessID() string { return r.info.ProcessID }

// Input returns the resolved input.
func (r *Run) Input() Input { return r.input }

// Now returns the executor's clock.
func (r *Run) Now() time.Time { return r.exec.Now() }

// Artifacts returns the accumulated artifacts in append order.
func (r *Run) Artifacts() []artifact.Artifact { return r.sink.List() }

// Result returns the retained result of a completed phase. Skipped or
// unreached phases yield nil.
func (r *Run) Result(name string) task.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.results[name]
}

// Phases returns the phase trace so far.
func (r *Run) Phases() []PhaseRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]PhaseRecord{}, r.phases...)
}

// Log writes to the run logbook and forwards to the executor.
func (r *Run) Log(level logbook.Level, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.book.Append(level, msg)
	r.exec.Log(level, msg)
}

// Task runs one phase. The executor's result is validated against the
// definition's output schema, its artifacts are accumulated, and a result
// with success=false fails the phase.
func (r *Run) Task(ctx context.Context, def *task.Definition, args task.Args) (task.Result, error) {
	name := def.Name()
	if err := ctx.Err(); err != nil {
		return nil, r.fail(PhaseRecord{Name: name}, KindCanceled, err)
	}
	effectID := r.nextEffect(name)
	desc := def.Describe(args, task.Context{EffectID: effectID})
	record := PhaseRecord{Name: name, EffectID: effectID, StartedAt: r.exec.Now()}
	r.Log(logbook.LevelInfo, "phase %s started (%s)", name, effectID)

	res, kind, err := r.invoke(ctx, def, desc, args)
	record.FinishedAt = r.exec.Now()
	if res != nil {
		record.Artifacts = r.sink.Add(res.Artifacts()...)
	}
	if err != nil {
		return nil, r.fail(record, kind, err)
	}
	r.succeed(record, res)
	return res, nil
}

func (r *Run) invoke(ctx context.Context, def *task.Definition, desc task.Descriptor, args task.Args) (task.Result, FailureKind, error) {
	res, err := r.exec.RunTask(ctx, desc, args)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, KindCanceled, err
		}
		return nil, KindExecutor, err
	}
	if res == nil {
		return nil, KindExecutor, fmt.Errorf("%w: %s", executor.ErrResultMissing, desc.Name)
	}
	if r.validate {
		if verr := def.Schema().Validate(map[string]any(res)); verr != nil {
			return res, KindSchemaViolation, verr
		}
	}
	if res.Failed() {
		msg := strings.TrimSpace(res.String("error"))
		if msg == "" {
			msg = "task reported success=false"
		}
		return res, KindTaskFailed, errors.New(msg)
	}
	return res, "", nil
}

// Parallel runs calls as one all-or-nothing group named group. Effect ids are
// allocated in call order and artifacts are accumulated in call order after
// the join. If any member fails the group fails and no member result is
// retained.
func (r *Run) Parallel(ctx context.Context, group string, calls ...Call) ([]task.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, r.fail(PhaseRecord{Name: group}, KindCanceled, err)
	}
	descs := make([]task.Descriptor, len(calls))
	thunks := make([]executor.Thunk, len(calls))
	names := make([]string, len(calls))
	for i, call := range calls {
		i, call := i, call
		names[i] = call.Def.Name()
		descs[i] = call.Def.Describe(call.Args, task.Context{EffectID: r.nextEffect(call.Def.Name())})
		thunks[i] = func(ctx context.Context) (task.Result, error) {
			res, kind, err := r.invoke(ctx, call.Def, descs[i], call.Args)
			if err != nil {
				return nil, fmt.Errorf("%s (%s): %w", descs[i].Name, kind, err)
			}
			return res, nil
		}
	}
	r.Log(logbook.LevelInfo, "parallel group %s started: %s", group, strings.Join(names, ", "))
	started := r.exec.Now()
	results, err := r.exec.RunParallel(ctx, thunks)
	finished := r.exec.Now()
	if err != nil {
		kind := KindParallelFailed
		if ctx.Err() != nil {
			kind = KindCanceled
		}
		return nil, r.fail(PhaseRecord{Name: group, Group: group, StartedAt: started, FinishedAt: finished}, kind, err)
	}
	if len(results) != len(calls) {
		err := fmt.Errorf("expected %d results, got %d", len(calls), len(results))
		return nil, r.fail(PhaseRecord{Name: group, Group: group, StartedAt: started, FinishedAt: finished}, KindParallelFailed, err)
	}
	for i, res := range results {
		record := PhaseRecord{
			Name:       descs[i].Name,
			EffectID:   effectOf(descs[i]),
			Group:      group,
			StartedAt:  started,
			FinishedAt: finished,
			Artifacts:  r.sink.Add(res.Artifacts()...),
		}
		r.succeed(record, res)
	}
	return results, nil
}

// Skip records an optional phase that was not run.
func (r *Run) Skip(name, reason string) {
	now := r.exec.Now()
	record := PhaseRecord{Name: name, Status: PhaseSkipped, Reason: reason, StartedAt: now, FinishedAt: now}
	r.Log(logbook.LevelInfo, "phase %s skipped: %s", name, reason)
	r.record(record)
}

// GateOption decorates a gate request.
type GateOption func(*gate.Request)

// Inline embeds a snippet in the request context after redacting secrets.
func Inline(name, text string) GateOption {
	return func(req *gate.Request) {
		if req.Context.Inline == nil {
			req.Context.Inline = map[string]string{}
		}
		req.Context.Inline[name] = gate.Redact(text)
	}
}

// AtPhase attributes the request to a phase.
func AtPhase(name string) GateOption {
	return func(req *gate.Request) { req.Context.Phase = name }
}

// Checkpoint emits an informational gate. Delivery failures are logged and
// never affect the run.
func (r *Run) Checkpoint(ctx context.Context, title, question string, summary map[string]any, opts ...GateOption) {
	req := r.gateRequest(gate.KindCheckpoint, title, summary, opts)
	req.Question = question
	r.deliver(ctx, req, r.exec.Checkpoint)
}

// Breakpoint emits an approval gate. It does not wait for approval.
func (r *Run) Breakpoint(ctx context.Context, title, message string, summary map[string]any, opts ...GateOption) {
	req := r.gateRequest(gate.KindBreakpoint, title, summary, opts)
	req.Message = message
	r.deliver(ctx, req, r.exec.Breakpoint)
}

func (r *Run) gateRequest(kind gate.Kind, title string, summary map[string]any, opts []GateOption) gate.Request {
	req := gate.Request{
		Kind:  kind,
		Title: title,
		Context: gate.Context{
			RunID:     r.info.RunID,
			ProcessID: r.info.ProcessID,
			Phase:     r.lastPhase(),
			Summary:   summary,
			Files:     r.sink.Files(),
		},
	}
	for _, opt := range opts {
		opt(&req)
	}
	return req
}

func (r *Run) deliver(ctx context.Context, req gate.Request, send func(context.Context, gate.Request) error) {
	if err := send(ctx, req); err != nil {
		r.Log(logbook.LevelWarn, "%s %q not delivered: %v", req.Kind, req.Title, err)
		r.logger.Printf("process: %s %s delivery failed: %v", r.info.RunID, req.Kind, err)
	}
	if err := r.notifier.Notify(ctx, req); err != nil {
		r.logger.Printf("process: %s %s notifier failed: %v", r.info.RunID, req.Kind, err)
	}
}

func (r *Run) nextEffect(name string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	return task.EffectID(r.seq, name)
}

func (r *Run) lastPhase() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.phases) - 1; i >= 0; i-- {
		if r.phases[i].Status == PhaseSucceeded {
			return r.phases[i].Name
		}
	}
	return ""
}

func (r *Run) succeed(record PhaseRecord, res task.Result) {
	record.Status = PhaseSucceeded
	r.mu.Lock()
	r.results[record.Name] = res
	r.mu.Unlock()
	r.Log(logbook.LevelInfo, "phase %s succeeded (%d artifacts)", record.Name, record.Artifacts)
	r.record(record)
}

func (r *Run) fail(record PhaseRecord, kind FailureKind, err error) error {
	record.Status = PhaseFailed
	record.Kind = kind
	record.Error = err.Error()
	if record.StartedAt.IsZero() {
		now := r.exec.Now()
		record.StartedAt, record.FinishedAt = now, now
	}
	r.Log(logbook.LevelError, "phase %s failed (%s): %v", record.Name, kind, err)
	r.record(record)
	return &PhaseError{Phase: record.Name, Kind: kind, Err: err}
}

func (r *Run) record(record PhaseRecord) {
	r.mu.Lock()
	r.phases = append(r.phases, record)
	r.mu.Unlock()
	if r.onPhase != nil {
		r.onPhase(record)
	}
}

func effectOf(desc task.Descriptor) string {
	rest, ok := strings.CutPrefix(desc.IO.Input, "tasks/")
	if !ok {
		return ""
	}
	id, _, _ := strings.Cut(rest, "/")
	return id
}
