package process

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/kingrea/procflow/internal/executor"
	"github.com/kingrea/procflow/internal/gate"
	"github.com/kingrea/procflow/internal/logbook"
)

// Logger is the Printf contract shared with internal/logging.
type Logger interface {
	Printf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

// Env describes a run to an ExecutorFactory.
type Env struct {
	RunID     string
	ProcessID string
	Version   string
	// Dir is the run directory; empty when runs are not persisted.
	Dir     string
	Logbook *logbook.Logbook
}

// ExecutorFactory builds the executor serving one run.
type ExecutorFactory func(env Env) (executor.Executor, error)

// Runner resolves processes and drives runs to a Result.
type Runner struct {
	registry  *Registry
	factory   ExecutorFactory
	runsDir   string
	validate  bool
	observers Observers
	notifier  gate.Notifier
	logger    Logger
	newID     func() string
	now       func() time.Time
}

// RunnerOption customizes a Runner.
type RunnerOption func(*Runner)

// WithExecutor serves every run with exec.
func WithExecutor(exec executor.Executor) RunnerOption {
	return func(r *Runner) {
		r.factory = func(Env) (executor.Executor, error) { return exec, nil }
	}
}

// WithExecutorFactory builds an executor per run.
func WithExecutorFactory(factory ExecutorFactory) RunnerOption {
	return func(r *Runner) {
		if factory != nil {
			r.factory = factory
		}
	}
}

// WithRunsDir persists state.json, logbook.log and result.md under
// dir/<runID>/.
func WithRunsDir(dir string) RunnerOption {
	return func(r *Runner) { r.runsDir = dir }
}

// WithValidation toggles output schema validation of task results.
func WithValidation(enabled bool) RunnerOption {
	return func(r *Runner) { r.validate = enabled }
}

// WithObserver appends run observers.
func WithObserver(observers ...Observer) RunnerOption {
	return func(r *Runner) {
		for _, obs := range observers {
			if obs != nil {
				r.observers = append(r.observers, obs)
			}
		}
	}
}

// WithNotifier receives every gate in addition to the executor.
func WithNotifier(n gate.Notifier) RunnerOption {
	return func(r *Runner) {
		if n != nil {
			r.notifier = n
		}
	}
}

// WithLogger sets the diagnostics logger.
func WithLogger(logger Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithIDGenerator overrides run id generation.
func WithIDGenerator(fn func() string) RunnerOption {
	return func(r *Runner) {
		if fn != nil {
			r.newID = fn
		}
	}
}

// WithClock overrides the clock used before an executor exists.
func WithClock(clock func() time.Time) RunnerOption {
	return func(r *Runner) {
		if clock != nil {
			r.now = clock
		}
	}
}

// NewRunner builds a runner over registry.
func NewRunner(registry *Registry, opts ...RunnerOption) *Runner {
	r := &Runner{
		registry: registry,
		validate: true,
		notifier: gate.Discard,
		logger:   nopLogger{},
		newID:    uuid.NewString,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Registry returns the process registry.
func (r *Runner) Registry() *Registry { return r.registry }

// Execute runs processID with raw input. Workflow failures never surface as
// Go errors or panics; they are reported through Result.Error.
func (r *Runner) Execute(ctx context.Context, processID string, raw map[string]any) Result {
	proc, err := r.registry.Lookup(processID)
	if err != nil {
		r.logger.Printf("process: %v", err)
		return failedResult(Metadata{ProcessID: processID, Timestamp: r.now().UTC()}, FailureFrom(err))
	}
	info := proc.Info()
	runInfo := RunInfo{
		RunID:     r.newID(),
		ProcessID: info.ID,
		Version:   info.Version,
		StartedAt: r.now().UTC(),
	}
	meta := Metadata{ProcessID: info.ID, RunID: runInfo.RunID, Version: info.Version}

	input, err := proc.Options().Resolve(raw)
	if err != nil {
		meta.Timestamp = r.now().UTC()
		res := failedResult(meta, FailureFrom(err))
		r.observers.OnRunStart(runInfo)
		r.observers.OnRunFinish(runInfo, res)
		r.logger.Printf("process: %s %s rejected input: %v", info.ID, runInfo.RunID, err)
		return res
	}
	runInfo.Input = input

	env := Env{RunID: runInfo.RunID, ProcessID: info.ID, Version: info.Version}
	var repo *Repository
	if r.runsDir != "" {
		env.Dir = filepath.Join(r.runsDir, runInfo.RunID)
		repo = NewRepository(env.Dir)
		book, err := logbook.New(filepath.Join(env.Dir, "logbook.log"))
		if err != nil {
			r.logger.Printf("process: open logbook for %s: %v", runInfo.RunID, err)
		} else {
			env.Logbook = book
		}
	}

	if r.factory == nil {
		meta.Timestamp = r.now().UTC()
		return failedResult(meta, &Failure{Kind: KindExecutor, Message: "no executor configured"})
	}
	exec, err := r.factory(env)
	if err != nil {
		meta.Timestamp = r.now().UTC()
		return failedResult(meta, &Failure{Kind: KindExecutor, Message: err.Error()})
	}

	state := State{
		RunID:     runInfo.RunID,
		ProcessID: info.ID,
		Version:   info.Version,
		Status:    RunStatusRunning,
		Input:     input,
		StartedAt: runInfo.StartedAt,
		UpdatedAt: runInfo.StartedAt,
	}
	r.save(repo, state)
	r.observers.OnRunStart(runInfo)

	notifiers := []gate.Notifier{r.notifier}
	if env.Logbook != nil {
		notifiers = append(notifiers, gate.LogbookNotifier{Book: env.Logbook})
	}
	var run *Run
	run = newRun(runConfig{
		info:     runInfo,
		input:    input,
		exec:     exec,
		book:     env.Logbook,
		notifier: gate.Multi(notifiers...),
		logger:   r.logger,
		validate: r.validate,
		onPhase: func(phase PhaseRecord) {
			r.observers.OnPhase(runInfo, phase)
			state.Phases = run.Phases()
			state.UpdatedAt = r.now().UTC()
			r.save(repo, state)
		},
	})

	start := exec.Now()
	outcome, runErr := r.drive(ctx, proc, run)
	finish := exec.Now()
	meta.Timestamp = finish.UTC()

	res := Result{Metadata: meta, Duration: finish.Sub(start), Phases: run.Phases()}
	if runErr != nil {
		res.Error = FailureFrom(runErr)
		run.Log(logbook.LevelError, "run failed: %s", res.Error.Error())
	} else {
		res.Success = outcome.Success
		res.Outputs = outcome.Outputs
		res.Artifacts = run.Artifacts()
		run.Log(logbook.LevelInfo, "run finished: success=%t artifacts=%d", res.Success, len(res.Artifacts))
	}

	state.Phases = res.Phases
	state.Artifacts = res.Artifacts
	state.Failure = res.Error
	state.UpdatedAt = r.now().UTC()
	state.Status = res.Status()
	if res.Error != nil {
		state.StatusReason = res.Error.Error()
	}
	r.save(repo, state)
	if env.Dir != "" {
		if err := writeReport(env.Dir, runInfo, res); err != nil {
			r.logger.Printf("process: write report for %s: %v", runInfo.RunID, err)
		}
	}
	r.observers.OnRunFinish(runInfo, res)
	return res
}

func (r *Runner) drive(ctx context.Context, proc Process, run *Run) (outcome Outcome, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("process %s panicked: %v", proc.Info().ID, rec)
		}
	}()
	return proc.Run(ctx, run)
}

func (r *Runner) save(repo *Repository, state State) {
	if repo == nil {
		return
	}
	if err := repo.Save(state); err != nil {
		r.logger.Printf("process: save state for %s: %v", state.RunID, err)
	}
}
