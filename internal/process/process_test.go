package process

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/procflow/internal/artifact"
	"github.com/kingrea/procflow/internal/executor/executortest"
	"github.com/kingrea/procflow/internal/gate"
	"github.com/kingrea/procflow/internal/schema"
	"github.com/kingrea/procflow/internal/task"
)

var (
	prepareTask = task.Define("prepare", task.Output(schema.Req("items", schema.Count())))
	leftTask    = task.Define("scan-left", task.Output(schema.Req("critical", schema.Count())))
	rightTask   = task.Define("scan-right", task.Output(schema.Req("critical", schema.Count())))
	optionTask  = task.Define("optional-step")
	reportTask  = task.Define("report", task.Output(schema.Req("score", schema.Score())))
)

// sampleProcess exercises every Run primitive.
type sampleProcess struct{}

func (sampleProcess) Info() Info {
	return Info{ID: "sample-process", Name: "Sample", Version: "1.0.0", Aliases: []string{"sample"}}
}

func (sampleProcess) Options() Options {
	return Options{
		{Name: "target", Required: true},
		{Name: "level", Default: "low", Enum: []string{"low", "high"}},
		{Name: "optional", Default: false},
		{Name: "deep", DefaultFunc: func(in Input) any { return in.String("level") == "high" }},
	}
}

func (sampleProcess) Tasks() []*task.Definition {
	return []*task.Definition{prepareTask, leftTask, rightTask, optionTask, reportTask}
}

func (sampleProcess) Run(ctx context.Context, run *Run) (Outcome, error) {
	in := run.Input()
	prep, err := run.Task(ctx, prepareTask, task.Args{"target": in.String("target")})
	if err != nil {
		return Outcome{}, err
	}
	run.Checkpoint(ctx, "Prepared", "Continue?", map[string]any{"items": prep.Int("items")})
	scans, err := run.Parallel(ctx, "scans",
		Call{Def: leftTask, Args: task.Args{"items": prep.Int("items")}},
		Call{Def: rightTask, Args: task.Args{"items": prep.Int("items")}},
	)
	if err != nil {
		return Outcome{}, err
	}
	if in.Bool("optional") {
		if _, err := run.Task(ctx, optionTask, nil); err != nil {
			return Outcome{}, err
		}
	} else {
		run.Skip(optionTask.Name(), "optional disabled")
	}
	rep, err := run.Task(ctx, reportTask, nil)
	if err != nil {
		return Outcome{}, err
	}
	critical := scans[0].Int("critical") + scans[1].Int("critical")
	run.Breakpoint(ctx, "Done", "Review results", map[string]any{"critical": critical}, Inline("secrets", "token=abc123"))
	return Outcome{
		Success: critical == 0,
		Outputs: map[string]any{"criticalIssues": critical, "score": rep.Float("score"), "deep": in.Bool("deep")},
	}, nil
}

func newTestRunner(t *testing.T, fake *executortest.Fake, opts ...RunnerOption) *Runner {
	t.Helper()
	reg := NewRegistry()
	require.NoError(t, reg.Register(sampleProcess{}))
	base := []RunnerOption{WithExecutor(fake), WithIDGenerator(func() string { return "run-1" })}
	return NewRunner(reg, append(base, opts...)...)
}

func TestExecuteSequencesPhases(t *testing.T) {
	fake := executortest.New().
		Respond("scan-left", task.Result{"critical": 2}).
		Respond("scan-right", task.Result{"critical": 1})
	runner := newTestRunner(t, fake)

	res := runner.Execute(context.Background(), "sample", map[string]any{"target": "app", "optional": true})

	require.Nil(t, res.Error)
	assert.Equal(t, []string{"prepare", "scan-left", "scan-right", "optional-step", "report"}, fake.Names())
	assert.Equal(t, 3, res.Outputs["criticalIssues"])
	assert.False(t, res.Success)
	assert.Equal(t, "sample-process", res.Metadata.ProcessID)
	assert.Equal(t, "run-1", res.Metadata.RunID)

	var effects []string
	for _, c := range fake.Calls() {
		effects = append(effects, c.EffectID)
	}
	assert.Equal(t, []string{"001-prepare", "002-scan-left", "003-scan-right", "004-optional-step", "005-report"}, effects)

	var paths []string
	for _, a := range res.Artifacts {
		paths = append(paths, a.Path)
	}
	expected := make([]string, 0, len(effects))
	for _, e := range effects {
		expected = append(expected, executortest.ArtifactPath(e))
	}
	assert.Equal(t, expected, paths, "artifacts must be appended in phase order")
}

func TestExecuteSkipsOptionalPhase(t *testing.T) {
	fake := executortest.New()
	res := newTestRunner(t, fake).Execute(context.Background(), "sample-process", map[string]any{"target": "app"})

	require.Nil(t, res.Error)
	assert.True(t, res.Success)
	assert.False(t, fake.Called("optional-step"))
	var skipped []string
	for _, p := range res.Phases {
		if p.Status == PhaseSkipped {
			skipped = append(skipped, p.Name)
		}
	}
	assert.Equal(t, []string{"optional-step"}, skipped)
}

func TestExecuteFailsFastOnMissingInput(t *testing.T) {
	fake := executortest.New()
	res := newTestRunner(t, fake).Execute(context.Background(), "sample", map[string]any{"target": "  "})

	require.NotNil(t, res.Error)
	assert.Equal(t, KindMissingInput, res.Error.Kind)
	assert.Empty(t, fake.Calls())
	assert.False(t, res.Success)
}

func TestExecuteRejectsEnumViolation(t *testing.T) {
	res := newTestRunner(t, executortest.New()).Execute(context.Background(), "sample", map[string]any{"target": "x", "level": "extreme"})
	require.NotNil(t, res.Error)
	assert.Equal(t, KindInvalidInput, res.Error.Kind)
}

func TestExecuteUnknownProcess(t *testing.T) {
	res := newTestRunner(t, executortest.New()).Execute(context.Background(), "nope", nil)
	require.NotNil(t, res.Error)
	assert.Equal(t, KindUnknownProcess, res.Error.Kind)
}

func TestParallelFailureStopsRun(t *testing.T) {
	fake := executortest.New().Fail("scan-right", errors.New("scanner offline"))
	res := newTestRunner(t, fake).Execute(context.Background(), "sample", map[string]any{"target": "app", "optional": true})

	require.NotNil(t, res.Error)
	assert.Equal(t, KindParallelFailed, res.Error.Kind)
	assert.Equal(t, "scans", res.Error.Phase)
	assert.False(t, fake.Called("optional-step"))
	assert.False(t, fake.Called("report"))
	assert.Empty(t, res.Artifacts, "failed runs discard artifacts")
}

func TestTaskReportingFailureStopsRun(t *testing.T) {
	fake := executortest.New().Respond("prepare", task.Result{"success": false, "error": "target unreachable"})
	res := newTestRunner(t, fake).Execute(context.Background(), "sample", map[string]any{"target": "app"})

	require.NotNil(t, res.Error)
	assert.Equal(t, KindTaskFailed, res.Error.Kind)
	assert.Equal(t, "prepare", res.Error.Phase)
	assert.Contains(t, res.Error.Message, "target unreachable")
	assert.Equal(t, []string{"prepare"}, fake.Names())
}

func TestSchemaViolationFailsPhase(t *testing.T) {
	fake := executortest.New().Respond("report", task.Result{"score": 140})
	res := newTestRunner(t, fake).Execute(context.Background(), "sample", map[string]any{"target": "app"})
	require.NotNil(t, res.Error)
	assert.Equal(t, KindSchemaViolation, res.Error.Kind)

	fake = executortest.New().Respond("report", task.Result{"score": 140})
	res = newTestRunner(t, fake, WithValidation(false)).Execute(context.Background(), "sample", map[string]any{"target": "app"})
	assert.Nil(t, res.Error)
}

func TestCanceledContextFailsBeforeNextPhase(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fake := executortest.New().Handle("prepare", func(task.Descriptor, task.Args) (task.Result, error) {
		cancel()
		return task.Result{}, nil
	})
	res := newTestRunner(t, fake).Execute(ctx, "sample", map[string]any{"target": "app"})
	require.NotNil(t, res.Error)
	assert.Equal(t, KindCanceled, res.Error.Kind)
	assert.Equal(t, []string{"prepare"}, fake.Names())
}

func TestGatesCarryFilesAndRedactedInline(t *testing.T) {
	fake := executortest.New()
	fake.GateErr = errors.New("reviewer unavailable")
	journal := gate.NewJournal(10)
	res := newTestRunner(t, fake, WithNotifier(journal)).Execute(context.Background(), "sample", map[string]any{"target": "app"})

	require.Nil(t, res.Error, "gate delivery errors must not fail the run")
	gates := fake.Gates()
	require.Len(t, gates, 2)
	assert.Equal(t, gate.KindCheckpoint, gates[0].Kind)
	assert.Equal(t, "run-1", gates[0].Context.RunID)
	assert.Len(t, gates[0].Context.Files, 1)
	assert.Equal(t, gate.KindBreakpoint, gates[1].Kind)
	assert.Equal(t, "token=[REDACTED]", gates[1].Context.Inline["secrets"])
	assert.Len(t, journal.List(0), 2)
}

func TestDefaultFuncDerivesFromOtherOptions(t *testing.T) {
	opts := sampleProcess{}.Options()
	in, err := opts.Resolve(map[string]any{"target": "x", "level": "high"})
	require.NoError(t, err)
	assert.True(t, in.Bool("deep"))

	in, err = opts.Resolve(map[string]any{"target": "x", "level": "high", "deep": false})
	require.NoError(t, err)
	assert.False(t, in.Bool("deep"), "explicit values win over derived defaults")
}

func TestResolveClonesInput(t *testing.T) {
	raw := map[string]any{"target": "x", "list": []any{"a"}}
	in, err := sampleProcess{}.Options().Resolve(raw)
	require.NoError(t, err)
	raw["list"].([]any)[0] = "mutated"
	assert.Equal(t, []string{"a"}, in.Strings("list"))
}

func TestMissingInputErrorMatchesSentinel(t *testing.T) {
	_, err := Options{{Name: "a", Required: true}, {Name: "b", Required: true}}.Resolve(nil)
	var missing *MissingInputError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"a", "b"}, missing.Fields)
	assert.ErrorIs(t, err, ErrMissingInput)
}

func TestPhaseErrorUnwrapsKindSentinel(t *testing.T) {
	err := &PhaseError{Phase: "scans", Kind: KindParallelFailed, Err: errors.New("x")}
	assert.ErrorIs(t, err, ErrParallelFailed)
	assert.NotErrorIs(t, err, ErrPhaseFailed)
}

func TestRunnerPersistsStateAndReport(t *testing.T) {
	dir := t.TempDir()
	fake := executortest.New()
	res := newTestRunner(t, fake, WithRunsDir(dir)).Execute(context.Background(), "sample", map[string]any{"target": "app"})
	require.Nil(t, res.Error)

	state, err := NewRepository(filepath.Join(dir, "run-1")).Load()
	require.NoError(t, err)
	assert.Equal(t, RunStatusSucceeded, state.Status)
	assert.Len(t, state.Phases, len(res.Phases))
	assert.Equal(t, "app", state.Input.String("target"))

	data, err := os.ReadFile(filepath.Join(dir, "run-1", ReportName))
	require.NoError(t, err)
	meta, body, err := artifact.ParseFrontMatter(data)
	require.NoError(t, err)
	assert.Equal(t, "succeeded", meta.Notes["outcome"])
	assert.Contains(t, string(body), "| report | succeeded | 004-report | 1 |")

	_, err = os.Stat(filepath.Join(dir, "run-1", "logbook.log"))
	assert.NoError(t, err)
}

func TestResultMarshalFlattensOutputs(t *testing.T) {
	res := Result{
		Success:  true,
		Outputs:  map[string]any{"securityScore": 82},
		Metadata: Metadata{ProcessID: "dast-scanning", RunID: "r"},
	}
	data, err := json.Marshal(res)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, float64(82), decoded["securityScore"])
	assert.Equal(t, true, decoded["success"])
	assert.Equal(t, []any{}, decoded["artifacts"])
	assert.Equal(t, "dast-scanning", decoded["metadata"].(map[string]any)["processId"])
	assert.NotContains(t, decoded, "error")
}

type recordingObserver struct {
	starts, phases, finishes int
	last                     Result
}

func (o *recordingObserver) OnRunStart(RunInfo) { o.starts++ }
func (o *recordingObserver) OnPhase(RunInfo, PhaseRecord) { o.phases++ }
func (o *recordingObserver) OnRunFinish(_ RunInfo, res Result) {
	o.finishes++
	o.last = res
}

func TestObserversSeeLifecycle(t *testing.T) {
	obs := &recordingObserver{}
	res := newTestRunner(t, executortest.New(), WithObserver(obs)).Execute(context.Background(), "sample", map[string]any{"target": "app"})
	require.Nil(t, res.Error)
	assert.Equal(t, 1, obs.starts)
	assert.Equal(t, len(res.Phases), obs.phases)
	assert.Equal(t, 1, obs.finishes)
	assert.True(t, obs.last.Success)
}

func TestRegistryRejectsDuplicateAliases(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(sampleProcess{}))
	assert.Error(t, reg.Register(sampleProcess{}))
	p, err := reg.Lookup("sample")
	require.NoError(t, err)
	assert.Equal(t, "sample-process", p.Info().ID)
	_, err = reg.Lookup("missing")
	assert.ErrorIs(t, err, ErrUnknownProcess)
}
