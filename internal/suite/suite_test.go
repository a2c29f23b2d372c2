package suite

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kingrea/procflow/internal/executor/executortest"
	"github.com/kingrea/procflow/internal/process"
	"github.com/kingrea/procflow/internal/processes"
)

type stubExecutor struct {
	results map[string]process.Result
	calls   []string
	inputs  []map[string]any
}

func (s *stubExecutor) Execute(_ context.Context, id string, raw map[string]any) process.Result {
	s.calls = append(s.calls, id)
	s.inputs = append(s.inputs, raw)
	if res, ok := s.results[id]; ok {
		return res
	}
	return process.Result{Success: true}
}

func TestParseRejectsMissingSteps(t *testing.T) {
	_, err := Parse([]byte("id: empty\nsteps: []\n"))
	if err == nil || !strings.Contains(err.Error(), "at least one step is required") {
		t.Fatalf("expected missing steps error, got %v", err)
	}
}

func TestParseRejectsDuplicateStepIDs(t *testing.T) {
	const payload = `
id: dupes
steps:
  - process: sca
  - process: sca
`
	_, err := Parse([]byte(payload))
	if err == nil || !strings.Contains(err.Error(), "duplicate step id sca") {
		t.Fatalf("expected duplicate step error, got %v", err)
	}
}

func TestParseMergesDefaults(t *testing.T) {
	const payload = `
id: quarterly
defaults:
  organizationName: Acme
steps:
  - id: policy
    process: secpolicy
  - id: iso
    process: iso27001
    inputs:
      organizationName: Acme EU
`
	def, err := Parse([]byte(payload))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if def.Name != "quarterly" {
		t.Fatalf("name should default to id, got %q", def.Name)
	}
	if got := def.Steps[0].Inputs["organizationName"]; got != "Acme" {
		t.Fatalf("expected default input, got %v", got)
	}
	if got := def.Steps[1].Inputs["organizationName"]; got != "Acme EU" {
		t.Fatalf("step input should win over defaults, got %v", got)
	}
}

func TestCheckProcesses(t *testing.T) {
	def := Definition{ID: "s", Steps: []Step{{Process: "sca"}, {ID: "x", Process: "nope"}}}
	reg := processes.NewRegistry()
	err := def.CheckProcesses(func(id string) bool {
		_, err := reg.Lookup(id)
		return err == nil
	})
	if err == nil || !strings.Contains(err.Error(), `step x: unknown process "nope"`) {
		t.Fatalf("expected unknown process error, got %v", err)
	}
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	exec := &stubExecutor{results: map[string]process.Result{
		"b": {Error: &process.Failure{Kind: process.KindTaskFailed, Message: "boom"}},
	}}
	def := Definition{ID: "s", Steps: []Step{{Process: "a"}, {Process: "b"}, {Process: "c"}}}
	report, err := Run(context.Background(), exec, def)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if strings.Join(exec.calls, ",") != "a,b" {
		t.Fatalf("unexpected calls %v", exec.calls)
	}
	want := []StepStatus{StepSucceeded, StepFailed, StepSkipped}
	for i, step := range report.Steps {
		if step.Status != want[i] {
			t.Fatalf("step %d: expected %s, got %s", i, want[i], step.Status)
		}
	}
	if report.Success {
		t.Fatalf("report should not succeed")
	}
	if got := report.Failed(); len(got) != 1 || got[0] != "b" {
		t.Fatalf("unexpected failed steps %v", got)
	}
}

func TestRunContinueOnFailure(t *testing.T) {
	exec := &stubExecutor{results: map[string]process.Result{"a": {Success: false}}}
	def := Definition{ID: "s", Steps: []Step{{Process: "a", ContinueOnFailure: true}, {Process: "b"}}}
	report, err := Run(context.Background(), exec, def)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(exec.calls) != 2 {
		t.Fatalf("expected both steps to run, got %v", exec.calls)
	}
	if report.Steps[0].Status != StepUnsuccessful || report.Steps[1].Status != StepSucceeded {
		t.Fatalf("unexpected statuses %+v", report.Steps)
	}
	if report.Success {
		t.Fatalf("an unsuccessful step should fail the suite")
	}
}

func TestRunIsolatesStepInputs(t *testing.T) {
	exec := &stubExecutor{}
	def := Definition{ID: "s", Steps: []Step{{Process: "a", Inputs: Inputs{"k": "v"}}}}
	if _, err := Run(context.Background(), exec, def); err != nil {
		t.Fatalf("Run: %v", err)
	}
	exec.inputs[0]["k"] = "changed"
	if def.Steps[0].Inputs["k"] != "v" {
		t.Fatalf("suite definition was mutated")
	}
}

func TestLoadRelativeRunsBuiltins(t *testing.T) {
	dir := t.TempDir()
	const payload = `
id: supply-chain
steps:
  - id: deps
    process: sca
    inputs:
      projectPath: ./app
  - id: infra
    process: iac
    inputs:
      repositoryPath: ./infra
`
	if err := os.WriteFile(filepath.Join(dir, "supply-chain.yaml"), []byte(payload), 0o644); err != nil {
		t.Fatalf("write suite: %v", err)
	}
	def, err := LoadRelative(dir, "supply-chain")
	if err != nil {
		t.Fatalf("LoadRelative: %v", err)
	}
	runner := process.NewRunner(processes.NewRegistry(), process.WithExecutor(executortest.New()))
	report, err := Run(context.Background(), runner, def)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.Success || len(report.Steps) != 2 {
		t.Fatalf("unexpected report %+v", report)
	}
	if report.Steps[1].Result.Metadata.ProcessID != "iac-security-review" {
		t.Fatalf("alias should resolve to the canonical id, got %s", report.Steps[1].Result.Metadata.ProcessID)
	}
}
