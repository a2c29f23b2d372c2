package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/kingrea/procflow/internal/executor/executortest"
	"github.com/kingrea/procflow/internal/process"
	"github.com/kingrea/procflow/internal/processes"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "history", "runs.db"), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestObserverRecordsSuccessfulRun(t *testing.T) {
	s := openTestStore(t)
	runner := process.NewRunner(processes.NewRegistry(),
		process.WithExecutor(executortest.New()),
		process.WithObserver(s),
		process.WithIDGenerator(func() string { return "run-1" }),
	)
	res := runner.Execute(context.Background(), "sca", map[string]any{"projectPath": "./app"})
	if res.Error != nil {
		t.Fatalf("unexpected failure %+v", res.Error)
	}

	ctx := context.Background()
	runs, err := s.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	run := runs[0]
	if run.RunID != "run-1" || run.ProcessID != "sca-dependency-management" {
		t.Fatalf("unexpected run %+v", run)
	}
	if run.Status != process.RunStatusSucceeded || !run.Success {
		t.Fatalf("expected succeeded run, got %s", run.Status)
	}
	if run.Input["projectPath"] != "./app" {
		t.Fatalf("input not stored: %v", run.Input)
	}
	if run.Outputs["projectPath"] != "./app" {
		t.Fatalf("outputs not stored: %v", run.Outputs)
	}

	phases, err := s.RunPhases(ctx, "run-1")
	if err != nil {
		t.Fatalf("RunPhases: %v", err)
	}
	if len(phases) != len(res.Phases) {
		t.Fatalf("expected %d phases, got %d", len(res.Phases), len(phases))
	}
	if phases[0].Name != "inventory-dependencies" || phases[0].EffectID != "001-inventory-dependencies" {
		t.Fatalf("unexpected first phase %+v", phases[0])
	}

	arts, err := s.RunArtifacts(ctx, "run-1")
	if err != nil {
		t.Fatalf("RunArtifacts: %v", err)
	}
	if len(arts) != len(res.Artifacts) {
		t.Fatalf("expected %d artifacts, got %d", len(res.Artifacts), len(arts))
	}
	for i := range arts {
		if arts[i].Path != res.Artifacts[i].Path {
			t.Fatalf("artifact %d out of order: %s vs %s", i, arts[i].Path, res.Artifacts[i].Path)
		}
	}
}

func TestObserverRecordsFailure(t *testing.T) {
	s := openTestStore(t)
	fake := executortest.New().Fail("inventory-dependencies", errors.New("lockfile missing"))
	runner := process.NewRunner(processes.NewRegistry(),
		process.WithExecutor(fake),
		process.WithObserver(s),
		process.WithIDGenerator(func() string { return "run-f" }),
	)
	runner.Execute(context.Background(), "sca", map[string]any{"projectPath": "./app"})

	run, err := s.GetRun(context.Background(), "run-f")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != process.RunStatusFailed {
		t.Fatalf("expected failed status, got %s", run.Status)
	}
	if run.FailureKind != process.KindExecutor {
		t.Fatalf("expected executor failure kind, got %s", run.FailureKind)
	}
	arts, err := s.RunArtifacts(context.Background(), "run-f")
	if err != nil {
		t.Fatalf("RunArtifacts: %v", err)
	}
	if len(arts) != 0 {
		t.Fatalf("failed runs keep no artifacts, got %d", len(arts))
	}
}

func TestListRunsNewestFirstWithLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		info := process.RunInfo{RunID: id, ProcessID: "dast-scanning", StartedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := s.CreateRun(ctx, info); err != nil {
			t.Fatalf("CreateRun: %v", err)
		}
	}
	runs, err := s.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].RunID != "c" || runs[1].RunID != "b" {
		t.Fatalf("unexpected order %+v", runs)
	}
	if runs[0].Status != process.RunStatusRunning {
		t.Fatalf("unfinished runs should be running, got %s", runs[0].Status)
	}
}

func TestGetRunMissing(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.GetRun(context.Background(), "nope"); err == nil {
		t.Fatalf("expected error for missing run")
	}
}
