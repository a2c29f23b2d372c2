package executor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kingrea/procflow/internal/artifact"
	"github.com/kingrea/procflow/internal/gate"
	"github.com/kingrea/procflow/internal/task"
)

var inventory = task.Define("inventory-dependencies", task.Title("Inventory dependencies"))

func TestJoinPreservesOrder(t *testing.T) {
	thunks := []Thunk{
		func(context.Context) (task.Result, error) {
			time.Sleep(10 * time.Millisecond)
			return task.Result{"n": 0}, nil
		},
		func(context.Context) (task.Result, error) { return task.Result{"n": 1}, nil },
		func(context.Context) (task.Result, error) { return task.Result{"n": 2}, nil },
	}
	results, err := Join(context.Background(), 2, thunks)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	for i, r := range results {
		if r.Int("n") != i {
			t.Fatalf("result %d out of order: %+v", i, r)
		}
	}
}

func TestJoinFailsWholeGroup(t *testing.T) {
	boom := errors.New("scanner crashed")
	var canceled atomic.Bool
	thunks := []Thunk{
		func(ctx context.Context) (task.Result, error) {
			<-ctx.Done()
			canceled.Store(true)
			return nil, ctx.Err()
		},
		func(context.Context) (task.Result, error) { return nil, boom },
	}
	results, err := Join(context.Background(), 0, thunks)
	if results != nil {
		t.Fatalf("expected no partial results, got %+v", results)
	}
	var member *MemberError
	if !errors.As(err, &member) {
		t.Fatalf("expected member error, got %v", err)
	}
	if !errors.Is(err, boom) && !errors.Is(err, context.Canceled) {
		t.Fatalf("unexpected error %v", err)
	}
	if !canceled.Load() {
		t.Fatalf("expected sibling to observe cancellation")
	}
}

func TestReplayServesStoredResults(t *testing.T) {
	dir := t.TempDir()
	store := artifact.NewStore(dir)
	journal := gate.NewJournal(10)
	replay := NewReplay(store, WithNotifier(journal), WithProvenance("sca-dependency-management", "run-1"))
	desc := inventory.Describe(task.Args{"projectPath": "."}, task.Context{EffectID: "001-inventory-dependencies"})

	if _, err := replay.RunTask(context.Background(), desc, task.Args{"projectPath": "."}); !errors.Is(err, ErrResultMissing) {
		t.Fatalf("expected missing result, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "tasks", "001-inventory-dependencies", "input.json")); err != nil {
		t.Fatalf("expected input record: %v", err)
	}

	resultPath := filepath.Join(dir, "tasks", "001-inventory-dependencies", "result.json")
	if err := os.WriteFile(resultPath, []byte(`{"success": true, "totalDependencies": 42, "artifacts": []}`), 0o644); err != nil {
		t.Fatalf("write result: %v", err)
	}
	res, err := replay.RunTask(context.Background(), desc, task.Args{"projectPath": "."})
	if err != nil {
		t.Fatalf("run task: %v", err)
	}
	if res.Int("totalDependencies") != 42 {
		t.Fatalf("unexpected result %+v", res)
	}

	if err := replay.Breakpoint(context.Background(), gate.Request{Title: "approve"}); err != nil {
		t.Fatalf("breakpoint: %v", err)
	}
	entries := journal.List(0)
	if len(entries) != 1 || entries[0].Request.Kind != gate.KindBreakpoint {
		t.Fatalf("unexpected journal %+v", entries)
	}
}

func TestHTTPExecutorPostsTasksAndGates(t *testing.T) {
	var gotTask taskRequest
	var gotGate gate.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tasks":
			_ = json.NewDecoder(r.Body).Decode(&gotTask)
			_, _ = w.Write([]byte(`{"success": true, "artifacts": [{"path": "sbom.json", "format": "json"}]}`))
		case "/gates":
			_ = json.NewDecoder(r.Body).Decode(&gotGate)
			w.WriteHeader(http.StatusAccepted)
		case "/logs":
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	exec, err := NewHTTP(HTTPConfig{Endpoint: srv.URL + "/"})
	if err != nil {
		t.Fatalf("new http: %v", err)
	}
	desc := inventory.Describe(nil, task.Context{EffectID: "001-inventory-dependencies"})
	res, err := exec.RunTask(context.Background(), desc, task.Args{"projectPath": "/src"})
	if err != nil {
		t.Fatalf("run task: %v", err)
	}
	if gotTask.EffectID != "001-inventory-dependencies" || gotTask.Args["projectPath"] != "/src" {
		t.Fatalf("unexpected request %+v", gotTask)
	}
	if arts := res.Artifacts(); len(arts) != 1 || arts[0].Path != "sbom.json" {
		t.Fatalf("unexpected artifacts %+v", arts)
	}
	if err := exec.Checkpoint(context.Background(), gate.Request{Title: "inventory done"}); err != nil {
		t.Fatalf("checkpoint: %v", err)
	}
	if gotGate.Kind != gate.KindCheckpoint || gotGate.Title != "inventory done" {
		t.Fatalf("unexpected gate %+v", gotGate)
	}
}

func TestHTTPExecutorSurfacesStatusErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "runtime unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	exec, err := NewHTTP(HTTPConfig{Endpoint: srv.URL})
	if err != nil {
		t.Fatalf("new http: %v", err)
	}
	_, err = exec.RunTask(context.Background(), inventory.Describe(nil, task.Context{EffectID: "001-x"}), nil)
	if err == nil {
		t.Fatalf("expected error for 503")
	}
}

func TestNewHTTPRequiresEndpoint(t *testing.T) {
	if _, err := NewHTTP(HTTPConfig{}); err == nil {
		t.Fatalf("expected endpoint error")
	}
}

func TestReplayReadsFromSeparateResultsStore(t *testing.T) {
	runDir, fixtures := t.TempDir(), t.TempDir()
	resultPath := filepath.Join(fixtures, "tasks", "001-inventory-dependencies", "result.json")
	if err := os.MkdirAll(filepath.Dir(resultPath), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(resultPath, []byte(`{"totalDependencies": 7, "artifacts": []}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	replay := NewReplay(artifact.NewStore(runDir), WithResultsFrom(artifact.NewStore(fixtures)))
	desc := inventory.Describe(nil, task.Context{EffectID: "001-inventory-dependencies"})
	res, err := replay.RunTask(context.Background(), desc, nil)
	if err != nil {
		t.Fatalf("run task: %v", err)
	}
	if res.Int("totalDependencies") != 7 {
		t.Fatalf("unexpected result %+v", res)
	}
	if _, err := os.Stat(filepath.Join(runDir, "tasks", "001-inventory-dependencies", "input.json")); err != nil {
		t.Fatalf("input should be written to the run store: %v", err)
	}
}
