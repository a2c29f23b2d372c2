package process

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/kingrea/procflow/internal/artifact"
)

// ErrStateNotFound is returned when no persisted run state exists yet.
var ErrStateNotFound = errors.New("process: state not found")

// RunStatus enumerates coarse run phases.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	// RunStatusUnsuccessful marks a run whose phases all completed but whose
	// outcome did not meet the process's success rule.
	RunStatusUnsuccessful RunStatus = "unsuccessful"
	RunStatusFailed       RunStatus = "failed"
)

// State captures the persisted snapshot of a run.
type State struct {
	RunID     string    `json:"run_id"`
	ProcessID string    `json:"process_id"`
	Version   string    `json:"version"`
	Status    RunStatus `json:"status"`
	// StatusReason explains non-running states.
	StatusReason string              `json:"status_reason,omitempty"`
	Input        Input               `json:"input,omitempty"`
	Phases       []PhaseRecord       `json:"phases,omitempty"`
	Artifacts    []artifact.Artifact `json:"artifacts,omitempty"`
	Failure      *Failure            `json:"failure,omitempty"`
	StartedAt    time.Time           `json:"started_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// StateFile is the snapshot name inside a run directory.
const StateFile = "state.json"

// Repository reads and writes state.json for one run. Saves go through a
// temporary file so readers never see a partial snapshot.
type Repository struct {
	path string
}

// NewRepository creates a repository for the run rooted at runDir.
func NewRepository(runDir string) *Repository {
	return &Repository{path: filepath.Join(runDir, StateFile)}
}

func (r *Repository) Path() string { return r.path }

// Load returns ErrStateNotFound before the first Save.
func (r *Repository) Load() (State, error) {
	var state State
	data, err := os.ReadFile(r.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return state, ErrStateNotFound
	case err != nil:
		return state, err
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return state, fmt.Errorf("process: decode %s: %w", r.path, err)
	}
	return state, nil
}

// Save replaces the snapshot.
func (r *Repository) Save(state State) error {
	encoded, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("process: encode state: %w", err)
	}
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, StateFile+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(append(encoded, '\n')); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), r.path)
}
