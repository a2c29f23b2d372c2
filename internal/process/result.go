package process

import (
	"encoding/json"
	"time"

	"github.com/kingrea/procflow/internal/artifact"
)

// Metadata identifies the run that produced a Result.
type Metadata struct {
	ProcessID string    `json:"processId"`
	RunID     string    `json:"runId,omitempty"`
	Version   string    `json:"version,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Result is the final value of a run. Failed runs carry Error and no
// artifacts.
type Result struct {
	Success   bool
	Outputs   map[string]any
	Artifacts []artifact.Artifact
	Duration  time.Duration
	Metadata  Metadata
	Error     *Failure
	Phases    []PhaseRecord
}

// Output returns one projected output field.
func (r Result) Output(key string) any {
	return r.Outputs[key]
}

// Status classifies the result for state files, history and metrics.
func (r Result) Status() RunStatus {
	switch {
	case r.Error != nil:
		return RunStatusFailed
	case !r.Success:
		return RunStatusUnsuccessful
	default:
		return RunStatusSucceeded
	}
}

// MarshalJSON flattens Outputs into the top-level object next to success,
// artifacts, duration (milliseconds), metadata and error.
func (r Result) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Outputs)+5)
	for k, v := range r.Outputs {
		out[k] = v
	}
	artifacts := r.Artifacts
	if artifacts == nil {
		artifacts = []artifact.Artifact{}
	}
	out["success"] = r.Success
	out["artifacts"] = artifacts
	out["duration"] = r.Duration.Milliseconds()
	out["metadata"] = r.Metadata
	if r.Error != nil {
		out["error"] = r.Error
	}
	return json.Marshal(out)
}

func failedResult(meta Metadata, failure *Failure) Result {
	return Result{Success: false, Metadata: meta, Error: failure}
}
