// Package suite runs several processes in order from a YAML definition.
package suite

import (
	"fmt"
	"strings"
)

// Definition declares an ordered set of process runs.
type Definition struct {
	ID          string            `json:"id" yaml:"id"`
	Name        string            `json:"name" yaml:"name"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Defaults    Inputs            `json:"defaults,omitempty" yaml:"defaults,omitempty"`
	Steps       []Step            `json:"steps" yaml:"steps"`
	Metadata    map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Step runs one process.
type Step struct {
	ID                string `json:"id,omitempty" yaml:"id,omitempty"`
	Process           string `json:"process" yaml:"process"`
	Name              string `json:"name,omitempty" yaml:"name,omitempty"`
	Inputs            Inputs `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	ContinueOnFailure bool   `json:"continue_on_failure,omitempty" yaml:"continue_on_failure,omitempty"`
}

// Inputs carries raw process input.
type Inputs map[string]any

// Clone returns a shallow copy of the inputs.
func (in Inputs) Clone() Inputs {
	if len(in) == 0 {
		return nil
	}
	clone := make(Inputs, len(in))
	for key, value := range in {
		clone[key] = value
	}
	return clone
}

// StepID returns the suite-local identifier of the step.
func (s Step) StepID() string {
	if s.ID != "" {
		return s.ID
	}
	return s.Process
}

// Clone returns a deep copy of the definition.
func (def Definition) Clone() Definition {
	clone := Definition{
		ID:          def.ID,
		Name:        def.Name,
		Description: def.Description,
		Defaults:    def.Defaults.Clone(),
	}
	if len(def.Metadata) > 0 {
		clone.Metadata = make(map[string]string, len(def.Metadata))
		for k, v := range def.Metadata {
			clone.Metadata[k] = v
		}
	}
	if len(def.Steps) > 0 {
		clone.Steps = make([]Step, len(def.Steps))
		for i, step := range def.Steps {
			step.Inputs = step.Inputs.Clone()
			clone.Steps[i] = step
		}
	}
	return clone
}

// Validate ensures the definition is self-consistent.
func (def Definition) Validate() error {
	if def.ID == "" {
		return fmt.Errorf("suite: id is required")
	}
	if len(def.Steps) == 0 {
		return fmt.Errorf("suite %s: at least one step is required", def.ID)
	}
	seen := map[string]struct{}{}
	for idx, step := range def.Steps {
		if step.Process == "" {
			return fmt.Errorf("suite %s step[%d]: process is required", def.ID, idx)
		}
		id := step.StepID()
		if _, exists := seen[id]; exists {
			return fmt.Errorf("suite %s: duplicate step id %s", def.ID, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// Normalized clones the definition, trims identifiers, merges suite defaults
// into each step and validates the result.
func (def Definition) Normalized() (Definition, error) {
	clone := def.Clone()
	clone.ID = strings.TrimSpace(clone.ID)
	if clone.Name == "" {
		clone.Name = clone.ID
	}
	for i := range clone.Steps {
		step := &clone.Steps[i]
		step.ID = strings.TrimSpace(step.ID)
		step.Process = strings.TrimSpace(step.Process)
		if len(clone.Defaults) == 0 {
			continue
		}
		merged := clone.Defaults.Clone()
		for k, v := range step.Inputs {
			merged[k] = v
		}
		step.Inputs = merged
	}
	if err := clone.Validate(); err != nil {
		return Definition{}, err
	}
	return clone, nil
}

// CheckProcesses reports the first step whose process is unknown.
func (def Definition) CheckProcesses(known func(id string) bool) error {
	for _, step := range def.Steps {
		if !known(step.Process) {
			return fmt.Errorf("suite %s step %s: unknown process %q", def.ID, step.StepID(), step.Process)
		}
	}
	return nil
}
