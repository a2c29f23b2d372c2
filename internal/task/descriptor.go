// Package task declares the units of work a process delegates to an executor.
// A Definition is declared once per task kind; Describe turns it into the
// Descriptor handed to the executor for one invocation.
package task

import (
	"fmt"
	"path"

	"github.com/kingrea/procflow/internal/schema"
)

// KindAgent is the capability tag carried by every descriptor.
const KindAgent = "agent"

// Prompt is the free-text specification of the delegated work.
type Prompt struct {
	Role         string   `json:"role" yaml:"role"`
	Task         string   `json:"task" yaml:"task"`
	Context      string   `json:"context,omitempty" yaml:"context,omitempty"`
	Instructions []string `json:"instructions" yaml:"instructions"`
	OutputFormat string   `json:"outputFormat" yaml:"outputFormat"`
}

// IO carries the deterministic record paths of one invocation.
type IO struct {
	Input  string `json:"inputJsonPath" yaml:"inputJsonPath"`
	Result string `json:"outputJsonPath" yaml:"outputJsonPath"`
}

// Descriptor is the payload handed to an executor for one task invocation.
type Descriptor struct {
	Name         string        `json:"name"`
	Title        string        `json:"title"`
	Kind         string        `json:"kind"`
	Prompt       Prompt        `json:"prompt"`
	OutputSchema *schema.Field `json:"outputSchema,omitempty"`
	Labels       []string      `json:"labels,omitempty"`
	IO           IO            `json:"io"`
}

// Context identifies one invocation. EffectID is the only input used to
// derive record paths.
type Context struct {
	EffectID string
}

// IO returns the task's input/result record paths.
func (c Context) IO() IO {
	return IO{
		Input:  path.Join("tasks", c.EffectID, "input.json"),
		Result: path.Join("tasks", c.EffectID, "result.json"),
	}
}

// EffectID formats the deterministic identifier of the seq-th invocation in a run.
func EffectID(seq int, name string) string {
	return fmt.Sprintf("%03d-%s", seq, name)
}
