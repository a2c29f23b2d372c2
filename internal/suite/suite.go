package suite

import (
	"context"
	"errors"
	"time"

	"github.com/kingrea/procflow/internal/process"
)

// Executor runs one process. *process.Runner satisfies it.
type Executor interface {
	Execute(ctx context.Context, processID string, raw map[string]any) process.Result
}

// StepStatus is the outcome of a suite step.
type StepStatus string

const (
	StepSucceeded    StepStatus = "succeeded"
	StepUnsuccessful StepStatus = "unsuccessful"
	StepFailed       StepStatus = "failed"
	StepSkipped      StepStatus = "skipped"
)

// StepResult is the outcome of one step.
type StepResult struct {
	StepID  string         `json:"step_id"`
	Process string         `json:"process"`
	Status  StepStatus     `json:"status"`
	Result  process.Result `json:"result"`
}

// Report collects step results in declaration order.
type Report struct {
	SuiteID  string        `json:"suite_id"`
	Success  bool          `json:"success"`
	Steps    []StepResult  `json:"steps"`
	Duration time.Duration `json:"-"`
}

// Failed lists the ids of steps that did not succeed.
func (r Report) Failed() []string {
	var out []string
	for _, step := range r.Steps {
		if step.Status == StepFailed || step.Status == StepUnsuccessful {
			out = append(out, step.StepID)
		}
	}
	return out
}

// Run executes the steps of def in order. A step that does not succeed stops
// the suite unless it sets continue_on_failure; steps after a stop are
// reported as skipped.
func Run(ctx context.Context, exec Executor, def Definition) (Report, error) {
	if exec == nil {
		return Report{}, errors.New("suite: executor is required")
	}
	def, err := def.Normalized()
	if err != nil {
		return Report{}, err
	}
	start := time.Now()
	report := Report{SuiteID: def.ID, Success: true}
	stopped := false
	for _, step := range def.Steps {
		entry := StepResult{StepID: step.StepID(), Process: step.Process}
		if stopped || ctx.Err() != nil {
			entry.Status = StepSkipped
			report.Success = false
			report.Steps = append(report.Steps, entry)
			continue
		}
		res := exec.Execute(ctx, step.Process, step.Inputs.Clone())
		entry.Result = res
		switch res.Status() {
		case process.RunStatusSucceeded:
			entry.Status = StepSucceeded
		case process.RunStatusUnsuccessful:
			entry.Status = StepUnsuccessful
		default:
			entry.Status = StepFailed
		}
		if entry.Status != StepSucceeded {
			report.Success = false
			if !step.ContinueOnFailure {
				stopped = true
			}
		}
		report.Steps = append(report.Steps, entry)
	}
	report.Duration = time.Since(start)
	return report, nil
}
