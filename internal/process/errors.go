package process

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrUnknownProcess is returned when a process id is not registered.
	ErrUnknownProcess = errors.New("process: unknown process")
	// ErrMissingInput marks absent required options.
	ErrMissingInput = errors.New("process: missing required input")
	// ErrInvalidInput marks option values outside their allowed set.
	ErrInvalidInput = errors.New("process: invalid input")
	// ErrPhaseFailed marks a task that errored or reported success=false.
	ErrPhaseFailed = errors.New("process: phase failed")
	// ErrParallelFailed marks a parallel group with at least one failed member.
	ErrParallelFailed = errors.New("process: parallel group failed")
	// ErrSchemaViolation marks a result that does not satisfy its output schema.
	ErrSchemaViolation = errors.New("process: result violates output schema")
)

// FailureKind classifies why a run failed.
type FailureKind string

const (
	KindUnknownProcess  FailureKind = "unknown-process"
	KindMissingInput    FailureKind = "missing-input"
	KindInvalidInput    FailureKind = "invalid-input"
	KindTaskFailed      FailureKind = "task-failed"
	KindExecutor        FailureKind = "executor-error"
	KindSchemaViolation FailureKind = "schema-violation"
	KindParallelFailed  FailureKind = "parallel-failed"
	KindCanceled        FailureKind = "canceled"
	KindInternal        FailureKind = "internal"
)

// MissingInputError lists the required options that were absent.
type MissingInputError struct {
	Fields []string
}

func (e *MissingInputError) Error() string {
	fields := append([]string{}, e.Fields...)
	sort.Strings(fields)
	return fmt.Sprintf("process: missing required input: %s", strings.Join(fields, ", "))
}

// Is matches ErrMissingInput.
func (e *MissingInputError) Is(target error) bool {
	return target == ErrMissingInput
}

// PhaseError attributes a failure to a phase.
type PhaseError struct {
	Phase string
	Kind  FailureKind
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("process: phase %s: %s: %v", e.Phase, e.Kind, e.Err)
}

// Unwrap exposes both the kind sentinel and the cause.
func (e *PhaseError) Unwrap() []error {
	errs := []error{e.Err}
	if sentinel := kindSentinel(e.Kind); sentinel != nil {
		errs = append(errs, sentinel)
	}
	return errs
}

func kindSentinel(kind FailureKind) error {
	switch kind {
	case KindTaskFailed, KindExecutor:
		return ErrPhaseFailed
	case KindParallelFailed:
		return ErrParallelFailed
	case KindSchemaViolation:
		return ErrSchemaViolation
	case KindMissingInput:
		return ErrMissingInput
	case KindInvalidInput:
		return ErrInvalidInput
	case KindUnknownProcess:
		return ErrUnknownProcess
	default:
		return nil
	}
}

// Failure is the structured error carried by a failed Result.
type Failure struct {
	Phase   string      `json:"phase,omitempty"`
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
}

func (f *Failure) Error() string {
	if f.Phase == "" {
		return fmt.Sprintf("%s: %s", f.Kind, f.Message)
	}
	return fmt.Sprintf("%s in %s: %s", f.Kind, f.Phase, f.Message)
}

// FailureFrom classifies err.
func FailureFrom(err error) *Failure {
	if err == nil {
		return nil
	}
	var phaseErr *PhaseError
	if errors.As(err, &phaseErr) {
		return &Failure{Phase: phaseErr.Phase, Kind: phaseErr.Kind, Message: phaseErr.Err.Error()}
	}
	var missing *MissingInputError
	switch {
	case errors.As(err, &missing):
		return &Failure{Kind: KindMissingInput, Message: err.Error()}
	case errors.Is(err, ErrInvalidInput):
		return &Failure{Kind: KindInvalidInput, Message: err.Error()}
	case errors.Is(err, ErrUnknownProcess):
		return &Failure{Kind: KindUnknownProcess, Message: err.Error()}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &Failure{Kind: KindCanceled, Message: err.Error()}
	default:
		return &Failure{Kind: KindInternal, Message: err.Error()}
	}
}
