// Package executor defines the capability a process delegates its work to and
// ships the file-backed and HTTP implementations used by the CLI.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kingrea/procflow/internal/gate"
	"github.com/kingrea/procflow/internal/logbook"
	"github.com/kingrea/procflow/internal/task"
)

// ErrResultMissing is returned when no result exists for an invocation.
var ErrResultMissing = errors.New("executor: task result missing")

// Thunk is one member of a parallel group.
type Thunk func(ctx context.Context) (task.Result, error)

// Executor performs delegated work. Cancellation and timeout policy belong to
// the implementation.
type Executor interface {
	// RunTask performs one invocation and returns its result.
	RunTask(ctx context.Context, desc task.Descriptor, args task.Args) (task.Result, error)
	// RunParallel runs every thunk and returns their results in call order.
	// It fails if any member fails.
	RunParallel(ctx context.Context, thunks []Thunk) ([]task.Result, error)
	// Checkpoint delivers an informational gate.
	Checkpoint(ctx context.Context, req gate.Request) error
	// Breakpoint delivers an approval gate. It does not block.
	Breakpoint(ctx context.Context, req gate.Request) error
	Now() time.Time
	Log(level logbook.Level, message string)
}

// MemberError identifies which member of a parallel group failed.
type MemberError struct {
	Index int
	Err   error
}

func (e *MemberError) Error() string {
	return fmt.Sprintf("executor: parallel member %d: %v", e.Index, e.Err)
}

func (e *MemberError) Unwrap() error { return e.Err }

// Join runs thunks concurrently with at most limit in flight (limit <= 0
// means unbounded). The first failure cancels the remaining members and is
// returned; results are only returned when every member succeeded.
func Join(ctx context.Context, limit int, thunks []Thunk) ([]task.Result, error) {
	results := make([]task.Result, len(thunks))
	if len(thunks) == 0 {
		return results, nil
	}
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, thunk := range thunks {
		i, thunk := i, thunk
		g.Go(func() error {
			if thunk == nil {
				return &MemberError{Index: i, Err: errors.New("nil task")}
			}
			res, err := thunk(gctx)
			if err != nil {
				return &MemberError{Index: i, Err: err}
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
