package recovery

import (
	"context"
	"time"

	"github.com/tranvd/aegis/internal/core/domain"
)

// Operation is a fallible unit of work protected by the engine.
type Operation func(ctx context.Context) error

// KindFunc maps an operation error to a fault kind.
type KindFunc func(err error) string

// StaticKind reports every error as the same fault kind.
func StaticKind(kind string) KindFunc {
	return func(error) string { return kind }
}

// Protect wraps an operation with engine-driven recovery. When the
// operation fails, the fault is handled; if the decision is a successful
// retry, the wrapper sleeps for the signaled delay and re-invokes the
// operation exactly once. Any other decision returns the original error.
//
// The wrapper never loops: repeated failures rely on the caller invoking
// the wrapped operation again, which re-enters the engine and consumes the
// retry budget.
func Protect(e *Engine, actor, taskID string, kindOf KindFunc, op Operation) Operation {
	return func(ctx context.Context) error {
		err := op(ctx)
		if err == nil {
			return nil
		}

		decision, handleErr := e.Handle(ctx, FaultFromError(kindOf(err), err), actor, taskID, nil)
		if handleErr != nil {
			return handleErr
		}

		if !decision.Succeeded || decision.Outcome == nil || decision.Outcome.Action != domain.ActionRetry {
			return err
		}

		delay := time.Duration(decision.Outcome.DelaySeconds() * float64(time.Second))
		if delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		return op(ctx)
	}
}
