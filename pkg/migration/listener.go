package migration

import "context"

// Listener observes step executions.
type Listener interface {
	// BeforeMigrate is called just before Apply or Revert starts.
	BeforeMigrate(ctx context.Context, execution *Execution)
	// OnSubStep is called after every sub-step the step reports.
	OnSubStep(ctx context.Context, execution *Execution, result SubStepResult)
	// AfterMigrate is called after Apply or Revert returns, regardless of outcome.
	AfterMigrate(ctx context.Context, execution *Execution)
}

// NoopListener implements Listener and does nothing. Embed it to implement only some callbacks.
type NoopListener struct{}

func (NoopListener) BeforeMigrate(context.Context, *Execution)            {}
func (NoopListener) OnSubStep(context.Context, *Execution, SubStepResult) {}
func (NoopListener) AfterMigrate(context.Context, *Execution)             {}

var _ Listener = NoopListener{}

type contextKey string

const executionKey contextKey = "migrationExecution"

type reporter struct {
	execution *Execution
	listeners []Listener
}

// ContextWithExecution returns a context through which Report records sub-steps on execution
// and forwards them to listeners.
func ContextWithExecution(ctx context.Context, execution *Execution, listeners ...Listener) context.Context {
	return context.WithValue(ctx, executionKey, &reporter{execution: execution, listeners: listeners})
}

// ExecutionFromContext returns the execution stored in ctx, or nil if none.
func ExecutionFromContext(ctx context.Context) *Execution {
	if r, ok := ctx.Value(executionKey).(*reporter); ok {
		return r.execution
	}
	return nil
}

// Report records a sub-step result. It does nothing when ctx carries no execution,
// so steps can run outside an Executor.
func Report(ctx context.Context, result SubStepResult) {
	r, ok := ctx.Value(executionKey).(*reporter)
	if !ok {
		return
	}
	r.execution.record(result)
	for _, l := range r.listeners {
		l.OnSubStep(ctx, r.execution, result)
	}
}
