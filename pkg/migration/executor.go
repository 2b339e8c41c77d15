package migration

import (
	"context"
	"fmt"
	"time"

	"github.com/tigerroll/docschema/pkg/adapter/database"
	"github.com/tigerroll/docschema/pkg/support/util/logger"
)

// Executor runs a single Step in one Direction and notifies listeners.
// It does not discover, order or record steps.
type Executor struct {
	timeout   time.Duration
	listeners []Listener
}

// NewExecutor creates an Executor. A zero timeout leaves ctx unbounded.
func NewExecutor(timeout time.Duration, listeners ...Listener) *Executor {
	return &Executor{timeout: timeout, listeners: listeners}
}

// AddListener registers an additional listener.
func (e *Executor) AddListener(l Listener) {
	e.listeners = append(e.listeners, l)
}

// Execute runs step against db. The returned Execution is never nil; the error is the one
// returned by Apply, or nil for Revert, whose sub-step failures end up in Execution.Warnings.
func (e *Executor) Execute(ctx context.Context, step Step, db database.Database, dir Direction) (*Execution, error) {
	execution := NewExecution(step.ID(), dir)

	var run func(context.Context, database.Database) error
	switch dir {
	case DirectionUp:
		run = step.Apply
	case DirectionDown:
		run = step.Revert
	default:
		err := fmt.Errorf("unknown migration direction '%s'", dir)
		execution.finish(err)
		return execution, err
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	ctx = ContextWithExecution(ctx, execution, e.listeners...)

	logger.Infof("Migration %s (%s): starting %s on database '%s' [execution %s]", step.ID(), step.Description(), dir, db.Name(), execution.ID)
	for _, l := range e.listeners {
		l.BeforeMigrate(ctx, execution)
	}

	err := run(ctx, db)
	execution.finish(err)

	for _, l := range e.listeners {
		l.AfterMigrate(ctx, execution)
	}

	switch execution.Status {
	case StatusFailed:
		logger.Errorf("Migration %s: %s failed after %s: %v", step.ID(), dir, execution.Duration(), err)
	case StatusPartial:
		logger.Warnf("Migration %s: %s finished with %d warning(s) in %s", step.ID(), dir, len(execution.Warnings.WrappedErrors()), execution.Duration())
	default:
		logger.Infof("Migration %s: %s completed in %s", step.ID(), dir, execution.Duration())
	}
	return execution, err
}
