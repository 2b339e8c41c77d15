package migration

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
)

// Status represents the state of a step execution.
type Status string

const (
	StatusStarted   Status = "STARTED"
	StatusCompleted Status = "COMPLETED"
	// StatusPartial means the run finished but some best-effort sub-steps failed.
	StatusPartial Status = "COMPLETED_WITH_WARNINGS"
	StatusFailed  Status = "FAILED"
)

// String returns the string representation of the Status.
func (s Status) String() string {
	return string(s)
}

// Outcome classifies a single sub-step.
type Outcome string

const (
	// OutcomeOK means the sub-step succeeded.
	OutcomeOK Outcome = "ok"
	// OutcomeTolerated means the sub-step failed with a condition treated as success.
	OutcomeTolerated Outcome = "tolerated"
	// OutcomeWarned means the sub-step failed and the run carried on.
	OutcomeWarned Outcome = "warned"
	// OutcomeFailed means the sub-step failed and the run aborted.
	OutcomeFailed Outcome = "failed"
)

// SubStepResult describes one command issued by a step.
type SubStepResult struct {
	Action     Action
	Collection string
	Index      string
	Outcome    Outcome
	Err        error
	Duration   time.Duration
}

// Execution records one run of a step in one direction.
type Execution struct {
	ID        string
	StepID    string
	Direction Direction
	Status    Status
	StartTime time.Time
	EndTime   *time.Time
	// Err is the error returned by Apply or Revert.
	Err error
	// Warnings aggregates the errors of every OutcomeWarned sub-step.
	Warnings *multierror.Error

	mu       sync.Mutex
	subSteps []SubStepResult
}

// NewExecution creates a STARTED execution with a fresh ID.
func NewExecution(stepID string, dir Direction) *Execution {
	return &Execution{
		ID:        uuid.New().String(),
		StepID:    stepID,
		Direction: dir,
		Status:    StatusStarted,
		StartTime: time.Now(),
	}
}

// SubSteps returns a copy of the sub-step results recorded so far.
func (e *Execution) SubSteps() []SubStepResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]SubStepResult, len(e.subSteps))
	copy(out, e.subSteps)
	return out
}

// Count returns how many recorded sub-steps had the given outcome.
func (e *Execution) Count(o Outcome) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, r := range e.subSteps {
		if r.Outcome == o {
			n++
		}
	}
	return n
}

// Duration returns the elapsed run time, or the time since start while still running.
func (e *Execution) Duration() time.Duration {
	if e.EndTime == nil {
		return time.Since(e.StartTime)
	}
	return e.EndTime.Sub(e.StartTime)
}

func (e *Execution) record(r SubStepResult) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subSteps = append(e.subSteps, r)
	if r.Outcome == OutcomeWarned && r.Err != nil {
		e.Warnings = multierror.Append(e.Warnings, r.Err)
	}
}

// finish sets the end time and derives the final status from err and the warnings.
func (e *Execution) finish(err error) {
	now := time.Now()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.EndTime = &now
	e.Err = err
	switch {
	case err != nil:
		e.Status = StatusFailed
	case e.Warnings.ErrorOrNil() != nil:
		e.Status = StatusPartial
	default:
		e.Status = StatusCompleted
	}
}
