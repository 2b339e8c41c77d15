package logging

import (
	"context"

	"github.com/tigerroll/docschema/pkg/migration"
	"github.com/tigerroll/docschema/pkg/support/util/logger"
)

// LoggingListener logs the lifecycle of every step execution.
type LoggingListener struct{}

func NewLoggingListener() *LoggingListener {
	return &LoggingListener{}
}

func (l *LoggingListener) BeforeMigrate(ctx context.Context, execution *migration.Execution) {
	logger.Infof("MigrationListener: BeforeMigrate - Step: %s, Direction: %s, ID: %s", execution.StepID, execution.Direction, execution.ID)
}

func (l *LoggingListener) OnSubStep(ctx context.Context, execution *migration.Execution, result migration.SubStepResult) {
	target := result.Collection
	if result.Index != "" {
		target += "." + result.Index
	}
	switch result.Outcome {
	case migration.OutcomeFailed:
		logger.Errorf("MigrationListener: OnSubStep - %s %s failed: %v", result.Action, target, result.Err)
	case migration.OutcomeTolerated:
		logger.Debugf("MigrationListener: OnSubStep - %s %s tolerated: %v", result.Action, target, result.Err)
	default:
		logger.Debugf("MigrationListener: OnSubStep - %s %s %s (%s)", result.Action, target, result.Outcome, result.Duration)
	}
}

func (l *LoggingListener) AfterMigrate(ctx context.Context, execution *migration.Execution) {
	logger.Infof("MigrationListener: AfterMigrate - Step: %s, Direction: %s, Status: %s, Duration: %s, ok: %d, tolerated: %d, warned: %d",
		execution.StepID, execution.Direction, execution.Status, execution.Duration(),
		execution.Count(migration.OutcomeOK), execution.Count(migration.OutcomeTolerated), execution.Count(migration.OutcomeWarned))
	if execution.Warnings.ErrorOrNil() != nil {
		logger.Warnf("MigrationListener: AfterMigrate - %s", execution.Warnings.Error())
	}
}

var _ migration.Listener = (*LoggingListener)(nil)
