// Package v20250708131842 enforces JSON-schema validation on users and events and
// replaces the users indexes with the unique username/organization and unique sparse
// keycloakId pair.
//
// Revert is lossy: it restores only the two users indexes known to exist before the
// step, so any other pre-existing index is gone after an up/down round trip.
package v20250708131842

import (
	"context"
	"fmt"
	"time"

	"github.com/tigerroll/docschema/pkg/adapter/database"
	"github.com/tigerroll/docschema/pkg/migration"
	"github.com/tigerroll/docschema/pkg/support/util/exception"
	"github.com/tigerroll/docschema/pkg/support/util/logger"
)

// ID is the step identifier.
const ID = "20250708131842"

// Step is the users/events schema step.
type Step struct {
	specs []collectionSpec
}

// New creates the step.
func New() *Step {
	return &Step{specs: collectionSpecs()}
}

func (s *Step) ID() string { return ID }

func (s *Step) Description() string {
	return "enforce users/events JSON schema and users uniqueness indexes"
}

// Collections returns users then events.
func (s *Step) Collections() []string {
	names := make([]string, len(s.specs))
	for i, c := range s.specs {
		names[i] = c.name
	}
	return names
}

// Apply drops every index on both collections, then for each collection in order applies
// its validator and creates its target indexes. It stops at the first failure, leaving
// whatever already succeeded in place; running it again is safe.
func (s *Step) Apply(ctx context.Context, db database.Database) error {
	for _, c := range s.specs {
		start := time.Now()
		err := db.Collection(c.name).DropIndexes(ctx)
		switch {
		case err == nil:
			report(ctx, migration.ActionDropIndexes, c.name, "", migration.OutcomeOK, nil, start)
			logger.Infof("Dropped all indexes on %s", c.name)
		case database.IsNamespaceNotFound(err):
			report(ctx, migration.ActionDropIndexes, c.name, "", migration.OutcomeTolerated, err, start)
			logger.Debugf("Collection %s does not exist, nothing to drop", c.name)
		default:
			return s.abort(ctx, migration.ActionDropIndexes, c.name, "", err, start)
		}
	}

	for _, c := range s.specs {
		if err := s.applyValidator(ctx, db, c); err != nil {
			return err
		}
		for _, idx := range c.indexes {
			start := time.Now()
			if _, err := db.Collection(c.name).CreateIndex(ctx, idx); err != nil {
				return s.abort(ctx, migration.ActionCreateIndex, c.name, idx.Name, err, start)
			}
			report(ctx, migration.ActionCreateIndex, c.name, idx.Name, migration.OutcomeOK, nil, start)
			logger.Infof("Created index %s on %s", idx.Name, c.name)
		}
	}
	return nil
}

// applyValidator runs collMod. A missing collection is created with the same validator;
// if another process created it in between, collMod is retried once.
func (s *Step) applyValidator(ctx context.Context, db database.Database, c collectionSpec) error {
	start := time.Now()
	err := db.RunCommand(ctx, validatorCommand("collMod", c.name, c.schema))
	if err == nil {
		report(ctx, migration.ActionApplyValidator, c.name, "", migration.OutcomeOK, nil, start)
		logger.Infof("Applied validator to %s", c.name)
		return nil
	}
	if !database.IsNamespaceNotFound(err) {
		return s.abort(ctx, migration.ActionApplyValidator, c.name, "", err, start)
	}

	start = time.Now()
	err = db.RunCommand(ctx, validatorCommand("create", c.name, c.schema))
	switch {
	case err == nil:
		report(ctx, migration.ActionCreateCollection, c.name, "", migration.OutcomeOK, nil, start)
		logger.Infof("Created %s with validator", c.name)
		return nil
	case database.IsNamespaceExists(err):
		report(ctx, migration.ActionCreateCollection, c.name, "", migration.OutcomeTolerated, err, start)
	default:
		return s.abort(ctx, migration.ActionCreateCollection, c.name, "", err, start)
	}

	start = time.Now()
	if err := db.RunCommand(ctx, validatorCommand("collMod", c.name, c.schema)); err != nil {
		return s.abort(ctx, migration.ActionApplyValidator, c.name, "", err, start)
	}
	report(ctx, migration.ActionApplyValidator, c.name, "", migration.OutcomeOK, nil, start)
	logger.Infof("Applied validator to %s", c.name)
	return nil
}

// abort reports a failed sub-step and wraps err. Index conflicts are not retryable.
func (s *Step) abort(ctx context.Context, action migration.Action, collection, index string, err error, start time.Time) error {
	report(ctx, action, collection, index, migration.OutcomeFailed, err, start)

	target := collection
	if index != "" {
		target += "." + index
	}
	if database.IsIndexConflict(err) {
		return exception.NewMigrationError(ID,
			fmt.Sprintf("index %s conflicts with an existing index of a different definition", target), err, false)
	}
	return exception.NewMigrationError(ID, fmt.Sprintf("%s on %s failed", action, target), err, true)
}

// Revert clears both validators, drops every non-identity index and restores the
// pre-migration users indexes. Each sub-step is independent: failures are logged,
// collected on the execution and never returned.
func (s *Step) Revert(ctx context.Context, db database.Database) error {
	for _, c := range s.specs {
		coll := db.Collection(c.name)

		start := time.Now()
		if err := db.RunCommand(ctx, clearValidatorCommand(c.name)); err != nil {
			warn(ctx, migration.ActionClearValidator, c.name, "", err, start)
		} else {
			report(ctx, migration.ActionClearValidator, c.name, "", migration.OutcomeOK, nil, start)
			logger.Infof("Removed validator from %s", c.name)
		}

		start = time.Now()
		indexes, err := coll.ListIndexes(ctx)
		if err != nil {
			warn(ctx, migration.ActionListIndexes, c.name, "", err, start)
		} else {
			report(ctx, migration.ActionListIndexes, c.name, "", migration.OutcomeOK, nil, start)
		}
		for _, idx := range indexes {
			if idx.Name == database.IdentityIndexName {
				continue
			}
			start := time.Now()
			if err := coll.DropIndex(ctx, idx.Name); err != nil {
				warn(ctx, migration.ActionDropIndex, c.name, idx.Name, err, start)
				continue
			}
			report(ctx, migration.ActionDropIndex, c.name, idx.Name, migration.OutcomeOK, nil, start)
			logger.Infof("Dropped index %s from %s", idx.Name, c.name)
		}

		for _, idx := range c.legacyIndexes {
			start := time.Now()
			if _, err := coll.CreateIndex(ctx, idx); err != nil {
				warn(ctx, migration.ActionRestoreIndex, c.name, idx.Name, err, start)
				continue
			}
			report(ctx, migration.ActionRestoreIndex, c.name, idx.Name, migration.OutcomeOK, nil, start)
			logger.Infof("Restored index %s on %s", idx.Name, c.name)
		}
	}
	return nil
}

func warn(ctx context.Context, action migration.Action, collection, index string, err error, start time.Time) {
	if index != "" {
		logger.Warnf("Failed to %s %s on %s: %s", action, index, collection, exception.ExtractErrorMessage(err))
	} else {
		logger.Warnf("Failed to %s on %s: %s", action, collection, exception.ExtractErrorMessage(err))
	}
	report(ctx, action, collection, index, migration.OutcomeWarned, err, start)
}

func report(ctx context.Context, action migration.Action, collection, index string, outcome migration.Outcome, err error, start time.Time) {
	migration.Report(ctx, migration.SubStepResult{
		Action:     action,
		Collection: collection,
		Index:      index,
		Outcome:    outcome,
		Err:        err,
		Duration:   time.Since(start),
	})
}

var _ migration.Step = (*Step)(nil)
