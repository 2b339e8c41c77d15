// Package migration defines the contract of a schema-evolution step and runs one
// step in a chosen direction with listeners attached.
package migration

import (
	"context"
	"fmt"
	"strings"

	"github.com/tigerroll/docschema/pkg/adapter/database"
)

// Direction selects Apply (up) or Revert (down).
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// String returns the string representation of the Direction.
func (d Direction) String() string {
	return string(d)
}

// ParseDirection parses "up" or "down", case-insensitively.
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case DirectionUp:
		return DirectionUp, nil
	case DirectionDown:
		return DirectionDown, nil
	default:
		return "", fmt.Errorf("unknown migration direction '%s' (expected 'up' or 'down')", s)
	}
}

// Step is one forward/backward schema-evolution unit.
type Step interface {
	// ID is the stable identifier of the step, usually a timestamp.
	ID() string
	// Description is a human-readable summary.
	Description() string
	// Collections lists the collections the step touches, in processing order.
	Collections() []string
	// Apply moves the database to the step's target state. It stops at the first failure.
	Apply(ctx context.Context, db database.Database) error
	// Revert moves the database back on a best-effort basis.
	Revert(ctx context.Context, db database.Database) error
}

// Action names a sub-step reported during Apply or Revert.
type Action string

const (
	ActionDropIndexes      Action = "dropIndexes"
	ActionApplyValidator   Action = "applyValidator"
	ActionCreateCollection Action = "createCollection"
	ActionCreateIndex      Action = "createIndex"
	ActionClearValidator   Action = "clearValidator"
	ActionListIndexes      Action = "listIndexes"
	ActionDropIndex        Action = "dropIndex"
	ActionRestoreIndex     Action = "restoreIndex"
)
