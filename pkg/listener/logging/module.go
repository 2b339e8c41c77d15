// Package logging provides a migration.Listener that writes run progress to the package logger.
package logging

import (
	"go.uber.org/fx"

	"github.com/tigerroll/docschema/pkg/migration"
)

// Module provides LoggingListener into the migration listener group.
var Module = fx.Options(
	fx.Provide(migration.AsListener(NewLoggingListener)),
)
