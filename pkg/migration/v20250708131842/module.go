package v20250708131842

import (
	"go.uber.org/fx"

	"github.com/tigerroll/docschema/pkg/migration"
)

// Module provides the step as migration.Step.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		New,
		fx.As(new(migration.Step)),
	)),
)
