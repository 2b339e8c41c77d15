package listener

import (
	"go.uber.org/fx"

	"github.com/tigerroll/docschema/pkg/listener/logging"
	"github.com/tigerroll/docschema/pkg/listener/metrics"
	"github.com/tigerroll/docschema/pkg/listener/tracing"
)

// Module aggregates all migration listener modules.
var Module = fx.Options(
	logging.Module,
	metrics.Module,
	tracing.Module,
)
