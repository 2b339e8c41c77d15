package migration

import (
	"go.uber.org/fx"

	config "github.com/tigerroll/docschema/pkg/core/config"
)

// ListenerGroup is the Fx value group listeners are provided into.
const ListenerGroup = "migrationListeners"

// ExecutorParams collects the Executor's dependencies from Fx.
type ExecutorParams struct {
	fx.In
	Config    *config.MigrationConfig
	Listeners []Listener `group:"migrationListeners"`
}

// NewExecutorFromParams builds the Executor from configuration and every grouped listener.
func NewExecutorFromParams(p ExecutorParams) *Executor {
	return NewExecutor(p.Config.Timeout(), p.Listeners...)
}

// AsListener annotates a constructor so its result joins the listener group.
func AsListener(constructor interface{}) interface{} {
	return fx.Annotate(
		constructor,
		fx.As(new(Listener)),
		fx.ResultTags(`group:"`+ListenerGroup+`"`),
	)
}

// Module provides *Executor.
var Module = fx.Options(
	fx.Provide(NewExecutorFromParams),
)
