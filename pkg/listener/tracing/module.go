// Package tracing provides a migration.Listener that records OpenTelemetry spans, and the
// tracer provider that exports them.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"

	config "github.com/tigerroll/docschema/pkg/core/config"
	"github.com/tigerroll/docschema/pkg/migration"
)

// provideTracerProvider builds the provider, installs it globally and flushes it on stop.
func provideTracerProvider(lc fx.Lifecycle, cfg *config.ObservabilityConfig) (trace.TracerProvider, error) {
	tp, err := NewTracerProvider(context.Background(), cfg.Tracing)
	if err != nil {
		return nil, err
	}
	otel.SetTracerProvider(tp)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return tp.Shutdown(ctx)
		},
	})
	return tp, nil
}

// Module provides the tracer provider and adds TracingListener to the listener group.
var Module = fx.Options(
	fx.Provide(provideTracerProvider),
	fx.Provide(migration.AsListener(NewTracingListener)),
)
