// Package metrics provides a migration.Listener backed by Prometheus and, when configured,
// pushes the collected metrics to a Pushgateway as the application stops.
package metrics

import (
	"context"

	"go.uber.org/fx"

	config "github.com/tigerroll/docschema/pkg/core/config"
	"github.com/tigerroll/docschema/pkg/migration"
	"github.com/tigerroll/docschema/pkg/support/util/logger"
)

// registerPush pushes metrics on stop. A push failure is logged and does not fail shutdown.
func registerPush(lc fx.Lifecycle, l *PrometheusListener, cfg *config.ObservabilityConfig) {
	url := cfg.Metrics.PushGatewayURL
	if url == "" {
		logger.Debugf("Metrics: no push gateway configured, metrics stay in-process.")
		return
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if err := l.Push(ctx, url, cfg.Metrics.JobName); err != nil {
				logger.Warnf("Metrics: %v", err)
			}
			return nil
		},
	})
}

// Module provides *PrometheusListener, adds it to the listener group and registers the push hook.
var Module = fx.Options(
	fx.Provide(NewPrometheusListener),
	fx.Provide(fx.Annotate(
		func(l *PrometheusListener) migration.Listener { return l },
		fx.ResultTags(`group:"`+migration.ListenerGroup+`"`),
	)),
	fx.Invoke(registerPush),
)
