package mongodb

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/docschema/pkg/adapter/database"
)

// registerLifecycle closes every connection the provider opened when the application stops.
func registerLifecycle(lc fx.Lifecycle, p *Provider) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return p.CloseAll(ctx)
		},
	})
}

// Module provides *Provider, also as database.DBProvider, and closes its connections on stop.
var Module = fx.Options(
	fx.Provide(
		NewProvider,
		func(p *Provider) database.DBProvider { return p },
	),
	fx.Invoke(registerLifecycle),
)
