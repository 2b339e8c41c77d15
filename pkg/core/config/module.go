package config

import "go.uber.org/fx"

// NewMigrationConfigProvider extracts *MigrationConfig from *Config.
func NewMigrationConfigProvider(cfg *Config) *MigrationConfig {
	return &cfg.Docschema.Migration
}

// NewObservabilityConfigProvider extracts *ObservabilityConfig from *Config.
func NewObservabilityConfigProvider(cfg *Config) *ObservabilityConfig {
	return &cfg.Docschema.Observability
}

// Module provides the configuration sections to Fx.
// The root *Config itself is supplied by the application, which loads it before building the graph.
var Module = fx.Options(
	fx.Provide(NewMigrationConfigProvider),
	fx.Provide(NewObservabilityConfigProvider),
)
