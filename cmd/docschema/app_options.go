package main

import (
	"go.uber.org/fx"

	"github.com/tigerroll/docschema/pkg/adapter/database/mongodb"
	config "github.com/tigerroll/docschema/pkg/core/config"
	"github.com/tigerroll/docschema/pkg/listener"
	"github.com/tigerroll/docschema/pkg/migration"
	v20250708131842 "github.com/tigerroll/docschema/pkg/migration/v20250708131842"
	"github.com/tigerroll/docschema/pkg/support/util/logger"
)

// GetApplicationOptions loads configuration and returns the Fx options of the application.
func GetApplicationOptions(envFilePath string, embeddedConfig config.EmbeddedConfig) ([]fx.Option, error) {
	cfg, err := config.LoadConfig(envFilePath, embeddedConfig)
	if err != nil {
		return nil, err
	}
	logger.SetLogLevel(cfg.Docschema.System.Logging.Level)
	logger.Debugf("Log level set to: %s", cfg.Docschema.System.Logging.Level)

	var options []fx.Option

	options = append(options, fx.Supply(cfg))
	options = append(options, logger.Module)
	options = append(options, config.Module)
	options = append(options, mongodb.Module)
	options = append(options, migration.Module)
	options = append(options, listener.Module)
	options = append(options, v20250708131842.Module)

	return options, nil
}
