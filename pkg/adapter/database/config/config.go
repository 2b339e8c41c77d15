package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

// TypeMongoDB is the only connection type docschema migrates.
const TypeMongoDB = "mongodb"

// DatabaseConfig holds the settings of one named connection under docschema.database.
type DatabaseConfig struct {
	Type                          string `yaml:"type" mapstructure:"type"`                                                       // Connection type, "mongodb".
	URI                           string `yaml:"uri" mapstructure:"uri"`                                                         // Connection string, e.g. mongodb://localhost:27017.
	Database                      string `yaml:"database" mapstructure:"database"`                                               // Database the migration runs against.
	AppName                       string `yaml:"app_name,omitempty" mapstructure:"app_name"`                                     // Reported to the server in the handshake.
	ConnectTimeoutSeconds         int    `yaml:"connect_timeout_seconds" mapstructure:"connect_timeout_seconds"`                 // Dial timeout.
	ServerSelectionTimeoutSeconds int    `yaml:"server_selection_timeout_seconds" mapstructure:"server_selection_timeout_seconds"` // How long to wait for a usable server.
}

// ConnectTimeout returns the dial timeout, zero meaning the driver default.
func (c DatabaseConfig) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutSeconds) * time.Second
}

// ServerSelectionTimeout returns the server selection timeout, zero meaning the driver default.
func (c DatabaseConfig) ServerSelectionTimeout() time.Duration {
	return time.Duration(c.ServerSelectionTimeoutSeconds) * time.Second
}

// Validate checks the fields required to open a connection.
func (c DatabaseConfig) Validate() error {
	if c.Type != TypeMongoDB {
		return fmt.Errorf("unsupported database type '%s'", c.Type)
	}
	if c.URI == "" {
		return fmt.Errorf("uri is required")
	}
	if c.Database == "" {
		return fmt.Errorf("database is required")
	}
	return nil
}

// Decode converts a raw configuration map (as produced by YAML or environment overrides)
// into a DatabaseConfig. String values are converted to numbers where a field requires it.
func Decode(raw interface{}) (DatabaseConfig, error) {
	var cfg DatabaseConfig
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &cfg,
	})
	if err != nil {
		return cfg, err
	}
	if err := decoder.Decode(raw); err != nil {
		return cfg, err
	}
	return cfg, nil
}
