// Package config provides the configuration structures of docschema and a loader that
// merges defaults, an embedded YAML document, a .env file and environment variables.
package config

import "time"

// EmbeddedConfig holds the raw bytes of the YAML configuration, typically embedded in main.
type EmbeddedConfig []byte

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the logging level (e.g. "INFO", "DEBUG").
	Level string `yaml:"level"`
}

// SystemConfig holds process-wide settings.
type SystemConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// MigrationConfig selects the connection a step runs against and bounds its duration.
type MigrationConfig struct {
	// DBRef is the name of the connection under docschema.database.
	DBRef string `yaml:"db_ref"`
	// TimeoutSeconds bounds a whole up or down run. Zero disables the bound.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// Timeout returns TimeoutSeconds as a duration.
func (c MigrationConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// MetricsConfig controls where run metrics are sent.
type MetricsConfig struct {
	// PushGatewayURL is the Prometheus Pushgateway to push to after a run. Empty disables pushing.
	PushGatewayURL string `yaml:"push_gateway_url"`
	// JobName is the Pushgateway job label.
	JobName string `yaml:"job_name"`
}

// TracingConfig controls span export.
type TracingConfig struct {
	// Exporter is "none", "otlpgrpc" or "otlphttp".
	Exporter string `yaml:"exporter"`
	// Endpoint is the collector host:port for OTLP exporters.
	Endpoint string `yaml:"endpoint"`
	// Insecure disables TLS towards the collector.
	Insecure bool `yaml:"insecure"`
	// ServiceName is reported as the service.name resource attribute.
	ServiceName string `yaml:"service_name"`
}

// ObservabilityConfig groups metrics and tracing settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// DocschemaConfig holds everything under the "docschema" top-level key.
type DocschemaConfig struct {
	System        SystemConfig        `yaml:"system"`
	Migration     MigrationConfig     `yaml:"migration"`
	Observability ObservabilityConfig `yaml:"observability"`
	// AdapterConfigs holds the raw named connection maps, decoded later with dbconfig.Decode.
	AdapterConfigs map[string]interface{} `yaml:"database"`
}

// Config is the root configuration structure.
type Config struct {
	Docschema DocschemaConfig `yaml:"docschema"`
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		Docschema: DocschemaConfig{
			System: SystemConfig{
				Logging: LoggingConfig{Level: "INFO"},
			},
			Migration: MigrationConfig{
				DBRef:          "default",
				TimeoutSeconds: 300,
			},
			Observability: ObservabilityConfig{
				Metrics: MetricsConfig{JobName: "docschema"},
				Tracing: TracingConfig{Exporter: "none", ServiceName: "docschema"},
			},
			AdapterConfigs: map[string]interface{}{},
		},
	}
}
