package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/tigerroll/docschema/pkg/core/config"
)

const sampleYAML = `
docschema:
  system:
    logging:
      level: DEBUG
  migration:
    db_ref: app
  database:
    app:
      type: mongodb
      uri: ${TEST_DOCSCHEMA_URI}
      database: events_db
`

func TestNewConfig_Defaults(t *testing.T) {
	cfg := config.NewConfig()

	assert.Equal(t, "INFO", cfg.Docschema.System.Logging.Level)
	assert.Equal(t, "default", cfg.Docschema.Migration.DBRef)
	assert.Equal(t, 300, cfg.Docschema.Migration.TimeoutSeconds)
	assert.Equal(t, "none", cfg.Docschema.Observability.Tracing.Exporter)
	assert.Equal(t, "docschema", cfg.Docschema.Observability.Metrics.JobName)
	assert.NotNil(t, cfg.Docschema.AdapterConfigs)
}

func TestLoadConfig_YAMLOverDefaults(t *testing.T) {
	t.Setenv("TEST_DOCSCHEMA_URI", "mongodb://mongo:27017")

	cfg, err := config.LoadConfig("", config.EmbeddedConfig(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.Docschema.System.Logging.Level)
	assert.Equal(t, "app", cfg.Docschema.Migration.DBRef)
	// Not in the document, so the default survives.
	assert.Equal(t, 300, cfg.Docschema.Migration.TimeoutSeconds)

	app, ok := cfg.Docschema.AdapterConfigs["app"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "mongodb://mongo:27017", app["uri"])
	assert.Equal(t, "events_db", app["database"])
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("TEST_DOCSCHEMA_URI", "mongodb://from-yaml:27017")
	t.Setenv("DOCSCHEMA_MIGRATION_TIMEOUT_SECONDS", "45")
	t.Setenv("DOCSCHEMA_OBSERVABILITY_TRACING_INSECURE", "true")
	t.Setenv("DOCSCHEMA_DATABASE_APP_URI", "mongodb://from-env:27017")
	t.Setenv("DOCSCHEMA_DATABASE_APP_CONNECT_TIMEOUT_SECONDS", "3")

	cfg, err := config.LoadConfig("", config.EmbeddedConfig(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, 45, cfg.Docschema.Migration.TimeoutSeconds)
	assert.True(t, cfg.Docschema.Observability.Tracing.Insecure)

	app := cfg.Docschema.AdapterConfigs["app"].(map[string]interface{})
	assert.Equal(t, "mongodb://from-env:27017", app["uri"])
	assert.Equal(t, "3", app["connect_timeout_seconds"])
	assert.Equal(t, "events_db", app["database"])
}

func TestLoadConfig_InvalidEnvValue(t *testing.T) {
	t.Setenv("DOCSCHEMA_MIGRATION_TIMEOUT_SECONDS", "soon")

	_, err := config.LoadConfig("", config.EmbeddedConfig(sampleYAML))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DOCSCHEMA_MIGRATION_TIMEOUT_SECONDS")
}

func TestLoadConfig_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("DOCSCHEMA_TEST_DOTENV_URI=mongodb://dotenv:27017\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("DOCSCHEMA_TEST_DOTENV_URI") })

	doc := `
docschema:
  database:
    default:
      type: mongodb
      uri: ${DOCSCHEMA_TEST_DOTENV_URI}
      database: app
`
	cfg, err := config.LoadConfig(envFile, config.EmbeddedConfig(doc))
	require.NoError(t, err)

	def := cfg.Docschema.AdapterConfigs["default"].(map[string]interface{})
	assert.Equal(t, "mongodb://dotenv:27017", def["uri"])
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	_, err := config.LoadConfig("", config.EmbeddedConfig("docschema: [unterminated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal config")
}
