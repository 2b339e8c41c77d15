package logging_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/docschema/pkg/adapter/database/inmemory"
	"github.com/tigerroll/docschema/pkg/listener/logging"
	"github.com/tigerroll/docschema/pkg/migration"
	step "github.com/tigerroll/docschema/pkg/migration/v20250708131842"
	"github.com/tigerroll/docschema/pkg/support/util/logger"
)

func captureLogs(t *testing.T, level string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	logger.SetLogLevel(level)
	t.Cleanup(func() {
		logger.SetOutput(os.Stderr)
		logger.SetLogLevel("INFO")
	})
	return &buf
}

func TestLoggingListener_Up(t *testing.T) {
	buf := captureLogs(t, "DEBUG")

	_, err := migration.NewExecutor(0, logging.NewLoggingListener()).
		Execute(context.Background(), step.New(), inmemory.New("app"), migration.DirectionUp)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "BeforeMigrate - Step: 20250708131842, Direction: up")
	assert.Contains(t, out, "dropIndexes users tolerated")
	assert.Contains(t, out, "createIndex users.keycloakId_1 ok")
	assert.Contains(t, out, "Status: COMPLETED")
}

func TestLoggingListener_DownWarnings(t *testing.T) {
	buf := captureLogs(t, "INFO")
	db := inmemory.New("app")
	db.InjectFault(inmemory.Fault{Op: "listIndexes", Collection: "events", Err: errors.New("unavailable")})

	_, err := migration.NewExecutor(0, logging.NewLoggingListener()).
		Execute(context.Background(), step.New(), db, migration.DirectionDown)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "[WARN] Failed to listIndexes on events: unavailable")
	assert.Contains(t, out, "Status: COMPLETED_WITH_WARNINGS")
	assert.NotContains(t, out, "[DEBUG]")
}
