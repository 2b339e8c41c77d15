package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/docschema/pkg/adapter/database/inmemory"
	"github.com/tigerroll/docschema/pkg/migration"
	step "github.com/tigerroll/docschema/pkg/migration/v20250708131842"
)

func TestPrometheusListener_Up(t *testing.T) {
	l := NewPrometheusListener()

	_, err := migration.NewExecutor(0, l).Execute(context.Background(), step.New(), inmemory.New("app"), migration.DirectionUp)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(l.runCounter.WithLabelValues(step.ID, "up", "COMPLETED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(l.subStepCounter.WithLabelValues(step.ID, "up", "dropIndexes", "users", "tolerated")))
	assert.Equal(t, 1.0, testutil.ToFloat64(l.subStepCounter.WithLabelValues(step.ID, "up", "createCollection", "events", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(l.subStepCounter.WithLabelValues(step.ID, "up", "createIndex", "users", "ok")))
	assert.Equal(t, 1, testutil.CollectAndCount(l.runDuration))
	assert.Greater(t, testutil.ToFloat64(l.lastRunTimestamp.WithLabelValues(step.ID, "up")), 0.0)
}

func TestPrometheusListener_DownWarnings(t *testing.T) {
	l := NewPrometheusListener()
	db := inmemory.New("app")
	db.InjectFault(inmemory.Fault{Op: "createIndex", Index: "keycloakId_1", Err: errors.New("refused")})

	_, err := migration.NewExecutor(0, l).Execute(context.Background(), step.New(), db, migration.DirectionDown)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(l.runCounter.WithLabelValues(step.ID, "down", "COMPLETED_WITH_WARNINGS")))
	assert.Equal(t, 1.0, testutil.ToFloat64(l.subStepCounter.WithLabelValues(step.ID, "down", "restoreIndex", "users", "warned")))
	assert.Equal(t, 1.0, testutil.ToFloat64(l.subStepCounter.WithLabelValues(step.ID, "down", "restoreIndex", "users", "ok")))
}

func TestPrometheusListener_Push(t *testing.T) {
	var (
		mu     sync.Mutex
		method string
		path   string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		method, path = r.Method, r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	l := NewPrometheusListener()
	require.NoError(t, l.Push(context.Background(), srv.URL, "docschema"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/metrics/job/docschema", path)
}

func TestPrometheusListener_PushError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewPrometheusListener().Push(context.Background(), srv.URL, "docschema")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to push metrics")
}
