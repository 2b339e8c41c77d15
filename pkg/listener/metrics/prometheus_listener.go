package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/tigerroll/docschema/pkg/migration"
	"github.com/tigerroll/docschema/pkg/support/util/logger"
)

// PrometheusListener records step executions as Prometheus metrics on its own registry.
type PrometheusListener struct {
	registry *prometheus.Registry

	runCounter       *prometheus.CounterVec
	runDuration      *prometheus.HistogramVec
	subStepCounter   *prometheus.CounterVec
	subStepDuration  *prometheus.HistogramVec
	lastRunTimestamp *prometheus.GaugeVec
}

// NewPrometheusListener creates the listener and registers its collectors.
func NewPrometheusListener() *PrometheusListener {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	l := &PrometheusListener{
		registry: registry,
		runCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docschema_migration_runs_total",
			Help: "Total number of migration step executions by status.",
		}, []string{"step", "direction", "status"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "docschema_migration_duration_seconds",
			Help:    "Duration of migration step executions.",
			Buckets: prometheus.DefBuckets,
		}, []string{"step", "direction", "status"}),
		subStepCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docschema_migration_substeps_total",
			Help: "Total number of sub-step commands by action and outcome.",
		}, []string{"step", "direction", "action", "collection", "outcome"}),
		subStepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "docschema_migration_substep_duration_seconds",
			Help:    "Duration of individual sub-step commands.",
			Buckets: prometheus.DefBuckets,
		}, []string{"step", "action"}),
		lastRunTimestamp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "docschema_migration_last_run_timestamp_seconds",
			Help: "Unix time the last execution of a step finished.",
		}, []string{"step", "direction"}),
	}

	registry.MustRegister(l.runCounter)
	registry.MustRegister(l.runDuration)
	registry.MustRegister(l.subStepCounter)
	registry.MustRegister(l.subStepDuration)
	registry.MustRegister(l.lastRunTimestamp)
	return l
}

// GetRegistry returns the Prometheus registry.
func (l *PrometheusListener) GetRegistry() *prometheus.Registry {
	return l.registry
}

func (l *PrometheusListener) BeforeMigrate(ctx context.Context, execution *migration.Execution) {
	logger.Debugf("Metrics: step '%s' %s started.", execution.StepID, execution.Direction)
}

func (l *PrometheusListener) OnSubStep(ctx context.Context, execution *migration.Execution, result migration.SubStepResult) {
	l.subStepCounter.WithLabelValues(
		execution.StepID,
		execution.Direction.String(),
		string(result.Action),
		result.Collection,
		string(result.Outcome),
	).Inc()
	l.subStepDuration.WithLabelValues(execution.StepID, string(result.Action)).Observe(result.Duration.Seconds())
}

func (l *PrometheusListener) AfterMigrate(ctx context.Context, execution *migration.Execution) {
	if execution.EndTime == nil {
		return
	}
	dir := execution.Direction.String()
	status := execution.Status.String()
	duration := execution.Duration().Seconds()

	l.runCounter.WithLabelValues(execution.StepID, dir, status).Inc()
	l.runDuration.WithLabelValues(execution.StepID, dir, status).Observe(duration)
	l.lastRunTimestamp.WithLabelValues(execution.StepID, dir).Set(float64(execution.EndTime.Unix()))
	logger.Debugf("Metrics: step '%s' %s ended. Status: %s, Duration: %.3fs", execution.StepID, dir, status, duration)
}

// Push sends every metric in the registry to a Pushgateway under the given job.
func (l *PrometheusListener) Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(l.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	logger.Infof("Metrics: pushed to %s (job: %s)", url, job)
	return nil
}

var _ migration.Listener = (*PrometheusListener)(nil)
