// Package metrics defines the Prometheus metrics of the execution pipeline,
// registered with the default Prometheus registry so they are served
// wherever the process mounts promhttp.Handler(). The run orchestrator (C12)
// updates the two counters and the two gauges; ExecutionDurationSeconds is
// registered but no package observes it.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// ExecutionsDispatchedTotal counts Executions dispatched onto the
	// execution queue, by project.
	ExecutionsDispatchedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qaflow_executions_dispatched_total",
			Help: "Total Executions dispatched onto the execution queue.",
		},
		[]string{"project_id"},
	)

	// TestRunsCompletedTotal counts TestRuns the orchestrator finalized, by
	// project.
	TestRunsCompletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qaflow_test_runs_completed_total",
			Help: "Total TestRuns finalized by the run orchestrator.",
		},
		[]string{"project_id"},
	)

	// QueuedExecutionsGauge reports the number of QUEUED Executions observed
	// for a TestRun at the moment the orchestrator last inspected it.
	QueuedExecutionsGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "qaflow_queued_executions",
			Help: "QUEUED Executions observed for a TestRun at last orchestrator pass.",
		},
		[]string{"project_id"},
	)

	// RunningExecutionsGauge reports the number of RUNNING Executions
	// observed for a TestRun at the moment the orchestrator last inspected
	// it.
	RunningExecutionsGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "qaflow_running_executions",
			Help: "RUNNING Executions observed for a TestRun at last orchestrator pass.",
		},
		[]string{"project_id"},
	)

	// ExecutionDurationSeconds is a histogram of Execution wall-clock
	// duration, by terminal status.
	ExecutionDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "qaflow_execution_duration_seconds",
			Help:    "Execution duration in seconds, from RUNNING to terminal.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(
		ExecutionsDispatchedTotal,
		TestRunsCompletedTotal,
		QueuedExecutionsGauge,
		RunningExecutionsGauge,
		ExecutionDurationSeconds,
	)
}
