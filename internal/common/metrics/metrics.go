// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	LifecycleTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admission_transitions_total",
			Help: "Lifecycle operations by name and outcome (ok or error code)",
		},
		[]string{"operation", "outcome"},
	)

	LifecycleWarnings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admission_post_commit_warnings_total",
			Help: "Non-fatal collaborator failures after a committed transition",
		},
		[]string{"collaborator"},
	)

	Reconciliations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guardian_reconciliations_total",
			Help: "Guardian reconciliations by outcome",
		},
		[]string{"outcome"},
	)

	ReconcileSourceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guardian_reconcile_source_failures_total",
			Help: "Failed reads per reconciliation source",
		},
		[]string{"source"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admission_notifications_total",
			Help: "Notification deliveries by channel and status",
		},
		[]string{"channel", "status"},
	)
)
