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
)

// Store
var (
	StoreConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_version_conflicts_total",
			Help: "Conditional writes rejected because the stored version moved",
		},
		[]string{"collection"},
	)

	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_errors_total",
			Help: "Store operations that failed with a dependency error",
		},
		[]string{"backend", "code"},
	)

	StoreCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_cache_lookups_total",
			Help: "Read-through cache lookups by result",
		},
		[]string{"collection", "result"},
	)
)

// Domain
var (
	InvestmentsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "investments_processed_total",
			Help: "Investment requests by outcome code",
		},
		[]string{"outcome"},
	)

	InvestedAmount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invested_amount_naira_total",
			Help: "Sum of completed investments in naira",
		},
		[]string{"contract_type"},
	)

	ReconciliationOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "investment_reconciliation_total",
			Help: "Journal entries reconciled, by starting stage and resulting stage",
		},
		[]string{"from_stage", "to_stage"},
	)

	RateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_rejections_total",
			Help: "Requests refused by the rate limiter",
		},
		[]string{"rule"},
	)

	ApprovalDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "application_review_decisions_total",
			Help: "Admin review actions by outcome",
		},
		[]string{"action", "outcome"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Notifications attempted per channel",
		},
		[]string{"channel", "status"},
	)

	AuditWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_writes_total",
			Help: "Admin action log writes per sink",
		},
		[]string{"sink", "status"},
	)
)
