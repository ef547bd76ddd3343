// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobCyclesCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compliance_job_cycles_completed_total",
			Help: "Total number of completed cycles per periodic job",
		},
		[]string{"job"},
	)

	JobCyclesFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compliance_job_cycles_failed_total",
			Help: "Total number of failed cycles per periodic job",
		},
		[]string{"job"},
	)

	JobCycleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "compliance_job_cycle_duration_seconds",
			Help: "Duration of a job cycle in seconds",
		},
		[]string{"job"},
	)

	SubmissionsEvaluated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compliance_submissions_evaluated_total",
			Help: "Submissions evaluated per job cycle, by outcome",
		},
		[]string{"job", "outcome"},
	)

	AlertsOpen = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "compliance_alerts_open",
			Help: "Currently open compliance alerts by severity",
		},
		[]string{"severity"},
	)

	RemindersSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compliance_reminders_sent_total",
			Help: "Reminder notifications dispatched, by stage",
		},
		[]string{"stage"},
	)

	DispatchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compliance_dispatch_failures_total",
			Help: "Notification dispatch attempts that exhausted retries",
		},
		[]string{"template"},
	)
)
