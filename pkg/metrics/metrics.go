package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Detection metrics
	TriggersDetected  *prometheus.CounterVec
	RuleFailures      *prometheus.CounterVec
	TriggersDeduped   prometheus.Counter
	DetectionLatency  prometheus.Histogram

	// Dispatch metrics
	ChannelAttempts     *prometheus.CounterVec
	RecommendationsSent prometheus.Counter
	DispatchDeferred    *prometheus.CounterVec
	DispatchLatency     prometheus.Histogram

	// Session coordinator metrics
	StaleResultsDiscarded prometheus.Counter

	// Scheduler metrics
	ScheduledReleased prometheus.Counter
	SchedulerLatency  prometheus.Histogram

	// Database metrics
	DatabaseOperations *prometheus.CounterVec
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace, subsystem string) *Metrics {
	return &Metrics{
		TriggersDetected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "triggers_detected_total",
			Help:      "Total number of triggers detected, by type",
		}, []string{"type"}),
		RuleFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "detection_rule_failures_total",
			Help:      "Total number of rule predicate failures during detection",
		}, []string{"rule"}),
		TriggersDeduped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "triggers_deduplicated_total",
			Help:      "Detections suppressed by the deduplication window",
		}),
		DetectionLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "detection_duration_seconds",
			Help:      "Time spent running detection over an activity window",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		ChannelAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "channel_attempts_total",
			Help:      "Delivery attempts per channel and outcome",
		}, []string{"channel", "status"}),
		RecommendationsSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "recommendations_sent_total",
			Help:      "Recommendations that reached at least one channel",
		}),
		DispatchDeferred: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "dispatch_deferred_total",
			Help:      "Dispatches deferred to scheduled, by reason",
		}, []string{"reason"}),
		DispatchLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent dispatching one recommendation",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		StaleResultsDiscarded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "stale_results_discarded_total",
			Help:      "Async results discarded because the active subject changed",
		}),
		ScheduledReleased: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "scheduled_recommendations_released_total",
			Help:      "Scheduled recommendations released back to pending",
		}),
		SchedulerLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "scheduler_poll_duration_seconds",
			Help:      "Time spent per scheduler poll cycle",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		DatabaseOperations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "database_operations_total",
			Help:      "Total number of database operations",
		}, []string{"operation", "status"}),
	}
}
