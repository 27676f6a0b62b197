package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RemindersDelivered tracks delivery outcomes
	RemindersDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_service_deliveries_total",
			Help: "Total number of reminder delivery attempts by outcome",
		},
		[]string{"outcome"}, // success, transient_failure, permanent_failure, exhausted
	)

	// DeliveryDuration tracks how long a full delivery sequence takes
	DeliveryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reminder_service_delivery_duration_seconds",
			Help:    "Reminder delivery duration in seconds, including retries",
			Buckets: prometheus.DefBuckets,
		},
	)

	// DeliveryRetries tracks individual retry attempts
	DeliveryRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reminder_service_delivery_retries_total",
			Help: "Total number of delivery retry attempts",
		},
	)

	// SweepsTotal tracks poller sweeps by result
	SweepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_service_sweeps_total",
			Help: "Total number of poller sweeps",
		},
		[]string{"result"}, // ok, store_error
	)

	// SweepDueUsers tracks how many users each sweep found due
	SweepDueUsers = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reminder_service_sweep_due_users",
			Help:    "Number of due users found per sweep",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
		},
	)

	// ClaimsLost tracks due records another poller instance claimed first
	ClaimsLost = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reminder_service_claims_lost_total",
			Help: "Total number of due records lost to a concurrent claim",
		},
	)

	// DLQSize tracks the size of the failed reminder collection
	DLQSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reminder_service_dlq_size",
			Help: "Number of reminders in the dead letter queue",
		},
	)

	// OperatorAlerts tracks alerts raised through the monitoring sink
	OperatorAlerts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reminder_service_operator_alerts_total",
			Help: "Total number of operator alerts emitted",
		},
	)

	// HealthCheckFailures tracks failed dependency health checks
	HealthCheckFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_service_health_check_failures_total",
			Help: "Total number of failed health checks by dependency",
		},
		[]string{"dependency"}, // store, gateway_credential
	)

	// RateLimitExceeded tracks API rate limit violations
	RateLimitExceeded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_service_rate_limit_exceeded_total",
			Help: "Total number of rate limit exceeded events",
		},
		[]string{"user_id"},
	)
)
