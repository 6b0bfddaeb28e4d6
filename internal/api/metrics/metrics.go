// Package metrics defines and registers all custom Prometheus metrics for the
// clinic scheduler. It is the single source of truth for metric names, labels,
// and help strings. Metrics register with the default registry on import.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "clinic"

// ── Booking metrics ───────────────────────────────────────────────────────────

// AppointmentsCreatedTotal counts appointments that were persisted.
// Label:
//   - status: "booked" or "blocked"
var AppointmentsCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "appointments_created_total",
		Help:      "Total number of appointments created, by initial status.",
	},
	[]string{"status"},
)

// BookingConflictsTotal counts writes rejected because the slot was taken.
// Label:
//   - claim: what held the slot ("booking", "hold", "constraint", "lock")
var BookingConflictsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "booking_conflicts_total",
		Help:      "Total number of create or reschedule attempts rejected by a slot conflict.",
	},
	[]string{"claim"},
)

// StatusTransitionsTotal counts applied status changes.
// Labels:
//   - from, to: appointment statuses
var StatusTransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "status_transitions_total",
		Help:      "Total number of appointment status transitions applied.",
	},
	[]string{"from", "to"},
)

// ── Audit pipeline metrics ────────────────────────────────────────────────────

// AuditEventsTotal counts audit trail writes.
// Label:
//   - result: "ok" or "error"
var AuditEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_events_total",
		Help:      "Total number of appointment events written to the audit trail.",
	},
	[]string{"result"},
)

// AuditQueueDepth tracks the number of events waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_queue_depth",
		Help:      "Current number of events pending in each audit worker channel.",
	},
	[]string{"worker_id"},
)

// AuditDroppedTotal counts events dropped because a worker channel was full.
var AuditDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_dropped_total",
		Help:      "Total number of audit events dropped on a full worker channel.",
	},
)

// ── Outbox metrics ────────────────────────────────────────────────────────────

// OutboxPublishedTotal counts outbox records delivered to Kafka.
// Label:
//   - topic: the event type
var OutboxPublishedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_published_total",
		Help:      "Total number of outbox events published to Kafka.",
	},
	[]string{"topic"},
)

// OutboxPublishErrorsTotal counts failed publish batches.
var OutboxPublishErrorsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_publish_errors_total",
		Help:      "Total number of outbox publish batches that failed.",
	},
)

// OutboxBatchDuration measures one poll-publish-mark cycle.
var OutboxBatchDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "outbox_batch_duration_seconds",
		Help:      "Duration of a single outbox publish batch.",
		Buckets:   prometheus.DefBuckets,
	},
)
