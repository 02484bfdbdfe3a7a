package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Session lifecycle metrics
var (
	// SessionsStartedTotal counts started sessions.
	SessionsStartedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mindgate_sessions_started_total",
			Help: "Total timed sessions started",
		},
	)

	// SessionsEndedTotal counts ended sessions by how they ended.
	SessionsEndedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mindgate_sessions_ended_total",
			Help: "Total sessions ended by reason (manual, expired, superseded, reconciled)",
		},
		[]string{"reason"},
	)

	// SessionsExtendedTotal counts planned-duration extensions.
	SessionsExtendedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mindgate_sessions_extended_total",
			Help: "Total session extensions",
		},
	)

	// ExpiryEmissionsTotal counts expiry events delivered to the stream.
	ExpiryEmissionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mindgate_expiry_emissions_total",
			Help: "Total expiry events published to the expiry stream",
		},
	)

	// ExpiryEmissionsDroppedTotal counts per-subscriber drops due to full buffers.
	ExpiryEmissionsDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mindgate_expiry_emissions_dropped_total",
			Help: "Expiry events dropped for individual slow subscribers",
		},
	)

	// ArmedTimers tracks currently armed expiry timers.
	ArmedTimers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mindgate_armed_expiry_timers",
			Help: "Currently armed per-session expiry timers",
		},
	)

	// ExpiryStreamSubscribers tracks current expiry stream subscribers.
	ExpiryStreamSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mindgate_expiry_stream_subscribers",
			Help: "Current expiry stream subscribers",
		},
	)

	// TimerPersistFailuresTotal counts persistence failures inside timer callbacks.
	// Compensated by the reconciliation sweep, not retried in place.
	TimerPersistFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mindgate_timer_persist_failures_total",
			Help: "Persistence failures inside expiry timer callbacks",
		},
	)
)

// Gate metrics
var (
	// GateDecisionsTotal counts launch gate decisions by outcome.
	GateDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mindgate_gate_decisions_total",
			Help: "Launch gate decisions by outcome",
		},
		[]string{"decision"},
	)

	// ChallengesIssuedTotal counts issued math challenges by difficulty.
	ChallengesIssuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mindgate_challenges_issued_total",
			Help: "Math challenges issued by difficulty",
		},
		[]string{"difficulty"},
	)

	// ChallengesVerifiedTotal counts challenge verification attempts by result.
	ChallengesVerifiedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mindgate_challenges_verified_total",
			Help: "Math challenge verification attempts by result (correct, wrong)",
		},
		[]string{"result"},
	)
)

// Maintenance metrics
var (
	// SweepRunsTotal counts reconciliation sweep runs.
	SweepRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mindgate_sweep_runs_total",
			Help: "Reconciliation sweep runs",
		},
	)

	// SweepDurationSeconds observes reconciliation sweep duration.
	SweepDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mindgate_sweep_duration_seconds",
			Help:    "Reconciliation sweep duration in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
	)

	// SweepForcedExpiriesTotal counts sessions force-expired by the sweep.
	SweepForcedExpiriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mindgate_sweep_forced_expiries_total",
			Help: "Sessions force-expired by the reconciliation sweep",
		},
	)

	// RetentionDeletedTotal counts sessions purged by the retention sweep.
	RetentionDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mindgate_retention_deleted_total",
			Help: "Ended sessions purged by the retention sweep",
		},
	)

	// StoreErrorsTotal counts session store failures by operation.
	StoreErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mindgate_store_errors_total",
			Help: "Session store failures by operation",
		},
		[]string{"operation"},
	)
)

// Expiry stream transport metrics
var (
	// StreamConnectedClients tracks connected expiry stream websocket clients.
	StreamConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mindgate_stream_connected_clients",
			Help: "Connected expiry stream websocket clients",
		},
	)

	// StreamSlowClientsEvicted counts websocket clients evicted for full buffers.
	StreamSlowClientsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mindgate_stream_slow_clients_evicted_total",
			Help: "Expiry stream clients evicted due to full send buffers",
		},
	)
)
