package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RequestsTotal counts outbound API requests by method, path, status.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_api_requests_total",
			Help: "Total outbound API requests",
		},
		[]string{"method", "path", "status"},
	)

	// RequestDurationSeconds measures outbound request latency.
	RequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dashboard_api_request_duration_seconds",
			Help:    "Outbound API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// PushEventsTotal counts push events by kind and whether the store changed.
	PushEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_push_events_total",
			Help: "Push events received, by kind and result (applied or ignored)",
		},
		[]string{"kind", "result"},
	)

	// FramesDroppedTotal counts inbound frames that never became events.
	FramesDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_push_frames_dropped_total",
			Help: "Inbound push frames dropped, by reason",
		},
		[]string{"reason"},
	)

	// ReconnectAttemptsTotal counts scheduled reconnect attempts.
	ReconnectAttemptsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dashboard_push_reconnect_attempts_total",
			Help: "Reconnect attempts scheduled after abnormal closes",
		},
	)

	// Connected is 1 while the push channel is open.
	Connected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dashboard_push_connected",
			Help: "Whether the push channel is currently connected",
		},
	)

	// SnapshotsTotal counts snapshot fetches by result.
	SnapshotsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_snapshots_total",
			Help: "Snapshot fetches, by result (ok or error)",
		},
		[]string{"result"},
	)

	// MutationsTotal counts store mutations by operation and result.
	MutationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_mutations_total",
			Help: "Store mutations, by operation and result (ok or error)",
		},
		[]string{"op", "result"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDurationSeconds,
		PushEventsTotal,
		FramesDroppedTotal,
		ReconnectAttemptsTotal,
		Connected,
		SnapshotsTotal,
		MutationsTotal,
	)
}

// Result maps an error to the "ok"/"error" label value.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
