// Package metrics holds the coordinator and build-api's Prometheus
// collectors, registered against controller-runtime's global registry so
// they are served on the same /metrics endpoint the teacher's controller
// binaries already expose.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

var (
	// BusConnectivityStatus reports the coordinator's connection state to
	// the message bus: 1=connected, 0=not connected.
	BusConnectivityStatus = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fleetdfu_bus_connectivity_status",
			Help: "The connectivity status to the message bus (1=connected, 0=not connected).",
		},
	)

	// CommandsSentTotal counts commands emitted by the reactor, by variant.
	CommandsSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetdfu_commands_sent_total",
			Help: "Total number of commands sent to devices, by command type.",
		},
		[]string{"type"}, // wait/sync/write/swap
	)

	// DecisionLatency times one reactor decision end to end.
	DecisionLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fleetdfu_decision_latency_seconds",
			Help:    "Latency of one status-to-command reactor decision.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"}, // ok/error
	)

	// DeviceStateGauge reports the current observability-only device phase
	// tracked by internal/coordinator/devicestate, one gauge per device.
	DeviceStateGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fleetdfu_device_phase",
			Help: "Current observed device phase (0=Idle, 1=Downloading, 2=Swapping).",
		},
		[]string{"device"},
	)

	// CacheHitsTotal counts firmware-store cache reads, by backend and
	// outcome.
	CacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetdfu_cache_hits_total",
			Help: "Total number of store metadata/bytes cache reads, by backend and hit/miss.",
		},
		[]string{"backend", "outcome"},
	)
)

func init() {
	metrics.Registry.MustRegister(BusConnectivityStatus)
	metrics.Registry.MustRegister(CommandsSentTotal)
	metrics.Registry.MustRegister(DecisionLatency)
	metrics.Registry.MustRegister(DeviceStateGauge)
	metrics.Registry.MustRegister(CacheHitsTotal)
}
