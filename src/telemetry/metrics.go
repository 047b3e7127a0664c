// Package telemetry holds the prometheus counters of a node process.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds every metric of this package. The default prometheus
	// registry is not used.
	Registry = prometheus.NewRegistry()

	// ---- Protocol ----
	MessagesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "maelnode",
			Name:      "messages_received_total",
			Help:      "Envelopes decoded from the input stream, by payload type.",
		},
		[]string{"type"},
	)

	MessagesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "maelnode",
			Name:      "messages_sent_total",
			Help:      "Envelopes written to the output stream, by payload type.",
		},
		[]string{"type"},
	)

	Handshakes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "maelnode",
			Name:      "handshakes_total",
			Help:      "Handshake attempts, by result (ok, init_ok, malformed, missing).",
		},
		[]string{"result"},
	)

	// ---- Process / build info ----
	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "maelnode",
			Name:      "build_info",
			Help:      "Build info (constant 1, labeled by version and node kind).",
		},
		[]string{"version", "kind"},
	)

	startTime = time.Now()
	uptime    = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "maelnode",
			Name:      "uptime_seconds",
			Help:      "Process uptime in seconds.",
		},
		func() float64 { return time.Since(startTime).Seconds() },
	)
)

func init() {
	Registry.MustRegister(MessagesReceived, MessagesSent, Handshakes, buildInfo, uptime)
}

// MetricsHandler exposes the registry. Mount it with mux.Handle("/metrics", telemetry.MetricsHandler()).
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// SetBuildInfo should be called once at startup.
func SetBuildInfo(version, kind string) {
	buildInfo.WithLabelValues(version, kind).Set(1)
}
