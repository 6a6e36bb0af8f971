// Package metrics exposes the dataflow's Prometheus instrumentation: message
// counts, handler latency, and heartbeat gaps, all labeled by node name so a
// single exporter covers every node in a dataflow.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	MessagesPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dataflow",
			Subsystem: "node",
			Name:      "messages_published_total",
			Help:      "Total messages published by a node, labeled by output channel.",
		},
		[]string{"node", "channel"},
	)

	HandlerRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dataflow",
			Subsystem: "node",
			Name:      "handler_requests_total",
			Help:      "Total HandleEvent invocations, labeled by node and outcome status.",
		},
		[]string{"node", "status"},
	)

	HandlerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dataflow",
			Subsystem: "node",
			Name:      "handler_duration_seconds",
			Help:      "HandleEvent latency.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node"},
	)

	HeartbeatGapSeconds = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "dataflow",
			Subsystem: "manager",
			Name:      "heartbeat_gap_seconds",
			Help:      "Seconds since the last heartbeat observed for a node.",
		},
		[]string{"node"},
	)
)

func init() {
	prometheus.MustRegister(MessagesPublishedTotal, HandlerRequestsTotal, HandlerDuration, HeartbeatGapSeconds)
}

// ObserveHandler records the outcome and latency of one HandleEvent call,
// given the time the call started. Base.Run calls it right after each
// HandleEvent returns, mirroring the teacher engine's onMsg
// instrumentation.
func ObserveHandler(node string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	HandlerRequestsTotal.WithLabelValues(node, status).Inc()
	HandlerDuration.WithLabelValues(node).Observe(time.Since(start).Seconds())
}

// ObservePublish records one successful publish on a node's output channel.
func ObservePublish(node, channel string) {
	MessagesPublishedTotal.WithLabelValues(node, channel).Inc()
}

// ObserveHeartbeatGap records how long it has been since node's last
// heartbeat, as computed by the manager's updateHealth loop from the
// timestamps collectHeartbeats records.
func ObserveHeartbeatGap(node string, gap time.Duration) {
	HeartbeatGapSeconds.WithLabelValues(node).Set(gap.Seconds())
}
