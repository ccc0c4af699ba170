package signal

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "signal_ws_connections",
		Help: "Open signaling WebSocket connections",
	})

	metricMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signal_ws_messages_total",
		Help: "Inbound signaling messages by type",
	}, []string{"type"})

	metricRateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "signal_ws_rate_limited_total",
		Help: "Inbound messages dropped by the per-connection rate limit",
	})

	metricBackpressure = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signal_ws_backpressure_total",
		Help: "Outbound frames hitting a full send buffer, by policy action",
	}, []string{"action"})
)
