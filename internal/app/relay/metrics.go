package relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricForwarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_forwarded_total",
		Help: "Signaling messages forwarded",
	}, []string{"kind", "mode"})

	metricDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_dropped_total",
		Help: "Signaling messages dropped",
	}, []string{"reason"})
)
