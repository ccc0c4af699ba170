package floor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "floor_rooms",
		Help: "Rooms known to the registry",
	})

	metricRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "floor_requests_total",
		Help: "Floor requests by outcome",
	}, []string{"outcome"})

	metricPhaseTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "floor_phase_transitions_total",
		Help: "Floor phase transitions",
	}, []string{"from", "to"})

	metricDeadSkips = promauto.NewCounter(prometheus.CounterOpts{
		Name: "floor_dead_queue_skips_total",
		Help: "Queued participants skipped because their connection was gone",
	})

	metricRatings = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "floor_ratings_total",
		Help: "Submitted ratings by outcome",
	}, []string{"outcome"})

	metricRatingAverage = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "floor_rating_average",
		Help:    "Average score published per finished turn",
		Buckets: prometheus.LinearBuckets(0, 0.5, 11),
	})

	metricTokenIssue = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "floor_token_issue_total",
		Help: "Publish token issuance by outcome",
	}, []string{"outcome"})

	metricCommentary = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "floor_commentary_total",
		Help: "Commentary generation by outcome",
	}, []string{"outcome"})
)
