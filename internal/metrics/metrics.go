package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CacheRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nightowl_cache_refreshes_total",
		Help: "Completed event cache refresh cycles, labelled by outcome.",
	}, []string{"outcome"})

	CacheRefreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "nightowl_cache_refresh_duration_seconds",
		Help:    "Wall time of a full refresh across all sources.",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 15, 30},
	})

	CacheSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nightowl_cache_events",
		Help: "Number of merged events currently cached.",
	})

	SourceFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nightowl_source_fetches_total",
		Help: "Source fetch attempts, labelled by source and status.",
	}, []string{"source", "status"})

	SourceRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nightowl_source_records_total",
		Help: "Normalized records contributed by each source.",
	}, []string{"source"})

	SearchSupplements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nightowl_search_supplements_total",
		Help: "On-demand web search supplements, labelled by status.",
	}, []string{"status"})

	TurnsHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nightowl_turns_total",
		Help: "Conversation turns, labelled by resolved intent.",
	}, []string{"intent"})

	TurnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "nightowl_turn_duration_ms",
		Help:    "End-to-end turn latency in milliseconds.",
		Buckets: []float64{5, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
	})

	MessagesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nightowl_messages_dropped_total",
		Help: "Inbound messages rejected before reaching a worker, labelled by reason.",
	}, []string{"reason"})

	QueueUtilization = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nightowl_queue_utilization_ratio",
		Help: "Current inbound message queue utilization (0-1).",
	})

	SessionsSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nightowl_sessions_swept_total",
		Help: "Expired session frames removed by the background sweep.",
	})
)
