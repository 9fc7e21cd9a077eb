package forwarder

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dnsdigd_queries_total",
		Help: "Total DNS queries received on the UDP socket.",
	})

	droppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dnsdigd_dropped_total",
		Help: "Datagrams dropped without a reply, by reason.",
	}, []string{"reason"})

	blockedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dnsdigd_blocked_total",
		Help: "Queries answered NXDOMAIN from the blocklist.",
	})

	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dnsdigd_cache_hits_total",
		Help: "Queries served from the answer cache.",
	})

	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dnsdigd_cache_misses_total",
		Help: "Queries that required an upstream fetch.",
	})

	resolveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dnsdigd_resolve_duration_seconds",
		Help:    "End-to-end query handling latency.",
		Buckets: prometheus.DefBuckets,
	})
)
