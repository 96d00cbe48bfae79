// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BuildDuration tracks how long a tree build takes
	BuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bspview_build_duration_seconds",
		Help:    "BSP tree build duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~1.6s
	})

	// BuildFragments counts the segments stored per build, splits included
	BuildFragments = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bspview_build_fragments",
		Help:    "Number of stored segment fragments per tree build",
		Buckets: prometheus.ExponentialBuckets(1, 4, 9),
	})

	// QueryDuration tracks eye queries by traversal order
	QueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bspview_query_duration_seconds",
		Help:    "Painter's order query duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.00001, 2, 14), // 10us to ~160ms
	}, []string{"order"})

	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bspview_tree_cache_hits_total",
		Help: "Total tree cache hits",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bspview_tree_cache_misses_total",
		Help: "Total tree cache misses",
	})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bspview_http_requests_total",
		Help: "Total HTTP requests by method and status",
	}, []string{"method", "status"})

	// CollabRooms is the number of live scene rooms
	CollabRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bspview_collab_rooms",
		Help: "Number of active collaboration rooms",
	})
)
