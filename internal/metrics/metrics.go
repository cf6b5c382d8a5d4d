package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Social graph
	Toggles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "travelog_toggles_total",
			Help: "Committed follow and like toggles by resulting state",
		},
		[]string{"kind", "result"}, // kind: follow, like; result: on, off
	)

	ToggleRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "travelog_toggle_retries_total",
			Help: "Toggles re-run after losing a race on the same edge",
		},
		[]string{"kind"},
	)

	ToggleContention = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "travelog_toggle_contention_total",
			Help: "Toggles that gave up after exhausting their attempts",
		},
		[]string{"kind"},
	)

	// Posts
	PostsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "travelog_posts_created_total",
			Help: "Posts committed",
		},
	)

	RegionRecomputeFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "travelog_region_recompute_failures_total",
			Help: "Post creations whose countriesVisited recompute was skipped",
		},
	)

	// Reconciliation
	ReconcileRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "travelog_reconcile_runs_total",
			Help: "Counter reconciliation runs by outcome",
		},
		[]string{"status"},
	)

	ReconcileCorrections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "travelog_reconcile_corrections_total",
			Help: "User rows whose counters were rewritten by reconciliation",
		},
	)

	// Leaderboard cache
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "travelog_leaderboard_cache_hits_total",
			Help: "Leaderboard reads served from cache",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "travelog_leaderboard_cache_misses_total",
			Help: "Leaderboard reads that went to the database",
		},
	)

	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "travelog_leaderboard_cache_errors_total",
			Help: "Leaderboard cache operations that failed",
		},
		[]string{"operation"},
	)

	// HTTP
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "travelog_http_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "travelog_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "travelog_http_active_requests",
			Help: "Requests currently being served",
		},
	)
)

// RecordToggle counts one committed toggle.
func RecordToggle(kind string, on bool) {
	result := "off"
	if on {
		result = "on"
	}
	Toggles.WithLabelValues(kind, result).Inc()
}

func RecordAPIRequest(method, route, status string, d time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, status).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
