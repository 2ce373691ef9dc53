package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce            sync.Once
	dashboardRequestsTotal  *prometheus.CounterVec
	dashboardLatencySeconds *prometheus.HistogramVec
	dashboardErrorsTotal    *prometheus.CounterVec
	snapshotLookupsTotal    *prometheus.CounterVec
	snapshotFetchErrors     prometheus.Counter
	snapshotFetchSeconds    prometheus.Histogram
	snapshotRows            prometheus.Gauge
	refreshBroadcastsTotal  *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		dashboardRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedback_dashboard_requests_total",
			Help: "Total number of feedback dashboard API requests served.",
		}, []string{"method", "route", "status"})

		dashboardLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "feedback_dashboard_latency_seconds",
			Help:    "Latency distribution for feedback dashboard API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		dashboardErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedback_dashboard_errors_total",
			Help: "Total number of error responses returned by feedback dashboard endpoints.",
		}, []string{"method", "route", "status"})

		snapshotLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "submission_snapshot_lookups_total",
			Help: "Snapshot cache lookups by result (hit or miss).",
		}, []string{"result"})

		snapshotFetchErrors = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "submission_snapshot_fetch_errors_total",
			Help: "Live fetches from the submission store that failed.",
		})

		snapshotFetchSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "submission_snapshot_fetch_seconds",
			Help:    "Duration of live fetches from the submission store.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		})

		snapshotRows = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "submission_snapshot_rows",
			Help: "Number of rows held by the current snapshot.",
		})

		refreshBroadcastsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "submission_refresh_broadcasts_total",
			Help: "Refresh events by direction (published or received) and transport.",
		}, []string{"direction", "transport"})

		prometheus.MustRegister(
			dashboardRequestsTotal,
			dashboardLatencySeconds,
			dashboardErrorsTotal,
			snapshotLookupsTotal,
			snapshotFetchErrors,
			snapshotFetchSeconds,
			snapshotRows,
			refreshBroadcastsTotal,
		)
	})
}

// DashboardRequests exposes the counter for dashboard requests.
func DashboardRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return dashboardRequestsTotal
}

// DashboardLatency exposes the latency histogram for dashboard requests.
func DashboardLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return dashboardLatencySeconds
}

// DashboardErrors exposes the counter for dashboard error responses.
func DashboardErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return dashboardErrorsTotal
}

// SnapshotLookups exposes the cache hit/miss counter.
func SnapshotLookups() *prometheus.CounterVec {
	RegisterMetrics()
	return snapshotLookupsTotal
}

// SnapshotFetchErrors exposes the failed live fetch counter.
func SnapshotFetchErrors() prometheus.Counter {
	RegisterMetrics()
	return snapshotFetchErrors
}

// SnapshotFetchDuration exposes the live fetch latency histogram.
func SnapshotFetchDuration() prometheus.Histogram {
	RegisterMetrics()
	return snapshotFetchSeconds
}

// SnapshotRows exposes the gauge tracking the cached row count.
func SnapshotRows() prometheus.Gauge {
	RegisterMetrics()
	return snapshotRows
}

// RefreshBroadcasts exposes the refresh fan-out counter.
func RefreshBroadcasts() *prometheus.CounterVec {
	RegisterMetrics()
	return refreshBroadcastsTotal
}
