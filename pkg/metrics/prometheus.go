package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all prometheus metrics
type Metrics struct {
	SyncRuns          *prometheus.CounterVec
	SyncDuration      prometheus.Histogram
	ItemsFetched      *prometheus.CounterVec
	PageFailures      *prometheus.CounterVec
	ReconciledRecords *prometheus.CounterVec
	OwnerCollisions   prometheus.Gauge
	UnmatchedLabels   prometheus.Gauge
	ErrorsCount       *prometheus.CounterVec
}

// NewMetrics creates new prometheus metrics registered on reg.
// Pass prometheus.DefaultRegisterer to expose them on promhttp.Handler().
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SyncRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_runs_total",
			Help:      "The total number of sync runs by outcome",
		}, []string{"outcome"}),
		SyncDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Time taken by a full sync run",
			Buckets:   prometheus.DefBuckets,
		}),
		ItemsFetched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grants_fetched_total",
			Help:      "The total number of access grants fetched from the lock API",
		}, []string{"kind"}),
		PageFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "page_failures_total",
			Help:      "The total number of lock API page fetches that failed",
		}, []string{"kind", "reason"}),
		ReconciledRecords: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciled_records_total",
			Help:      "The total number of reconciled access records by owner match outcome",
		}, []string{"outcome"}),
		OwnerCollisions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "owner_key_collisions",
			Help:      "Apartment keys shared by more than one owner row in the last run",
		}),
		UnmatchedLabels: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "unmatched_labels",
			Help:      "Access entries whose label did not normalize in the last run",
		}),
		ErrorsCount: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "The total number of errors",
		}, []string{"operation"}),
	}
}
