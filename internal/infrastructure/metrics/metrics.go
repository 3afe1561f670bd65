package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Entry metrics
	EntriesCreated  *prometheus.CounterVec
	EntriesPaid     prometheus.Counter
	EntriesReverted prometheus.Counter
	EntriesCanceled prometheus.Counter
	EntriesDeleted  prometheus.Counter

	// Series metrics
	SeriesCreated         prometheus.Counter
	SeriesEditsPropagated prometheus.Counter
	OccurrencesGenerated  prometheus.Counter

	// Report metrics
	SummaryCacheHits   prometheus.Counter
	SummaryCacheMisses prometheus.Counter

	// Database metrics
	DBErrors *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		EntriesCreated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincasa_entries_created_total",
				Help: "Total number of ledger entries created, by kind",
			},
			[]string{"kind"},
		),
		EntriesPaid: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fincasa_entries_paid_total",
			Help: "Total number of entries marked paid",
		}),
		EntriesReverted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fincasa_entries_reverted_total",
			Help: "Total number of payments undone back to pending",
		}),
		EntriesCanceled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fincasa_entries_canceled_total",
			Help: "Total number of entries canceled",
		}),
		EntriesDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fincasa_entries_deleted_total",
			Help: "Total number of entries soft-deleted",
		}),

		SeriesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fincasa_series_created_total",
			Help: "Total number of recurring/installment series created",
		}),
		SeriesEditsPropagated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fincasa_series_edits_propagated_total",
			Help: "Total number of series edit propagations",
		}),
		OccurrencesGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fincasa_occurrences_generated_total",
			Help: "Total number of series occurrences generated",
		}),

		SummaryCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fincasa_summary_cache_hits_total",
			Help: "Total number of period summary cache hits",
		}),
		SummaryCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fincasa_summary_cache_misses_total",
			Help: "Total number of period summary cache misses",
		}),

		DBErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincasa_db_errors_total",
				Help: "Total database errors by operation",
			},
			[]string{"operation"},
		),
	}
}
