package stats

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the prometheus collectors shared by every pipeline of a run
type Metrics struct {
	QueryTasks       *prometheus.CounterVec
	Pipelines        *prometheus.CounterVec
	PipelineDuration prometheus.Histogram
	RowsLoaded       prometheus.Counter
	RecordsWritten   prometheus.Counter
}

// NewMetrics creates Metrics and registers them with reg. A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		QueryTasks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fanout",
			Name:      "query_tasks_total",
			Help:      "Total number of query tasks executed, by outcome.",
		}, []string{"outcome"}),
		Pipelines: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fanout",
			Name:      "pipelines_total",
			Help:      "Total number of partition pipelines run, by terminal state.",
		}, []string{"state"}),
		PipelineDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fanout",
			Name:      "pipeline_duration_seconds",
			Help:      "Wall-clock duration of partition pipelines.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
		RowsLoaded: f.NewCounter(prometheus.CounterOpts{
			Namespace: "fanout",
			Name:      "rows_loaded_total",
			Help:      "Total number of rows loaded from partitions.",
		}),
		RecordsWritten: f.NewCounter(prometheus.CounterOpts{
			Namespace: "fanout",
			Name:      "records_written_total",
			Help:      "Total number of result records written to output streams.",
		}),
	}
}
