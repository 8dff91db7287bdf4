package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder on a Prometheus registry.
type PrometheusRecorder struct {
	documents  *prometheus.CounterVec
	executions *prometheus.CounterVec
	execTime   prometheus.Histogram
	cache      *prometheus.CounterVec
}

// NewPrometheusRecorder registers the pipeline collectors with reg.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	r := &PrometheusRecorder{
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orgpress_documents_total",
			Help: "Documents processed, by outcome.",
		}, []string{"outcome"}),
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orgpress_block_executions_total",
			Help: "Block executions, by outcome.",
		}, []string{"outcome"}),
		execTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "orgpress_block_execution_seconds",
			Help:    "Wall-clock duration of block executions.",
			Buckets: prometheus.DefBuckets,
		}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orgpress_cache_lookups_total",
			Help: "Block cache lookups, by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(r.documents, r.executions, r.execTime, r.cache)
	return r
}

func (r *PrometheusRecorder) DocumentProcessed(ok bool) {
	r.documents.WithLabelValues(outcome(ok)).Inc()
}

func (r *PrometheusRecorder) BlockExecuted(d time.Duration, ok bool) {
	r.executions.WithLabelValues(outcome(ok)).Inc()
	r.execTime.Observe(d.Seconds())
}

func (r *PrometheusRecorder) CacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cache.WithLabelValues(result).Inc()
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
