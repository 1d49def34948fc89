package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/optiply/target-vendit/internal/domain/prepurchase"
)

const namespace = "target_vendit"

// Registry holds the connector's Prometheus collectors. It satisfies the
// sink observer.
type Registry struct {
	reg *prometheus.Registry

	Records     *prometheus.CounterVec
	Skipped     *prometheus.CounterVec
	Submissions *prometheus.CounterVec
	Items       *prometheus.CounterVec
	Latency     *prometheus.HistogramVec
	BatchItems  *prometheus.HistogramVec
}

// NewRegistry creates a registry with all collectors registered
func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	records := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_received_total",
		Help:      "Records received, by stream and shape.",
	}, []string{"stream", "shape"})
	skipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "items_skipped_total",
		Help:      "Items dropped before submission, by stream and reason code.",
	}, []string{"stream", "code"})
	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "submissions_total",
		Help:      "Import requests, by stream and outcome.",
	}, []string{"stream", "success"})
	items := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "items_submitted_total",
		Help:      "Items carried by import requests, by stream and outcome.",
	}, []string{"stream", "success"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "submission_latency_seconds",
		Help:      "Import request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"stream"})
	batchItems := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "batch_items",
		Help:      "Items per flushed batch.",
		Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500},
	}, []string{"stream"})

	r.MustRegister(records, skipped, submissions, items, latency, batchItems)
	return &Registry{
		reg:         r,
		Records:     records,
		Skipped:     skipped,
		Submissions: submissions,
		Items:       items,
		Latency:     latency,
		BatchItems:  batchItems,
	}
}

func (r *Registry) RecordReceived(stream string, shape prepurchase.Shape) {
	r.Records.WithLabelValues(stream, shape.String()).Inc()
}

func (r *Registry) ItemSkipped(stream string, skip prepurchase.Skip) {
	r.Skipped.WithLabelValues(stream, string(skip.Code)).Inc()
}

func (r *Registry) Submitted(stream string, result prepurchase.SubmissionResult, elapsed time.Duration) {
	success := strconv.FormatBool(result.Success)
	r.Submissions.WithLabelValues(stream, success).Inc()
	r.Items.WithLabelValues(stream, success).Add(float64(result.Items))
	r.Latency.WithLabelValues(stream).Observe(elapsed.Seconds())
}

func (r *Registry) BatchFlushed(stream string, _, items int) {
	r.BatchItems.WithLabelValues(stream).Observe(float64(items))
}

// Gatherer exposes the underlying registry
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
