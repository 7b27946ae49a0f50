// Package metrics exposes Prometheus instruments for post retrieval.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request outcomes
const (
	OutcomeRetrieved   = "retrieved"
	OutcomeUnavailable = "unavailable"
	OutcomeFailed      = "failed"
)

// Metrics groups the scheduler instruments. A nil *Metrics records nothing.
type Metrics struct {
	requests   *prometheus.CounterVec
	media      *prometheus.CounterVec
	duration   prometheus.Histogram
	wait       prometheus.Histogram
	queueDepth prometheus.Gauge
}

// New registers the instruments with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "instagramdl_requests_total",
			Help: "Post requests drained, by outcome.",
		}, []string{"outcome"}),
		media: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "instagramdl_media_total",
			Help: "Media downloads, by result.",
		}, []string{"result"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "instagramdl_pipeline_duration_seconds",
			Help:    "Time spent fetching, normalizing and downloading one post.",
			Buckets: prometheus.DefBuckets,
		}),
		wait: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "instagramdl_pacing_wait_seconds",
			Help:    "Time spent waiting out the pacing interval.",
			Buckets: []float64{0, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		queueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "instagramdl_queue_depth",
			Help: "Requests waiting to be drained.",
		}),
	}
}

// NewRegistry returns a registry with the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}

// ObserveRequest records one drained request.
func (m *Metrics) ObserveRequest(outcome string, waited, duration time.Duration, saved, failed int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(outcome).Inc()
	m.wait.Observe(waited.Seconds())
	m.duration.Observe(duration.Seconds())
	m.media.WithLabelValues("saved").Add(float64(saved))
	m.media.WithLabelValues("failed").Add(float64(failed))
}

// SetQueueDepth records the current queue length.
func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

// WriteTextfile writes everything g gathers in the node exporter textfile
// format.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
