package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lexops/notify/internal/domain"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	EventsPublished  *prometheus.CounterVec
	EventsSuppressed *prometheus.CounterVec
	Delivered        *prometheus.CounterVec
	DeliveryFailed   *prometheus.CounterVec
	ProcessLatency   *prometheus.HistogramVec

	QueueDepthCritical prometheus.Gauge
	QueueDepthHigh     prometheus.Gauge
	QueueDepthMedium   prometheus.Gauge
	QueueDepthLow      prometheus.Gauge
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct.
// Using a custom registry (instead of prometheus.DefaultRegisterer) keeps
// tests isolated and avoids global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Total number of events accepted for dispatch.",
		}, []string{"type"}),

		EventsSuppressed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "events_suppressed_total",
			Help: "Total number of events dropped as duplicates inside a dedup window.",
		}, []string{"type"}),

		Delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_delivered_total",
			Help: "Total number of per-channel deliveries that succeeded.",
		}, []string{"channel"}),

		DeliveryFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_delivery_failed_total",
			Help: "Total number of per-channel deliveries that failed.",
		}, []string{"channel"}),

		ProcessLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "event_processing_seconds",
			Help:    "End-to-end processing latency from dequeue to fan-out completion.",
			Buckets: prometheus.DefBuckets,
		}, []string{"urgency"}),

		QueueDepthCritical: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "queue_depth_critical",
			Help: "Current number of items in the critical-priority queue.",
		}),
		QueueDepthHigh: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "queue_depth_high",
			Help: "Current number of items in the high-priority queue.",
		}),
		QueueDepthMedium: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "queue_depth_medium",
			Help: "Current number of items in the medium-priority queue.",
		}),
		QueueDepthLow: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "queue_depth_low",
			Help: "Current number of items in the low-priority queue.",
		}),
	}

	reg.MustRegister(
		m.EventsPublished,
		m.EventsSuppressed,
		m.Delivered,
		m.DeliveryFailed,
		m.ProcessLatency,
		m.QueueDepthCritical,
		m.QueueDepthHigh,
		m.QueueDepthMedium,
		m.QueueDepthLow,
	)

	return m
}

// WorkerHooks returns the metric callback functions expected by worker.MetricHooks.
// Centralises the prometheus observation calls so worker.go stays import-free.
func (m *Metrics) WorkerHooks() (
	onDelivered func(domain.Channel),
	onFailed func(domain.Channel),
	onProcessed func(domain.Urgency, time.Duration),
) {
	onDelivered = func(ch domain.Channel) {
		m.Delivered.WithLabelValues(string(ch)).Inc()
	}
	onFailed = func(ch domain.Channel) {
		m.DeliveryFailed.WithLabelValues(string(ch)).Inc()
	}
	onProcessed = func(u domain.Urgency, latency time.Duration) {
		m.ProcessLatency.WithLabelValues(string(u)).Observe(latency.Seconds())
	}
	return
}

// PublishHooks returns the callbacks used by the service layer.
func (m *Metrics) PublishHooks() (
	onPublished func(eventType string),
	onSuppressed func(eventType string),
) {
	onPublished = func(eventType string) {
		m.EventsPublished.WithLabelValues(eventType).Inc()
	}
	onSuppressed = func(eventType string) {
		m.EventsSuppressed.WithLabelValues(eventType).Inc()
	}
	return
}
