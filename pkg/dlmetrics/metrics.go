// Package dlmetrics exposes the server's Prometheus metrics.
package dlmetrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "devlog"

var histogramBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5}

// Forwarding update outcomes
const (
	OutcomeSuccess  = "success"
	OutcomeNotFound = "not_found"
	OutcomeInvalid  = "invalid"
)

// Metrics holds the server collectors on a private registry. All methods
// are no-ops on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	subscribers    prometheus.Gauge
	framesTotal    *prometheus.CounterVec
	dropsTotal     prometheus.Counter
	forwardingSets *prometheus.CounterVec
	requestTotal   *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "subscribers",
			Help:      "Number of connected log stream subscribers",
		}),
		framesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "frames_total",
			Help:      "Count of log events broadcast, by event type",
		}, []string{"type"}),
		dropsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "dropped_subscribers_total",
			Help:      "Subscribers dropped after a failed or slow write",
		}),
		forwardingSets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "channels",
			Name:      "forwarding_updates_total",
			Help:      "Forwarding flag updates, by outcome",
		}, []string{"outcome"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "Count of processed HTTP requests",
		}, []string{"method", "route", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "Latency distribution of HTTP handlers",
			Buckets:   histogramBuckets,
		}, []string{"method", "route", "status"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.subscribers,
		m.framesTotal,
		m.dropsTotal,
		m.forwardingSets,
		m.requestTotal,
		m.requestLatency,
	)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// SubscriberConnected increments the subscriber gauge.
func (m *Metrics) SubscriberConnected() {
	if m == nil {
		return
	}
	m.subscribers.Inc()
}

// SubscriberDisconnected decrements the subscriber gauge.
func (m *Metrics) SubscriberDisconnected() {
	if m == nil {
		return
	}
	m.subscribers.Dec()
}

// SubscriberDropped counts a subscriber removed by the hub.
func (m *Metrics) SubscriberDropped() {
	if m == nil {
		return
	}
	m.dropsTotal.Inc()
}

// FrameBroadcast counts one broadcast event.
func (m *Metrics) FrameBroadcast(eventType string) {
	if m == nil {
		return
	}
	if eventType == "" {
		eventType = "none"
	}
	m.framesTotal.WithLabelValues(eventType).Inc()
}

// ForwardingUpdate counts one forwarding update by outcome.
func (m *Metrics) ForwardingUpdate(outcome string) {
	if m == nil {
		return
	}
	m.forwardingSets.WithLabelValues(outcome).Inc()
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	labels := prometheus.Labels{
		"method": method,
		"route":  route,
		"status": strconv.Itoa(status),
	}
	m.requestTotal.With(labels).Inc()
	m.requestLatency.With(labels).Observe(duration.Seconds())
}
