// Package metrics holds the Prometheus collectors exported by the relay server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const DefaultNamespace = "relay"

// OutcomeAccepted labels a successful call; failures are labelled with their error kind
const OutcomeAccepted = "accepted"

type Metrics struct {
	registry *prometheus.Registry

	relays         *prometheus.CounterVec
	instantiations *prometheus.CounterVec
	operations     prometheus.Counter
	requests       *prometheus.CounterVec
	durations      *prometheus.HistogramVec
}

// NewMetrics registers the relay collectors on registry. A nil registry gets
// a fresh one.
func NewMetrics(namespace string, registry *prometheus.Registry) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: registry,
		relays: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relays_total",
			Help:      "Relay attempts by outcome.",
		}, []string{"outcome"}),
		instantiations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "instantiations_total",
			Help:      "Account instantiations by outcome.",
		}, []string{"outcome"}),
		operations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relayed_operations_total",
			Help:      "Operations dispatched by accepted relays.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
	registry.MustRegister(m.relays, m.instantiations, m.operations, m.requests, m.durations)
	return m
}

// ObserveRelay records one relay attempt. operations is only counted for
// accepted relays.
func (m *Metrics) ObserveRelay(outcome string, operations int) {
	m.relays.WithLabelValues(outcome).Inc()
	if outcome == OutcomeAccepted {
		m.operations.Add(float64(operations))
	}
}

func (m *Metrics) ObserveInstantiate(outcome string) {
	m.instantiations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRequest(route, method string, status int, d time.Duration) {
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.durations.WithLabelValues(route, method).Observe(d.Seconds())
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
