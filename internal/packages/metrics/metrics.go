package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mock"

const (
	ReloadSuccess   = "success"
	ReloadFailure   = "failure"
	ReloadLoadError = "load_error"
)

// Metrics is safe to use as a nil pointer, every method is then a no-op.
type Metrics struct {
	reloads  *prometheus.CounterVec
	routes   prometheus.Gauge
	requests *prometheus.CounterVec
	registry *prometheus.Registry
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		reloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reloads_total",
				Help:      "Route table reloads by result",
			},
			[]string{"result"},
		),
		routes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "routes",
				Help:      "Number of routes in the served table",
			},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Requests seen by the mock dispatcher",
			},
			[]string{"method", "matched"},
		),
	}

	m.registry.MustRegister(m.reloads, m.routes, m.requests)

	return m
}

func (m *Metrics) Reloaded(result string, routes int) {
	if m == nil {
		return
	}

	m.reloads.WithLabelValues(result).Inc()
	if result != ReloadFailure {
		m.routes.Set(float64(routes))
	}
}

func (m *Metrics) Dispatched(method string, matched bool) {
	if m == nil {
		return
	}

	m.requests.WithLabelValues(method, strconv.FormatBool(matched)).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
