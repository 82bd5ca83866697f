package prom

import (
	"net/http"

	"github.com/bnema/offline-session-cli/internal/application"
	"github.com/bnema/offline-session-cli/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ofs"

// Metrics counts fetch and refresh outcomes on its own registry.
type Metrics struct {
	registry  *prometheus.Registry
	fetches   *prometheus.CounterVec
	refreshes *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "fetches_total",
			Help:      "Collection fetches by the source that served them and the remote failure reason.",
		}, []string{"collection", "source", "reason"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "refreshes_total",
			Help:      "Session refresh attempts by outcome.",
		}, []string{"outcome"}),
	}
	registry.MustRegister(m.fetches, m.refreshes)

	return m
}

func (m *Metrics) ObserveFetch(collection domain.CollectionKey, source application.Source, reason application.FailureReason) {
	label := string(reason)
	if label == "" {
		label = "none"
	}
	m.fetches.WithLabelValues(string(collection), string(source), label).Inc()
}

func (m *Metrics) ObserveRefresh(outcome application.RefreshOutcome) {
	m.refreshes.WithLabelValues(string(outcome)).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
