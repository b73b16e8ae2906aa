package web

import (
	"net/http"

	"github.com/nicolagi/quire/postdb"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the service, registered on a
// registry of their own.
type Metrics struct {
	registry   *prometheus.Registry
	created    prometheus.Counter
	edited     prometheus.Counter
	recoveries *prometheus.CounterVec
	uploads    *prometheus.CounterVec
	requests   *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quire_posts_created_total",
			Help: "Posts created.",
		}),
		edited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quire_posts_edited_total",
			Help: "Posts edited.",
		}),
		recoveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quire_store_recoveries_total",
			Help: "Store documents reseeded, by reason.",
		}, []string{"reason"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quire_uploads_total",
			Help: "Image uploads, by result.",
		}, []string{"result"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quire_http_requests_total",
			Help: "HTTP requests, by method and status code.",
		}, []string{"method", "code"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.created,
		m.edited,
		m.recoveries,
		m.uploads,
		m.requests,
	)
	return m
}

// Observe counts a repository event. It is meant for postdb.WithObserver.
func (m *Metrics) Observe(e postdb.Event) {
	switch e {
	case postdb.EventCreated:
		m.created.Inc()
	case postdb.EventEdited:
		m.edited.Inc()
	case postdb.EventSeededMissing:
		m.recoveries.WithLabelValues(postdb.SeededMissing.String()).Inc()
	case postdb.EventSeededCorrupt:
		m.recoveries.WithLabelValues(postdb.SeededCorrupt.String()).Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) upload(result string) {
	m.uploads.WithLabelValues(result).Inc()
}

func (m *Metrics) request(method, code string) {
	m.requests.WithLabelValues(method, code).Inc()
}
