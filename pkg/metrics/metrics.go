// Package metrics holds the Prometheus instruments of the accounts service.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	AuthOutcomes       *prometheus.CounterVec
	AuthDuration       prometheus.Histogram
	IdentitiesCreated  prometheus.Counter
	DocumentsDetached  prometheus.Counter
	PreferencesWritten *prometheus.CounterVec
	HTTPRequests       *prometheus.CounterVec
	HTTPDuration       *prometheus.HistogramVec
}

// New creates a private registry (with Go and process collectors) and
// registers every instrument on it.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		AuthOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "accounts_authentications_total",
			Help: "Authentication attempts by outcome",
		}, []string{"outcome"}),
		AuthDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "accounts_authentication_duration_seconds",
			Help:    "Duration of credential resolution",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		IdentitiesCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "accounts_identities_created_total",
			Help: "Identities created",
		}),
		DocumentsDetached: f.NewCounter(prometheus.CounterOpts{
			Name: "accounts_identity_documents_not_attached_total",
			Help: "Registrations whose identity document could not be stored",
		}),
		PreferencesWritten: f.NewCounterVec(prometheus.CounterOpts{
			Name: "accounts_preferences_writes_total",
			Help: "Preference record writes by operation",
		}, []string{"op"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "accounts_http_requests_total",
			Help: "HTTP requests by method and status",
		}, []string{"method", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "accounts_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveAuth(outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.AuthOutcomes.WithLabelValues(outcome).Inc()
	m.AuthDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncIdentitiesCreated() {
	if m == nil {
		return
	}
	m.IdentitiesCreated.Inc()
}

func (m *Metrics) IncDocumentsDetached() {
	if m == nil {
		return
	}
	m.DocumentsDetached.Inc()
}

func (m *Metrics) IncPreferenceWrite(op string) {
	if m == nil {
		return
	}
	m.PreferencesWritten.WithLabelValues(op).Inc()
}

func (m *Metrics) ObserveHTTP(method string, status int, start time.Time) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}
