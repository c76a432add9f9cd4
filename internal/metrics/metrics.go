// Package metrics holds the Prometheus collectors of the record service.
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

const namespace = "records"

// Query outcomes
const (
	OutcomeOK              = "ok"
	OutcomeConnectionError = "connection_error"
	OutcomeQueryError      = "query_error"
)

// Metrics groups every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	StoreQueryDuration  *prometheus.HistogramVec
	DroppedSamplesTotal prometheus.Counter
	IngestMessagesTotal *prometheus.CounterVec
}

// New registers all collectors on reg
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by route and status code",
		}, []string{"route", "code"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		StoreQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_query_duration_seconds",
			Help:      "Duration of store queries including connection setup",
			Buckets:   prometheus.DefBuckets,
		}, []string{"query", "outcome"}),
		DroppedSamplesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "statistics_dropped_samples_total",
			Help:      "Raw samples dropped because they could not be parsed as numbers",
		}),
		IngestMessagesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_messages_total",
			Help:      "MQTT messages handled by the ingest bridge by outcome",
		}, []string{"outcome"}),
	}
}

// NewDefault creates a registry with the Go and process collectors and registers all collectors on it
func NewDefault() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return New(reg)
}

// Handler exposes the registry
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// NewServer returns a listener that serves the registry on /metrics
func (m *Metrics) NewServer(addr string, readTimeout, writeTimeout time.Duration) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
	}
}

// ObserveQuery records the duration of one store query
func (m *Metrics) ObserveQuery(query, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.StoreQueryDuration.WithLabelValues(query, outcome).Observe(d.Seconds())
}

// ObserveRequest records one served HTTP request
func (m *Metrics) ObserveRequest(route string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(d.Seconds())
}

// AddDroppedSamples counts samples discarded by the statistics filter
func (m *Metrics) AddDroppedSamples(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.DroppedSamplesTotal.Add(float64(n))
}

// IncIngest counts one ingest message
func (m *Metrics) IncIngest(outcome string) {
	if m == nil {
		return
	}
	m.IngestMessagesTotal.WithLabelValues(outcome).Inc()
}
