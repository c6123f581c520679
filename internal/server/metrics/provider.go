// Package metrics exposes the Prometheus instruments of the server: public
// API traffic, origin round trips and sync progress.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Provider interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)

	// ObserveOriginRequest records one origin call; status 0 means the
	// request never got a response.
	ObserveOriginRequest(endpoint string, status int, duration time.Duration)

	ObserveBatch(created, changed, unchanged int, aborted bool, duration time.Duration)
	ObserveSweep(refreshed int, duration time.Duration)
	SetCursor(id int64)
	SetPaused(paused bool)
}

type PrometheusProvider struct {
	requestsTotal         *prometheus.CounterVec
	requestDuration       *prometheus.HistogramVec
	originRequestsTotal   *prometheus.CounterVec
	originRequestDuration *prometheus.HistogramVec
	itemsTotal            *prometheus.CounterVec
	batchesTotal          *prometheus.CounterVec
	batchDuration         prometheus.Histogram
	refreshedTotal        prometheus.Counter
	sweepDuration         prometheus.Histogram
	cursor                prometheus.Gauge
	paused                prometheus.Gauge
}

func (m *PrometheusProvider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *PrometheusProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *PrometheusProvider) ObserveOriginRequest(endpoint string, status int, duration time.Duration) {
	m.originRequestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
	m.originRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *PrometheusProvider) ObserveBatch(created, changed, unchanged int, aborted bool, duration time.Duration) {
	m.itemsTotal.WithLabelValues("created").Add(float64(created))
	m.itemsTotal.WithLabelValues("changed").Add(float64(changed))
	m.itemsTotal.WithLabelValues("unchanged").Add(float64(unchanged))
	result := "done"
	if aborted {
		result = "aborted"
	}
	m.batchesTotal.WithLabelValues(result).Inc()
	m.batchDuration.Observe(duration.Seconds())
}

func (m *PrometheusProvider) ObserveSweep(refreshed int, duration time.Duration) {
	m.refreshedTotal.Add(float64(refreshed))
	m.sweepDuration.Observe(duration.Seconds())
}

func (m *PrometheusProvider) SetCursor(id int64) {
	m.cursor.Set(float64(id))
}

func (m *PrometheusProvider) SetPaused(paused bool) {
	if paused {
		m.paused.Set(1)
		return
	}
	m.paused.Set(0)
}

func httpStatusBucket(code int) string {
	switch {
	case code <= 0:
		return "error"
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

// New registers the instruments on reg. A disabled provider records
// nothing and registers nothing.
func New(enabled bool, reg prometheus.Registerer) Provider {
	if !enabled {
		return &noopMetrics{}
	}

	f := promauto.With(reg)
	return &PrometheusProvider{
		requestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "casely_requests_total",
			Help: "Total number of public API requests",
		}, []string{"endpoint", "status"}),

		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "casely_request_duration_seconds",
			Help:    "Public API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		originRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "casely_origin_requests_total",
			Help: "Total number of requests sent to the origin",
		}, []string{"endpoint", "status"}),

		originRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "casely_origin_request_duration_seconds",
			Help:    "Origin request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		itemsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "casely_ingested_items_total",
			Help: "Records ingested by polling batches, by outcome",
		}, []string{"outcome"}),

		batchesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "casely_batches_total",
			Help: "Polling batches run, by result",
		}, []string{"result"}),

		batchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "casely_batch_duration_seconds",
			Help:    "Duration of polling batches in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		}),

		refreshedTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "casely_refreshed_items_total",
			Help: "Records re-fetched by staleness sweeps",
		}),

		sweepDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "casely_sweep_duration_seconds",
			Help:    "Duration of staleness sweeps in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		}),

		cursor: f.NewGauge(prometheus.GaugeOpts{
			Name: "casely_cursor",
			Help: "Highest origin id ingested",
		}),

		paused: f.NewGauge(prometheus.GaugeOpts{
			Name: "casely_auth_paused",
			Help: "1 while ingestion is paused by a rejected credential",
		}),
	}
}

// Handler serves the exposition format for g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// noopMetrics is a no-op implementation for when metrics are disabled.
type noopMetrics struct{}

func (n *noopMetrics) IncRequestsTotal(_ string, _ int)                      {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration)      {}
func (n *noopMetrics) ObserveOriginRequest(_ string, _ int, _ time.Duration) {}
func (n *noopMetrics) ObserveBatch(_, _, _ int, _ bool, _ time.Duration)     {}
func (n *noopMetrics) ObserveSweep(_ int, _ time.Duration)                   {}
func (n *noopMetrics) SetCursor(_ int64)                                     {}
func (n *noopMetrics) SetPaused(_ bool)                                      {}
