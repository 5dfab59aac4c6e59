// Package metrics registers the application's Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	RegistrationsCreated prometheus.Counter
	ListCacheHits        prometheus.Counter
	ListCacheMisses      prometheus.Counter
	RequestLatency       *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		RegistrationsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mhreg_registrations_created_total",
			Help: "Total number of MH registrations created",
		}),
		ListCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mhreg_list_cache_hits_total",
			Help: "Account registration list requests served from cache",
		}),
		ListCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mhreg_list_cache_misses_total",
			Help: "Account registration list requests that bypassed the cache",
		}),
		RequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mhreg_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status code",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}

// ObserveRequest records one HTTP request observation.
func (m *Metrics) ObserveRequest(route, status string, elapsed time.Duration) {
	m.RequestLatency.WithLabelValues(route, status).Observe(elapsed.Seconds())
}
