// Package metrics exposes Prometheus collectors for the harvester.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	harvestIndexPagesTotal     *prometheus.CounterVec
	harvestAdvisoriesTotal     *prometheus.CounterVec
	techniqueResolutionsTotal  *prometheus.CounterVec
	resolutionDurationSeconds  prometheus.Histogram
	harvestActiveWorkers       prometheus.Gauge
	throttleDelaySeconds       *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		harvestIndexPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvest_index_pages_total",
				Help: "Total number of advisory index pages visited, labeled by status.",
			},
			[]string{"status"},
		)

		harvestAdvisoriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvest_advisories_total",
				Help: "Total number of advisory items processed, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		techniqueResolutionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvest_technique_resolutions_total",
				Help: "Total number of technique identifier resolutions, labeled by source.",
			},
			[]string{"source"},
		)

		resolutionDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "harvest_resolution_duration_seconds",
				Help:    "Histogram of technique resolution latencies.",
				Buckets: []float64{0.0005, 0.005, 0.05, 0.25, 1, 2.5, 10},
			},
		)

		harvestActiveWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "harvest_active_workers",
				Help: "Number of workers currently processing an advisory item.",
			},
		)

		throttleDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "harvest_throttle_delay_seconds",
				Help:    "Histogram of delays introduced by the per-domain rate limiter.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"domain"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveIndexPage counts one visited index page. Callers that never ran
// Init (library tests) are a no-op.
func ObserveIndexPage(status string) {
	if harvestIndexPagesTotal == nil {
		return
	}
	harvestIndexPagesTotal.WithLabelValues(status).Inc()
}

// ObserveAdvisory counts one advisory item by processing outcome.
func ObserveAdvisory(outcome string) {
	if harvestAdvisoriesTotal == nil {
		return
	}
	harvestAdvisoriesTotal.WithLabelValues(outcome).Inc()
}

// ObserveResolution counts one technique resolution and its latency.
func ObserveResolution(source string, duration time.Duration) {
	if techniqueResolutionsTotal == nil {
		return
	}
	techniqueResolutionsTotal.WithLabelValues(source).Inc()
	resolutionDurationSeconds.Observe(duration.Seconds())
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	if harvestActiveWorkers == nil {
		return
	}
	harvestActiveWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	if harvestActiveWorkers == nil {
		return
	}
	harvestActiveWorkers.Dec()
}

// ObserveThrottleDelay records time spent waiting on the per-domain
// rate limiter before a fetch was allowed through.
func ObserveThrottleDelay(domain string, duration time.Duration) {
	if throttleDelaySeconds == nil {
		return
	}
	throttleDelaySeconds.WithLabelValues(domain).Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
