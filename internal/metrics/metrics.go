// Package metrics provides the Prometheus collector for paycore, trimmed
// from the teacher's shared/metrics/metrics.go. The HTTP, transfer, lease
// and interest series are recorded by their callers; DBQueryDuration,
// CacheHitsTotal and CacheMissesTotal are registered but no caller records
// into them.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds every Prometheus metric paycore emits.
type Collector struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	TransferAttemptsTotal *prometheus.CounterVec
	TransferAmount        prometheus.Histogram
	TransferDuration      prometheus.Histogram
	LeaseContentionTotal  prometheus.Counter

	InterestCalculationsTotal *prometheus.CounterVec

	DBQueryDuration  *prometheus.HistogramVec
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec
}

// NewCollector builds and registers a Collector against the given
// Prometheus registerer (pass prometheus.DefaultRegisterer in
// production; a fresh prometheus.NewRegistry() in tests that construct
// more than one Collector in the same process).
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paycore_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "paycore_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint", "status"},
		),
		TransferAttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paycore_transfer_attempts_total",
				Help: "Total number of transfer attempts by outcome",
			},
			[]string{"outcome"},
		),
		TransferAmount: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "paycore_transfer_amount",
				Help:    "Transfer amount in major currency units",
				Buckets: prometheus.ExponentialBuckets(1, 10, 9),
			},
		),
		TransferDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "paycore_transfer_duration_seconds",
				Help:    "Time to complete one Transfer call, from entry to Result",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
		),
		LeaseContentionTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "paycore_transfer_lease_contention_total",
				Help: "Total number of transfers that failed to acquire the idempotency lease",
			},
		),
		InterestCalculationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paycore_interest_calculations_total",
				Help: "Total number of interest calculations by outcome",
			},
			[]string{"outcome"},
		),
		DBQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "paycore_db_query_duration_seconds",
				Help:    "Database query duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"query_type"},
		),
		CacheHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paycore_cache_hits_total",
				Help: "Total number of idempotency cache hits",
			},
			[]string{"cache_name"},
		),
		CacheMissesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paycore_cache_misses_total",
				Help: "Total number of idempotency cache misses",
			},
			[]string{"cache_name"},
		),
	}
}

// RecordTransfer records the outcome, amount, and duration of one
// Transfer call.
func (c *Collector) RecordTransfer(outcome string, amount float64, duration time.Duration) {
	c.TransferAttemptsTotal.WithLabelValues(outcome).Inc()
	c.TransferAmount.Observe(amount)
	c.TransferDuration.Observe(duration.Seconds())
}

// RecordLeaseContention increments the lease-contention counter.
func (c *Collector) RecordLeaseContention() {
	c.LeaseContentionTotal.Inc()
}

// RecordInterestCalculation records the outcome of one
// CalculateDailyInterest call.
func (c *Collector) RecordInterestCalculation(outcome string) {
	c.InterestCalculationsTotal.WithLabelValues(outcome).Inc()
}

// Middleware instruments every HTTP request with count and duration metrics.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.statusCode)
		c.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		c.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path, status).Observe(duration)
	})
}

// Handler returns the Prometheus scrape handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}
