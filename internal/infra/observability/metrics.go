package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/vendalivre/storefront-api/internal/domain"
)

// Metrics holds all Prometheus metrics for the storefront API.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	quotesTotal     *prometheus.CounterVec
	quoteOptions    prometheus.Counter
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "storefront_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		quotesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_shipping_quotes_total",
				Help: "Total shipping quote calculations by outcome.",
			},
			[]string{"status"},
		),
		quoteOptions: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "storefront_shipping_quote_options_total",
				Help: "Total shipping options returned across all quotes.",
			},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// RecordQuote records one quote calculation and how many options it produced.
func (m *Metrics) RecordQuote(status string, optionCount int) {
	m.quotesTotal.WithLabelValues(status).Inc()
	if optionCount > 0 {
		m.quoteOptions.Add(float64(optionCount))
	}
}

// GetShippingSnapshot returns a snapshot of quote-related metrics suitable
// for the GET /v1/metrics/shipping endpoint.
func (m *Metrics) GetShippingSnapshot() *domain.ShippingMetrics {
	// Gather current values from Prometheus counters.
	// Note: Prometheus counters expose cumulative values.
	success := getCounterValue(m.quotesTotal, "success")
	failed := getCounterValue(m.quotesTotal, "error")
	total := success + failed
	cacheHits := getCounterValue(m.cacheHits, "cargo")
	cacheMisses := getCounterValue(m.cacheMisses, "cargo")

	optionsTotal := getPlainCounterValue(m.quoteOptions)

	errorRate := float64(0)
	avgOptions := float64(0)
	cacheHitRate := float64(0)

	if total > 0 {
		errorRate = failed / total
	}
	if success > 0 {
		avgOptions = optionsTotal / success
	}
	if cacheHits+cacheMisses > 0 {
		cacheHitRate = cacheHits / (cacheHits + cacheMisses)
	}

	return &domain.ShippingMetrics{
		TotalQuotes:     int64(total),
		ErrorRate:       errorRate,
		CacheHitRate:    cacheHitRate,
		AvgOptionsCount: avgOptions,
		Period:          "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

func getPlainCounterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
