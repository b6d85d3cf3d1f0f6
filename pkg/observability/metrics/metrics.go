package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles Prometheus collectors for the fetch-and-store pipeline.
type Metrics struct {
	Registry              *prometheus.Registry
	FetchesTotal          *prometheus.CounterVec
	SourceRequestDuration prometheus.Histogram
	ListingsSkippedTotal  prometheus.Counter
	ProductsUpsertedTotal prometheus.Counter
	UpsertFailuresTotal   prometheus.Counter
}

// New constructs and registers all metrics on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	fetches := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "product_fetches_total",
			Help: "Total fetch-and-store pipeline runs by outcome.",
		},
		[]string{"outcome"},
	)
	sourceDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "product_source_request_duration_seconds",
			Help:    "Latency of requests to the external product source.",
			Buckets: prometheus.DefBuckets,
		},
	)
	skipped := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "product_listings_skipped_total",
			Help: "Listings dropped for missing id, title or price.",
		},
	)
	upserted := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "product_upserts_total",
			Help: "Product rows successfully upserted.",
		},
	)
	upsertFailures := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "product_upsert_failures_total",
			Help: "Product rows skipped because the storage layer rejected them.",
		},
	)

	registry.MustRegister(fetches, sourceDuration, skipped, upserted, upsertFailures)

	return &Metrics{
		Registry:              registry,
		FetchesTotal:          fetches,
		SourceRequestDuration: sourceDuration,
		ListingsSkippedTotal:  skipped,
		ProductsUpsertedTotal: upserted,
		UpsertFailuresTotal:   upsertFailures,
	}
}

// Handler exposes the registry for mounting on the service router.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// IncFetch increments the pipeline outcome counter.
func (m *Metrics) IncFetch(outcome string) {
	if m == nil {
		return
	}
	m.FetchesTotal.WithLabelValues(outcome).Inc()
}

// ObserveSourceDuration records one upstream request duration.
func (m *Metrics) ObserveSourceDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.SourceRequestDuration.Observe(d.Seconds())
}

// IncSkipped counts a listing dropped during normalization.
func (m *Metrics) IncSkipped() {
	if m == nil {
		return
	}
	m.ListingsSkippedTotal.Inc()
}

// IncUpserted counts a row persisted by the store.
func (m *Metrics) IncUpserted() {
	if m == nil {
		return
	}
	m.ProductsUpsertedTotal.Inc()
}

// IncUpsertFailure counts a row the storage layer rejected.
func (m *Metrics) IncUpsertFailure() {
	if m == nil {
		return
	}
	m.UpsertFailuresTotal.Inc()
}
