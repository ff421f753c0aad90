// Package metrics registers the Prometheus instruments for the server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the server's Prometheus collectors
type Metrics struct {
	Registry        *prometheus.Registry
	AsksTotal       *prometheus.CounterVec
	AskDuration     prometheus.Histogram
	RateLimited     prometheus.Counter
	CacheHits       prometheus.Counter
	SearchFailures  *prometheus.CounterVec
	PageFetchErrors prometheus.Counter
}

// New registers the collectors on reg
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		AsksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nolia_asks_total",
			Help: "Ask requests by outcome.",
		}, []string{"outcome"}),
		AskDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "nolia_ask_duration_seconds",
			Help:    "End-to-end ask pipeline latency.",
			Buckets: prometheus.DefBuckets,
		}),
		RateLimited: factory.NewCounter(prometheus.CounterOpts{
			Name: "nolia_rate_limited_total",
			Help: "Requests rejected by the rate limiter.",
		}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "nolia_answer_cache_hits_total",
			Help: "Ask responses served from the answer cache.",
		}),
		SearchFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nolia_search_failures_total",
			Help: "Search provider call failures.",
		}, []string{"provider"}),
		PageFetchErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "nolia_page_fetch_errors_total",
			Help: "Evidence page fetches that failed.",
		}),
	}
}
