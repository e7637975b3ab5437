package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/FocuswithJustin/JuniperSearch/core/search"
)

var (
	// searchesTotal counts searches by query kind and outcome
	searchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "juniper_search_searches_total",
		Help: "Total searches by query kind and outcome",
	}, []string{"kind", "outcome"})

	// searchDuration tracks engine latency
	searchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "juniper_search_duration_seconds",
		Help:    "Search duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
	}, []string{"kind"})

	// searchResults tracks result counts per completed search
	searchResults = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "juniper_search_results",
		Help:    "Number of results per search",
		Buckets: []float64{0, 1, 10, 100, 1000, 10000, 100000},
	})

	// cacheLookups counts result cache lookups by result
	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "juniper_search_cache_lookups_total",
		Help: "Result cache lookups by result (hit, miss)",
	}, []string{"result"})

	// activeJobs tracks search jobs in flight
	activeJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "juniper_search_active_jobs",
		Help: "Search jobs currently running",
	})

	// rateLimited counts requests rejected by the rate limiter
	rateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "juniper_search_rate_limited_total",
		Help: "Requests rejected by rate limiting by channel (http, websocket)",
	}, []string{"channel"})
)

// recordSearch updates search metrics for one engine run.
func recordSearch(out *search.Outcome, err error) {
	if err != nil {
		searchesTotal.WithLabelValues("unknown", "error").Inc()
		return
	}
	outcome := "ok"
	if out.Cancelled {
		outcome = "cancelled"
	}
	kind := string(out.Kind)
	searchesTotal.WithLabelValues(kind, outcome).Inc()
	searchDuration.WithLabelValues(kind).Observe(out.Duration.Seconds())
	searchResults.Observe(float64(out.Total()))
}
