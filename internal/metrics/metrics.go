// Package metrics holds the Prometheus collectors for the geocoding service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var durationBuckets = []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000}

var (
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shpgeo_requests_total",
		Help: "Total number of API requests by endpoint",
	}, []string{"endpoint"})
	RequestDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shpgeo_request_duration_ms",
		Help:    "Request duration in milliseconds by endpoint",
		Buckets: durationBuckets,
	}, []string{"endpoint"})
	EmptyResultsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shpgeo_empty_results_total",
		Help: "Total number of lookups that found nothing",
	}, []string{"endpoint"})
	BadRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shpgeo_bad_requests_total",
		Help: "Total number of rejected requests",
	})
	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shpgeo_cache_hits_total",
		Help: "Total result cache hits",
	})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shpgeo_cache_misses_total",
		Help: "Total result cache misses",
	})
	Confidence = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "shpgeo_match_confidence",
		Help:    "Confidence of returned matches",
		Buckets: []float64{0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
	})
	LoadedRecords = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "shpgeo_loaded_records",
		Help: "Number of shape records loaded into the geocoder",
	})
)

func init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDurationMs)
	prometheus.MustRegister(EmptyResultsTotal)
	prometheus.MustRegister(BadRequestsTotal)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(Confidence)
	prometheus.MustRegister(LoadedRecords)
}

// Handler exposes the registered collectors for scraping.
func Handler() http.Handler { return promhttp.Handler() }
