package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search pipeline Prometheus metrics.
var (
	UpstreamPagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trialscope",
			Name:      "upstream_pages_total",
			Help:      "Total ClinicalTrials.gov page fetches",
		},
		[]string{"status"}, // "success" / "error"
	)

	UpstreamPageDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "trialscope",
			Name:      "upstream_page_duration_seconds",
			Help:      "ClinicalTrials.gov page fetch duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	StudiesFetchedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "trialscope",
			Name:      "studies_fetched_total",
			Help:      "Total raw studies accumulated across pages",
		},
	)

	ExtractionRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trialscope",
			Name:      "extraction_requests_total",
			Help:      "Total disease-extraction requests",
		},
		[]string{"model", "status"},
	)

	ExtractionRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "trialscope",
			Name:      "extraction_request_duration_seconds",
			Help:      "Disease-extraction request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"model"},
	)

	ExtractionErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trialscope",
			Name:      "extraction_errors_total",
			Help:      "Total disease-extraction errors",
		},
		[]string{"model", "error_type"},
	)

	SearchCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trialscope",
			Name:      "search_cache_total",
			Help:      "Search-result cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers Prometheus pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(UpstreamPagesTotal)
	prometheus.MustRegister(UpstreamPageDuration)
	prometheus.MustRegister(StudiesFetchedTotal)
	prometheus.MustRegister(ExtractionRequestsTotal)
	prometheus.MustRegister(ExtractionRequestDuration)
	prometheus.MustRegister(ExtractionErrorsTotal)
	prometheus.MustRegister(SearchCacheTotal)
	pipelineMetricsRegistered = true
}
