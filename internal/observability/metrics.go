// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Feed metrics
	FeedFetchesTotal *prometheus.CounterVec
	FeedFetchErrors  *prometheus.CounterVec
	FeedFetchLatency *prometheus.HistogramVec
	FeedRecordsSeen  *prometheus.CounterVec

	// Pipeline metrics
	PricesInserted   prometheus.Counter
	RecordsSkipped   *prometheus.CounterVec
	BatchErrorsTotal prometheus.Counter

	// Refresh metrics
	TokensRefreshed prometheus.Counter
	RefreshSkipped  prometheus.Counter
	RefreshErrors   prometheus.Counter

	// Run metrics
	RunsTotal         *prometheus.CounterVec
	RunDuration       prometheus.Histogram
	LastSuccessfulRun prometheus.Gauge

	// API metrics
	ManualPriceInserts prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "memecoin_tracker"
	}

	return &Metrics{
		FeedFetchesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "fetches_total",
			Help:      "Total number of feed fetches",
		}, []string{"feed"}),
		FeedFetchErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "fetch_errors_total",
			Help:      "Total number of failed feed fetches",
		}, []string{"feed"}),
		FeedFetchLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "fetch_duration_seconds",
			Help:      "Feed fetch latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"feed"}),
		FeedRecordsSeen: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "records_seen_total",
			Help:      "Total number of raw feed records seen",
		}, []string{"feed"}),

		PricesInserted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "prices_inserted_total",
			Help:      "Total number of price rows inserted",
		}),
		RecordsSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "records_skipped_total",
			Help:      "Total number of records skipped, by reason",
		}, []string{"reason"}),
		BatchErrorsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "batch_errors_total",
			Help:      "Total number of abandoned batches",
		}),

		TokensRefreshed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "tokens_refreshed_total",
			Help:      "Total number of tokens with market data written back",
		}),
		RefreshSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "tokens_skipped_total",
			Help:      "Total number of refresh candidates skipped",
		}),
		RefreshErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "errors_total",
			Help:      "Total number of per-token refresh errors",
		}),

		RunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "total",
			Help:      "Total number of ingestion runs, by outcome",
		}, []string{"outcome"}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "duration_seconds",
			Help:      "Full ingestion run duration",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		LastSuccessfulRun: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix timestamp of the last successful run",
		}),

		ManualPriceInserts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "manual_price_inserts_total",
			Help:      "Total number of prices inserted via the manual API",
		}),
	}
}

// Handler returns the HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
