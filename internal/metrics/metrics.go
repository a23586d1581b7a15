package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestSize       *prometheus.HistogramVec
	HTTPResponseSize      *prometheus.HistogramVec
	HTTPActiveConnections *prometheus.GaugeVec

	// Rate limiting metrics
	RateLimitExceededTotal *prometheus.CounterVec

	// Relationship toggles
	TogglesTotal        *prometheus.CounterVec
	ToggleDuration      *prometheus.HistogramVec
	ToggleConflicts     *prometheus.CounterVec
	SharesTotal         prometheus.Counter
	CommentCascadeSize  prometheus.Histogram
	CommentTreeDuration prometheus.Histogram

	// Counter audit
	CounterDrift        *prometheus.GaugeVec
	CounterAuditRuns    *prometheus.CounterVec
	CounterRepairsTotal *prometheus.CounterVec

	// Error metrics
	ErrorsTotal *prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Initialize creates and registers all Prometheus metrics
func Initialize() *Metrics {
	once.Do(func() {
		instance = newMetrics(promauto.With(prometheus.DefaultRegisterer))
	})
	return instance
}

// NewForRegistry builds an unshared Metrics registered on reg
func NewForRegistry(reg prometheus.Registerer) *Metrics {
	return newMetrics(promauto.With(reg))
}

func newMetrics(f promauto.Factory) *Metrics {
	return &Metrics{
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestSize: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_size_bytes",
				Help:    "HTTP request body size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 7),
			},
			[]string{"method", "path"},
		),
		HTTPResponseSize: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 7),
			},
			[]string{"method", "path", "status"},
		),
		HTTPActiveConnections: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "http_active_connections",
				Help: "Number of currently active HTTP connections",
			},
			[]string{"method", "path"},
		),

		RateLimitExceededTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rate_limit_exceeded_total",
				Help: "Total number of rate limit violations",
			},
			[]string{"endpoint", "method"},
		),

		TogglesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "social_toggles_total",
				Help: "Relationship toggles by kind and resulting state",
			},
			[]string{"kind", "state"},
		),
		ToggleDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "social_toggle_duration_seconds",
				Help:    "Toggle transaction latency in seconds, retries included",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"kind"},
		),
		ToggleConflicts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "social_toggle_conflicts_total",
				Help: "Unique-constraint conflicts hit by toggles, by outcome (retried or failed)",
			},
			[]string{"kind", "outcome"},
		),
		SharesTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "social_shares_total",
				Help: "Total number of recorded shares",
			},
		),
		CommentCascadeSize: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "comments_cascade_rows",
				Help:    "Comments removed per cascading delete",
				Buckets: prometheus.ExponentialBuckets(1, 4, 8),
			},
		),
		CommentTreeDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "comments_tree_duration_seconds",
				Help:    "Time to load and assemble a comment tree",
				Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5},
			},
		),

		CounterDrift: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "counter_drift_rows",
				Help: "Rows whose stored counter differs from the recomputed value at the last audit",
			},
			[]string{"table", "column"},
		),
		CounterAuditRuns: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "counter_audit_runs_total",
				Help: "Counter audit runs by mode and status",
			},
			[]string{"mode", "status"},
		),
		CounterRepairsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "counter_repairs_total",
				Help: "Counters rewritten by audit repair",
			},
			[]string{"table", "column"},
		),

		ErrorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "errors_total",
				Help: "Total number of errors by type",
			},
			[]string{"error_type", "endpoint"},
		),
	}
}

// Get returns the global metrics instance
func Get() *Metrics {
	return Initialize()
}
