package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Submission metrics
	Submissions       *prometheus.CounterVec
	Rejections        *prometheus.CounterVec
	SubmitDuration    prometheus.Histogram
	PostingAmount     *prometheus.HistogramVec
	TransactionsOpen  *prometheus.CounterVec
	TransactionsFinal *prometheus.CounterVec

	// Query metrics
	Queries *prometheus.CounterVec

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	HTTPInFlight prometheus.Gauge

	// Redis metrics
	RedisOperations *prometheus.CounterVec
	RedisDuration   *prometheus.HistogramVec
	RedisErrors     *prometheus.CounterVec

	// Idempotency metrics
	IdempotentReplays prometheus.Counter

	// Rate limiting metrics
	RateLimitHits prometheus.Counter

	// Outbox metrics
	EventsPublished     *prometheus.CounterVec
	EventPublishErrors  prometheus.Counter
	EventsPendingOutbox prometheus.Gauge
}

// New creates all metrics and registers them with reg. A nil reg uses the
// default Prometheus registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		// Submission metrics
		Submissions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clienttx_submissions_total",
				Help: "Total posting instruction submissions by type and outcome",
			},
			[]string{"instruction_type", "outcome"},
		),
		Rejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clienttx_rejections_total",
				Help: "Total rejected posting instructions by reason",
			},
			[]string{"reason"},
		),
		SubmitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "clienttx_submit_duration_seconds",
			Help:    "Duration of submit operations",
			Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1},
		}),
		PostingAmount: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "clienttx_posting_amount",
				Help:    "Committed posting amounts",
				Buckets: []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
			},
			[]string{"denomination"},
		),
		TransactionsOpen: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clienttx_transactions_opened_total",
				Help: "Total client transactions opened by chain kind",
			},
			[]string{"chain"},
		),
		TransactionsFinal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clienttx_transactions_finalised_total",
				Help: "Total client transactions finalised by outcome",
			},
			[]string{"outcome"},
		),

		// Query metrics
		Queries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clienttx_queries_total",
				Help: "Total read queries by kind",
			},
			[]string{"query"},
		),

		// API metrics
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clienttx_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "clienttx_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "clienttx_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		}),

		// Redis metrics
		RedisOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clienttx_redis_operations_total",
				Help: "Total Redis operations",
			},
			[]string{"operation"},
		),
		RedisDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "clienttx_redis_duration_seconds",
				Help:    "Redis operation duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		RedisErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clienttx_redis_errors_total",
				Help: "Total Redis errors",
			},
			[]string{"operation"},
		),

		IdempotentReplays: factory.NewCounter(prometheus.CounterOpts{
			Name: "clienttx_idempotent_replays_total",
			Help: "Total responses replayed from the idempotency store",
		}),

		RateLimitHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "clienttx_rate_limit_hits_total",
			Help: "Total requests rejected by the rate limiter",
		}),

		// Outbox metrics
		EventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clienttx_events_published_total",
				Help: "Total outbox events published by type",
			},
			[]string{"event_type"},
		),
		EventPublishErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "clienttx_event_publish_errors_total",
			Help: "Total outbox publish failures",
		}),
		EventsPendingOutbox: factory.NewGauge(prometheus.GaugeOpts{
			Name: "clienttx_outbox_pending_events",
			Help: "Unpublished events seen in the last outbox poll",
		}),
	}
}
