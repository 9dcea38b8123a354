package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the betting node
type Metrics struct {
	// Block application
	BlocksAppliedTotal *prometheus.CounterVec
	BlockApplyDuration prometheus.Histogram
	HeadBlockHeight    prometheus.Gauge
	OperationsTotal    *prometheus.CounterVec
	OperationDuration  *prometheus.HistogramVec

	// Bets
	BetsPlacedTotal    *prometheus.CounterVec
	BetsMatchedTotal   prometheus.Counter
	BetsCancelledTotal *prometheus.CounterVec
	BetsResolvedTotal  prometheus.Counter
	GamesTotal         *prometheus.CounterVec

	// Volumes, in whole currency units
	PendingBetsVolume prometheus.Gauge
	MatchedBetsVolume prometheus.Gauge

	// Database
	DatabaseOperationDuration *prometheus.HistogramVec
	DatabaseErrors            *prometheus.CounterVec

	// Outbox publisher
	OutboxEventsPublished *prometheus.CounterVec
	OutboxEventsFailed    *prometheus.CounterVec

	// Read API
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all Prometheus metrics with the default registry
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry creates metrics with a custom registry (useful for testing)
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		BlocksAppliedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "betting_blocks_applied_total",
				Help: "Total number of blocks handed to the node",
			},
			[]string{"status"}, // applied, replayed, failed
		),
		BlockApplyDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "betting_block_apply_duration_seconds",
				Help:    "Duration of block application",
				Buckets: prometheus.DefBuckets,
			},
		),
		HeadBlockHeight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "betting_head_block_height",
				Help: "Height of the last applied block",
			},
		),
		OperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "betting_operations_total",
				Help: "Total number of operations evaluated",
			},
			[]string{"operation", "status"}, // applied, rejected
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "betting_operation_duration_seconds",
				Help:    "Duration of operation evaluation",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		BetsPlacedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "betting_bets_placed_total",
				Help: "Total number of bets placed",
			},
			[]string{"kind"}, // live, non_live
		),
		BetsMatchedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "betting_bets_matched_total",
				Help: "Total number of matched bets created",
			},
		),
		BetsCancelledTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "betting_bets_cancelled_total",
				Help: "Total number of bet stakes refunded",
			},
			[]string{"kind"}, // pending, matched
		),
		BetsResolvedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "betting_bets_resolved_total",
				Help: "Total number of bet payouts settled",
			},
		),
		GamesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "betting_games_total",
				Help: "Total number of game lifecycle transitions",
			},
			[]string{"status"}, // created, started, finished, cancelled
		),
		PendingBetsVolume: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "betting_pending_bets_volume",
				Help: "Stake waiting in pending bets",
			},
		),
		MatchedBetsVolume: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "betting_matched_bets_volume",
				Help: "Stake locked in matched bets",
			},
		),
		DatabaseOperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "betting_database_operation_duration_seconds",
				Help:    "Duration of database operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"}, // persist_block, load_checkpoint
		),
		DatabaseErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "betting_database_errors_total",
				Help: "Total number of database errors",
			},
			[]string{"operation", "error_type"},
		),
		OutboxEventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "betting_outbox_events_published_total",
				Help: "Total number of outbox events successfully published",
			},
			[]string{"event_type"},
		),
		OutboxEventsFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "betting_outbox_events_failed_total",
				Help: "Total number of outbox events failed to publish",
			},
			[]string{"event_type"},
		),
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "betting_http_requests_total",
				Help: "Total number of API requests served",
			},
			[]string{"route", "code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "betting_http_request_duration_seconds",
				Help:    "Duration of API requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}
}
