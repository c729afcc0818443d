package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the bridge.
type Metrics struct {
	// Quote metrics
	QuotesTotal    *prometheus.CounterVec
	QuoteAmountTHB *prometheus.CounterVec

	// Order metrics
	OrdersTotal      *prometheus.CounterVec
	OrdersFailedTotal *prometheus.CounterVec
	OrderDuration    *prometheus.HistogramVec
	SettlementDuration *prometheus.HistogramVec

	// RPC call metrics
	RPCCallsTotal   *prometheus.CounterVec
	RPCCallDuration *prometheus.HistogramVec
	RPCErrorsTotal  *prometheus.CounterVec

	// Queue metrics
	QueueEnqueuedTotal *prometheus.CounterVec
	QueueRetriesTotal  *prometheus.CounterVec
	QueueDepth         prometheus.Gauge

	// Network quality metrics
	NetworkTransitionsTotal *prometheus.CounterVec
	NetworkStatus           prometheus.Gauge

	// Rate limiting metrics
	RateLimitHitsTotal *prometheus.CounterVec

	// Database metrics
	DBQueryDuration     *prometheus.HistogramVec
	DBConnectionsActive prometheus.Gauge

	// Sync/cleanup metrics
	SyncRunsTotal        prometheus.Counter
	CleanupRunsTotal     prometheus.Counter
	CleanupRecordsDeleted prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		QuotesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridge_quotes_total",
				Help: "Total number of quotes created",
			},
			[]string{"token"},
		),
		QuoteAmountTHB: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridge_quote_amount_thb_total",
				Help: "Total quoted amount in THB",
			},
			[]string{"token"},
		),

		OrdersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridge_orders_total",
				Help: "Total number of orders by terminal status",
			},
			[]string{"status", "token"},
		),
		OrdersFailedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridge_orders_failed_total",
				Help: "Total number of failed orders by reason",
			},
			[]string{"reason"},
		),
		OrderDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bridge_order_duration_seconds",
				Help:    "Time from order creation to terminal status",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"status"},
		),
		SettlementDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bridge_settlement_duration_seconds",
				Help:    "Time from broadcast to on-chain settlement",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
			},
			[]string{"network"},
		),

		RPCCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridge_rpc_calls_total",
				Help: "Total number of RPC calls to the blockchain",
			},
			[]string{"method", "network"},
		),
		RPCCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bridge_rpc_call_duration_seconds",
				Help:    "Duration of RPC calls to the blockchain (supports p50, p95, p99 percentiles)",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "network"},
		),
		RPCErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridge_rpc_errors_total",
				Help: "Total number of RPC errors",
			},
			[]string{"method", "network", "error_type"},
		),

		QueueEnqueuedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridge_queue_enqueued_total",
				Help: "Total number of items enqueued for offline processing",
			},
			[]string{"token"},
		),
		QueueRetriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridge_queue_retries_total",
				Help: "Total number of queue item retry attempts",
			},
			[]string{"attempt"},
		),
		QueueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "bridge_queue_depth",
				Help: "Current number of items awaiting processing",
			},
		),

		NetworkTransitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridge_network_transitions_total",
				Help: "Total number of network-quality status transitions",
			},
			[]string{"from", "to"},
		),
		NetworkStatus: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "bridge_network_status",
				Help: "Current network-quality status (0=offline, 1=weak, 2=online)",
			},
		),

		RateLimitHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridge_rate_limit_hits_total",
				Help: "Total number of rate limit hits",
			},
			[]string{"limit_type", "identifier"},
		),

		DBQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bridge_db_query_duration_seconds",
				Help:    "Database query duration (supports p50, p95, p99 percentiles)",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.5, 1, 2},
			},
			[]string{"operation", "backend"},
		),
		DBConnectionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "bridge_db_connections_active",
				Help: "Number of active database connections",
			},
		),

		SyncRunsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "bridge_sync_runs_total",
				Help: "Total number of forced sync runs",
			},
		),
		CleanupRunsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "bridge_cleanup_runs_total",
				Help: "Total number of completed-order cleanup runs",
			},
		),
		CleanupRecordsDeleted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "bridge_cleanup_records_deleted_total",
				Help: "Total number of orders deleted by cleanup",
			},
		),
	}
}

// ObserveQuote records a quote creation.
func (m *Metrics) ObserveQuote(token string, amountTHB float64) {
	m.QuotesTotal.WithLabelValues(token).Inc()
	m.QuoteAmountTHB.WithLabelValues(token).Add(amountTHB)
}

// ObserveOrder records an order reaching a terminal status.
func (m *Metrics) ObserveOrder(status, token string, duration time.Duration) {
	m.OrdersTotal.WithLabelValues(status, token).Inc()
	m.OrderDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// ObserveOrderFailure records a failed order with reason.
func (m *Metrics) ObserveOrderFailure(reason string) {
	m.OrdersFailedTotal.WithLabelValues(reason).Inc()
}

// ObserveSettlement records blockchain settlement time.
func (m *Metrics) ObserveSettlement(network string, duration time.Duration) {
	m.SettlementDuration.WithLabelValues(network).Observe(duration.Seconds())
}

// ObserveRPCCall records an RPC call to the blockchain.
func (m *Metrics) ObserveRPCCall(method, network string, duration time.Duration, err error) {
	m.RPCCallsTotal.WithLabelValues(method, network).Inc()
	m.RPCCallDuration.WithLabelValues(method, network).Observe(duration.Seconds())

	if err != nil {
		errorType := "unknown"
		if errStr := err.Error(); errStr != "" {
			switch {
			case contains(errStr, "timeout"):
				errorType = "timeout"
			case contains(errStr, "rate limit"):
				errorType = "rate_limit"
			case contains(errStr, "connection"):
				errorType = "connection"
			case contains(errStr, "not found"):
				errorType = "not_found"
			default:
				errorType = "other"
			}
		}
		m.RPCErrorsTotal.WithLabelValues(method, network, errorType).Inc()
	}
}

// ObserveQueueEnqueue records a queue item enqueue.
func (m *Metrics) ObserveQueueEnqueue(token string) {
	m.QueueEnqueuedTotal.WithLabelValues(token).Inc()
}

// ObserveQueueRetry records a queue item retry attempt.
func (m *Metrics) ObserveQueueRetry(attempt int) {
	m.QueueRetriesTotal.WithLabelValues(formatAttempt(attempt)).Inc()
}

// SetQueueDepth records the current queue depth.
func (m *Metrics) SetQueueDepth(depth int) {
	m.QueueDepth.Set(float64(depth))
}

// ObserveNetworkTransition records a network-quality status transition.
func (m *Metrics) ObserveNetworkTransition(from, to string, statusValue float64) {
	m.NetworkTransitionsTotal.WithLabelValues(from, to).Inc()
	m.NetworkStatus.Set(statusValue)
}

// ObserveRateLimit records a rate limit hit.
func (m *Metrics) ObserveRateLimit(limitType, identifier string) {
	m.RateLimitHitsTotal.WithLabelValues(limitType, identifier).Inc()
}

// ObserveDBQuery records a database query.
func (m *Metrics) ObserveDBQuery(operation, backend string, duration time.Duration) {
	m.DBQueryDuration.WithLabelValues(operation, backend).Observe(duration.Seconds())
}

// ObserveSync records a forced sync run.
func (m *Metrics) ObserveSync() {
	m.SyncRunsTotal.Inc()
}

// ObserveCleanup records a completed-order cleanup run.
func (m *Metrics) ObserveCleanup(recordsDeleted int64) {
	m.CleanupRunsTotal.Inc()
	m.CleanupRecordsDeleted.Add(float64(recordsDeleted))
}

// Helper functions
func contains(s, substr string) bool {
	return len(s) >= len(substr) && s[:len(substr)] == substr ||
		len(s) > len(substr) && contains(s[1:], substr)
}

func formatAttempt(attempt int) string {
	if attempt <= 5 {
		return string(rune('0' + attempt))
	}
	return "5+"
}
