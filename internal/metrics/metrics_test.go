package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsInitialization(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	if m == nil {
		t.Fatal("metrics collector should not be nil")
	}

	if m.QuotesTotal == nil {
		t.Error("QuotesTotal should be initialized")
	}
	if m.OrdersTotal == nil {
		t.Error("OrdersTotal should be initialized")
	}
	if m.OrdersFailedTotal == nil {
		t.Error("OrdersFailedTotal should be initialized")
	}
	if m.OrderDuration == nil {
		t.Error("OrderDuration should be initialized")
	}
	if m.SettlementDuration == nil {
		t.Error("SettlementDuration should be initialized")
	}
	if m.RPCCallsTotal == nil {
		t.Error("RPCCallsTotal should be initialized")
	}
	if m.RPCCallDuration == nil {
		t.Error("RPCCallDuration should be initialized")
	}
	if m.RPCErrorsTotal == nil {
		t.Error("RPCErrorsTotal should be initialized")
	}
	if m.QueueEnqueuedTotal == nil {
		t.Error("QueueEnqueuedTotal should be initialized")
	}
	if m.NetworkStatus == nil {
		t.Error("NetworkStatus should be initialized")
	}
}

func TestObserveQuote(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.ObserveQuote("USDT", 3600)

	count := promtest.ToFloat64(m.QuotesTotal.WithLabelValues("USDT"))
	if count != 1 {
		t.Errorf("expected 1 quote, got %.0f", count)
	}

	amount := promtest.ToFloat64(m.QuoteAmountTHB.WithLabelValues("USDT"))
	if amount != 3600 {
		t.Errorf("expected quote amount 3600 THB, got %.0f", amount)
	}
}

func TestObserveOrder(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.ObserveOrder("COMPLETED", "USDT", 1500*time.Millisecond)

	count := promtest.ToFloat64(m.OrdersTotal.WithLabelValues("COMPLETED", "USDT"))
	if count != 1 {
		t.Errorf("expected 1 order, got %.0f", count)
	}
}

func TestObserveOrderFailure(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.ObserveOrderFailure("insufficient_balance")

	count := promtest.ToFloat64(m.OrdersFailedTotal.WithLabelValues("insufficient_balance"))
	if count != 1 {
		t.Errorf("expected 1 failed order, got %.0f", count)
	}
}

func TestObserveSettlement(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.ObserveSettlement("bsc", 5*time.Second)

	if m.SettlementDuration == nil {
		t.Error("SettlementDuration should be initialized")
	}
}

func TestObserveRPCCall(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		network    string
		duration   time.Duration
		err        error
		wantCalls  float64
		wantErrors float64
	}{
		{
			name:      "successful RPC call",
			method:    "eth_getBalance",
			network:   "bsc",
			duration:  100 * time.Millisecond,
			err:       nil,
			wantCalls: 1,
		},
		{
			name:       "failed RPC call with connection error",
			method:     "eth_getBalance",
			network:    "bsc",
			duration:   100 * time.Millisecond,
			err:        &testError{msg: "connection reset"},
			wantCalls:  1,
			wantErrors: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := prometheus.NewRegistry()
			m := New(registry)

			m.ObserveRPCCall(tt.method, tt.network, tt.duration, tt.err)

			calls := promtest.ToFloat64(m.RPCCallsTotal.WithLabelValues(tt.method, tt.network))
			if calls != tt.wantCalls {
				t.Errorf("expected %.0f RPC calls, got %.0f", tt.wantCalls, calls)
			}

			if tt.err != nil {
				errors := promtest.ToFloat64(m.RPCErrorsTotal.WithLabelValues(tt.method, tt.network, "connection"))
				if errors != tt.wantErrors {
					t.Errorf("expected %.0f RPC errors, got %.0f", tt.wantErrors, errors)
				}
			}
		})
	}
}

func TestObserveQueueEnqueueAndRetry(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.ObserveQueueEnqueue("USDT")
	count := promtest.ToFloat64(m.QueueEnqueuedTotal.WithLabelValues("USDT"))
	if count != 1 {
		t.Errorf("expected 1 enqueue, got %.0f", count)
	}

	m.ObserveQueueRetry(2)
	retries := promtest.ToFloat64(m.QueueRetriesTotal.WithLabelValues("2"))
	if retries != 1 {
		t.Errorf("expected 1 retry, got %.0f", retries)
	}

	m.SetQueueDepth(7)
	depth := promtest.ToFloat64(m.QueueDepth)
	if depth != 7 {
		t.Errorf("expected queue depth 7, got %.0f", depth)
	}
}

func TestObserveNetworkTransition(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.ObserveNetworkTransition("ONLINE", "WEAK", 1)

	count := promtest.ToFloat64(m.NetworkTransitionsTotal.WithLabelValues("ONLINE", "WEAK"))
	if count != 1 {
		t.Errorf("expected 1 transition, got %.0f", count)
	}

	status := promtest.ToFloat64(m.NetworkStatus)
	if status != 1 {
		t.Errorf("expected network status 1, got %.0f", status)
	}
}

func TestObserveRateLimit(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.ObserveRateLimit("per_wallet", "wallet123")

	hits := promtest.ToFloat64(m.RateLimitHitsTotal.WithLabelValues("per_wallet", "wallet123"))
	if hits != 1 {
		t.Errorf("expected 1 rate limit hit, got %.0f", hits)
	}
}

func TestObserveDBQuery(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.ObserveDBQuery("SELECT", "postgres", 50*time.Millisecond)

	if m.DBQueryDuration == nil {
		t.Error("DBQueryDuration should be initialized")
	}
}

func TestObserveSyncAndCleanup(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.ObserveSync()
	runs := promtest.ToFloat64(m.SyncRunsTotal)
	if runs != 1 {
		t.Errorf("expected 1 sync run, got %.0f", runs)
	}

	m.ObserveCleanup(42)
	cleanupRuns := promtest.ToFloat64(m.CleanupRunsTotal)
	if cleanupRuns != 1 {
		t.Errorf("expected 1 cleanup run, got %.0f", cleanupRuns)
	}
	deleted := promtest.ToFloat64(m.CleanupRecordsDeleted)
	if deleted != 42 {
		t.Errorf("expected 42 records deleted, got %.0f", deleted)
	}
}

// testError is a simple error type for testing
type testError struct {
	msg string
}

func (e *testError) Error() string {
	return e.msg
}
