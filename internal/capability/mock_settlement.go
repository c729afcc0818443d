package capability

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/boonlink/bridge/internal/idempotency"
	"github.com/google/uuid"
)

// settlementIdempotencyTTL is the window within which two Settle calls for
// the same order must yield the same settlementId.
const settlementIdempotencyTTL = 24 * time.Hour

// MockSettlement simulates a payout gateway using the same idempotency
// store the HTTP layer uses for request replay, keyed by order id instead
// of request id.
type MockSettlement struct {
	idempotent *idempotency.MemoryStore
	byID       *idempotency.MemoryStore
	counter    atomic.Uint64
	failNext   atomic.Bool
}

// NewMockSettlement constructs a settlement double backed by an in-memory
// idempotency cache.
func NewMockSettlement() *MockSettlement {
	return &MockSettlement{
		idempotent: idempotency.NewMemoryStore(),
		byID:       idempotency.NewMemoryStore(),
	}
}

// FailNextSettle makes the next Settle call (for any order not already
// idempotently cached) return a failure result, for retry-path tests.
func (m *MockSettlement) FailNextSettle() {
	m.failNext.Store(true)
}

func (m *MockSettlement) Settle(ctx context.Context, order SettlementOrder) (SettlementResult, error) {
	key := "order:" + order.ID
	if cached, ok := m.idempotent.Get(ctx, key); ok {
		var result SettlementResult
		if err := json.Unmarshal(cached.Body, &result); err != nil {
			return SettlementResult{}, fmt.Errorf("capability: decode cached settlement: %w", err)
		}
		return result, nil
	}

	result := SettlementResult{
		Timestamp: time.Now(),
	}

	if m.failNext.CompareAndSwap(true, false) {
		result.Success = false
		result.Error = "settlement gateway rejected payout"
	} else {
		result.Success = true
		result.SettlementID = fmt.Sprintf("stl_%s", uuid.NewString())
		result.TransactionRef = fmt.Sprintf("ref_%06d", m.counter.Add(1))
	}

	body, err := json.Marshal(result)
	if err != nil {
		return SettlementResult{}, fmt.Errorf("capability: encode settlement result: %w", err)
	}

	if err := m.idempotent.Set(ctx, key, &idempotency.Response{Body: body, CachedAt: result.Timestamp}, settlementIdempotencyTTL); err != nil {
		return SettlementResult{}, err
	}
	if result.Success {
		if err := m.byID.Set(ctx, result.SettlementID, &idempotency.Response{Body: body, CachedAt: result.Timestamp}, settlementIdempotencyTTL); err != nil {
			return SettlementResult{}, err
		}
	}

	return result, nil
}

func (m *MockSettlement) CheckStatus(ctx context.Context, settlementID string) (SettlementResult, error) {
	cached, ok := m.byID.Get(ctx, settlementID)
	if !ok {
		return SettlementResult{}, fmt.Errorf("capability: unknown settlement id %q", settlementID)
	}

	var result SettlementResult
	if err := json.Unmarshal(cached.Body, &result); err != nil {
		return SettlementResult{}, fmt.Errorf("capability: decode cached settlement: %w", err)
	}
	return result, nil
}
