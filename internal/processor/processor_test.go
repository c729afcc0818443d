package processor

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/boonlink/bridge/internal/capability"
	"github.com/boonlink/bridge/internal/netquality"
	"github.com/boonlink/bridge/internal/orders"
	"github.com/boonlink/bridge/internal/queue"
)

// fakeNetwork implements NetworkSource with a fixed status and no
// transitions, for tests that don't exercise the subscribe path.
type fakeNetwork struct {
	status netquality.Status
}

func (f *fakeNetwork) Status() netquality.Status { return f.status }
func (f *fakeNetwork) Subscribe() (<-chan netquality.Transition, func()) {
	ch := make(chan netquality.Transition)
	return ch, func() {}
}

func newTestOrder(id string) orders.Order {
	return orders.NewOrder(id, "user-1", "chat-1", orders.Quote{
		ID:           "quote-" + id,
		AmountTHB:    decimal.NewFromInt(3600),
		AmountCrypto: decimal.NewFromInt(100),
		Token:        "USDT",
		Rate:         decimal.NewFromInt(36),
		CreatedAt:    time.Now(),
		ExpiresAt:    time.Now().Add(3 * time.Minute),
	})
}

func setupSignedOrder(t *testing.T, orderStore orders.Store, id string) orders.Order {
	t.Helper()
	order := newTestOrder(id)
	if err := orderStore.Create(context.Background(), order); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	quoted, err := orders.Transition(order, orders.StatusQuoted)
	if err != nil {
		t.Fatalf("Transition(QUOTED) error = %v", err)
	}
	sig := "0xsignature"
	signed, err := orders.Transition(quoted, orders.StatusSigned, orders.WithSignature(sig))
	if err != nil {
		t.Fatalf("Transition(SIGNED) error = %v", err)
	}
	if err := orderStore.Update(context.Background(), signed); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	return signed
}

func TestProcessorCompletesHappyPath(t *testing.T) {
	ctx := context.Background()
	orderStore := orders.NewMemoryStore()
	queueStore := queue.NewMemoryStore()
	blockchain := capability.NewMockBlockchain(1)
	settlement := capability.NewMockSettlement()
	network := &fakeNetwork{status: netquality.Online}

	order := setupSignedOrder(t, orderStore, "order-1")
	item := queue.NewItem("item-1", order.ID, "signed-tx-blob")
	if err := queueStore.Enqueue(ctx, item); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	p := New(orderStore, queueStore, blockchain, settlement, network, Config{})
	p.drain(ctx)

	got, err := orderStore.Get(ctx, order.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != orders.StatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", got.Status)
	}
	if got.SettlementID == nil || *got.SettlementID == "" {
		t.Error("expected a settlement id to be stamped")
	}
	if got.CompletedAt == nil {
		t.Error("expected completedAt to be stamped")
	}

	if _, err := queueStore.Get(ctx, item.ID); err != queue.ErrNotFound {
		t.Errorf("Get(item) error = %v, want ErrNotFound after completion", err)
	}
}

func TestProcessorRetriesOnUnconfirmedTransaction(t *testing.T) {
	ctx := context.Background()
	orderStore := orders.NewMemoryStore()
	queueStore := queue.NewMemoryStore()
	blockchain := capability.NewMockBlockchain(10) // never confirms within this test
	settlement := capability.NewMockSettlement()
	network := &fakeNetwork{status: netquality.Online}

	order := setupSignedOrder(t, orderStore, "order-2")
	item := queue.NewItem("item-2", order.ID, "signed-tx-blob")
	if err := queueStore.Enqueue(ctx, item); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	p := New(orderStore, queueStore, blockchain, settlement, network, Config{})
	p.drain(ctx)

	got, err := queueStore.Get(ctx, item.ID)
	if err != nil {
		t.Fatalf("Get(item) error = %v", err)
	}
	if got.RetryCount != 1 {
		t.Errorf("RetryCount = %d, want 1", got.RetryCount)
	}
	if got.NextRetry == nil {
		t.Error("expected NextRetry to be set")
	}

	order2, err := orderStore.Get(ctx, order.ID)
	if err != nil {
		t.Fatalf("Get(order) error = %v", err)
	}
	if order2.Status != orders.StatusPending {
		t.Errorf("order status = %s, want PENDING", order2.Status)
	}
}

func TestProcessorFailsOrderAfterMaxRetries(t *testing.T) {
	ctx := context.Background()
	orderStore := orders.NewMemoryStore()
	queueStore := queue.NewMemoryStore()
	blockchain := capability.NewMockBlockchain(1000)
	settlement := capability.NewMockSettlement()
	network := &fakeNetwork{status: netquality.Online}

	order := setupSignedOrder(t, orderStore, "order-3")
	item := queue.NewItem("item-3", order.ID, "signed-tx-blob")
	item.RetryCount = queue.MaxRetries - 1
	if err := queueStore.Enqueue(ctx, item); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	p := New(orderStore, queueStore, blockchain, settlement, network, Config{})
	p.drain(ctx)

	got, err := orderStore.Get(ctx, order.ID)
	if err != nil {
		t.Fatalf("Get(order) error = %v", err)
	}
	if got.Status != orders.StatusFailed {
		t.Errorf("status = %s, want FAILED", got.Status)
	}
	if got.Error == nil {
		t.Fatal("expected an error message")
	}

	if _, err := queueStore.Get(ctx, item.ID); err != queue.ErrNotFound {
		t.Errorf("Get(item) error = %v, want ErrNotFound after exhausting retries", err)
	}
}

func TestProcessorSkipsDrainWhenOffline(t *testing.T) {
	ctx := context.Background()
	orderStore := orders.NewMemoryStore()
	queueStore := queue.NewMemoryStore()
	blockchain := capability.NewMockBlockchain(1)
	settlement := capability.NewMockSettlement()
	network := &fakeNetwork{status: netquality.Offline}

	order := setupSignedOrder(t, orderStore, "order-4")
	item := queue.NewItem("item-4", order.ID, "signed-tx-blob")
	if err := queueStore.Enqueue(ctx, item); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	p := New(orderStore, queueStore, blockchain, settlement, network, Config{})
	p.drain(ctx)

	got, err := queueStore.Get(ctx, item.ID)
	if err != nil {
		t.Fatalf("Get(item) error = %v", err)
	}
	if got.RetryCount != 0 {
		t.Errorf("RetryCount = %d, want 0 (no attempt while offline)", got.RetryCount)
	}
}

func TestProcessorRetriesOnSettlementFailure(t *testing.T) {
	ctx := context.Background()
	orderStore := orders.NewMemoryStore()
	queueStore := queue.NewMemoryStore()
	blockchain := capability.NewMockBlockchain(1)
	settlement := capability.NewMockSettlement()
	settlement.FailNextSettle()
	network := &fakeNetwork{status: netquality.Online}

	order := setupSignedOrder(t, orderStore, "order-5")
	item := queue.NewItem("item-5", order.ID, "signed-tx-blob")
	if err := queueStore.Enqueue(ctx, item); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	p := New(orderStore, queueStore, blockchain, settlement, network, Config{})
	p.drain(ctx)

	order2, err := orderStore.Get(ctx, order.ID)
	if err != nil {
		t.Fatalf("Get(order) error = %v", err)
	}
	if order2.Status != orders.StatusSettled {
		t.Errorf("order status = %s, want SETTLED (settlement retry keeps on-chain progress)", order2.Status)
	}

	got, err := queueStore.Get(ctx, item.ID)
	if err != nil {
		t.Fatalf("Get(item) error = %v", err)
	}
	if got.RetryCount != 1 {
		t.Errorf("RetryCount = %d, want 1", got.RetryCount)
	}
}

func TestNotifyWakesDrainLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	orderStore := orders.NewMemoryStore()
	queueStore := queue.NewMemoryStore()
	blockchain := capability.NewMockBlockchain(1)
	settlement := capability.NewMockSettlement()
	network := &fakeNetwork{status: netquality.Online}

	p := New(orderStore, queueStore, blockchain, settlement, network, Config{TickInterval: time.Hour})
	p.Start(ctx)
	defer p.Stop()

	order := setupSignedOrder(t, orderStore, "order-6")
	item := queue.NewItem("item-6", order.ID, "signed-tx-blob")
	if err := queueStore.Enqueue(ctx, item); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	p.Notify()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		got, err := orderStore.Get(ctx, order.ID)
		if err == nil && got.Status == orders.StatusCompleted {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("order did not complete after Notify()")
}
