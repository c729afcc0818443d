package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestMemoryStoreEnqueueAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	item := NewItem("q1", "order-1", "0xsignedtx")
	if err := store.Enqueue(ctx, item); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	got, err := store.Get(ctx, "q1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.OrderID != "order-1" {
		t.Errorf("Get().OrderID = %q, want order-1", got.OrderID)
	}
}

func TestMemoryStoreEnqueueDuplicateRejected(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	item := NewItem("q1", "order-1", "0xsignedtx")

	_ = store.Enqueue(ctx, item)
	if err := store.Enqueue(ctx, item); err == nil {
		t.Fatal("expected error enqueueing duplicate id")
	}
}

func TestMemoryStoreDequeueRemovesItem(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	item := NewItem("q1", "order-1", "0xsignedtx")
	_ = store.Enqueue(ctx, item)

	if err := store.Dequeue(ctx, "q1"); err != nil {
		t.Fatalf("Dequeue() error = %v", err)
	}
	if _, err := store.Get(ctx, "q1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after Dequeue() error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreUpdateRetry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	item := NewItem("q1", "order-1", "0xsignedtx")
	_ = store.Enqueue(ctx, item)

	now := time.Now()
	next := now.Add(5 * time.Second)
	if err := store.UpdateRetry(ctx, "q1", 1, now, next); err != nil {
		t.Fatalf("UpdateRetry() error = %v", err)
	}

	got, _ := store.Get(ctx, "q1")
	if got.RetryCount != 1 {
		t.Errorf("RetryCount = %d, want 1", got.RetryCount)
	}
	if got.NextRetry == nil || !got.NextRetry.Equal(next) {
		t.Errorf("NextRetry = %v, want %v", got.NextRetry, next)
	}
}

func TestMemoryStoreGetReadyItemsRespectsBackoff(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	ready := NewItem("q1", "order-1", "0xsignedtx")
	_ = store.Enqueue(ctx, ready)

	notReady := NewItem("q2", "order-2", "0xsignedtx2")
	future := time.Now().Add(time.Hour)
	notReady.NextRetry = &future
	_ = store.Enqueue(ctx, notReady)

	items, err := store.GetReadyItems(ctx, time.Now())
	if err != nil {
		t.Fatalf("GetReadyItems() error = %v", err)
	}
	if len(items) != 1 || items[0].ID != "q1" {
		t.Errorf("GetReadyItems() = %v, want only q1", items)
	}
}

func TestMemoryStoreGetStatsAggregates(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	pending := NewItem("q1", "order-1", "0xsignedtx1")
	_ = store.Enqueue(ctx, pending)

	processing := NewItem("q2", "order-2", "0xsignedtx2")
	processing.Status = StatusProcessing
	_ = store.Enqueue(ctx, processing)

	failed := NewItem("q3", "order-3", "0xsignedtx3")
	failed.Status = StatusFailed
	_ = store.Enqueue(ctx, failed)

	amounts := map[string]decimal.Decimal{
		"order-1": decimal.NewFromFloat(4.4),
		"order-2": decimal.NewFromFloat(2.1),
		"order-3": decimal.NewFromFloat(1.0),
	}
	lookup := func(orderID string) (decimal.Decimal, bool) {
		v, ok := amounts[orderID]
		return v, ok
	}

	stats, err := store.GetStats(ctx, lookup)
	if err != nil {
		t.Fatalf("GetStats() error = %v", err)
	}
	if stats.Pending != 1 || stats.Processing != 1 || stats.Failed != 1 {
		t.Errorf("GetStats() = %+v, want 1/1/1", stats)
	}
	wantTotal := decimal.NewFromFloat(7.5)
	if !stats.TotalAmount.Equal(wantTotal) {
		t.Errorf("TotalAmount = %v, want %v", stats.TotalAmount, wantTotal)
	}
	if stats.OldestItem == nil {
		t.Error("expected OldestItem to be set")
	}
}
