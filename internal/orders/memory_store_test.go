package orders

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStoreCreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	order := NewOrder("order-1", "user-1", "chat-1", Quote{ID: "quote-1"})
	if err := store.Create(ctx, order); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := store.Get(ctx, "order-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ID != "order-1" {
		t.Errorf("Get() returned id %q, want order-1", got.ID)
	}
}

func TestMemoryStoreGetUnknownReturnsNotFound(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreCreateDuplicateRejected(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	order := NewOrder("order-1", "user-1", "chat-1", Quote{ID: "quote-1"})

	if err := store.Create(ctx, order); err != nil {
		t.Fatalf("first Create() error = %v", err)
	}
	if err := store.Create(ctx, order); err == nil {
		t.Fatal("expected error creating duplicate order id")
	}
}

func TestMemoryStoreUpdateUnknownReturnsNotFound(t *testing.T) {
	store := NewMemoryStore()
	order := NewOrder("order-1", "user-1", "chat-1", Quote{ID: "quote-1"})

	if err := store.Update(context.Background(), order); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreListByUserOrdersNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	first := NewOrder("order-1", "user-1", "chat-1", Quote{ID: "quote-1"})
	second := NewOrder("order-2", "user-1", "chat-1", Quote{ID: "quote-2"})
	second.CreatedAt = first.CreatedAt.Add(1)

	_ = store.Create(ctx, first)
	_ = store.Create(ctx, second)

	list, err := store.ListByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("ListByUser() returned %d orders, want 2", len(list))
	}
	if list[0].ID != "order-2" {
		t.Errorf("ListByUser()[0].ID = %q, want order-2 (newest first)", list[0].ID)
	}
}

func TestMemoryStoreListByStatusOrdersOldestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	first := NewOrder("order-1", "user-1", "chat-1", Quote{ID: "quote-1"})
	second := NewOrder("order-2", "user-2", "chat-2", Quote{ID: "quote-2"})
	second.CreatedAt = first.CreatedAt.Add(1)

	_ = store.Create(ctx, first)
	_ = store.Create(ctx, second)

	list, err := store.ListByStatus(ctx, StatusInit)
	if err != nil {
		t.Fatalf("ListByStatus() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("ListByStatus() returned %d orders, want 2", len(list))
	}
	if list[0].ID != "order-1" {
		t.Errorf("ListByStatus()[0].ID = %q, want order-1 (oldest first)", list[0].ID)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	order := NewOrder("order-1", "user-1", "chat-1", Quote{ID: "quote-1"})
	_ = store.Create(ctx, order)

	if err := store.Delete(ctx, "order-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(ctx, "order-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after Delete() error = %v, want ErrNotFound", err)
	}
}
