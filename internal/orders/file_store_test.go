package orders

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestFileStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "orders.json")

	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	order := NewOrder("order-1", "user-1", "chat-1", Quote{ID: "quote-1"})
	if err := store.Create(ctx, order); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("reopen NewFileStore() error = %v", err)
	}

	got, err := reopened.Get(ctx, "order-1")
	if err != nil {
		t.Fatalf("Get() after reopen error = %v", err)
	}
	if got.ID != "order-1" {
		t.Errorf("Get() returned id %q, want order-1", got.ID)
	}
}

func TestFileStoreGetUnknownReturnsNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.json")
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	_, err = store.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestFileStoreUpdateSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "orders.json")

	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	order := NewOrder("order-1", "user-1", "chat-1", Quote{ID: "quote-1"})
	_ = store.Create(ctx, order)

	updated, err := Transition(order, StatusQuoted)
	if err != nil {
		t.Fatalf("Transition() error = %v", err)
	}
	if err := store.Update(ctx, updated); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("reopen NewFileStore() error = %v", err)
	}
	got, err := reopened.Get(ctx, "order-1")
	if err != nil {
		t.Fatalf("Get() after reopen error = %v", err)
	}
	if got.Status != StatusQuoted {
		t.Errorf("Get() after reopen Status = %q, want QUOTED", got.Status)
	}
}
