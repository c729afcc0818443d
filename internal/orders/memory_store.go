package orders

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-process Store backed by a mutex-guarded map. It is
// the default backend and the reference implementation the file/Postgres/
// MongoDB backends are checked against.
type MemoryStore struct {
	mu     sync.Mutex
	orders map[string]Order
}

// NewMemoryStore constructs an empty in-memory order store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders: make(map[string]Order),
	}
}

func (s *MemoryStore) Create(ctx context.Context, order Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[order.ID]; exists {
		return fmt.Errorf("orders: id %s already exists", order.ID)
	}
	s.orders[order.ID] = order
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return order, nil
}

func (s *MemoryStore) Update(ctx context.Context, order Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[order.ID]; !ok {
		return ErrNotFound
	}
	s.orders[order.ID] = order
	return nil
}

func (s *MemoryStore) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []Order
	for _, order := range s.orders {
		if order.UserID == userID {
			result = append(result, order)
		}
	}
	sortByCreatedAtDesc(result)
	return result, nil
}

func (s *MemoryStore) ListByStatus(ctx context.Context, status Status) ([]Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []Order
	for _, order := range s.orders {
		if order.Status == status {
			result = append(result, order)
		}
	}
	sortByCreatedAtAsc(result)
	return result, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[id]; !ok {
		return ErrNotFound
	}
	delete(s.orders, id)
	return nil
}
