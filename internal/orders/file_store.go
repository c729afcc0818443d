package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore implements Store backed by a single JSON file, written with a
// write-temp-then-rename discipline so a crash mid-write never corrupts the
// previous good copy. Intended for local development and single-instance
// deployments; PostgresStore or MongoStore should back any deployment that
// needs horizontal scaling.
type FileStore struct {
	filePath string
	mu       sync.Mutex
	orders   map[string]Order
}

// NewFileStore opens (or creates) a file-backed order store at path.
func NewFileStore(path string) (*FileStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("orders: create directory: %w", err)
	}

	s := &FileStore{
		filePath: path,
		orders:   make(map[string]Order),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) load() error {
	if _, err := os.Stat(s.filePath); os.IsNotExist(err) {
		return nil
	}

	raw, err := os.ReadFile(s.filePath)
	if err != nil {
		return fmt.Errorf("orders: read file: %w", err)
	}
	if len(raw) == 0 {
		return nil
	}

	var loaded map[string]Order
	if err := json.Unmarshal(raw, &loaded); err != nil {
		return fmt.Errorf("orders: unmarshal file: %w", err)
	}
	s.orders = loaded
	return nil
}

// persist writes the current in-memory map to disk atomically. Caller must
// hold s.mu.
func (s *FileStore) persist() error {
	raw, err := json.MarshalIndent(s.orders, "", "  ")
	if err != nil {
		return fmt.Errorf("orders: marshal: %w", err)
	}

	tmpPath := s.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, raw, 0600); err != nil {
		return fmt.Errorf("orders: write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.filePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("orders: rename temp file: %w", err)
	}
	return nil
}

func (s *FileStore) Create(ctx context.Context, order Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[order.ID]; exists {
		return fmt.Errorf("orders: id %s already exists", order.ID)
	}
	s.orders[order.ID] = order
	return s.persist()
}

func (s *FileStore) Get(ctx context.Context, id string) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return order, nil
}

func (s *FileStore) Update(ctx context.Context, order Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[order.ID]; !ok {
		return ErrNotFound
	}
	s.orders[order.ID] = order
	return s.persist()
}

func (s *FileStore) ListByUser(ctx context.Context, userID string) ([]Order, error) {
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

func (s *FileStore) ListByStatus(ctx context.Context, status Status) ([]Order, error) {
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

func (s *FileStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[id]; !ok {
		return ErrNotFound
	}
	delete(s.orders, id)
	return s.persist()
}
