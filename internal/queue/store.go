package queue

import (
	"context"
	"time"
)

// Store persists offline queue items. The file, Postgres and MongoDB
// backends write an item durably before Enqueue returns nil, so it survives
// a power loss before the processor gets to broadcast it; MemoryStore keeps
// items in process memory only.
type Store interface {
	// Enqueue durably records a new item.
	Enqueue(ctx context.Context, item Item) error

	// Dequeue removes an item, typically after successful settlement or
	// permanent failure.
	Dequeue(ctx context.Context, id string) error

	// UpdateRetry records a failed attempt: bumps retryCount, stamps
	// lastRetry = now, and schedules nextRetry.
	UpdateRetry(ctx context.Context, id string, retryCount int, lastRetry time.Time, nextRetry time.Time) error

	// MarkStatus transitions an item's delivery status (e.g. pending ->
	// processing while the processor owns it).
	MarkStatus(ctx context.Context, id string, status Status) error

	// Get fetches a single item by id.
	Get(ctx context.Context, id string) (Item, error)

	// GetReadyItems returns all pending items whose backoff window has
	// elapsed, ordered by CreatedAt ascending.
	GetReadyItems(ctx context.Context, now time.Time) ([]Item, error)

	// GetAll returns every item currently in the queue.
	GetAll(ctx context.Context) ([]Item, error)

	// GetStats summarizes queue state. lookup resolves each item's order to
	// a crypto amount for TotalAmount; a lookup miss simply skips that item.
	GetStats(ctx context.Context, lookup AmountLookup) (Stats, error)
}
