package orders

import "context"

// Store persists payment orders and supports the index queries the bridge
// needs for history and recovery: by id, by user (newest first), and by
// status (for crash recovery / reconciliation sweeps).
type Store interface {
	// Create inserts a new order. Returns an error if the id already exists.
	Create(ctx context.Context, order Order) error

	// Get fetches an order by id. Returns ErrNotFound if absent.
	Get(ctx context.Context, id string) (Order, error)

	// Update persists a full order record as given; the store does not
	// change UpdatedAt (Transition refreshes it). Returns ErrNotFound if the
	// id is unknown.
	Update(ctx context.Context, order Order) error

	// ListByUser returns a user's orders, newest first.
	ListByUser(ctx context.Context, userID string) ([]Order, error)

	// ListByStatus returns all orders currently in the given status.
	ListByStatus(ctx context.Context, status Status) ([]Order, error)

	// Delete removes an order permanently. Used by cleanup sweeps.
	Delete(ctx context.Context, id string) error
}
