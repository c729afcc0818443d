// Package queue implements the persistent offline-payment queue: C5 of the
// bridge. Each item references a payment order by id and carries the signed
// transaction that the processor eventually broadcasts once connectivity
// returns. The file backend persists with a write-then-rename discipline,
// so a crash mid-write never corrupts the last good copy; the Postgres and
// MongoDB backends rely on the database's own durability, and the memory
// backend does not persist at all.
package queue

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Status is a queue item's delivery state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusFailed     Status = "failed"
	StatusDelivered  Status = "delivered"
)

// ErrNotFound is returned when a queue item id is unknown to the backend.
var ErrNotFound = errors.New("queue: not found")

// MaxRetries is the number of broadcast attempts before an item is
// permanently failed and its order transitioned to FAILED.
const MaxRetries = 5

// Item is a single offline payment authorization awaiting broadcast.
type Item struct {
	ID         string
	OrderID    string
	SignedTx   string
	RetryCount int
	LastRetry  *time.Time
	NextRetry  *time.Time
	Status     Status
	CreatedAt  time.Time
}

// NewItem constructs a pending queue item ready for immediate processing.
func NewItem(id, orderID, signedTx string) Item {
	return Item{
		ID:        id,
		OrderID:   orderID,
		SignedTx:  signedTx,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}
}

// IsReady reports whether the item should be picked up by the processor now:
// pending, and either never retried or its backoff window has elapsed.
func (i Item) IsReady(now time.Time) bool {
	if i.Status != StatusPending {
		return false
	}
	return i.NextRetry == nil || !i.NextRetry.After(now)
}

// ExhaustedRetries reports whether the item has used up all allowed
// broadcast attempts.
func (i Item) ExhaustedRetries() bool {
	return i.RetryCount >= MaxRetries
}

// BackoffDelay computes the exponential backoff delay for the given retry
// count: 5s * 2^(retryCount-1), capped at 5 minutes.
func BackoffDelay(retryCount int) time.Duration {
	if retryCount <= 0 {
		return 0
	}
	const (
		base = 5 * time.Second
		cap  = 5 * time.Minute
	)
	delay := base
	for i := 1; i < retryCount; i++ {
		delay *= 2
		if delay >= cap {
			return cap
		}
	}
	return delay
}

// Stats summarizes the queue's current state for monitoring and the sync
// coordinator's progress reporting. TotalAmount is expressed in the unit the
// caller's AmountLookup resolves to (crypto-token units in the bridge's
// case); the queue itself only tracks order ids, so computing it requires
// looking the originating order back up.
type Stats struct {
	Pending     int
	Processing  int
	Failed      int
	TotalAmount decimal.Decimal
	OldestItem  *time.Time
}

// AmountLookup resolves a queue item's order id to the order's crypto
// amount, so Stats can report TotalAmount without the queue package
// depending on the orders package.
type AmountLookup func(orderID string) (decimal.Decimal, bool)
