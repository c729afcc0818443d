// Package orders implements the payment order store and its state machine:
// C4 of the bridge. Orders are mutable envelopes around an immutable quote,
// moving through a small legal transition graph as broadcast, confirmation,
// and settlement progress.
package orders

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Status is a payment order's lifecycle state.
type Status string

const (
	StatusInit      Status = "INIT"
	StatusQuoted    Status = "QUOTED"
	StatusSigned    Status = "SIGNED"
	StatusPending   Status = "PENDING"
	StatusSettled   Status = "SETTLED"
	StatusCompleted Status = "COMPLETED"
	StatusExpired   Status = "EXPIRED"
	StatusCancelled Status = "CANCELLED"
	StatusFailed    Status = "FAILED"
	StatusTimeout   Status = "TIMEOUT"
)

// legalTransitions enumerates the order state machine's allowed edges.
var legalTransitions = map[Status]map[Status]bool{
	StatusInit:      {StatusQuoted: true, StatusCancelled: true},
	StatusQuoted:    {StatusSigned: true, StatusExpired: true, StatusCancelled: true},
	StatusSigned:    {StatusPending: true, StatusFailed: true},
	StatusPending:   {StatusSettled: true, StatusFailed: true, StatusTimeout: true},
	StatusSettled:   {StatusCompleted: true, StatusFailed: true},
	StatusCompleted: {},
	StatusExpired:   {},
	StatusCancelled: {},
	StatusFailed:    {},
	StatusTimeout:   {},
}

// IsTerminal reports whether a status has no further legal transitions.
func (s Status) IsTerminal() bool {
	edges, ok := legalTransitions[s]
	return ok && len(edges) == 0
}

// CanTransitionTo reports whether from -> to is a legal edge.
func (s Status) CanTransitionTo(to Status) bool {
	edges, ok := legalTransitions[s]
	return ok && edges[to]
}

// ErrIllegalTransition is returned when a requested status change is not in
// the legal transition graph.
var ErrIllegalTransition = errors.New("orders: illegal state transition")

// ErrNotFound is returned when an order id is unknown to the store.
var ErrNotFound = errors.New("orders: not found")

// Fee breaks down a quote's fee components, all in crypto-token units.
type Fee struct {
	Network decimal.Decimal
	Service decimal.Decimal
	Total   decimal.Decimal
}

// Quote is the immutable conversion offer an order is created from. It
// mirrors internal/quote.Quote's shape without importing that package, so
// an order's embedded quote survives even if the originating quote has been
// evicted from the engine's in-memory index.
type Quote struct {
	ID           string
	AmountTHB    decimal.Decimal
	AmountCrypto decimal.Decimal
	Token        string
	Rate         decimal.Decimal
	Fee          Fee
	PromptPay    *string
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// Order is a mutable envelope around a Quote, tracked through the payment
// lifecycle.
type Order struct {
	ID           string
	UserID       string
	ChatID       string
	Status       Status
	Quote        Quote
	Signature    *string
	TxHash       *string
	SettlementID *string
	Error        *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
}

// NewOrder constructs an order in the INIT state from a quote.
func NewOrder(id string, userID string, chatID string, quote Quote) Order {
	now := time.Now()
	return Order{
		ID:        id,
		UserID:    userID,
		ChatID:    chatID,
		Status:    StatusInit,
		Quote:     quote,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// validate checks the field-presence invariants. updatedAt monotonicity is
// not checked here (it requires the previous record), and the stores do not
// check it either.
func (o Order) validate() error {
	if atLeast(o.Status, StatusSigned) && (o.Signature == nil || *o.Signature == "") {
		return fmt.Errorf("orders: status %s requires a signature", o.Status)
	}
	if atLeast(o.Status, StatusPending) && (o.TxHash == nil || *o.TxHash == "") {
		return fmt.Errorf("orders: status %s requires a txHash", o.Status)
	}
	if o.Status == StatusCompleted && (o.SettlementID == nil || *o.SettlementID == "") {
		return fmt.Errorf("orders: status %s requires a settlementId", o.Status)
	}
	if o.Status == StatusCompleted && o.CompletedAt == nil {
		return fmt.Errorf("orders: status %s requires completedAt", o.Status)
	}
	if o.Status != StatusCompleted && o.CompletedAt != nil {
		return fmt.Errorf("orders: completedAt set on non-terminal-completed status %s", o.Status)
	}
	return nil
}

// statusOrder gives the semantic (non-numeric per spec, but totally ordered
// for the "≥ SIGNED" / "≥ PENDING" invariant checks) progression of the
// happy-path states. Side states are not comparable and atLeast treats them
// as not-at-least-anything past INIT.
var statusOrder = map[Status]int{
	StatusInit:      0,
	StatusQuoted:    1,
	StatusSigned:    2,
	StatusPending:   3,
	StatusSettled:   4,
	StatusCompleted: 5,
}

func atLeast(s Status, floor Status) bool {
	rank, ok := statusOrder[s]
	if !ok {
		return false
	}
	floorRank, ok := statusOrder[floor]
	if !ok {
		return false
	}
	return rank >= floorRank
}

// Transition validates and applies a status change, refreshing UpdatedAt
// and any terminal-state fields. It does not persist the result — callers
// go through a Store for that.
func Transition(o Order, to Status, opts ...TransitionOption) (Order, error) {
	if !o.Status.CanTransitionTo(to) {
		return Order{}, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, o.Status, to)
	}

	next := o
	next.Status = to
	next.UpdatedAt = time.Now()

	for _, opt := range opts {
		opt(&next)
	}

	if to == StatusCompleted {
		now := next.UpdatedAt
		next.CompletedAt = &now
	}

	if err := next.validate(); err != nil {
		return Order{}, err
	}

	return next, nil
}

// TransitionOption attaches side-effect fields (signature, txHash, etc.) to
// a transition in the same call that changes status.
type TransitionOption func(*Order)

// WithSignature attaches a transaction signature (moves to SIGNED).
func WithSignature(sig string) TransitionOption {
	return func(o *Order) { o.Signature = &sig }
}

// WithTxHash attaches a broadcast transaction hash (moves to PENDING).
func WithTxHash(hash string) TransitionOption {
	return func(o *Order) { o.TxHash = &hash }
}

// WithSettlementID attaches a settlement gateway id (moves to COMPLETED).
func WithSettlementID(id string) TransitionOption {
	return func(o *Order) { o.SettlementID = &id }
}

// WithError attaches an error message, typically alongside FAILED/TIMEOUT.
func WithError(msg string) TransitionOption {
	return func(o *Order) { o.Error = &msg }
}
