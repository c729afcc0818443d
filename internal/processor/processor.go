// Package processor drains the offline queue: broadcast, confirm, settle,
// retry or complete. It is the only writer that advances an order past
// PENDING, and the only reader that removes items from the queue.
package processor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/boonlink/bridge/internal/capability"
	"github.com/boonlink/bridge/internal/netquality"
	"github.com/boonlink/bridge/internal/orders"
	"github.com/boonlink/bridge/internal/queue"
)

// ErrAlreadyDraining is returned by DrainOnce when the background tick
// loop (or another DrainOnce caller) already holds the single-flight gate.
var ErrAlreadyDraining = errors.New("processor: drain already in progress")

// outcome classifies what processItem did with a single queue item, for
// callers (internal/sync's ForceSync) that need processed/failed counts.
type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeRetried
	outcomeCompleted
	outcomeFailed
)

// DefaultTickInterval is how often the processor re-checks the queue even
// without an external wake.
const DefaultTickInterval = 10 * time.Second

// DefaultConfirmations is the number of block confirmations required
// before a broadcast transaction is treated as settled on-chain.
const DefaultConfirmations = 3

// DefaultConfirmTimeout bounds a single waitForConfirmation call.
const DefaultConfirmTimeout = 60 * time.Second

// NetworkSource is the subset of netquality.Detector the processor
// depends on, kept as an interface so tests can fake connectivity without
// running real probes.
type NetworkSource interface {
	Status() netquality.Status
	Subscribe() (<-chan netquality.Transition, func())
}

// Config tunes the processor's pipeline behavior; zero values fall back to
// the package defaults.
type Config struct {
	TickInterval   time.Duration
	Confirmations  uint64
	ConfirmTimeout time.Duration
}

// Processor drains queue.Item work through broadcast -> confirm -> settle,
// single-flight per tick and network-aware between items.
type Processor struct {
	orderStore orders.Store
	queueStore queue.Store
	blockchain capability.Blockchain
	settlement capability.Settlement
	network    NetworkSource

	cfg Config

	running atomic.Bool
	wakeCh  chan struct{}
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// New constructs a Processor. Unset Config fields fall back to package
// defaults.
func New(orderStore orders.Store, queueStore queue.Store, blockchain capability.Blockchain, settlement capability.Settlement, network NetworkSource, cfg Config) *Processor {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.Confirmations == 0 {
		cfg.Confirmations = DefaultConfirmations
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = DefaultConfirmTimeout
	}

	return &Processor{
		orderStore: orderStore,
		queueStore: queueStore,
		blockchain: blockchain,
		settlement: settlement,
		network:    network,
		cfg:        cfg,
		wakeCh:     make(chan struct{}, 1),
	}
}

// Start begins the tick loop and subscribes to network-status transitions,
// waking the drain loop on any transition into ONLINE.
func (p *Processor) Start(ctx context.Context) {
	p.stopCh = make(chan struct{})

	p.wg.Add(1)
	go p.tickLoop(ctx)

	if p.network != nil {
		transitions, unsub := p.network.Subscribe()
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			defer unsub()
			for {
				select {
				case <-ctx.Done():
					return
				case <-p.stopCh:
					return
				case tr, ok := <-transitions:
					if !ok {
						return
					}
					if tr.New == netquality.Online {
						p.Notify()
					}
				}
			}
		}()
	}

	log.Info().Dur("tick_interval", p.cfg.TickInterval).Msg("processor.started")
}

// Stop halts the drain and subscription loops, implementing io.Closer's
// shape for registration with internal/lifecycle.Manager.
func (p *Processor) Stop() error {
	if p.stopCh != nil {
		close(p.stopCh)
	}
	p.wg.Wait()
	log.Info().Msg("processor.stopped")
	return nil
}

// Notify wakes the drain loop immediately rather than waiting for the next
// tick. Callers: tools.ConfirmPayment after every enqueue, whatever the
// network status (a drain pass returns at once while OFFLINE), and a
// network-status transition into ONLINE (see Start).
func (p *Processor) Notify() {
	select {
	case p.wakeCh <- struct{}{}:
	default:
	}
}

func (p *Processor) tickLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.drain(ctx)
		case <-p.wakeCh:
			p.drain(ctx)
		}
	}
}

// drain is the single-flight entrypoint: a new invocation returns
// immediately if one is already active.
func (p *Processor) drain(ctx context.Context) {
	if !p.running.CompareAndSwap(false, true) {
		return
	}
	defer p.running.Store(false)
	p.drainLocked(ctx, nil)
}

// DrainOnce runs a single full drain pass and reports processed/failed
// counts, for internal/sync's ForceSync to delegate to. It shares the
// single-flight gate with the background tick loop: if a drain is already
// in progress, it returns ErrAlreadyDraining rather than racing it.
// progress, if non-nil, is called after every item with the running
// processed/failed/total tally.
func (p *Processor) DrainOnce(ctx context.Context, progress func(processed, failed, total int)) (processed, failed int, err error) {
	if !p.running.CompareAndSwap(false, true) {
		return 0, 0, ErrAlreadyDraining
	}
	defer p.running.Store(false)
	processed, failed = p.drainLocked(ctx, progress)
	return processed, failed, nil
}

// drainLocked performs one drain pass; the caller must already hold the
// single-flight gate.
func (p *Processor) drainLocked(ctx context.Context, progress func(processed, failed, total int)) (processed, failed int) {
	if p.network != nil && p.network.Status() == netquality.Offline {
		return 0, 0
	}

	items, err := p.queueStore.GetReadyItems(ctx, time.Now())
	if err != nil {
		log.Error().Err(err).Msg("processor.get_ready_items_failed")
		return 0, 0
	}

	total := len(items)
	for _, item := range items {
		if p.network != nil && p.network.Status() == netquality.Offline {
			log.Info().Msg("processor.drain_paused_offline")
			break
		}
		switch p.processItem(ctx, item) {
		case outcomeCompleted:
			processed++
		case outcomeFailed:
			failed++
		}
		if progress != nil {
			progress(processed, failed, total)
		}
	}
	return processed, failed
}

func (p *Processor) processItem(ctx context.Context, item queue.Item) outcome {
	logEvent := log.With().Str("queue_item_id", item.ID).Str("order_id", item.OrderID).Logger()

	order, err := p.orderStore.Get(ctx, item.OrderID)
	if err != nil {
		logEvent.Error().Err(err).Msg("processor.order_lookup_failed")
		return outcomeSkipped
	}

	// Idempotent replay guard: an order already past SETTLED for this item
	// means a previous run finished the pipeline but failed to dequeue.
	if order.Status == orders.StatusCompleted || order.Status.IsTerminal() {
		if err := p.queueStore.Dequeue(ctx, item.ID); err != nil && err != queue.ErrNotFound {
			logEvent.Error().Err(err).Msg("processor.dequeue_stale_item_failed")
		}
		return outcomeSkipped
	}

	txHash := order.TxHash
	if txHash == nil || *txHash == "" {
		// Broadcasting an already-broadcast blob is idempotent: the mock
		// (and any real RPC client worth using) derives the hash from the
		// blob's content, so a replay yields the same txHash rather than a
		// new transaction.
		hash, err := p.blockchain.BroadcastTransaction(ctx, item.SignedTx)
		if err != nil {
			logEvent.Error().Err(err).Msg("processor.broadcast_failed")
			return p.scheduleRetry(ctx, item, order, "Transaction not confirmed")
		}
		txHash = &hash
	}

	// PENDING requires a txHash, so the order moves to PENDING together
	// with the hash the broadcast returned.
	if order.Status.CanTransitionTo(orders.StatusPending) {
		next, err := orders.Transition(order, orders.StatusPending, orders.WithTxHash(*txHash))
		if err != nil {
			logEvent.Error().Err(err).Msg("processor.transition_pending_failed")
			return outcomeSkipped
		}
		if err := p.orderStore.Update(ctx, next); err != nil {
			logEvent.Error().Err(err).Msg("processor.persist_pending_failed")
			return outcomeSkipped
		}
		order = next
	}

	confirmed, err := p.blockchain.WaitForConfirmation(ctx, *txHash, p.cfg.Confirmations, p.cfg.ConfirmTimeout)
	if err != nil || !confirmed {
		if err != nil {
			logEvent.Warn().Err(err).Msg("processor.confirmation_error")
		}
		return p.scheduleRetry(ctx, item, order, "Transaction not confirmed")
	}

	if order.Status.CanTransitionTo(orders.StatusSettled) {
		next, err := orders.Transition(order, orders.StatusSettled)
		if err != nil {
			logEvent.Error().Err(err).Msg("processor.transition_settled_failed")
			return outcomeSkipped
		}
		if err := p.orderStore.Update(ctx, next); err != nil {
			logEvent.Error().Err(err).Msg("processor.persist_settled_failed")
			return outcomeSkipped
		}
		order = next
	}

	result, err := p.settlement.Settle(ctx, capability.SettlementOrder{
		ID:           order.ID,
		UserID:       order.UserID,
		AmountCrypto: order.Quote.AmountCrypto,
		Token:        order.Quote.Token,
		TxHash:       *txHash,
	})
	if err != nil || !result.Success {
		return p.scheduleRetry(ctx, item, order, "Settlement failed")
	}

	next, err := orders.Transition(order, orders.StatusCompleted, orders.WithSettlementID(result.SettlementID))
	if err != nil {
		logEvent.Error().Err(err).Msg("processor.transition_completed_failed")
		return outcomeSkipped
	}
	if err := p.orderStore.Update(ctx, next); err != nil {
		logEvent.Error().Err(err).Msg("processor.persist_completed_failed")
		return outcomeSkipped
	}
	if err := p.queueStore.Dequeue(ctx, item.ID); err != nil && err != queue.ErrNotFound {
		logEvent.Error().Err(err).Msg("processor.dequeue_failed")
	}

	logEvent.Info().Str("settlement_id", result.SettlementID).Msg("processor.order_completed")
	return outcomeCompleted
}

// scheduleRetry increments the item's retry count and reschedules it, or
// marks the order FAILED and drops the item once retries are exhausted.
// It returns outcomeFailed once retries are exhausted, outcomeRetried
// otherwise.
func (p *Processor) scheduleRetry(ctx context.Context, item queue.Item, order orders.Order, reason string) outcome {
	logEvent := log.With().Str("queue_item_id", item.ID).Str("order_id", item.OrderID).Logger()

	retryCount := item.RetryCount + 1
	if retryCount >= queue.MaxRetries {
		message := fmt.Sprintf("Max retries exceeded: %s", reason)
		if order.Status.CanTransitionTo(orders.StatusFailed) {
			next, err := orders.Transition(order, orders.StatusFailed, orders.WithError(message))
			if err == nil {
				if err := p.orderStore.Update(ctx, next); err != nil {
					logEvent.Error().Err(err).Msg("processor.persist_failed_status_failed")
				}
			} else {
				logEvent.Error().Err(err).Msg("processor.transition_failed_failed")
			}
		}
		if err := p.queueStore.Dequeue(ctx, item.ID); err != nil && err != queue.ErrNotFound {
			logEvent.Error().Err(err).Msg("processor.dequeue_exhausted_failed")
		}
		logEvent.Warn().Str("reason", reason).Msg("processor.retries_exhausted")
		return outcomeFailed
	}

	now := time.Now()
	nextRetry := now.Add(queue.BackoffDelay(retryCount))
	if err := p.queueStore.UpdateRetry(ctx, item.ID, retryCount, now, nextRetry); err != nil {
		logEvent.Error().Err(err).Msg("processor.update_retry_failed")
		return outcomeSkipped
	}

	order.Error = &reason
	order.UpdatedAt = now
	if err := p.orderStore.Update(ctx, order); err != nil {
		logEvent.Error().Err(err).Msg("processor.persist_retry_reason_failed")
	}

	logEvent.Info().Int("retry_count", retryCount).Time("next_retry", nextRetry).Str("reason", reason).Msg("processor.retry_scheduled")
	return outcomeRetried
}
