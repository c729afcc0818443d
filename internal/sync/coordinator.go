package sync

import (
	"context"
	"errors"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/boonlink/bridge/internal/netquality"
	"github.com/boonlink/bridge/internal/orders"
)

// ErrAlreadySyncing is returned by ForceSync when a run is already active.
// This is the coordinator's own flag, distinct from the processor's
// single-flight drain gate.
var ErrAlreadySyncing = errors.New("sync: a force-sync is already in progress")

// ErrNetworkOffline is returned by ForceSync when connectivity is OFFLINE.
var ErrNetworkOffline = errors.New("sync: network is offline")

// DefaultCleanupRetention is how long a COMPLETED order is kept before
// CleanupOldOrders removes it, when olderThanDays is not overridden by the
// caller.
const DefaultCleanupRetention = 90 * 24 * time.Hour

// Drainer is the subset of processor.Processor the coordinator delegates
// draining to, kept as an interface so tests can fake it without a real
// queue/blockchain/settlement wiring.
type Drainer interface {
	DrainOnce(ctx context.Context, progress func(processed, failed, total int)) (processed, failed int, err error)
}

// NetworkSource is the subset of netquality.Detector ForceSync consults
// before delegating to the drainer.
type NetworkSource interface {
	Status() netquality.Status
}

// Coordinator exposes operator-facing force-sync and cleanup entrypoints on
// top of the processor's background drain loop.
type Coordinator struct {
	drainer    Drainer
	network    NetworkSource
	orderStore orders.Store

	mu      stdsync.Mutex
	syncing bool

	subMu  stdsync.Mutex
	subs   map[int]chan Event
	subSeq int
}

// New constructs a Coordinator.
func New(drainer Drainer, network NetworkSource, orderStore orders.Store) *Coordinator {
	return &Coordinator{
		drainer:    drainer,
		network:    network,
		orderStore: orderStore,
		subs:       make(map[int]chan Event),
	}
}

// Subscribe registers for sync Events. The returned channel is buffered; a
// slow subscriber drops events rather than blocking a sync run. Call the
// returned unsubscribe func to stop receiving and release the channel.
func (c *Coordinator) Subscribe() (<-chan Event, func()) {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	id := c.subSeq
	c.subSeq++
	ch := make(chan Event, 16)
	c.subs[id] = ch

	unsub := func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		if existing, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(existing)
		}
	}
	return ch, unsub
}

func (c *Coordinator) publish(ev Event) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// ForceSync drains the offline queue immediately, bypassing the processor's
// tick interval. It refuses to start a second concurrent run and refuses to
// start at all while connectivity is OFFLINE, per the bridge's "don't
// attempt broadcast with no network" rule.
func (c *Coordinator) ForceSync(ctx context.Context) error {
	c.mu.Lock()
	if c.syncing {
		c.mu.Unlock()
		return ErrAlreadySyncing
	}
	if c.network != nil && c.network.Status() == netquality.Offline {
		c.mu.Unlock()
		return ErrNetworkOffline
	}
	c.syncing = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.syncing = false
		c.mu.Unlock()
	}()

	log.Info().Msg("sync.force_sync_started")
	c.publish(Event{Type: EventSyncStarted})

	progress := func(processed, failed, total int) {
		c.publish(Event{Type: EventSyncProgress, Total: total, Processed: processed, Failed: failed})
	}

	processed, failed, err := c.drainer.DrainOnce(ctx, progress)
	if err != nil {
		log.Error().Err(err).Msg("sync.force_sync_failed")
		c.publish(Event{Type: EventSyncFailed, Error: err.Error()})
		return fmt.Errorf("force sync: %w", err)
	}

	log.Info().Int("processed", processed).Int("failed", failed).Msg("sync.force_sync_completed")
	c.publish(Event{Type: EventSyncCompleted, Total: processed + failed, Processed: processed, Failed: failed})
	return nil
}

// CleanupOldOrders removes COMPLETED orders whose CompletedAt is older than
// olderThanDays (DefaultCleanupRetention if olderThanDays <= 0), returning
// the number removed.
func (c *Coordinator) CleanupOldOrders(ctx context.Context, olderThanDays int) (int, error) {
	retention := DefaultCleanupRetention
	if olderThanDays > 0 {
		retention = time.Duration(olderThanDays) * 24 * time.Hour
	}
	cutoff := time.Now().Add(-retention)

	completed, err := c.orderStore.ListByStatus(ctx, orders.StatusCompleted)
	if err != nil {
		return 0, fmt.Errorf("list completed orders: %w", err)
	}

	removed := 0
	for _, order := range completed {
		if order.CompletedAt == nil || !order.CompletedAt.Before(cutoff) {
			continue
		}
		if err := c.orderStore.Delete(ctx, order.ID); err != nil {
			log.Error().Err(err).Str("order_id", order.ID).Msg("sync.cleanup_delete_failed")
			continue
		}
		removed++
	}

	log.Info().Int("removed", removed).Time("cutoff", cutoff).Msg("sync.cleanup_completed")
	return removed, nil
}
