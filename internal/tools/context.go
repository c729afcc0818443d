// Package tools implements the bridge's external tool surface: thin,
// validated entrypoints over the core (C1-C8, C10), each returning a
// {success, ..., error?} result rather than raising. This is the context
// struct design notes ask for in place of process-wide singletons: every
// tool is a method on *Context, holding one instance of each capability and
// store, passed by reference rather than reached for as a global.
package tools

import (
	"net/http"
	"sync"
	"time"

	"github.com/boonlink/bridge/internal/capability"
	"github.com/boonlink/bridge/internal/netquality"
	"github.com/boonlink/bridge/internal/orders"
	"github.com/boonlink/bridge/internal/queue"
)

// DefaultImageFetchTimeout bounds scan_qr's HTTP fetch of a QR image.
const DefaultImageFetchTimeout = 10 * time.Second

// DefaultSyncAwaitWindow bounds how long confirm_payment polls for
// synchronous completion before returning the async result.
const DefaultSyncAwaitWindow = 2 * time.Second

// NetworkSource is the subset of netquality.Detector tools consult to avoid
// waiting on a broadcast that can't happen.
type NetworkSource interface {
	Status() netquality.Status
}

// Notifier is the subset of processor.Processor tools use to wake the drain
// loop immediately after enqueuing, instead of waiting for the next tick.
type Notifier interface {
	Notify()
}

// Context holds one instance of every capability and store the tools need.
// Construct with New; fields are safe for concurrent use by multiple tool
// calls.
type Context struct {
	Exchange     capability.Exchange
	Blockchain   capability.Blockchain
	Settlement   capability.Settlement
	QRRecognizer capability.QRRecognizer

	OrderStore orders.Store
	QueueStore queue.Store

	Network  NetworkSource
	Notifier Notifier

	HTTPClient *http.Client

	ChainID           int64
	VerifyingContract string
	CollectionAddress string
	Confirmations     uint64

	quoteMu sync.Mutex
	quotes  map[string]capability.QuoteInfo
}

// New constructs a Context. HTTPClient defaults to one built with
// DefaultImageFetchTimeout if nil.
func New(exchange capability.Exchange, blockchain capability.Blockchain, settlement capability.Settlement, qr capability.QRRecognizer, orderStore orders.Store, queueStore queue.Store, network NetworkSource, notifier Notifier) *Context {
	return &Context{
		Exchange:      exchange,
		Blockchain:    blockchain,
		Settlement:    settlement,
		QRRecognizer:  qr,
		OrderStore:    orderStore,
		QueueStore:    queueStore,
		Network:       network,
		Notifier:      notifier,
		HTTPClient:    &http.Client{Timeout: DefaultImageFetchTimeout},
		Confirmations: 3,
		quotes:        make(map[string]capability.QuoteInfo),
	}
}

// putQuote records a freshly created quote in the short-lived in-memory
// index (distinct from the order store so quote eviction never loses an
// order that already consumed it).
func (c *Context) putQuote(q capability.QuoteInfo) {
	c.quoteMu.Lock()
	defer c.quoteMu.Unlock()
	c.quotes[q.ID] = q
}

// getQuote looks up a quote by id. The caller still must check expiry:
// a quote past its ExpiresAt stays indexed until evicted, since "found but
// expired" and "never existed" are different error messages to the caller.
func (c *Context) getQuote(id string) (capability.QuoteInfo, bool) {
	c.quoteMu.Lock()
	defer c.quoteMu.Unlock()
	q, ok := c.quotes[id]
	return q, ok
}
