package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/boonlink/bridge/internal/money"
	"github.com/boonlink/bridge/internal/netquality"
	"github.com/boonlink/bridge/internal/offlineauth"
	"github.com/boonlink/bridge/internal/orders"
	"github.com/boonlink/bridge/internal/queue"
)

// DefaultAuthorizationTTL bounds how long a signed offline authorization
// remains broadcastable before its deadline passes.
const DefaultAuthorizationTTL = 10 * time.Minute

// ConfirmPaymentResult is confirm_payment's {success, ..., error?} result.
type ConfirmPaymentResult struct {
	Success bool
	Order   *orders.Order
	TxHash  string
	Error   string
}

// ConfirmPayment looks up a quote, opens an order, checks wallet balance,
// builds and signs a transfer, and enqueues it for the processor. On the
// synchronous happy path (network good, processor drains immediately) it
// briefly awaits completion before returning.
func (c *Context) ConfirmPayment(ctx context.Context, quoteID, walletAddress, userID, chatID string) ConfirmPaymentResult {
	q, ok := c.getQuote(quoteID)
	if !ok {
		return ConfirmPaymentResult{Success: false, Error: "Quote not found"}
	}
	if time.Now().After(q.ExpiresAt) {
		return ConfirmPaymentResult{Success: false, Error: "Quote has expired"}
	}

	var promptPay *string
	if q.PromptPayPayload != nil {
		payload := *q.PromptPayPayload
		promptPay = &payload
	}

	order := orders.NewOrder(uuid.New().String(), userID, chatID, orders.Quote{
		ID:           q.ID,
		AmountTHB:    q.AmountTHB,
		AmountCrypto: q.AmountCrypto,
		Token:        q.Token,
		Rate:         q.Rate,
		Fee: orders.Fee{
			Network: q.NetworkFee,
			Service: q.ServiceFee,
			Total:   q.TotalFee,
		},
		PromptPay: promptPay,
		CreatedAt: q.CreatedAt,
		ExpiresAt: q.ExpiresAt,
	})

	if err := c.OrderStore.Create(ctx, order); err != nil {
		return ConfirmPaymentResult{Success: false, Error: fmt.Sprintf("create order: %v", err)}
	}

	quoted, err := orders.Transition(order, orders.StatusQuoted)
	if err != nil {
		return ConfirmPaymentResult{Success: false, Error: err.Error()}
	}
	if err := c.OrderStore.Update(ctx, quoted); err != nil {
		return ConfirmPaymentResult{Success: false, Error: err.Error()}
	}
	order = quoted

	balance, err := c.Blockchain.GetBalance(ctx, walletAddress, q.Token)
	if err != nil {
		c.failOrder(ctx, order, fmt.Sprintf("balance check failed: %v", err))
		return ConfirmPaymentResult{Success: false, Error: err.Error()}
	}
	if balance.LessThan(q.AmountCrypto) {
		failed := c.failOrder(ctx, order, "Insufficient balance")
		return ConfirmPaymentResult{Success: false, Order: &failed, Error: "Insufficient balance"}
	}

	tx, err := c.Blockchain.CreateTransferTx(ctx, walletAddress, c.CollectionAddress, q.AmountCrypto, q.Token)
	if err != nil {
		failed := c.failOrder(ctx, order, fmt.Sprintf("build transfer: %v", err))
		return ConfirmPaymentResult{Success: false, Order: &failed, Error: err.Error()}
	}

	asset, err := money.GetAsset(q.Token)
	if err != nil {
		failed := c.failOrder(ctx, order, fmt.Sprintf("unknown token: %v", err))
		return ConfirmPaymentResult{Success: false, Order: &failed, Error: err.Error()}
	}
	amountBaseUnits := q.AmountCrypto.Shift(int32(asset.Decimals)).BigInt()

	domain := offlineauth.DefaultDomain(c.ChainID, c.VerifyingContract)
	authorization := offlineauth.Authorization{
		OrderID:   order.ID,
		Token:     q.Token,
		Amount:    amountBaseUnits,
		Recipient: c.CollectionAddress,
		Nonce:     tx.Nonce,
		Deadline:  time.Now().Add(DefaultAuthorizationTTL).Unix(),
	}

	signed, err := c.Blockchain.SignTransaction(ctx, tx, authorization, domain)
	if err != nil {
		failed := c.failOrder(ctx, order, fmt.Sprintf("sign transaction: %v", err))
		return ConfirmPaymentResult{Success: false, Order: &failed, Error: err.Error()}
	}

	signedBlob, err := json.Marshal(signed)
	if err != nil {
		failed := c.failOrder(ctx, order, fmt.Sprintf("encode signature: %v", err))
		return ConfirmPaymentResult{Success: false, Order: &failed, Error: err.Error()}
	}

	next, err := orders.Transition(order, orders.StatusSigned, orders.WithSignature(signed.Signature))
	if err != nil {
		return ConfirmPaymentResult{Success: false, Error: err.Error()}
	}
	if err := c.OrderStore.Update(ctx, next); err != nil {
		return ConfirmPaymentResult{Success: false, Error: err.Error()}
	}
	order = next

	item := queue.NewItem(uuid.New().String(), order.ID, string(signedBlob))
	if err := c.QueueStore.Enqueue(ctx, item); err != nil {
		failed := c.failOrder(ctx, order, fmt.Sprintf("enqueue: %v", err))
		return ConfirmPaymentResult{Success: false, Order: &failed, Error: fmt.Sprintf("enqueue: %v", err)}
	}

	if c.Notifier != nil {
		c.Notifier.Notify()
	}

	final := c.awaitCompletion(ctx, order.ID, order)

	result := ConfirmPaymentResult{Success: true, Order: &final}
	if final.TxHash != nil {
		result.TxHash = *final.TxHash
	}
	return result
}

// failOrder transitions order to FAILED with reason and persists it,
// returning the updated order (or the original, unmodified, if the
// transition or persist itself fails — a failed failure-path leaves the
// caller's record as the last known-good state rather than a partial one).
func (c *Context) failOrder(ctx context.Context, order orders.Order, reason string) orders.Order {
	if !order.Status.CanTransitionTo(orders.StatusFailed) {
		return order
	}
	next, err := orders.Transition(order, orders.StatusFailed, orders.WithError(reason))
	if err != nil {
		return order
	}
	if err := c.OrderStore.Update(ctx, next); err != nil {
		return order
	}
	return next
}

// awaitCompletion polls briefly for the processor to finish draining so the
// synchronous happy-path caller gets a terminal order back without a second
// round trip. It never blocks past DefaultSyncAwaitWindow, and returns
// immediately without polling at all when the network is already OFFLINE
// (no point waiting on a drain that won't run).
func (c *Context) awaitCompletion(ctx context.Context, orderID string, fallback orders.Order) orders.Order {
	if c.Network != nil && c.Network.Status() == netquality.Offline {
		return fallback
	}

	deadline := time.Now().Add(DefaultSyncAwaitWindow)
	for time.Now().Before(deadline) {
		current, err := c.OrderStore.Get(ctx, orderID)
		if err == nil && (current.Status == orders.StatusCompleted || current.Status.IsTerminal()) {
			return current
		}
		select {
		case <-ctx.Done():
			return fallback
		case <-time.After(20 * time.Millisecond):
		}
	}

	current, err := c.OrderStore.Get(ctx, orderID)
	if err != nil {
		return fallback
	}
	return current
}
