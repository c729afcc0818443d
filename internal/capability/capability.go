// Package capability defines the external-service boundaries the core
// depends on and never implements directly: Blockchain, Exchange,
// Settlement. The core accepts any implementation; production wires real
// BSC RPC/gateway clients, tests and demoMode wire the mock variants in
// this package.
package capability

import (
	"context"
	"time"

	"github.com/boonlink/bridge/internal/offlineauth"
	"github.com/boonlink/bridge/internal/qrcode"
	"github.com/shopspring/decimal"
)

// TxRequest is an unsigned transfer built by Blockchain.CreateTransferTx,
// ready to be handed to an offline signer.
type TxRequest struct {
	From   string
	To     string
	Amount decimal.Decimal
	Token  string
	Nonce  uint64
}

// Blockchain is the BSC/BEP-20 capability the processor and tool
// orchestrators depend on.
type Blockchain interface {
	GetBalance(ctx context.Context, address string, token string) (decimal.Decimal, error)
	CreateTransferTx(ctx context.Context, from, to string, amount decimal.Decimal, token string) (TxRequest, error)
	SignTransaction(ctx context.Context, tx TxRequest, authorization offlineauth.Authorization, domain offlineauth.Domain) (offlineauth.SignedAuthorization, error)
	BroadcastTransaction(ctx context.Context, signedTx string) (string, error)
	WaitForConfirmation(ctx context.Context, txHash string, confirmations uint64, timeout time.Duration) (bool, error)
}

// RateInfo mirrors internal/quote.ExchangeRate's shape without importing
// that package, so this boundary stays decoupled from the quote engine's
// internals.
type RateInfo struct {
	Token      string
	Fiat       string
	Rate       decimal.Decimal
	Source     string
	Timestamp  time.Time
	ValidUntil time.Time
}

// QuoteInfo mirrors internal/quote.Quote's externally relevant fields.
type QuoteInfo struct {
	ID               string
	AmountTHB        decimal.Decimal
	Token            string
	Rate             decimal.Decimal
	NetworkFee       decimal.Decimal // in token units
	ServiceFee       decimal.Decimal // in token units
	TotalFee         decimal.Decimal // in token units
	AmountCrypto     decimal.Decimal
	PromptPayPayload *string
	CreatedAt        time.Time
	ExpiresAt        time.Time
}

// Exchange is the rate/quote capability. It is satisfied by
// internal/quote.Engine directly (via a thin adapter) in production; the
// mock variant here exists for tests that want a fully isolated double.
type Exchange interface {
	GetRate(ctx context.Context, token string) (RateInfo, error)
	CreateQuote(ctx context.Context, amountTHB decimal.Decimal, token string, promptPay *qrcode.PromptPayData) (QuoteInfo, error)
}

// SettlementResult is the outcome of Settlement.Settle or Settlement.CheckStatus.
type SettlementResult struct {
	Success         bool
	SettlementID    string
	TransactionRef  string
	Timestamp       time.Time
	Error           string
}

// SettlementOrder is the subset of an order Settlement needs to settle
// funds, kept narrow so this package never imports internal/orders.
type SettlementOrder struct {
	ID           string
	UserID       string
	AmountCrypto decimal.Decimal
	Token        string
	TxHash       string
}

// Settlement is the payout-gateway capability. Per spec, two Settle calls
// for the same order id within a 24h window must yield an identical
// settlementId — idempotent by construction, not by the caller retrying
// carefully.
type Settlement interface {
	Settle(ctx context.Context, order SettlementOrder) (SettlementResult, error)
	CheckStatus(ctx context.Context, settlementID string) (SettlementResult, error)
}
