package capability

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/boonlink/bridge/internal/circuitbreaker"
	"github.com/boonlink/bridge/internal/offlineauth"
	"github.com/boonlink/bridge/internal/qrcode"
)

// breakingBlockchain wraps a Blockchain with bulkhead isolation via
// circuitbreaker.Manager, so a degraded BSC RPC endpoint fails fast instead
// of piling up blocked calls.
type breakingBlockchain struct {
	inner   Blockchain
	breaker *circuitbreaker.Manager
}

// WithBlockchainBreaker wraps inner with circuit-breaker protection.
func WithBlockchainBreaker(inner Blockchain, breaker *circuitbreaker.Manager) Blockchain {
	return &breakingBlockchain{inner: inner, breaker: breaker}
}

func (b *breakingBlockchain) GetBalance(ctx context.Context, address, token string) (decimal.Decimal, error) {
	result, err := b.breaker.Execute(circuitbreaker.ServiceBlockchain, func() (interface{}, error) {
		return b.inner.GetBalance(ctx, address, token)
	})
	if err != nil {
		return decimal.Zero, err
	}
	return result.(decimal.Decimal), nil
}

func (b *breakingBlockchain) CreateTransferTx(ctx context.Context, from, to string, amount decimal.Decimal, token string) (TxRequest, error) {
	result, err := b.breaker.Execute(circuitbreaker.ServiceBlockchain, func() (interface{}, error) {
		return b.inner.CreateTransferTx(ctx, from, to, amount, token)
	})
	if err != nil {
		return TxRequest{}, err
	}
	return result.(TxRequest), nil
}

func (b *breakingBlockchain) SignTransaction(ctx context.Context, tx TxRequest, authorization offlineauth.Authorization, domain offlineauth.Domain) (offlineauth.SignedAuthorization, error) {
	// Signing never touches the network — no breaker needed.
	return b.inner.SignTransaction(ctx, tx, authorization, domain)
}

func (b *breakingBlockchain) BroadcastTransaction(ctx context.Context, signedTx string) (string, error) {
	result, err := b.breaker.Execute(circuitbreaker.ServiceBlockchain, func() (interface{}, error) {
		return b.inner.BroadcastTransaction(ctx, signedTx)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (b *breakingBlockchain) WaitForConfirmation(ctx context.Context, txHash string, confirmations uint64, timeout time.Duration) (bool, error) {
	result, err := b.breaker.Execute(circuitbreaker.ServiceBlockchain, func() (interface{}, error) {
		return b.inner.WaitForConfirmation(ctx, txHash, confirmations, timeout)
	})
	if err != nil {
		return false, err
	}
	return result.(bool), nil
}

// breakingExchange wraps an Exchange with circuit-breaker protection for
// the upstream rate source.
type breakingExchange struct {
	inner   Exchange
	breaker *circuitbreaker.Manager
}

// WithExchangeBreaker wraps inner with circuit-breaker protection.
func WithExchangeBreaker(inner Exchange, breaker *circuitbreaker.Manager) Exchange {
	return &breakingExchange{inner: inner, breaker: breaker}
}

func (e *breakingExchange) GetRate(ctx context.Context, token string) (RateInfo, error) {
	result, err := e.breaker.Execute(circuitbreaker.ServiceExchange, func() (interface{}, error) {
		return e.inner.GetRate(ctx, token)
	})
	if err != nil {
		return RateInfo{}, err
	}
	return result.(RateInfo), nil
}

func (e *breakingExchange) CreateQuote(ctx context.Context, amountTHB decimal.Decimal, token string, promptPay *qrcode.PromptPayData) (QuoteInfo, error) {
	result, err := e.breaker.Execute(circuitbreaker.ServiceExchange, func() (interface{}, error) {
		return e.inner.CreateQuote(ctx, amountTHB, token, promptPay)
	})
	if err != nil {
		return QuoteInfo{}, err
	}
	return result.(QuoteInfo), nil
}

// breakingSettlement wraps a Settlement with circuit-breaker protection for
// the upstream payout gateway.
type breakingSettlement struct {
	inner   Settlement
	breaker *circuitbreaker.Manager
}

// WithSettlementBreaker wraps inner with circuit-breaker protection.
func WithSettlementBreaker(inner Settlement, breaker *circuitbreaker.Manager) Settlement {
	return &breakingSettlement{inner: inner, breaker: breaker}
}

func (s *breakingSettlement) Settle(ctx context.Context, order SettlementOrder) (SettlementResult, error) {
	result, err := s.breaker.Execute(circuitbreaker.ServiceSettlement, func() (interface{}, error) {
		return s.inner.Settle(ctx, order)
	})
	if err != nil {
		return SettlementResult{}, err
	}
	return result.(SettlementResult), nil
}

func (s *breakingSettlement) CheckStatus(ctx context.Context, settlementID string) (SettlementResult, error) {
	result, err := s.breaker.Execute(circuitbreaker.ServiceSettlement, func() (interface{}, error) {
		return s.inner.CheckStatus(ctx, settlementID)
	})
	if err != nil {
		return SettlementResult{}, err
	}
	return result.(SettlementResult), nil
}
