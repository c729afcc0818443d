package capability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/boonlink/bridge/internal/qrcode"
	"github.com/shopspring/decimal"
)

// mockNetworkFeeTableTHB mirrors internal/quote.Engine's flat per-token network
// fee, denominated in THB before conversion to the quoted token.
var mockNetworkFeeTableTHB = map[string]decimal.Decimal{
	"USDT": decimal.NewFromInt(5),
	"USDC": decimal.NewFromInt(5),
	"ETH":  decimal.NewFromInt(15),
}

// mockServiceFeeRate mirrors internal/quote.Engine's percentage fee on the
// base crypto amount.
var mockServiceFeeRate = decimal.NewFromFloat(0.005)

// MockExchange is a fully isolated Exchange double for tests that don't
// want the real rate cache's network-fallback behavior.
type MockExchange struct {
	mu     sync.Mutex
	rates  map[string]RateInfo
	quotes map[string]QuoteInfo
	serial int
}

// NewMockExchange builds a mock with no rates seeded; call SeedRate before use.
func NewMockExchange() *MockExchange {
	return &MockExchange{
		rates:  make(map[string]RateInfo),
		quotes: make(map[string]QuoteInfo),
	}
}

// SeedRate installs a fixed rate for a token.
func (m *MockExchange) SeedRate(token string, rate decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rates[token] = RateInfo{
		Token:      token,
		Fiat:       "THB",
		Rate:       rate,
		Source:     "mock",
		Timestamp:  time.Now(),
		ValidUntil: time.Now().Add(5 * time.Minute),
	}
}

func (m *MockExchange) GetRate(ctx context.Context, token string) (RateInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rate, ok := m.rates[token]
	if !ok {
		return RateInfo{}, fmt.Errorf("capability: no mock rate seeded for %q", token)
	}
	return rate, nil
}

func (m *MockExchange) CreateQuote(ctx context.Context, amountTHB decimal.Decimal, token string, promptPay *qrcode.PromptPayData) (QuoteInfo, error) {
	rate, err := m.GetRate(ctx, token)
	if err != nil {
		return QuoteInfo{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.serial++
	id := fmt.Sprintf("quote_mock_%d", m.serial)
	now := time.Now()

	var payload *string
	if promptPay != nil {
		payload = &promptPay.RawPayload
	}

	baseCrypto := amountTHB.Div(rate.Rate)
	networkFee := mockNetworkFeeTableTHB[token].Div(rate.Rate)
	serviceFee := baseCrypto.Mul(mockServiceFeeRate)
	totalFee := networkFee.Add(serviceFee)

	q := QuoteInfo{
		ID:               id,
		AmountTHB:        amountTHB,
		Token:            token,
		Rate:             rate.Rate,
		NetworkFee:       networkFee,
		ServiceFee:       serviceFee,
		TotalFee:         totalFee,
		AmountCrypto:     baseCrypto.Add(totalFee),
		PromptPayPayload: payload,
		CreatedAt:        now,
		ExpiresAt:        now.Add(5 * time.Minute),
	}
	m.quotes[id] = q
	return q, nil
}
