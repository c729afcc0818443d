package quote

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultMaxAmountTHB is the default per-quote ceiling, overridable via
// config.
const DefaultMaxAmountTHB = 10000

// QuoteTTL is how long a quote remains confirmable after creation.
const QuoteTTL = 180 * time.Second

// ErrAmountTooLarge is returned when a requested amount exceeds the
// configured maximum.
var ErrAmountTooLarge = errors.New("quote: amount exceeds maximum")

// ErrInvalidAmount is returned for non-positive requested amounts.
var ErrInvalidAmount = errors.New("quote: amount must be positive")

// ErrUnsupportedToken is returned for a token outside the supported set.
var ErrUnsupportedToken = errors.New("quote: unsupported token")

// ErrQuoteNotFound is returned when looking up an unknown quote id.
var ErrQuoteNotFound = errors.New("quote: not found")

// ErrQuoteExpired is returned when a quote is looked up after its TTL.
var ErrQuoteExpired = errors.New("quote: expired")

// networkFeeTableTHB is the flat network fee charged per transaction,
// denominated in THB before conversion to the quoted token.
var networkFeeTableTHB = map[Token]decimal.Decimal{
	TokenUSDT: decimal.NewFromInt(5),
	TokenUSDC: decimal.NewFromInt(5),
	TokenETH:  decimal.NewFromInt(15),
}

// serviceFeeRate is the bridge's percentage fee on the base crypto amount
// (amountTHB / rate).
var serviceFeeRate = decimal.NewFromFloat(0.005)

// Quote is a fee-inclusive conversion offer, valid until ExpiresAt.
type Quote struct {
	ID            string
	AmountTHB     decimal.Decimal
	Token         Token
	Rate          decimal.Decimal
	NetworkFee    decimal.Decimal // in token units
	ServiceFee    decimal.Decimal // in token units
	TotalFee      decimal.Decimal // in token units
	AmountCrypto  decimal.Decimal // total crypto the payer must send
	PromptPayPayload *string
	CreatedAt     time.Time
	ExpiresAt     time.Time
}

// Engine computes and tracks quotes.
type Engine struct {
	cache     *RateCache
	maxAmount decimal.Decimal
	mu        sync.Mutex
	quotes    map[string]Quote
}

// NewEngine constructs a quote Engine with the given rate source and
// maximum THB amount (pass 0 to use DefaultMaxAmountTHB).
func NewEngine(source RateSource, maxAmountTHB float64) *Engine {
	max := decimal.NewFromFloat(maxAmountTHB)
	if maxAmountTHB <= 0 {
		max = decimal.NewFromInt(DefaultMaxAmountTHB)
	}
	return &Engine{
		cache:     NewRateCache(source),
		maxAmount: max,
		quotes:    make(map[string]Quote),
	}
}

// CreateQuote builds a fee-inclusive quote for amountTHB converted to
// token, optionally attaching a PromptPay payload for the fiat leg.
func (e *Engine) CreateQuote(ctx context.Context, amountTHB decimal.Decimal, token Token, promptPayPayload *string) (Quote, error) {
	if !ValidToken(token) {
		return Quote{}, fmt.Errorf("%w: %q", ErrUnsupportedToken, token)
	}
	if amountTHB.LessThanOrEqual(decimal.Zero) {
		return Quote{}, ErrInvalidAmount
	}
	if amountTHB.GreaterThan(e.maxAmount) {
		return Quote{}, fmt.Errorf("%w: %s > %s", ErrAmountTooLarge, amountTHB.String(), e.maxAmount.String())
	}

	rate, err := e.cache.Get(ctx, token)
	if err != nil {
		return Quote{}, fmt.Errorf("quote: fetch rate: %w", err)
	}
	if rate.Rate.LessThanOrEqual(decimal.Zero) {
		return Quote{}, fmt.Errorf("quote: non-positive rate from %s", rate.Source)
	}

	baseCrypto := amountTHB.Div(rate.Rate)
	networkFee := networkFeeTableTHB[token].Div(rate.Rate)
	serviceFee := baseCrypto.Mul(serviceFeeRate)
	totalFee := networkFee.Add(serviceFee)
	amountCrypto := baseCrypto.Add(totalFee)

	now := time.Now()
	q := Quote{
		ID:               uuid.New().String(),
		AmountTHB:        amountTHB,
		Token:            token,
		Rate:             rate.Rate,
		NetworkFee:       networkFee,
		ServiceFee:       serviceFee,
		TotalFee:         totalFee,
		AmountCrypto:     amountCrypto,
		PromptPayPayload: promptPayPayload,
		CreatedAt:        now,
		ExpiresAt:        now.Add(QuoteTTL),
	}

	e.mu.Lock()
	e.quotes[q.ID] = q
	e.mu.Unlock()

	return q, nil
}

// Lookup returns a previously created quote by id, erroring if unknown or
// expired.
func (e *Engine) Lookup(id string, now time.Time) (Quote, error) {
	e.mu.Lock()
	q, ok := e.quotes[id]
	e.mu.Unlock()

	if !ok {
		return Quote{}, ErrQuoteNotFound
	}
	if now.After(q.ExpiresAt) {
		return Quote{}, ErrQuoteExpired
	}
	return q, nil
}

// Rates returns the current cached-or-fetched rate for every supported
// token, used by the get_exchange_rates tool.
func (e *Engine) Rates(ctx context.Context) ([]ExchangeRate, error) {
	tokens := []Token{TokenUSDT, TokenUSDC, TokenETH}
	rates := make([]ExchangeRate, 0, len(tokens))
	for _, tok := range tokens {
		r, err := e.cache.Get(ctx, tok)
		if err != nil {
			return nil, fmt.Errorf("quote: fetch rate for %s: %w", tok, err)
		}
		rates = append(rates, r)
	}
	return rates, nil
}
