// Package quote implements the rate cache and fee-inclusive quote engine:
// C3 of the bridge. Rates are retrieved through a RateSource capability
// with three concrete variants (mock, Thai-local, global), all of which
// fall back to the mock on upstream failure, and cached for a five-minute
// validity window.
package quote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Token is a supported crypto asset on the BSC settlement rail.
type Token string

const (
	TokenUSDT Token = "USDT"
	TokenUSDC Token = "USDC"
	TokenETH  Token = "ETH"
)

// ValidToken reports whether t is one of the three supported tokens.
func ValidToken(t Token) bool {
	switch t {
	case TokenUSDT, TokenUSDC, TokenETH:
		return true
	default:
		return false
	}
}

// FiatTHB is the only fiat leg this bridge quotes against.
const FiatTHB = "THB"

// ExchangeRate is a single token/fiat rate observation.
type ExchangeRate struct {
	Token     Token
	Fiat      string
	Rate      decimal.Decimal // fiat per 1 unit of token
	Source    string
	Timestamp time.Time
	ValidUntil time.Time
}

// RateValidityWindow is how long a fetched rate is trusted before it must
// be refreshed, regardless of cache hits.
const RateValidityWindow = 5 * time.Minute

// ErrRateUnavailable is returned by a RateSource when it cannot produce a
// rate and there is no further fallback (the mock source, the fallback of
// last resort, returns it only for an unknown token).
var ErrRateUnavailable = errors.New("quote: rate unavailable")

// RateSource is the capability boundary for fetching a single exchange
// rate. Implementations are expected to be network-bound; Engine wraps
// every call with a cache, and the Thai-local and global sources add the
// fallback-to-mock policy.
type RateSource interface {
	GetRate(ctx context.Context, token Token) (ExchangeRate, error)
	Name() string
}

// mockBaseRates are the deterministic THB-per-token anchors used by the
// mock source, and as the fallback anchor for the other sources.
var mockBaseRates = map[Token]decimal.Decimal{
	TokenUSDT: decimal.NewFromFloat(35.50),
	TokenUSDC: decimal.NewFromFloat(35.50),
	TokenETH:  decimal.NewFromFloat(122000.00),
}

// MockRateSource returns deterministic base rates with small bounded noise,
// and fails only for a token it has no base rate for.
type MockRateSource struct {
	// Noise is the maximum absolute deviation applied to the base rate.
	// Deterministic per call via a simple counter, not crypto-random.
	Noise decimal.Decimal
	calls map[Token]int
}

// NewMockRateSource constructs a MockRateSource with a modest noise band.
func NewMockRateSource() *MockRateSource {
	return &MockRateSource{
		Noise: decimal.NewFromFloat(0.05),
		calls: make(map[Token]int),
	}
}

func (m *MockRateSource) Name() string { return "mock" }

func (m *MockRateSource) GetRate(_ context.Context, token Token) (ExchangeRate, error) {
	base, ok := mockBaseRates[token]
	if !ok {
		return ExchangeRate{}, fmt.Errorf("%w: unknown token %q", ErrRateUnavailable, token)
	}

	if m.calls == nil {
		m.calls = make(map[Token]int)
	}
	m.calls[token]++

	// Deterministic bounded oscillation: +noise, -noise, +noise, ... so
	// repeated calls are reproducible in tests while still varying.
	sign := decimal.NewFromInt(1)
	if m.calls[token]%2 == 0 {
		sign = decimal.NewFromInt(-1)
	}
	rate := base.Add(m.Noise.Mul(sign))

	now := time.Now()
	return ExchangeRate{
		Token:      token,
		Fiat:       FiatTHB,
		Rate:       rate,
		Source:     m.Name(),
		Timestamp:  now,
		ValidUntil: now.Add(RateValidityWindow),
	}, nil
}

// fallbackRateSource wraps a RateSource and falls through to a mock on
// failure, matching the "all three fall through to the mock" requirement.
type fallbackRateSource struct {
	name    string
	primary RateSource
	mock    *MockRateSource
}

func (f *fallbackRateSource) Name() string { return f.name }

func (f *fallbackRateSource) GetRate(ctx context.Context, token Token) (ExchangeRate, error) {
	rate, err := f.primary.GetRate(ctx, token)
	if err == nil {
		return rate, nil
	}
	fallback, mockErr := f.mock.GetRate(ctx, token)
	if mockErr != nil {
		return ExchangeRate{}, mockErr
	}
	fallback.Source = f.name + "+mock_fallback"
	return fallback, nil
}

// ThaiLocalRateSource fetches rates from a Thai-local ticker provider via
// the injected HTTP-capable fetcher, falling back to mock on failure.
type ThaiLocalRateSource struct {
	fallbackRateSource
}

// NewThaiLocalRateSource wraps primary with mock fallback under the
// "thailocal" source name.
func NewThaiLocalRateSource(primary RateSource) *ThaiLocalRateSource {
	return &ThaiLocalRateSource{fallbackRateSource{
		name:    "thailocal",
		primary: primary,
		mock:    NewMockRateSource(),
	}}
}

// GlobalRateSource fetches rates from a global exchange-rate provider,
// falling back to mock on failure.
type GlobalRateSource struct {
	fallbackRateSource
}

// NewGlobalRateSource wraps primary with mock fallback under the "global"
// source name.
func NewGlobalRateSource(primary RateSource) *GlobalRateSource {
	return &GlobalRateSource{fallbackRateSource{
		name:    "global",
		primary: primary,
		mock:    NewMockRateSource(),
	}}
}
