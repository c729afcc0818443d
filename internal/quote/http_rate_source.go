package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/boonlink/bridge/internal/httputil"
)

// HTTPRateSource fetches a single token/THB rate from an upstream exchange
// rate API over GET {baseURL}/rates/{token}. NewThaiLocalRateSource and
// NewGlobalRateSource both wrap one of these as their primary, so a flaky
// upstream never reaches CreateQuote without the mock-fallback layer
// already absorbing it.
type HTTPRateSource struct {
	baseURL    string
	name       string
	httpClient *http.Client
}

// NewHTTPRateSource constructs a RateSource over an upstream rate API.
func NewHTTPRateSource(baseURL, name string) *HTTPRateSource {
	return &HTTPRateSource{
		baseURL:    baseURL,
		name:       name,
		httpClient: httputil.NewClient(5 * time.Second),
	}
}

func (h *HTTPRateSource) Name() string { return h.name }

type rateResponse struct {
	Rate string `json:"rate"`
}

func (h *HTTPRateSource) GetRate(ctx context.Context, token Token) (ExchangeRate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+"/rates/"+string(token), nil)
	if err != nil {
		return ExchangeRate{}, fmt.Errorf("quote: build rate request: %w", err)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return ExchangeRate{}, fmt.Errorf("%w: %v", ErrRateUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return ExchangeRate{}, fmt.Errorf("%w: upstream status %d", ErrRateUnavailable, resp.StatusCode)
	}

	var body rateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return ExchangeRate{}, fmt.Errorf("%w: decode response: %v", ErrRateUnavailable, err)
	}

	rate, err := decimal.NewFromString(body.Rate)
	if err != nil {
		return ExchangeRate{}, fmt.Errorf("%w: malformed rate %q", ErrRateUnavailable, body.Rate)
	}

	now := time.Now()
	return ExchangeRate{
		Token:      token,
		Fiat:       FiatTHB,
		Rate:       rate,
		Source:     h.name,
		Timestamp:  now,
		ValidUntil: now.Add(RateValidityWindow),
	}, nil
}
