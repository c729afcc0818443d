package tools

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// RateQuote is a single token's rate and a chat-friendly formatted string.
type RateQuote struct {
	Token     string
	Rate      decimal.Decimal
	Formatted string
}

// GetExchangeRatesResult is get_exchange_rates's {success, ..., error?} result.
type GetExchangeRatesResult struct {
	Success bool
	Rates   []RateQuote
	Error   string
}

var exchangeRateTokens = []string{"USDT", "USDC", "ETH"}

// GetExchangeRates returns the current rate for every supported token.
func (c *Context) GetExchangeRates(ctx context.Context) GetExchangeRatesResult {
	rates := make([]RateQuote, 0, len(exchangeRateTokens))
	for _, token := range exchangeRateTokens {
		rate, err := c.Exchange.GetRate(ctx, token)
		if err != nil {
			return GetExchangeRatesResult{Success: false, Error: err.Error()}
		}
		rates = append(rates, RateQuote{
			Token:     token,
			Rate:      rate.Rate,
			Formatted: fmt.Sprintf("1 %s = %s THB", token, rate.Rate.StringFixed(2)),
		})
	}
	return GetExchangeRatesResult{Success: true, Rates: rates}
}
