package tools

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/boonlink/bridge/internal/qrcode"
)

// GetQuoteResult is get_quote's {success, ..., error?} result.
type GetQuoteResult struct {
	Success      bool
	QuoteID      string
	AmountTHB    decimal.Decimal
	Rate         decimal.Decimal
	NetworkFee   decimal.Decimal
	ServiceFee   decimal.Decimal
	TotalFee     decimal.Decimal
	AmountCrypto decimal.Decimal
	Token        string
	Error        string
}

// GetQuote validates the request (delegated to the Exchange capability,
// which enforces the amount ceiling and supported-token set) and, on
// success, indexes the quote by id for a later confirm_payment lookup.
func (c *Context) GetQuote(ctx context.Context, amountTHB decimal.Decimal, token string, promptPay *qrcode.PromptPayData) GetQuoteResult {
	q, err := c.Exchange.CreateQuote(ctx, amountTHB, token, promptPay)
	if err != nil {
		return GetQuoteResult{Success: false, Error: err.Error()}
	}

	c.putQuote(q)

	return GetQuoteResult{
		Success:      true,
		QuoteID:      q.ID,
		AmountTHB:    q.AmountTHB,
		Rate:         q.Rate,
		NetworkFee:   q.NetworkFee,
		ServiceFee:   q.ServiceFee,
		TotalFee:     q.TotalFee,
		AmountCrypto: q.AmountCrypto,
		Token:        q.Token,
	}
}
