package capability

import (
	"context"
	"fmt"

	"github.com/boonlink/bridge/internal/qrcode"
	"github.com/boonlink/bridge/internal/quote"
	"github.com/shopspring/decimal"
)

// EngineExchange adapts *quote.Engine to the Exchange capability, so
// production wiring reuses the real rate cache and fee engine instead of
// a double.
type EngineExchange struct {
	engine *quote.Engine
}

// NewEngineExchange wraps an existing quote engine.
func NewEngineExchange(engine *quote.Engine) *EngineExchange {
	return &EngineExchange{engine: engine}
}

func (e *EngineExchange) GetRate(ctx context.Context, token string) (RateInfo, error) {
	rates, err := e.engine.Rates(ctx)
	if err != nil {
		return RateInfo{}, err
	}
	for _, rate := range rates {
		if string(rate.Token) == token {
			return RateInfo{
				Token:      string(rate.Token),
				Fiat:       rate.Fiat,
				Rate:       rate.Rate,
				Source:     rate.Source,
				Timestamp:  rate.Timestamp,
				ValidUntil: rate.ValidUntil,
			}, nil
		}
	}
	return RateInfo{}, fmt.Errorf("capability: no rate for token %q", token)
}

func (e *EngineExchange) CreateQuote(ctx context.Context, amountTHB decimal.Decimal, token string, promptPay *qrcode.PromptPayData) (QuoteInfo, error) {
	var payload *string
	if promptPay != nil {
		payload = &promptPay.RawPayload
	}

	q, err := e.engine.CreateQuote(ctx, amountTHB, quote.Token(token), payload)
	if err != nil {
		return QuoteInfo{}, err
	}

	return QuoteInfo{
		ID:               q.ID,
		AmountTHB:        q.AmountTHB,
		Token:            string(q.Token),
		Rate:             q.Rate,
		NetworkFee:       q.NetworkFee,
		ServiceFee:       q.ServiceFee,
		TotalFee:         q.TotalFee,
		AmountCrypto:     q.AmountCrypto,
		PromptPayPayload: q.PromptPayPayload,
		CreatedAt:        q.CreatedAt,
		ExpiresAt:        q.ExpiresAt,
	}, nil
}
