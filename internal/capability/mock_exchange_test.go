package capability

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
)

func TestMockExchangeGetRateUnseededErrors(t *testing.T) {
	m := NewMockExchange()
	if _, err := m.GetRate(context.Background(), "USDT"); err == nil {
		t.Fatal("expected error for unseeded token")
	}
}

func TestMockExchangeGetRateSeeded(t *testing.T) {
	m := NewMockExchange()
	m.SeedRate("USDT", decimal.NewFromInt(36))

	rate, err := m.GetRate(context.Background(), "USDT")
	if err != nil {
		t.Fatalf("GetRate() error = %v", err)
	}
	if !rate.Rate.Equal(decimal.NewFromInt(36)) {
		t.Errorf("rate = %s, want 36", rate.Rate)
	}
}

func TestMockExchangeCreateQuoteComputesAmountCrypto(t *testing.T) {
	m := NewMockExchange()
	m.SeedRate("USDT", decimal.NewFromInt(36))

	quote, err := m.CreateQuote(context.Background(), decimal.NewFromInt(3600), "USDT", nil)
	if err != nil {
		t.Fatalf("CreateQuote() error = %v", err)
	}

	rate := decimal.NewFromInt(36)
	base := decimal.NewFromInt(3600).Div(rate)
	wantNetworkFee := decimal.NewFromInt(5).Div(rate)
	wantServiceFee := base.Mul(decimal.NewFromFloat(0.005))
	wantTotalFee := wantNetworkFee.Add(wantServiceFee)
	wantAmountCrypto := base.Add(wantTotalFee)

	if !quote.AmountCrypto.Equal(wantAmountCrypto) {
		t.Errorf("AmountCrypto = %s, want %s", quote.AmountCrypto, wantAmountCrypto)
	}
	if !quote.TotalFee.Equal(wantTotalFee) {
		t.Errorf("TotalFee = %s, want %s", quote.TotalFee, wantTotalFee)
	}
	if !quote.TotalFee.Equal(quote.NetworkFee.Add(quote.ServiceFee)) {
		t.Errorf("TotalFee != NetworkFee + ServiceFee")
	}
	if quote.ID == "" {
		t.Error("expected a non-empty quote id")
	}
}

func TestMockExchangeCreateQuoteUnknownTokenErrors(t *testing.T) {
	m := NewMockExchange()
	if _, err := m.CreateQuote(context.Background(), decimal.NewFromInt(100), "DOGE", nil); err == nil {
		t.Fatal("expected error for unseeded token")
	}
}
