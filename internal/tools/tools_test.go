package tools

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/boonlink/bridge/internal/capability"
	"github.com/boonlink/bridge/internal/netquality"
	"github.com/boonlink/bridge/internal/orders"
	"github.com/boonlink/bridge/internal/processor"
	"github.com/boonlink/bridge/internal/qrcode"
	"github.com/boonlink/bridge/internal/queue"
)

type fakeNetwork struct{ status netquality.Status }

func (f *fakeNetwork) Status() netquality.Status { return f.status }

type fakeNotifier struct{ notified int }

func (f *fakeNotifier) Notify() { f.notified++ }

// drainingNotifier runs one processor drain pass synchronously on Notify,
// standing in for the processor's background wake loop.
type drainingNotifier struct{ proc *processor.Processor }

func (d drainingNotifier) Notify() { _, _, _ = d.proc.DrainOnce(context.Background(), nil) }

func newTestContext(t *testing.T) (*Context, *capability.MockBlockchain, *capability.MockExchange) {
	t.Helper()
	exchange := capability.NewMockExchange()
	exchange.SeedRate("USDT", decimal.NewFromInt(36))
	blockchain := capability.NewMockBlockchain(1)
	settlement := capability.NewMockSettlement()
	qr := capability.NewMockQRRecognizer()

	c := New(exchange, blockchain, settlement, qr, orders.NewMemoryStore(), queue.NewMemoryStore(),
		&fakeNetwork{status: netquality.Online}, &fakeNotifier{})
	c.CollectionAddress = "0x00000000000000000000000000000000000000c0"
	c.ChainID = 56
	return c, blockchain, exchange
}

func TestScanQRMockScheme(t *testing.T) {
	c, _, _ := newTestContext(t)

	payload, err := qrcode.Generate("0812345678", nil)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	result := c.ScanQR(context.Background(), "mock://"+payload)
	if !result.Success {
		t.Fatalf("ScanQR() failed: %s", result.Error)
	}
	if result.PromptPay.AccountID != "0812345678" {
		t.Errorf("AccountID = %q, want 0812345678", result.PromptPay.AccountID)
	}
}

func TestScanQRRejectsRelativeURL(t *testing.T) {
	c, _, _ := newTestContext(t)
	result := c.ScanQR(context.Background(), "not-a-url")
	if result.Success {
		t.Fatal("expected failure for a non-absolute imageUrl")
	}
}

func TestGetQuoteComputesAmountCrypto(t *testing.T) {
	c, _, _ := newTestContext(t)

	result := c.GetQuote(context.Background(), decimal.NewFromInt(3600), "USDT", nil)
	if !result.Success {
		t.Fatalf("GetQuote() failed: %s", result.Error)
	}
	if result.QuoteID == "" {
		t.Error("expected a non-empty quote id")
	}
	if result.AmountCrypto.LessThanOrEqual(decimal.NewFromInt(100)) {
		t.Errorf("AmountCrypto = %s, want > 100 (fees included)", result.AmountCrypto)
	}
}

func TestConfirmPaymentHappyPath(t *testing.T) {
	ctx := context.Background()
	c, blockchain, _ := newTestContext(t)
	blockchain.SeedBalance("0xwallet", "USDT", decimal.NewFromInt(1000))
	c.Notifier = drainingNotifier{processor.New(c.OrderStore, c.QueueStore, blockchain, c.Settlement, nil, processor.Config{})}

	quote := c.GetQuote(ctx, decimal.NewFromInt(3600), "USDT", nil)
	if !quote.Success {
		t.Fatalf("GetQuote() failed: %s", quote.Error)
	}

	result := c.ConfirmPayment(ctx, quote.QuoteID, "0xwallet", "user-1", "chat-1")
	if !result.Success {
		t.Fatalf("ConfirmPayment() failed: %s", result.Error)
	}
	if result.Order == nil {
		t.Fatal("expected an order in the result")
	}
	if result.Order.Status != orders.StatusCompleted {
		t.Errorf("order status = %s, want COMPLETED (single-poll confirm with confirmAfterPolls=1)", result.Order.Status)
	}
	if result.TxHash == "" {
		t.Error("expected a txHash")
	}
}

func TestConfirmPaymentExpiredQuote(t *testing.T) {
	ctx := context.Background()
	c, _, exchange := newTestContext(t)

	quote, err := exchange.CreateQuote(ctx, decimal.NewFromInt(3600), "USDT", nil)
	if err != nil {
		t.Fatalf("CreateQuote() error = %v", err)
	}
	quote.ExpiresAt = time.Now().Add(-time.Minute)
	c.putQuote(quote)

	result := c.ConfirmPayment(ctx, quote.ID, "0xwallet", "user-1", "chat-1")
	if result.Success {
		t.Fatal("expected failure for an expired quote")
	}
	if result.Error != "Quote has expired" {
		t.Errorf("Error = %q, want %q", result.Error, "Quote has expired")
	}
}

func TestConfirmPaymentInsufficientBalance(t *testing.T) {
	ctx := context.Background()
	c, blockchain, _ := newTestContext(t)
	blockchain.SeedBalance("0xwallet", "USDT", decimal.NewFromFloat(1.0))

	quote := c.GetQuote(ctx, decimal.NewFromInt(3600), "USDT", nil)
	if !quote.Success {
		t.Fatalf("GetQuote() failed: %s", quote.Error)
	}

	result := c.ConfirmPayment(ctx, quote.QuoteID, "0xwallet", "user-1", "chat-1")
	if result.Success {
		t.Fatal("expected failure for insufficient balance")
	}
	if result.Order == nil || result.Order.Status != orders.StatusFailed {
		t.Fatalf("expected order FAILED, got %+v", result.Order)
	}
}

func TestConfirmPaymentUnknownQuote(t *testing.T) {
	c, _, _ := newTestContext(t)
	result := c.ConfirmPayment(context.Background(), "nonexistent", "0xwallet", "user-1", "chat-1")
	if result.Success {
		t.Fatal("expected failure for an unknown quote id")
	}
	if result.Error != "Quote not found" {
		t.Errorf("Error = %q, want %q", result.Error, "Quote not found")
	}
}

func TestCheckStatusUnknownOrder(t *testing.T) {
	c, _, _ := newTestContext(t)
	result := c.CheckStatus(context.Background(), "nonexistent")
	if result.Success {
		t.Fatal("expected failure for an unknown order id")
	}
}

func TestGetExchangeRatesReturnsAllTokens(t *testing.T) {
	c, _, exchange := newTestContext(t)
	exchange.SeedRate("USDC", decimal.NewFromInt(36))
	exchange.SeedRate("ETH", decimal.NewFromInt(2000))

	result := c.GetExchangeRates(context.Background())
	if !result.Success {
		t.Fatalf("GetExchangeRates() failed: %s", result.Error)
	}
	if len(result.Rates) != 3 {
		t.Fatalf("len(Rates) = %d, want 3", len(result.Rates))
	}
}
