package capability

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
)

func TestMockSettlementSettleSucceeds(t *testing.T) {
	s := NewMockSettlement()
	order := SettlementOrder{ID: "order-1", UserID: "user-1", AmountCrypto: decimal.NewFromInt(10), Token: "USDT", TxHash: "0xabc"}

	result, err := s.Settle(context.Background(), order)
	if err != nil {
		t.Fatalf("Settle() error = %v", err)
	}
	if !result.Success || result.SettlementID == "" {
		t.Errorf("result = %+v, want success with a settlement id", result)
	}
}

func TestMockSettlementSettleIsIdempotentByOrderID(t *testing.T) {
	s := NewMockSettlement()
	order := SettlementOrder{ID: "order-2", UserID: "user-1", AmountCrypto: decimal.NewFromInt(5), Token: "USDC", TxHash: "0xdef"}
	ctx := context.Background()

	first, err := s.Settle(ctx, order)
	if err != nil {
		t.Fatalf("Settle() first call error = %v", err)
	}
	second, err := s.Settle(ctx, order)
	if err != nil {
		t.Fatalf("Settle() second call error = %v", err)
	}

	if first.SettlementID != second.SettlementID {
		t.Errorf("settlement ids differ across repeat calls: %s vs %s", first.SettlementID, second.SettlementID)
	}
}

func TestMockSettlementDistinctOrdersGetDistinctSettlementIDs(t *testing.T) {
	s := NewMockSettlement()
	ctx := context.Background()

	a, err := s.Settle(ctx, SettlementOrder{ID: "order-a", AmountCrypto: decimal.NewFromInt(1), Token: "USDT"})
	if err != nil {
		t.Fatalf("Settle(a) error = %v", err)
	}
	b, err := s.Settle(ctx, SettlementOrder{ID: "order-b", AmountCrypto: decimal.NewFromInt(1), Token: "USDT"})
	if err != nil {
		t.Fatalf("Settle(b) error = %v", err)
	}

	if a.SettlementID == b.SettlementID {
		t.Error("distinct orders received the same settlement id")
	}
}

func TestMockSettlementFailNextSettleReportsFailure(t *testing.T) {
	s := NewMockSettlement()
	s.FailNextSettle()

	result, err := s.Settle(context.Background(), SettlementOrder{ID: "order-fail", AmountCrypto: decimal.NewFromInt(1), Token: "USDT"})
	if err != nil {
		t.Fatalf("Settle() error = %v", err)
	}
	if result.Success {
		t.Error("expected Success=false after FailNextSettle")
	}
	if result.Error == "" {
		t.Error("expected a non-empty Error message")
	}
}

func TestMockSettlementCheckStatusReturnsSettledResult(t *testing.T) {
	s := NewMockSettlement()
	ctx := context.Background()

	settled, err := s.Settle(ctx, SettlementOrder{ID: "order-status", AmountCrypto: decimal.NewFromInt(2), Token: "USDT"})
	if err != nil {
		t.Fatalf("Settle() error = %v", err)
	}

	status, err := s.CheckStatus(ctx, settled.SettlementID)
	if err != nil {
		t.Fatalf("CheckStatus() error = %v", err)
	}
	if status.SettlementID != settled.SettlementID {
		t.Errorf("CheckStatus settlement id = %s, want %s", status.SettlementID, settled.SettlementID)
	}
}

func TestMockSettlementCheckStatusUnknownID(t *testing.T) {
	s := NewMockSettlement()
	if _, err := s.CheckStatus(context.Background(), "stl_unknown"); err == nil {
		t.Fatal("expected error for unknown settlement id")
	}
}
