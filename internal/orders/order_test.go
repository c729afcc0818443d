package orders

import (
	"testing"
)

func TestLegalTransitionsHappyPath(t *testing.T) {
	o := NewOrder("order-1", "user-1", "chat-1", Quote{ID: "quote-1"})

	o, err := Transition(o, StatusQuoted)
	if err != nil {
		t.Fatalf("INIT -> QUOTED: %v", err)
	}

	o, err = Transition(o, StatusSigned, WithSignature("0xsig"))
	if err != nil {
		t.Fatalf("QUOTED -> SIGNED: %v", err)
	}
	if o.Signature == nil || *o.Signature != "0xsig" {
		t.Fatalf("expected signature to be set")
	}

	o, err = Transition(o, StatusPending, WithTxHash("0xhash"))
	if err != nil {
		t.Fatalf("SIGNED -> PENDING: %v", err)
	}

	o, err = Transition(o, StatusSettled)
	if err != nil {
		t.Fatalf("PENDING -> SETTLED: %v", err)
	}

	o, err = Transition(o, StatusCompleted, WithSettlementID("settle-1"))
	if err != nil {
		t.Fatalf("SETTLED -> COMPLETED: %v", err)
	}
	if o.CompletedAt == nil {
		t.Fatal("expected CompletedAt to be set on COMPLETED")
	}
	if !o.Status.IsTerminal() {
		t.Fatal("COMPLETED should be terminal")
	}
}

func TestIllegalTransitionRejected(t *testing.T) {
	o := NewOrder("order-2", "user-1", "chat-1", Quote{ID: "quote-2"})

	_, err := Transition(o, StatusPending)
	if err == nil {
		t.Fatal("expected INIT -> PENDING to be rejected")
	}
}

func TestTransitionRequiresSignatureForSigned(t *testing.T) {
	o := NewOrder("order-3", "user-1", "chat-1", Quote{ID: "quote-3"})
	o, _ = Transition(o, StatusQuoted)

	_, err := Transition(o, StatusSigned)
	if err == nil {
		t.Fatal("expected SIGNED transition without signature to fail validation")
	}
}

func TestTransitionRequiresTxHashForPending(t *testing.T) {
	o := NewOrder("order-4", "user-1", "chat-1", Quote{ID: "quote-4"})
	o, _ = Transition(o, StatusQuoted)
	o, _ = Transition(o, StatusSigned, WithSignature("0xsig"))

	_, err := Transition(o, StatusPending)
	if err == nil {
		t.Fatal("expected PENDING transition without txHash to fail validation")
	}
}

func TestTransitionRequiresSettlementIDForCompleted(t *testing.T) {
	o := NewOrder("order-5", "user-1", "chat-1", Quote{ID: "quote-5"})
	o, _ = Transition(o, StatusQuoted)
	o, _ = Transition(o, StatusSigned, WithSignature("0xsig"))
	o, _ = Transition(o, StatusPending, WithTxHash("0xhash"))
	o, _ = Transition(o, StatusSettled)

	_, err := Transition(o, StatusCompleted)
	if err == nil {
		t.Fatal("expected COMPLETED transition without settlementId to fail validation")
	}
}

func TestTerminalStatesHaveNoOutgoingTransitions(t *testing.T) {
	terminal := []Status{StatusCompleted, StatusExpired, StatusCancelled, StatusFailed, StatusTimeout}
	for _, status := range terminal {
		if !status.IsTerminal() {
			t.Errorf("%s should be terminal", status)
		}
		if status.CanTransitionTo(StatusQuoted) {
			t.Errorf("%s should not permit any outgoing transition", status)
		}
	}
}

func TestCancelledReachableFromInitAndQuoted(t *testing.T) {
	if !StatusInit.CanTransitionTo(StatusCancelled) {
		t.Error("INIT -> CANCELLED should be legal")
	}
	if !StatusQuoted.CanTransitionTo(StatusCancelled) {
		t.Error("QUOTED -> CANCELLED should be legal")
	}
	if StatusSigned.CanTransitionTo(StatusCancelled) {
		t.Error("SIGNED -> CANCELLED should not be legal")
	}
}
