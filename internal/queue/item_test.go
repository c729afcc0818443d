package queue

import (
	"testing"
	"time"
)

func TestIsReadyPendingNoRetry(t *testing.T) {
	item := NewItem("q1", "order-1", "0xsignedtx")
	if !item.IsReady(time.Now()) {
		t.Error("expected freshly enqueued item to be ready")
	}
}

func TestIsReadyRespectsBackoffWindow(t *testing.T) {
	item := NewItem("q1", "order-1", "0xsignedtx")
	future := time.Now().Add(time.Hour)
	item.NextRetry = &future

	if item.IsReady(time.Now()) {
		t.Error("expected item with future NextRetry to not be ready")
	}
}

func TestIsReadyIgnoresNonPendingStatus(t *testing.T) {
	item := NewItem("q1", "order-1", "0xsignedtx")
	item.Status = StatusProcessing

	if item.IsReady(time.Now()) {
		t.Error("expected processing item to not be ready")
	}
}

func TestExhaustedRetries(t *testing.T) {
	item := NewItem("q1", "order-1", "0xsignedtx")
	item.RetryCount = MaxRetries

	if !item.ExhaustedRetries() {
		t.Error("expected item at MaxRetries to report exhausted")
	}
}

func TestBackoffDelayDoublesUntilCap(t *testing.T) {
	cases := []struct {
		retryCount int
		want       time.Duration
	}{
		{0, 0},
		{1, 5 * time.Second},
		{2, 10 * time.Second},
		{3, 20 * time.Second},
		{4, 40 * time.Second},
		{10, 5 * time.Minute},
	}

	for _, tc := range cases {
		got := BackoffDelay(tc.retryCount)
		if got != tc.want {
			t.Errorf("BackoffDelay(%d) = %v, want %v", tc.retryCount, got, tc.want)
		}
	}
}
