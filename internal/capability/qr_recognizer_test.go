package capability

import (
	"context"
	"errors"
	"testing"
)

func TestMockQRRecognizerReturnsSeededFixture(t *testing.T) {
	m := NewMockQRRecognizer()
	fixture := []byte("fake-png-bytes")
	m.SeedFixture(fixture, "00020101021129370016A000000677010111011300668123456785802TH6304ABCD")

	payload, err := m.Recognize(context.Background(), fixture)
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	if payload == "" {
		t.Fatal("expected a non-empty payload")
	}
}

func TestMockQRRecognizerUnseededImageFails(t *testing.T) {
	m := NewMockQRRecognizer()
	_, err := m.Recognize(context.Background(), []byte("never-registered"))
	if !errors.Is(err, ErrUnrecognizedImage) {
		t.Fatalf("err = %v, want ErrUnrecognizedImage", err)
	}
}
