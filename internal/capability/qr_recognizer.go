package capability

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrUnrecognizedImage is returned by QRRecognizer.Recognize when no QR
// payload can be extracted from the given image bytes.
var ErrUnrecognizedImage = errors.New("capability: no QR payload recognized in image")

// QRRecognizer extracts a QR payload string from raw image bytes. It is the
// capability boundary for the pixel-matrix decoding step the scan_qr tool
// needs between "fetched image bytes" and "candidate PromptPay payload
// string" — the core never performs that decoding itself, only orchestrates
// the call, the same way it treats Blockchain/Exchange/Settlement.
type QRRecognizer interface {
	Recognize(ctx context.Context, imageBytes []byte) (payload string, err error)
}

// MockQRRecognizer resolves pre-registered image bytes to a fixed payload,
// for tests and demoMode where no real image decoder is wired.
type MockQRRecognizer struct {
	mu       sync.Mutex
	payloads map[string]string // keyed by a caller-chosen fixture id, stored as the "image bytes"
}

// NewMockQRRecognizer constructs an empty MockQRRecognizer.
func NewMockQRRecognizer() *MockQRRecognizer {
	return &MockQRRecognizer{payloads: make(map[string]string)}
}

// SeedFixture registers fixtureBytes (typically just a small marker slice,
// not a real image) as decoding to payload.
func (m *MockQRRecognizer) SeedFixture(fixtureBytes []byte, payload string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payloads[string(fixtureBytes)] = payload
}

// Recognize implements QRRecognizer.
func (m *MockQRRecognizer) Recognize(ctx context.Context, imageBytes []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	payload, ok := m.payloads[string(imageBytes)]
	if !ok {
		return "", fmt.Errorf("%w: no fixture registered for %d bytes", ErrUnrecognizedImage, len(imageBytes))
	}
	return payload, nil
}
