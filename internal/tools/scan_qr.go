package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/boonlink/bridge/internal/qrcode"
)

// mockImageScheme carries a pre-built payload directly, bypassing image
// fetch and recognition entirely — for demoMode and tests that don't want
// to wire a real QRRecognizer.
const mockImageScheme = "mock://"

// ScanQRResult is scan_qr's {success, ..., error?} result.
type ScanQRResult struct {
	Success   bool
	PromptPay *qrcode.PromptPayData
	Error     string
}

// ScanQR fetches the image at imageUrl (or decodes a mock:// payload
// directly), recognizes the QR payload, and parses it as PromptPay.
func (c *Context) ScanQR(ctx context.Context, imageURL string) ScanQRResult {
	if strings.HasPrefix(imageURL, mockImageScheme) {
		payload := strings.TrimPrefix(imageURL, mockImageScheme)
		return c.parsePromptPay(payload)
	}

	parsed, err := url.Parse(imageURL)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return ScanQRResult{Success: false, Error: "imageUrl must be an absolute URL"}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ScanQRResult{Success: false, Error: fmt.Sprintf("unsupported imageUrl scheme %q", parsed.Scheme)}
	}

	imageBytes, err := c.fetchImage(ctx, imageURL)
	if err != nil {
		return ScanQRResult{Success: false, Error: err.Error()}
	}

	if c.QRRecognizer == nil {
		return ScanQRResult{Success: false, Error: "no QR recognizer configured"}
	}
	payload, err := c.QRRecognizer.Recognize(ctx, imageBytes)
	if err != nil {
		return ScanQRResult{Success: false, Error: err.Error()}
	}

	return c.parsePromptPay(payload)
}

func (c *Context) fetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build image request: %w", err)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch image: unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read image body: %w", err)
	}
	return body, nil
}

func (c *Context) parsePromptPay(payload string) ScanQRResult {
	data, err := qrcode.Parse(payload)
	if err != nil {
		return ScanQRResult{Success: false, Error: err.Error()}
	}
	return ScanQRResult{Success: true, PromptPay: &data}
}
