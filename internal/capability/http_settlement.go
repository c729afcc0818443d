package capability

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/boonlink/bridge/internal/httputil"
)

// HTTPSettlement is the production Settlement capability: a thin client
// over an upstream payout gateway. Idempotency is delegated to the
// gateway itself via the Idempotency-Key header set to the order id — the
// same key a retried Settle call for the same order reuses, so the gateway
// (not this client) is the source of truth for the dedup spec requires.
type HTTPSettlement struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPSettlement constructs a settlement gateway client.
func NewHTTPSettlement(baseURL string) *HTTPSettlement {
	return &HTTPSettlement{
		baseURL:    baseURL,
		httpClient: httputil.NewClient(30 * time.Second),
	}
}

type settleRequest struct {
	OrderID      string `json:"orderId"`
	UserID       string `json:"userId"`
	AmountCrypto string `json:"amountCrypto"`
	Token        string `json:"token"`
	TxHash       string `json:"txHash"`
}

type settleResponse struct {
	Success        bool   `json:"success"`
	SettlementID   string `json:"settlementId"`
	TransactionRef string `json:"transactionRef"`
	Error          string `json:"error"`
}

// Settle posts a settlement request to the gateway, keyed by order.ID for
// idempotent retry.
func (s *HTTPSettlement) Settle(ctx context.Context, order SettlementOrder) (SettlementResult, error) {
	body, err := json.Marshal(settleRequest{
		OrderID:      order.ID,
		UserID:       order.UserID,
		AmountCrypto: order.AmountCrypto.String(),
		Token:        order.Token,
		TxHash:       order.TxHash,
	})
	if err != nil {
		return SettlementResult{}, fmt.Errorf("capability: encode settle request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/settlements", bytes.NewReader(body))
	if err != nil {
		return SettlementResult{}, fmt.Errorf("capability: build settle request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", order.ID)

	var resp settleResponse
	if err := s.doJSON(req, &resp); err != nil {
		return SettlementResult{}, err
	}

	return SettlementResult{
		Success:        resp.Success,
		SettlementID:   resp.SettlementID,
		TransactionRef: resp.TransactionRef,
		Timestamp:      time.Now(),
		Error:          resp.Error,
	}, nil
}

// CheckStatus polls the gateway for a previously submitted settlement.
func (s *HTTPSettlement) CheckStatus(ctx context.Context, settlementID string) (SettlementResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/settlements/"+settlementID, nil)
	if err != nil {
		return SettlementResult{}, fmt.Errorf("capability: build status request: %w", err)
	}

	var resp settleResponse
	if err := s.doJSON(req, &resp); err != nil {
		return SettlementResult{}, err
	}

	return SettlementResult{
		Success:        resp.Success,
		SettlementID:   resp.SettlementID,
		TransactionRef: resp.TransactionRef,
		Timestamp:      time.Now(),
		Error:          resp.Error,
	}, nil
}

func (s *HTTPSettlement) doJSON(req *http.Request, dest any) error {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("capability: settlement gateway request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("capability: settlement gateway returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("capability: decode settlement gateway response: %w", err)
	}
	return nil
}
