package httpserver

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	apierrors "github.com/boonlink/bridge/internal/errors"
	"github.com/boonlink/bridge/internal/orders"
	"github.com/boonlink/bridge/internal/qrcode"
	"github.com/boonlink/bridge/pkg/responders"
)

var serverStartTime = time.Now()

// health reports liveness and uptime, cheap enough for a 5s timeout group.
func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	responders.JSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"uptime_sec": int(time.Since(serverStartTime).Seconds()),
		"demo_mode":  h.cfg.DemoMode,
	})
}

// writeError renders apierrors.ErrorResponse at the status the code maps to.
func writeError(w http.ResponseWriter, code apierrors.ErrorCode, message string) {
	resp := apierrors.NewErrorResponse(code, message, nil)
	responders.JSON(w, code.HTTPStatus(), resp)
}

type scanQRRequest struct {
	ImageURL string `json:"imageUrl"`
}

type scanQRResponse struct {
	Success   bool    `json:"success"`
	AccountID string  `json:"accountId,omitempty"`
	AmountTHB *string `json:"amountThb,omitempty"`
	Payload   string  `json:"rawPayload,omitempty"`
	Error     string  `json:"error,omitempty"`
}

// scanPromptPayQR decodes a PromptPay QR image (or a mock:// fixture in
// demo mode) into its account/amount fields.
func (h *handlers) scanPromptPayQR(w http.ResponseWriter, r *http.Request) {
	var req scanQRRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, apierrors.ErrCodeInvalidField, "malformed request body")
		return
	}
	if req.ImageURL == "" {
		writeError(w, apierrors.ErrCodeMissingField, "imageUrl is required")
		return
	}

	result := h.tools.ScanQR(r.Context(), req.ImageURL)
	if !result.Success {
		writeError(w, apierrors.ErrCodeInvalidFormat, result.Error)
		return
	}

	resp := scanQRResponse{
		Success:   true,
		AccountID: result.PromptPay.AccountID,
		Payload:   result.PromptPay.RawPayload,
		AmountTHB: result.PromptPay.Amount,
	}
	responders.JSON(w, http.StatusOK, resp)
}

type getQuoteRequest struct {
	AmountTHB string  `json:"amountThb"`
	Token     string  `json:"token"`
	RawPayload *string `json:"rawPayload,omitempty"`
}

type getQuoteResponse struct {
	Success      bool   `json:"success"`
	QuoteID      string `json:"quoteId,omitempty"`
	AmountTHB    string `json:"amountThb,omitempty"`
	Rate         string `json:"rate,omitempty"`
	NetworkFee   string `json:"networkFee,omitempty"`
	ServiceFee   string `json:"serviceFee,omitempty"`
	TotalFee     string `json:"totalFee,omitempty"`
	AmountCrypto string `json:"amountCrypto,omitempty"`
	Token        string `json:"token,omitempty"`
	Error        string `json:"error,omitempty"`
}

// getCryptoQuote builds a fee-inclusive quote for a THB amount converted to
// one of the three supported tokens.
func (h *handlers) getCryptoQuote(w http.ResponseWriter, r *http.Request) {
	var req getQuoteRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, apierrors.ErrCodeInvalidField, "malformed request body")
		return
	}
	if req.AmountTHB == "" || req.Token == "" {
		writeError(w, apierrors.ErrCodeMissingField, "amountThb and token are required")
		return
	}
	amount, err := decimal.NewFromString(req.AmountTHB)
	if err != nil {
		writeError(w, apierrors.ErrCodeInvalidField, "amountThb must be a decimal string")
		return
	}

	var promptPay *qrcode.PromptPayData
	if req.RawPayload != nil {
		parsed, perr := qrcode.Parse(*req.RawPayload)
		if perr != nil {
			writeError(w, apierrors.ErrCodeInvalidFormat, perr.Error())
			return
		}
		promptPay = &parsed
	}

	result := h.tools.GetQuote(r.Context(), amount, req.Token, promptPay)
	if !result.Success {
		writeError(w, apierrors.ErrCodeAmountOutOfRange, result.Error)
		return
	}

	responders.JSON(w, http.StatusOK, getQuoteResponse{
		Success:      true,
		QuoteID:      result.QuoteID,
		AmountTHB:    result.AmountTHB.String(),
		Rate:         result.Rate.String(),
		NetworkFee:   result.NetworkFee.String(),
		ServiceFee:   result.ServiceFee.String(),
		TotalFee:     result.TotalFee.String(),
		AmountCrypto: result.AmountCrypto.String(),
		Token:        result.Token,
	})
}

type confirmPaymentRequest struct {
	QuoteID       string `json:"quoteId"`
	WalletAddress string `json:"walletAddress"`
	UserID        string `json:"userId"`
	ChatID        string `json:"chatId"`
}

type confirmPaymentResponse struct {
	Success bool         `json:"success"`
	Order   *orderSummary `json:"order,omitempty"`
	TxHash  string       `json:"txHash,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// confirmPayment opens an order against a previously issued quote, checks
// the wallet's balance, and signs+enqueues the transfer. It sets no request
// headers; per-wallet rate limiting keys on headers the client sends.
func (h *handlers) confirmPayment(w http.ResponseWriter, r *http.Request) {
	var req confirmPaymentRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, apierrors.ErrCodeInvalidField, "malformed request body")
		return
	}
	if req.QuoteID == "" || req.WalletAddress == "" || req.UserID == "" {
		writeError(w, apierrors.ErrCodeMissingField, "quoteId, walletAddress and userId are required")
		return
	}

	result := h.tools.ConfirmPayment(r.Context(), req.QuoteID, req.WalletAddress, req.UserID, req.ChatID)
	resp := confirmPaymentResponse{Success: result.Success, TxHash: result.TxHash, Error: result.Error}
	if result.Order != nil {
		summary := summarizeOrder(*result.Order)
		resp.Order = &summary
	}

	if !result.Success {
		code := apierrors.ErrCodeInternalError
		switch result.Error {
		case "Quote not found":
			code = apierrors.ErrCodeQuoteNotFound
		case "Quote has expired":
			code = apierrors.ErrCodeQuoteExpired
		case "Insufficient balance":
			code = apierrors.ErrCodeInsufficientBalance
		}
		responders.JSON(w, code.HTTPStatus(), resp)
		return
	}
	responders.JSON(w, http.StatusOK, resp)
}

type checkStatusResponse struct {
	Success bool          `json:"success"`
	Order   *orderSummary `json:"order,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// checkPaymentStatus looks up an order by id.
func (h *handlers) checkPaymentStatus(w http.ResponseWriter, r *http.Request) {
	orderID := r.URL.Query().Get("orderId")
	if orderID == "" {
		writeError(w, apierrors.ErrCodeMissingField, "orderId is required")
		return
	}

	result := h.tools.CheckStatus(r.Context(), orderID)
	if !result.Success {
		responders.JSON(w, apierrors.ErrCodeOrderNotFound.HTTPStatus(), checkStatusResponse{Success: false, Error: result.Error})
		return
	}
	summary := summarizeOrder(*result.Order)
	responders.JSON(w, http.StatusOK, checkStatusResponse{Success: true, Order: &summary})
}

type rateQuoteDTO struct {
	Token     string `json:"token"`
	Rate      string `json:"rate"`
	Formatted string `json:"formatted"`
}

type getExchangeRatesResponse struct {
	Success bool           `json:"success"`
	Rates   []rateQuoteDTO `json:"rates,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// getExchangeRates returns the current rate for every supported token.
func (h *handlers) getExchangeRates(w http.ResponseWriter, r *http.Request) {
	result := h.tools.GetExchangeRates(r.Context())
	if !result.Success {
		writeError(w, apierrors.ErrCodeRPCError, result.Error)
		return
	}

	rates := make([]rateQuoteDTO, 0, len(result.Rates))
	for _, rq := range result.Rates {
		rates = append(rates, rateQuoteDTO{Token: rq.Token, Rate: rq.Rate.String(), Formatted: rq.Formatted})
	}
	responders.JSON(w, http.StatusOK, getExchangeRatesResponse{Success: true, Rates: rates})
}

// orderSummary is the caller-facing projection of orders.Order: plain
// strings in place of *decimal.Decimal/*string/*time.Time so the JSON shape
// never exposes the store's internal pointer plumbing.
type orderSummary struct {
	ID           string  `json:"id"`
	Status       string  `json:"status"`
	Token        string  `json:"token"`
	AmountTHB    string  `json:"amountThb"`
	AmountCrypto string  `json:"amountCrypto"`
	TxHash       string  `json:"txHash,omitempty"`
	SettlementID string  `json:"settlementId,omitempty"`
	Error        string  `json:"error,omitempty"`
	CreatedAt    string  `json:"createdAt"`
	UpdatedAt    string  `json:"updatedAt"`
}

func summarizeOrder(o orders.Order) orderSummary {
	s := orderSummary{
		ID:           o.ID,
		Status:       string(o.Status),
		Token:        o.Quote.Token,
		AmountTHB:    o.Quote.AmountTHB.String(),
		AmountCrypto: o.Quote.AmountCrypto.String(),
		CreatedAt:    o.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    o.UpdatedAt.Format(time.RFC3339),
	}
	if o.TxHash != nil {
		s.TxHash = *o.TxHash
	}
	if o.SettlementID != nil {
		s.SettlementID = *o.SettlementID
	}
	if o.Error != nil {
		s.Error = *o.Error
	}
	return s
}
