package errors

// ErrorCode represents a machine-readable error identifier for caller-facing error handling.
type ErrorCode string

// QR codec errors (C1, spec §4.1/§7).
const (
	ErrCodeInvalidFormat    ErrorCode = "invalid_format"
	ErrCodeNotPromptPay     ErrorCode = "not_promptpay"
	ErrCodeInvalidAccountID ErrorCode = "invalid_account_id"
	ErrCodeCrcMismatch      ErrorCode = "crc_mismatch"
)

// Offline-auth errors (C2, spec §4.2/§7).
const (
	ErrCodeSignatureInvalid ErrorCode = "signature_invalid"
	ErrCodeSignatureExpired ErrorCode = "signature_expired"
)

// Quote/order errors (C3, C4, C9, spec §7).
const (
	ErrCodeQuoteExpired        ErrorCode = "quote_expired"
	ErrCodeQuoteNotFound       ErrorCode = "quote_not_found"
	ErrCodeAmountOutOfRange    ErrorCode = "amount_out_of_range"
	ErrCodeInsufficientBalance ErrorCode = "insufficient_balance"
	ErrCodeOrderNotFound       ErrorCode = "order_not_found"
	ErrCodeIllegalTransition   ErrorCode = "illegal_transition"
)

// Queue processor errors (C6, spec §7).
const (
	ErrCodeBroadcastFailed     ErrorCode = "broadcast_failed"
	ErrCodeConfirmationTimeout ErrorCode = "confirmation_timeout"
	ErrCodeSettlementFailed    ErrorCode = "settlement_failed"
	ErrCodeMaxRetriesExceeded  ErrorCode = "max_retries_exceeded"
)

// Network/sync errors (C7, C8, spec §7).
const (
	ErrCodeNetworkOffline ErrorCode = "network_offline"
	ErrCodeSyncInProgress ErrorCode = "sync_in_progress"
)

// Validation errors (request input validation, C9).
const (
	ErrCodeMissingField ErrorCode = "missing_field"
	ErrCodeInvalidField ErrorCode = "invalid_field"
)

// Internal/system errors.
const (
	ErrCodeInternalError ErrorCode = "internal_error"
	ErrCodeDatabaseError ErrorCode = "database_error"
	ErrCodeRPCError      ErrorCode = "rpc_error"
)

// IsRetryable returns whether an error code represents a transient condition.
// Per spec.md §7, local recovery is applied only by the queue processor; other
// errors are surfaced verbatim and this flag tells callers whether re-issuing
// the same request is expected to help.
func (e ErrorCode) IsRetryable() bool {
	switch e {
	case ErrCodeBroadcastFailed,
		ErrCodeConfirmationTimeout,
		ErrCodeSettlementFailed,
		ErrCodeRPCError,
		ErrCodeNetworkOffline:
		return true
	default:
		return false
	}
}

// HTTPStatus returns the HTTP status code this error code should be surfaced as.
func (e ErrorCode) HTTPStatus() int {
	switch e {
	case ErrCodeInvalidFormat,
		ErrCodeNotPromptPay,
		ErrCodeInvalidAccountID,
		ErrCodeAmountOutOfRange,
		ErrCodeMissingField,
		ErrCodeInvalidField,
		ErrCodeSignatureInvalid,
		ErrCodeSignatureExpired,
		ErrCodeIllegalTransition:
		return 400

	case ErrCodeQuoteExpired,
		ErrCodeInsufficientBalance,
		ErrCodeMaxRetriesExceeded:
		return 402

	case ErrCodeQuoteNotFound, ErrCodeOrderNotFound:
		return 404

	case ErrCodeSyncInProgress:
		return 409

	case ErrCodeNetworkOffline:
		return 503

	case ErrCodeRPCError,
		ErrCodeBroadcastFailed,
		ErrCodeConfirmationTimeout,
		ErrCodeSettlementFailed:
		return 502

	default:
		return 500
	}
}
