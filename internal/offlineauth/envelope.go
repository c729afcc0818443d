package offlineauth

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
)

// envelope is the compact field-letter JSON mapping carried inside an
// offline-authorization QR code.
type envelope struct {
	O string `json:"o"` // orderId
	T string `json:"t"` // token
	A string `json:"a"` // amount, decimal string
	R string `json:"r"` // recipient
	N string `json:"n"` // nonce, decimal string
	D string `json:"d"` // deadline, decimal string
	S string `json:"s"` // signature
	F string `json:"f"` // signer
}

// EncodeEnvelope serializes a SignedAuthorization into the base64 QR
// envelope payload.
func EncodeEnvelope(sa SignedAuthorization) (string, error) {
	env := envelope{
		O: sa.Authorization.OrderID,
		T: sa.Authorization.Token,
		A: sa.Authorization.Amount.String(),
		R: sa.Authorization.Recipient,
		N: fmt.Sprintf("%d", sa.Authorization.Nonce),
		D: fmt.Sprintf("%d", sa.Authorization.Deadline),
		S: sa.Signature,
		F: sa.Signer,
	}

	data, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("offlineauth: marshal envelope: %w", err)
	}

	return base64.StdEncoding.EncodeToString(data), nil
}

// DecodeEnvelope parses a base64 QR envelope payload back into a
// SignedAuthorization. It rejects non-base64 input, missing fields, and
// non-decimal numeric fields.
func DecodeEnvelope(payload string) (SignedAuthorization, error) {
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return SignedAuthorization{}, fmt.Errorf("offlineauth: envelope is not valid base64: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return SignedAuthorization{}, fmt.Errorf("offlineauth: envelope is not valid JSON: %w", err)
	}

	if env.O == "" || env.T == "" || env.A == "" || env.R == "" || env.N == "" || env.D == "" || env.S == "" || env.F == "" {
		return SignedAuthorization{}, fmt.Errorf("offlineauth: envelope missing a required field")
	}

	amount, ok := new(big.Int).SetString(env.A, 10)
	if !ok {
		return SignedAuthorization{}, fmt.Errorf("offlineauth: amount %q is not a decimal integer", env.A)
	}

	nonce, err := strconv.ParseUint(env.N, 10, 64)
	if err != nil {
		return SignedAuthorization{}, fmt.Errorf("offlineauth: nonce %q is not decimal", env.N)
	}

	deadline, err := strconv.ParseInt(env.D, 10, 64)
	if err != nil {
		return SignedAuthorization{}, fmt.Errorf("offlineauth: deadline %q is not decimal", env.D)
	}

	return SignedAuthorization{
		Authorization: Authorization{
			OrderID:   env.O,
			Token:     env.T,
			Amount:    amount,
			Recipient: env.R,
			Nonce:     nonce,
			Deadline:  deadline,
		},
		Signature: env.S,
		Signer:    env.F,
	}, nil
}
