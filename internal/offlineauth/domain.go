// Package offlineauth implements the EIP-712 typed-data codec for
// OfflinePaymentAuthorization: domain-separated hashing, signing, and
// verification, plus the compact QR envelope used to carry a signed
// authorization when the device has no network path to the server.
package offlineauth

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// ZeroAddress is the default verifyingContract when none is configured.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// Domain is the EIP-712 domain separator input for BoonLink payments.
type Domain struct {
	Name              string
	Version           string
	ChainID           int64
	VerifyingContract string
}

// DefaultDomain returns the BoonLink Payment domain for the given chain and
// verifying contract; an empty verifyingContract falls back to ZeroAddress.
func DefaultDomain(chainID int64, verifyingContract string) Domain {
	if verifyingContract == "" {
		verifyingContract = ZeroAddress
	}
	return Domain{
		Name:              "BoonLink Payment",
		Version:           "1",
		ChainID:           chainID,
		VerifyingContract: verifyingContract,
	}
}

const primaryType = "Payment"

var paymentTypes = apitypes.Types{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	primaryType: {
		{Name: "orderId", Type: "string"},
		{Name: "token", Type: "string"},
		{Name: "amount", Type: "uint256"},
		{Name: "recipient", Type: "address"},
		{Name: "nonce", Type: "uint256"},
		{Name: "deadline", Type: "uint256"},
	},
}

// Authorization is an OfflinePaymentAuthorization prior to signing.
type Authorization struct {
	OrderID   string
	Token     string
	Amount    *big.Int // integer base units
	Recipient string   // 20-byte address, hex
	Nonce     uint64
	Deadline  int64 // unix seconds
}

func (a Authorization) typedData(d Domain) apitypes.TypedData {
	return apitypes.TypedData{
		Types:       paymentTypes,
		PrimaryType: primaryType,
		Domain: apitypes.TypedDataDomain{
			Name:              d.Name,
			Version:           d.Version,
			ChainId:           (*math.HexOrDecimal256)(big.NewInt(d.ChainID)),
			VerifyingContract: d.VerifyingContract,
		},
		Message: apitypes.TypedDataMessage{
			"orderId":   a.OrderID,
			"token":     a.Token,
			"amount":    a.Amount.String(),
			"recipient": a.Recipient,
			"nonce":     fmt.Sprintf("%d", a.Nonce),
			"deadline":  fmt.Sprintf("%d", a.Deadline),
		},
	}
}

// Digest computes keccak256(0x1901 || domainSeparator || structHash) for the
// given authorization under domain d.
func Digest(a Authorization, d Domain) ([]byte, error) {
	td := a.typedData(d)

	structHash, err := td.HashStruct(td.PrimaryType, td.Message)
	if err != nil {
		return nil, fmt.Errorf("offlineauth: hash payment struct: %w", err)
	}

	domainSeparator, err := td.HashStruct("EIP712Domain", td.Domain.Map())
	if err != nil {
		return nil, fmt.Errorf("offlineauth: hash domain: %w", err)
	}

	raw := make([]byte, 0, 2+len(domainSeparator)+len(structHash))
	raw = append(raw, 0x19, 0x01)
	raw = append(raw, domainSeparator...)
	raw = append(raw, structHash...)

	return crypto.Keccak256(raw), nil
}

// normalizeAddress returns the EIP-55 checksummed form, or an error if addr
// is not a syntactically valid hex address.
func normalizeAddress(addr string) (string, error) {
	if !common.IsHexAddress(addr) {
		return "", fmt.Errorf("offlineauth: %q is not a valid address", addr)
	}
	return common.HexToAddress(addr).Hex(), nil
}
