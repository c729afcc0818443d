package offlineauth

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
)

// ErrSignatureInvalid is returned by Verify on any verification failure:
// malformed signature, expired deadline, or signer mismatch.
var ErrSignatureInvalid = errors.New("offlineauth: signature invalid")

// SignedAuthorization pairs an Authorization with its EIP-712 signature and
// the signer address that produced it.
type SignedAuthorization struct {
	Authorization Authorization
	Domain        Domain
	Signature     string // hex, 65 bytes (r || s || v)
	Signer        string // hex address claimed by the signer
}

// Sign produces a 65-byte (r, s, v) secp256k1 signature over the
// authorization's EIP-712 digest.
func Sign(a Authorization, d Domain, privateKey *ecdsa.PrivateKey) (SignedAuthorization, error) {
	digest, err := Digest(a, d)
	if err != nil {
		return SignedAuthorization{}, err
	}

	sig, err := crypto.Sign(digest, privateKey)
	if err != nil {
		return SignedAuthorization{}, fmt.Errorf("offlineauth: sign digest: %w", err)
	}
	if len(sig) != 65 {
		return SignedAuthorization{}, fmt.Errorf("offlineauth: unexpected signature length %d", len(sig))
	}

	address := crypto.PubkeyToAddress(privateKey.PublicKey).Hex()

	return SignedAuthorization{
		Authorization: a,
		Domain:        d,
		Signature:     "0x" + hex.EncodeToString(sig),
		Signer:        address,
	}, nil
}

// VerifyResult is the outcome of Verify.
type VerifyResult struct {
	Valid  bool
	Signer string // recovered address, when recoverable
	Err    error
}

// Verify recovers the signer from the digest and signature, and checks the
// deadline and claimed signer. On any failure it returns Valid=false with
// Err set, never an error return — callers inspect the result struct.
func Verify(a Authorization, d Domain, signature string, claimedSigner string, now time.Time) VerifyResult {
	sig, err := decodeSignature(signature)
	if err != nil {
		return VerifyResult{Valid: false, Err: fmt.Errorf("%w: %v", ErrSignatureInvalid, err)}
	}

	if a.Deadline < now.Unix() {
		return VerifyResult{Valid: false, Err: fmt.Errorf("%w: deadline %d has passed", ErrSignatureInvalid, a.Deadline)}
	}

	digest, err := Digest(a, d)
	if err != nil {
		return VerifyResult{Valid: false, Err: err}
	}

	recoveryByte := sig[64]
	if recoveryByte >= 27 {
		recoveryByte -= 27
	}
	sigForRecover := make([]byte, 65)
	copy(sigForRecover, sig)
	sigForRecover[64] = recoveryByte

	pubKey, err := crypto.SigToPub(digest, sigForRecover)
	if err != nil {
		return VerifyResult{Valid: false, Err: fmt.Errorf("%w: recover public key: %v", ErrSignatureInvalid, err)}
	}
	recovered := crypto.PubkeyToAddress(*pubKey).Hex()

	claimed, err := normalizeAddress(claimedSigner)
	if err != nil {
		return VerifyResult{Valid: false, Signer: recovered, Err: fmt.Errorf("%w: %v", ErrSignatureInvalid, err)}
	}

	if !strings.EqualFold(recovered, claimed) {
		return VerifyResult{
			Valid:  false,
			Signer: recovered,
			Err:    fmt.Errorf("%w: recovered signer %s does not match claimed signer %s", ErrSignatureInvalid, recovered, claimed),
		}
	}

	return VerifyResult{Valid: true, Signer: recovered}
}

func decodeSignature(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "0X")
	sig, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("malformed signature hex: %w", err)
	}
	if len(sig) != 65 {
		return nil, fmt.Errorf("signature must be 65 bytes, got %d", len(sig))
	}
	return sig, nil
}
