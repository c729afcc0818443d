package capability

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/boonlink/bridge/internal/offlineauth"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
)

// MockBlockchain simulates a BSC node for demoMode and tests: balances are
// seeded in memory, signing uses a real secp256k1 key (so signature
// verification downstream is exercised honestly), and confirmation
// succeeds after a configurable number of polls to emulate block time.
type MockBlockchain struct {
	mu                   sync.Mutex
	balances             map[string]decimal.Decimal // "address:token" -> balance
	nonces               map[string]uint64
	confirmPollsRequired int
	confirmPolls         map[string]int // txHash -> polls seen so far
}

// NewMockBlockchain constructs a mock with empty balances. confirmAfterPolls
// controls how many WaitForConfirmation calls a tx needs before it reports
// confirmed, simulating progressive block confirmations.
func NewMockBlockchain(confirmAfterPolls int) *MockBlockchain {
	return &MockBlockchain{
		balances:             make(map[string]decimal.Decimal),
		nonces:               make(map[string]uint64),
		confirmPollsRequired: confirmAfterPolls,
		confirmPolls:         make(map[string]int),
	}
}

// SeedBalance sets an address's balance for a token, for test setup.
func (m *MockBlockchain) SeedBalance(address, token string, amount decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[balanceKey(address, token)] = amount
}

func balanceKey(address, token string) string {
	return address + ":" + token
}

func (m *MockBlockchain) GetBalance(ctx context.Context, address string, token string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	balance, ok := m.balances[balanceKey(address, token)]
	if !ok {
		return decimal.Zero, nil
	}
	return balance, nil
}

func (m *MockBlockchain) CreateTransferTx(ctx context.Context, from, to string, amount decimal.Decimal, token string) (TxRequest, error) {
	m.mu.Lock()
	nonce := m.nonces[from]
	m.nonces[from] = nonce + 1
	m.mu.Unlock()

	return TxRequest{
		From:   from,
		To:     to,
		Amount: amount,
		Token:  token,
		Nonce:  nonce,
	}, nil
}

// SignTransaction signs the EIP-712 authorization envelope with the fixed
// mock key (mockSigningKey), mirroring the offline-authorization flow a wallet app performs
// before connectivity is available.
func (m *MockBlockchain) SignTransaction(ctx context.Context, tx TxRequest, authorization offlineauth.Authorization, domain offlineauth.Domain) (offlineauth.SignedAuthorization, error) {
	key, err := mockSigningKey()
	if err != nil {
		return offlineauth.SignedAuthorization{}, err
	}
	return offlineauth.Sign(authorization, domain, key)
}

func (m *MockBlockchain) BroadcastTransaction(ctx context.Context, signedTx string) (string, error) {
	hash := crypto.Keccak256Hash([]byte(signedTx))
	return hash.Hex(), nil
}

func (m *MockBlockchain) WaitForConfirmation(ctx context.Context, txHash string, confirmations uint64, timeout time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.confirmPolls[txHash]++
	return m.confirmPolls[txHash] >= m.confirmPollsRequired, nil
}

// mockSigningKey derives a fixed, well-known test private key so mock
// signatures are deterministic and reproducible across test runs.
func mockSigningKey() (*ecdsa.PrivateKey, error) {
	const fixedHex = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f36231"
	raw, err := hex.DecodeString(fixedHex)
	if err != nil {
		return nil, fmt.Errorf("capability: decode mock signing key: %w", err)
	}
	key, err := crypto.ToECDSA(raw)
	if err != nil {
		return nil, fmt.Errorf("capability: parse mock signing key: %w", err)
	}
	return key, nil
}
