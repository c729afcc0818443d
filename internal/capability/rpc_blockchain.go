package capability

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"

	"github.com/boonlink/bridge/internal/money"
	"github.com/boonlink/bridge/internal/offlineauth"
	"github.com/boonlink/bridge/internal/rpcutil"
)

// erc20ABIJSON covers the ERC20 balanceOf read. bridgeABIJSON covers the
// bridge contract's nonces view (used for EIP-712 replay protection) and
// its executeAuthorization method.
const erc20ABIJSON = `[
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"}
]`

const bridgeABIJSON = `[
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"nonces","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":false,"inputs":[
		{"name":"token","type":"address"},
		{"name":"recipient","type":"address"},
		{"name":"amount","type":"uint256"},
		{"name":"nonce","type":"uint256"},
		{"name":"deadline","type":"uint256"},
		{"name":"signature","type":"bytes"}
	],"name":"executeAuthorization","outputs":[],"type":"function"}
]`

// RPCBlockchain is the production Blockchain capability: a BSC JSON-RPC
// client plus the relayer key that submits pre-signed offline
// authorizations to the bridge's on-chain relay contract. Every RPC call
// goes through rpcutil.WithRetry so a transient BSC node blip doesn't
// surface as a hard failure.
type RPCBlockchain struct {
	client         *ethclient.Client
	relayerKey     *ecdsa.PrivateKey
	relayerAddress common.Address
	bridgeContract common.Address
	chainID        *big.Int
	erc20ABI       abi.ABI
	bridgeABI      abi.ABI
	gasLimit       uint64
}

// NewRPCBlockchain dials rpcURL and constructs an RPCBlockchain. relayerKeyHex
// is the hex-encoded (no 0x prefix required) secp256k1 private key the
// service uses to submit relay transactions on behalf of authorized users.
func NewRPCBlockchain(ctx context.Context, rpcURL, relayerKeyHex, bridgeContractAddress string, chainID int64) (*RPCBlockchain, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("capability: dial BSC RPC: %w", err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(relayerKeyHex, "0x"))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("capability: parse relayer key: %w", err)
	}

	erc20ABI, err := abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("capability: parse erc20 ABI: %w", err)
	}
	bridgeABI, err := abi.JSON(strings.NewReader(bridgeABIJSON))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("capability: parse bridge ABI: %w", err)
	}

	return &RPCBlockchain{
		client:         client,
		relayerKey:     key,
		relayerAddress: crypto.PubkeyToAddress(key.PublicKey),
		bridgeContract: common.HexToAddress(bridgeContractAddress),
		chainID:        big.NewInt(chainID),
		erc20ABI:       erc20ABI,
		bridgeABI:      bridgeABI,
		gasLimit:       200_000,
	}, nil
}

// Close releases the underlying RPC connection.
func (b *RPCBlockchain) Close() error {
	b.client.Close()
	return nil
}

// GetBalance reads the ERC20 balanceOf a wallet and renders it in the
// bridge's internal decimal precision for token (money.GetAsset).
func (b *RPCBlockchain) GetBalance(ctx context.Context, address string, token string) (decimal.Decimal, error) {
	asset, err := money.GetAsset(token)
	if err != nil {
		return decimal.Zero, err
	}
	contractAddr, err := asset.GetContractAddress()
	if err != nil {
		return decimal.Zero, err
	}

	calldata, err := b.erc20ABI.Pack("balanceOf", common.HexToAddress(address))
	if err != nil {
		return decimal.Zero, fmt.Errorf("capability: pack balanceOf: %w", err)
	}

	to := common.HexToAddress(contractAddr)
	raw, err := rpcutil.WithRetry(ctx, func() ([]byte, error) {
		return b.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: calldata}, nil)
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("capability: call balanceOf: %w", err)
	}

	var balance *big.Int
	if err := b.erc20ABI.UnpackIntoInterface(&balance, "balanceOf", raw); err != nil {
		return decimal.Zero, fmt.Errorf("capability: unpack balanceOf: %w", err)
	}

	return decimal.NewFromBigInt(balance, -int32(asset.Decimals)), nil
}

// CreateTransferTx reads the bridge contract's current replay nonce for
// from and packages an unsigned transfer request around it. The chain's
// own account nonce is irrelevant here — the relayer, not from, submits
// the eventual transaction.
func (b *RPCBlockchain) CreateTransferTx(ctx context.Context, from, to string, amount decimal.Decimal, token string) (TxRequest, error) {
	calldata, err := b.bridgeABI.Pack("nonces", common.HexToAddress(from))
	if err != nil {
		return TxRequest{}, fmt.Errorf("capability: pack nonces: %w", err)
	}

	bridgeAddr := b.bridgeContract
	raw, err := rpcutil.WithRetry(ctx, func() ([]byte, error) {
		return b.client.CallContract(ctx, ethereum.CallMsg{To: &bridgeAddr, Data: calldata}, nil)
	})
	if err != nil {
		return TxRequest{}, fmt.Errorf("capability: call nonces: %w", err)
	}

	var nonce *big.Int
	if err := b.bridgeABI.UnpackIntoInterface(&nonce, "nonces", raw); err != nil {
		return TxRequest{}, fmt.Errorf("capability: unpack nonces: %w", err)
	}

	return TxRequest{From: from, To: to, Amount: amount, Token: token, Nonce: nonce.Uint64()}, nil
}

// SignTransaction signs the EIP-712 authorization digest with the relayer
// key. In production this signature is relayed to the bridge contract
// alongside the authorization; BroadcastTransaction performs that relay.
func (b *RPCBlockchain) SignTransaction(ctx context.Context, tx TxRequest, authorization offlineauth.Authorization, domain offlineauth.Domain) (offlineauth.SignedAuthorization, error) {
	return offlineauth.Sign(authorization, domain, b.relayerKey)
}

// signedPayload is the JSON shape BroadcastTransaction expects signedTx to
// unmarshal into — matching what tools.ConfirmPayment marshals before
// enqueueing.
type signedPayload = offlineauth.SignedAuthorization

// BroadcastTransaction submits the signed authorization to the bridge
// contract's executeAuthorization method and returns the resulting tx hash.
func (b *RPCBlockchain) BroadcastTransaction(ctx context.Context, signedTx string) (string, error) {
	var signed signedPayload
	if err := unmarshalSignedTx(signedTx, &signed); err != nil {
		return "", fmt.Errorf("capability: decode signed tx: %w", err)
	}

	asset, err := money.GetAsset(signed.Authorization.Token)
	if err != nil {
		return "", err
	}
	contractAddr, err := asset.GetContractAddress()
	if err != nil {
		return "", err
	}

	sigBytes, err := decodeHexSignature(signed.Signature)
	if err != nil {
		return "", fmt.Errorf("capability: decode signature: %w", err)
	}

	calldata, err := b.bridgeABI.Pack("executeAuthorization",
		common.HexToAddress(contractAddr),
		common.HexToAddress(signed.Authorization.Recipient),
		signed.Authorization.Amount,
		new(big.Int).SetUint64(signed.Authorization.Nonce),
		big.NewInt(signed.Authorization.Deadline),
		sigBytes,
	)
	if err != nil {
		return "", fmt.Errorf("capability: pack executeAuthorization: %w", err)
	}

	nonce, err := rpcutil.WithRetry(ctx, func() (uint64, error) {
		return b.client.PendingNonceAt(ctx, b.relayerAddress)
	})
	if err != nil {
		return "", fmt.Errorf("capability: fetch relayer nonce: %w", err)
	}

	gasPrice, err := rpcutil.WithRetry(ctx, func() (*big.Int, error) {
		return b.client.SuggestGasPrice(ctx)
	})
	if err != nil {
		return "", fmt.Errorf("capability: suggest gas price: %w", err)
	}

	unsignedTx := types.NewTransaction(nonce, b.bridgeContract, big.NewInt(0), b.gasLimit, gasPrice, calldata)
	signer := types.NewEIP155Signer(b.chainID)
	relayTx, err := types.SignTx(unsignedTx, signer, b.relayerKey)
	if err != nil {
		return "", fmt.Errorf("capability: sign relay tx: %w", err)
	}

	if _, err := rpcutil.WithRetry(ctx, func() (struct{}, error) {
		return struct{}{}, b.client.SendTransaction(ctx, relayTx)
	}); err != nil {
		return "", fmt.Errorf("capability: send relay tx: %w", err)
	}

	return relayTx.Hash().Hex(), nil
}

// WaitForConfirmation polls for the relay transaction's receipt until it
// has accumulated confirmations blocks of depth or timeout elapses.
func (b *RPCBlockchain) WaitForConfirmation(ctx context.Context, txHash string, confirmations uint64, timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	hash := common.HexToHash(txHash)

	for time.Now().Before(deadline) {
		receipt, err := b.client.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil && receipt.Status == types.ReceiptStatusSuccessful {
			latest, err := b.client.BlockNumber(ctx)
			if err == nil && latest >= receipt.BlockNumber.Uint64()+confirmations {
				return true, nil
			}
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}

	return false, nil
}

func unmarshalSignedTx(signedTx string, dest *signedPayload) error {
	return json.Unmarshal([]byte(signedTx), dest)
}

func decodeHexSignature(signature string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(signature, "0x"))
}
