package money

import (
	"fmt"
	"sync"
)

// Asset represents a currency or on-chain token with its properties.
type Asset struct {
	Code     string // Asset code (THB, USDT, USDC, ETH)
	Decimals uint8  // Number of decimal places (2 for THB, 6 for USDT/USDC, 18 for ETH)
	Type     AssetType
	Metadata AssetMetadata
}

// AssetType categorizes the asset for different rails.
type AssetType int

const (
	AssetTypeFiat  AssetType = iota // Fiat currency settled via PromptPay
	AssetTypeBEP20                  // BEP-20 token on BSC (chainId 56)
)

// AssetMetadata contains rail-specific information.
type AssetMetadata struct {
	ContractAddress string // BEP-20 token contract address (0x..., empty for native gas assets)
}

// Global asset registry with concurrent access protection
var (
	assetRegistry = map[string]Asset{
		// Fiat leg, settled over PromptPay.
		"THB": {
			Code:     "THB",
			Decimals: 2, // satang
			Type:     AssetTypeFiat,
		},

		// BEP-20 tokens on BSC (chainId 56).
		"USDT": {
			Code:     "USDT",
			Decimals: 6, // bridge-internal precision (micro-USDT), independent of on-chain raw decimals
			Type:     AssetTypeBEP20,
			Metadata: AssetMetadata{
				ContractAddress: "0x55d398326f99059fF775485246999027B3197955", // USDT (BSC mainnet)
			},
		},
		"USDC": {
			Code:     "USDC",
			Decimals: 6, // bridge-internal precision (micro-USDC)
			Type:     AssetTypeBEP20,
			Metadata: AssetMetadata{
				ContractAddress: "0x8AC76a51cc950d9822D68b83fE1Ad97B32Cd580d", // USDC (BSC mainnet)
			},
		},
		"ETH": {
			Code:     "ETH",
			Decimals: 18, // wei
			Type:     AssetTypeBEP20,
			Metadata: AssetMetadata{
				ContractAddress: "0x2170Ed0880ac9A755fd29B2688956BD959F933F0", // Binance-Peg Ethereum Token
			},
		},
	}
	assetRegistryMu sync.RWMutex
)

// GetAsset retrieves an asset from the registry.
func GetAsset(code string) (Asset, error) {
	assetRegistryMu.RLock()
	asset, ok := assetRegistry[code]
	assetRegistryMu.RUnlock()

	if !ok {
		return Asset{}, fmt.Errorf("money: unknown asset: %s", code)
	}
	return asset, nil
}

// MustGetAsset retrieves an asset and panics if not found (for tests/constants).
func MustGetAsset(code string) Asset {
	asset, err := GetAsset(code)
	if err != nil {
		panic(err)
	}
	return asset
}

// RegisterAsset adds a new asset to the registry (for testing or dynamic tokens).
func RegisterAsset(asset Asset) error {
	if asset.Code == "" {
		return fmt.Errorf("money: asset code required")
	}
	if asset.Decimals > 18 {
		return fmt.Errorf("money: decimals must be <= 18")
	}

	assetRegistryMu.Lock()
	assetRegistry[asset.Code] = asset
	assetRegistryMu.Unlock()

	return nil
}

// ListAssets returns all registered assets.
func ListAssets() []Asset {
	assetRegistryMu.RLock()
	assets := make([]Asset, 0, len(assetRegistry))
	for _, asset := range assetRegistry {
		assets = append(assets, asset)
	}
	assetRegistryMu.RUnlock()

	return assets
}

// IsFiat returns true if the asset settles over the PromptPay fiat rail.
func (a Asset) IsFiat() bool {
	return a.Type == AssetTypeFiat
}

// IsBEP20 returns true if the asset is a BEP-20 token on BSC.
func (a Asset) IsBEP20() bool {
	return a.Type == AssetTypeBEP20
}

// GetContractAddress returns the BEP-20 contract address or error.
func (a Asset) GetContractAddress() (string, error) {
	if !a.IsBEP20() {
		return "", fmt.Errorf("money: %s is not a BEP-20 token", a.Code)
	}
	return a.Metadata.ContractAddress, nil
}
