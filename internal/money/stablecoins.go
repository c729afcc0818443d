package money

import "fmt"

// KnownTokenContracts maps BEP-20 contract addresses on BSC (chainId 56) to
// their asset symbols. These are the only tokens accepted for settlement, to
// guard against a typo'd contract address silently routing funds elsewhere.
var KnownTokenContracts = map[string]string{
	"0x55d398326f99059fF775485246999027B3197955": "USDT",
	"0x8AC76a51cc950d9822D68b83fE1Ad97B32Cd580d": "USDC",
	"0x2170Ed0880ac9A755fd29B2688956BD959F933F0": "ETH",
}

// ValidateTokenContract checks if a contract address is a known, supported
// token. Returns the asset symbol if valid, or an error if not.
func ValidateTokenContract(contractAddress string) (string, error) {
	symbol, ok := KnownTokenContracts[contractAddress]
	if !ok {
		return "", fmt.Errorf(
			"token contract %s is not a recognized asset - only USDT, USDC, ETH are supported",
			contractAddress,
		)
	}
	return symbol, nil
}

// IsKnownTokenContract returns true if the contract address is a supported token.
func IsKnownTokenContract(contractAddress string) bool {
	_, ok := KnownTokenContracts[contractAddress]
	return ok
}

// GetTokenSymbol returns the symbol for a contract address, or "" if unknown.
func GetTokenSymbol(contractAddress string) string {
	return KnownTokenContracts[contractAddress]
}

// GetContractAddressForSymbol returns the contract address for a token
// symbol, or "" if the symbol is not a known BEP-20 asset.
func GetContractAddressForSymbol(symbol string) string {
	for addr, sym := range KnownTokenContracts {
		if sym == symbol {
			return addr
		}
	}
	return ""
}
