package tool

import (
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// Token describes one tradable asset known to the chain executor.
type Token struct {
	Address  string `yaml:"address"`
	Decimals uint8  `yaml:"decimals"`
	Native   bool   `yaml:"native"`
}

// TokenRegistry maps upper-case symbols to token metadata.
type TokenRegistry map[string]Token

type tokenFile struct {
	Tokens map[string]Token `yaml:"tokens"`
}

// DefaultTokens returns the built-in mainnet symbols.
func DefaultTokens() TokenRegistry {
	return TokenRegistry{
		"ETH":  {Address: "0x1CcCA1cE62c62F7Be95d4A67722a8fDbed6EEcb4", Decimals: 18, Native: true},
		"WETH": {Address: "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"},
		"USDC": {Address: "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"},
		"WBTC": {Address: "0x2260fac5e5542a773aa44fbcfedf7c193bc2c599"},
		"USDT": {Address: "0xdac17f958d2ee523a2206206994597c13d831ec7"},
		"UST":  {Address: "0xa693b19d2931d498c5b318df961919bb4aee87a5"},
		"DAI":  {Address: "0x6b175474e89094c44da98b954eedeac495271d0f"},
		"UNI":  {Address: "0x1f9840a85d5af5bf1d1762f925bdaddc4201f984"},
	}
}

// LoadTokenRegistry overlays the YAML file at path on top of DefaultTokens.
// An empty path returns the defaults.
func LoadTokenRegistry(path string) (TokenRegistry, error) {
	reg := DefaultTokens()
	if strings.TrimSpace(path) == "" {
		return reg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read token registry: %w", err)
	}

	var file tokenFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("parse token registry: %w", err)
	}
	for symbol, token := range file.Tokens {
		if !token.Native && !common.IsHexAddress(token.Address) {
			return nil, fmt.Errorf("token %s: invalid address %q", symbol, token.Address)
		}
		reg[strings.ToUpper(strings.TrimSpace(symbol))] = token
	}
	return reg, nil
}

// Lookup resolves a symbol case-insensitively.
func (r TokenRegistry) Lookup(symbol string) (Token, bool) {
	token, ok := r[strings.ToUpper(strings.TrimSpace(symbol))]
	return token, ok
}
