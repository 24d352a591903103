package intent

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mr-tron/base58"
)

// knownTokens maps (chain identifier, uppercased symbol) to the canonical
// on-chain address. Keyed per chain because the same ticker resolves to a
// different contract on each network.
var knownTokens = map[string]map[string]string{
	ChainSolana: {
		"SOL":  "So11111111111111111111111111111111111111112",
		"USDC": "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		"USDT": "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB",
	},
	ChainEthereum: {
		"ETH":  "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", // WETH stands in for native ETH
		"USDC": "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
		"USDT": "0xdAC17F958D2ee523a2206206994597C13D831ec7",
	},
	ChainBase: {
		"ETH":  "0x4200000000000000000000000000000000000006",
		"USDC": "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
		"USDT": "0xfde4C96c8593536E31F229EA8f37b2ADa2699bb2",
	},
	ChainArbitrum: {
		"ETH":  "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1",
		"USDC": "0xaf88d065e77c8cC2239327C5EDb3A432268e5831",
		"USDT": "0xFd086bC7CD5C481DCC9C85ebE478A1C0b69FCbb9",
	},
	ChainBSC: {
		"BNB":  "0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c",
		"USDC": "0x8AC76a51cc950d9822D68b83fE1Ad97B32Cd580d",
		"USDT": "0x55d398326f99059fF775485246999027B3197955",
	},
	ChainPolygon: {
		"POL":  "0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270",
		"USDC": "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359",
		"USDT": "0xc2132D05D31c914a87C6611C10748AEb04B58e8F",
	},
}

// stablecoins gates the AIUSD conversion rule in Build. Membership is checked
// on the uppercased symbol, not the resolved address.
var stablecoins = map[string]bool{
	"USDC": true,
	"USDT": true,
	"USD1": true,
	"DAI":  true,
	"BUSD": true,
}

// ResolveToken maps a symbol to its canonical address for the given chain
// identifier. Unknown symbols and anything that already looks like a raw
// address pass through unchanged; the backend resolves the rest. This never
// fails so that newly listed tokens work without a client update.
func ResolveToken(token, chainID string) string {
	if addrs, ok := knownTokens[chainID]; ok {
		if addr, ok := addrs[strings.ToUpper(token)]; ok {
			return addr
		}
	}
	// Raw addresses (0x-prefixed, or long enough to be base58 Solana) and
	// unknown symbols both pass through as-is.
	return token
}

// ValidAddress reports whether s is a well-formed on-chain address for the
// given chain identifier: a 20-byte hex address on EVM chains, a base58
// string decoding to 32 bytes on Solana. Used by strict mode and by callers
// that need to vet withdrawal destinations before submitting them.
func ValidAddress(chainID, s string) bool {
	if strings.HasPrefix(chainID, "solana:") {
		raw, err := base58.Decode(s)
		return err == nil && len(raw) == 32
	}
	return common.IsHexAddress(s)
}
