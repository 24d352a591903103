package intent

import (
	"fmt"
	"strings"
)

// Chain identifiers follow the CAIP-2 convention (namespace:reference).
const (
	ChainSolana   = "solana:mainnet-beta"
	ChainEthereum = "eip155:1"
	ChainBase     = "eip155:8453"
	ChainArbitrum = "eip155:42161"
	ChainBSC      = "eip155:56"
	ChainPolygon  = "eip155:137"
)

// chainNames is the accepted spelling order for error messages.
var chainNames = []string{"solana", "ethereum", "eth", "base", "arbitrum", "arb", "bsc", "polygon", "matic"}

var chainIDs = map[string]string{
	"solana":   ChainSolana,
	"ethereum": ChainEthereum,
	"eth":      ChainEthereum,
	"base":     ChainBase,
	"arbitrum": ChainArbitrum,
	"arb":      ChainArbitrum,
	"bsc":      ChainBSC,
	"polygon":  ChainPolygon,
	"matic":    ChainPolygon,
}

// UnknownChainError reports a chain name that matches neither the lookup
// table nor the pre-resolved identifier heuristic.
type UnknownChainError struct {
	Chain string
}

func (e *UnknownChainError) Error() string {
	return fmt.Sprintf("unknown chain %q: valid chains are %s", e.Chain, strings.Join(chainNames, ", "))
}

// ResolveChain maps a human chain name to its CAIP-2 identifier. Inputs that
// already contain a colon are treated as pre-resolved identifiers and passed
// through unchanged, so callers may supply e.g. "eip155:10" directly.
func ResolveChain(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if id, ok := chainIDs[strings.ToLower(trimmed)]; ok {
		return id, nil
	}
	// CAIP-2 references can be case-sensitive (Solana genesis hashes), so the
	// passthrough keeps the caller's casing.
	if strings.Contains(trimmed, ":") {
		return trimmed, nil
	}
	return "", &UnknownChainError{Chain: name}
}
