// Package registry holds the static catalog of yield-bearing protocols the
// oracle reads from. The catalog is built once at startup and never mutated.
package registry

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/yourorg/yield-oracle/internal/model"
)

// Registry is the immutable protocol catalog.
type Registry struct {
	sources []model.ProtocolSource
	byID    map[string]model.ProtocolSource
}

// New builds a registry from the given sources. Sources must have unique,
// non-empty ids and a liquidity floor.
func New(sources []model.ProtocolSource) (*Registry, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("no protocol sources configured")
	}

	byID := make(map[string]model.ProtocolSource, len(sources))
	for _, src := range sources {
		if src.ID == "" {
			return nil, fmt.Errorf("protocol source with empty id")
		}
		if _, dup := byID[src.ID]; dup {
			return nil, fmt.Errorf("duplicate protocol id %q", src.ID)
		}
		if src.MinLiquidity == nil {
			return nil, fmt.Errorf("protocol %q: missing min_liquidity", src.ID)
		}
		if src.Address == "" && src.APIEndpoint == "" {
			return nil, fmt.Errorf("protocol %q: no address or api endpoint", src.ID)
		}
		byID[src.ID] = src
	}

	return &Registry{sources: sources, byID: byID}, nil
}

// Load parses a JSON array of protocol sources and builds a registry.
// With an empty input the built-in defaults are used.
func Load(rawJSON string) (*Registry, error) {
	if rawJSON == "" {
		return New(Defaults())
	}

	var sources []model.ProtocolSource
	if err := json.Unmarshal([]byte(rawJSON), &sources); err != nil {
		return nil, fmt.Errorf("parse protocol registry: %w", err)
	}
	return New(sources)
}

// Sources returns a copy of all registered protocol sources.
func (r *Registry) Sources() []model.ProtocolSource {
	out := make([]model.ProtocolSource, len(r.sources))
	copy(out, r.sources)
	return out
}

// Get looks up a source by protocol id.
func (r *Registry) Get(id string) (model.ProtocolSource, bool) {
	src, ok := r.byID[id]
	return src, ok
}

// Len returns the number of registered protocols.
func (r *Registry) Len() int {
	return len(r.sources)
}

// Defaults returns the built-in mainnet protocol catalog.
func Defaults() []model.ProtocolSource {
	return []model.ProtocolSource{
		{
			ID:            "aave-v3",
			Name:          "Aave V3 USDC",
			Address:       "0x87870Bca3F3fD6335C3F4ce8392D69350B4fA4E2",
			APYCall:       model.CallDescriptor{Selector: "0x35ea6a75"},
			TVLCall:       model.CallDescriptor{Selector: "0xc72c4d10"},
			LiquidityCall: model.CallDescriptor{Selector: "0x70a08231"},
			Encoding:      model.EncodingRay,
			RiskScore:     2,
			MinLiquidity:  big.NewInt(100_000_000_000), // 100k USDC
			Decimals:      6,
		},
		{
			ID:            "compound-v2",
			Name:          "Compound cUSDC",
			Address:       "0x39AA39c021dfbaE8faC545936693aC917d5E7563",
			APYCall:       model.CallDescriptor{Selector: "0xae9d70b0"},
			TVLCall:       model.CallDescriptor{Selector: "0x8f840ddd"},
			LiquidityCall: model.CallDescriptor{Selector: "0x3e2bca66"},
			Encoding:      model.EncodingPerBlock,
			RiskScore:     3,
			MinLiquidity:  big.NewInt(50_000_000_000), // 50k USDC
			Decimals:      6,
		},
		{
			ID:            "lido",
			Name:          "Lido stETH",
			Address:       "0xae7ab96520DE3A18E5e111B5EaAb095312D7fE84",
			APYCall:       model.CallDescriptor{Selector: "0x37cfdaca"},
			TVLCall:       model.CallDescriptor{Selector: "0x47b2af2c"},
			LiquidityCall: model.CallDescriptor{Selector: "0x3e0dc34e"},
			Encoding:      model.EncodingBasisPoints,
			RiskScore:     1,
			MinLiquidity:  new(big.Int).Mul(big.NewInt(100), oneEther()), // 100 ETH
			Decimals:      18,
		},
		{
			ID:            "yearn-usdc",
			Name:          "Yearn USDC Vault",
			Address:       "0xa354F35829Ae975e850e23e9615b11Da1B3dC4DE",
			APYCall:       model.CallDescriptor{Selector: "0x99530b06"},
			TVLCall:       model.CallDescriptor{Selector: "0x01e1d114"},
			LiquidityCall: model.CallDescriptor{Selector: "0xd9638d36"},
			RiskScore:     4,
			MinLiquidity:  big.NewInt(25_000_000_000), // 25k USDC
			Decimals:      6,
		},
	}
}

func oneEther() *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
}
