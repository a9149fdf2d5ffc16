// Package model defines the core data structures for the yield oracle.
package model

import (
	"math/big"
	"time"
)

// EncodingKind identifies how a protocol encodes its raw rate value.
type EncodingKind string

// Known rate encodings. Anything else is treated as basis points.
const (
	// EncodingRay is a per-second rate scaled by 1e27 (Aave style).
	EncodingRay EncodingKind = "ray"

	// EncodingBasisPoints is an already-annualized rate scaled by 100.
	EncodingBasisPoints EncodingKind = "basis_points"

	// EncodingPerBlock is a per-block rate scaled by 1e18 (Compound style).
	EncodingPerBlock EncodingKind = "per_block"
)

// CallDescriptor describes a single read-only contract call.
type CallDescriptor struct {
	// Selector is the 4-byte function selector, hex encoded with 0x prefix.
	Selector string `json:"selector"`
}

// ProtocolSource is one entry of the protocol registry. It is loaded at
// startup and never mutated afterwards.
type ProtocolSource struct {
	// ID is the unique identifier of the protocol
	ID string `json:"id"`

	// Name is the human-readable display name
	Name string `json:"name"`

	// Address is the contract address the read calls are issued against
	Address string `json:"address"`

	// Per-operation call descriptors
	APYCall       CallDescriptor `json:"apy_call"`
	TVLCall       CallDescriptor `json:"tvl_call"`
	LiquidityCall CallDescriptor `json:"liquidity_call"`

	// Encoding selects the normalization rule for the raw rate
	Encoding EncodingKind `json:"encoding"`

	// RiskScore ranks protocol risk, lower is safer
	RiskScore int `json:"risk_score"`

	// MinLiquidity is the minimum acceptable liquidity in smallest units
	MinLiquidity *big.Int `json:"min_liquidity"`

	// Decimals is the token decimal count, used for TVL sanity bounds
	Decimals int `json:"decimals"`

	// APIEndpoint, when set, is the HTTP read-proxy base URL this
	// source's reads are issued against instead of the chain RPC
	APIEndpoint string `json:"api_endpoint,omitempty"`
}

// RawReading holds the three raw values read from one protocol before
// normalization.
type RawReading struct {
	ProtocolID   string
	RawAPY       *big.Int
	RawTVL       *big.Int
	RawLiquidity *big.Int
	CollectedAt  time.Time
}

// YieldSample is the normalized unit of work: one validated reading of a
// single protocol within a cycle. Immutable once created.
type YieldSample struct {
	// ProtocolID identifies the source protocol
	ProtocolID string `json:"protocol_id"`

	// APY is the annualized yield in percent, 0-100
	APY float64 `json:"apy"`

	// Liquidity in smallest units
	Liquidity *big.Int `json:"liquidity"`

	// TVL in smallest units
	TVL *big.Int `json:"tvl"`

	// RiskScore copied from the source at collection time
	RiskScore int `json:"risk_score"`

	// CollectedAt is when the reads were issued
	CollectedAt time.Time `json:"collected_at"`
}

// AggregateMetrics is the derived cross-protocol result of one cycle.
// A new row is produced each cycle; rows are never mutated.
type AggregateMetrics struct {
	// CollectedAt is the timestamp of the newest contributing sample
	CollectedAt time.Time `json:"collected_at"`

	// WeightedAPY is the TVL-weighted average APY in percent
	WeightedAPY float64 `json:"weighted_apy"`

	// Volatility is the population standard deviation of sample APYs
	Volatility float64 `json:"volatility"`

	// SharpeScore is the risk-adjusted score derived from WeightedAPY
	// and Volatility
	SharpeScore float64 `json:"sharpe_score"`

	// TotalTVL summed across surviving samples, smallest units
	TotalTVL *big.Int `json:"total_tvl"`

	// ProtocolCount is the number of surviving samples
	ProtocolCount int `json:"protocol_count"`
}

// Snapshot is the cached view of the most recent successful cycle.
type Snapshot struct {
	Metrics AggregateMetrics `json:"metrics"`
	Samples []YieldSample    `json:"samples"`
}
