// Package normalize converts protocol-specific raw rate encodings into
// annualized percentages.
package normalize

import (
	"math/big"

	"github.com/yourorg/yield-oracle/internal/model"
)

// SecondsPerYear is the annualization constant shared by all encodings.
const SecondsPerYear = 31_536_000

// assumedBlockTimeSeconds is the post-merge Ethereum block time used to
// annualize per-block rates.
const assumedBlockTimeSeconds = 12

// BlocksPerYear derived from the assumed block time.
const BlocksPerYear = SecondsPerYear / assumedBlockTimeSeconds

// APY converts a raw rate value into an annualized percentage according to
// the protocol's encoding. Unknown encodings are treated as basis points.
func APY(raw *big.Int, kind model.EncodingKind) float64 {
	switch kind {
	case model.EncodingRay:
		// per-second rate scaled by 1e27
		perSecond := toFloat(raw, 1e27)
		return perSecond * SecondsPerYear * 100

	case model.EncodingPerBlock:
		// per-block rate scaled by 1e18
		perBlock := toFloat(raw, 1e18)
		return perBlock * BlocksPerYear * 100

	default:
		// annualized rate scaled by 100 (basis points)
		return toFloat(raw, 100)
	}
}

// toFloat divides raw by scale with big.Float precision before collapsing
// to float64, so ray-sized values do not overflow the intermediate math.
func toFloat(raw *big.Int, scale float64) float64 {
	q := new(big.Float).Quo(new(big.Float).SetInt(raw), big.NewFloat(scale))
	f, _ := q.Float64()
	return f
}
