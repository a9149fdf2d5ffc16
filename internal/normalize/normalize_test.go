package normalize

import (
	"math/big"
	"testing"

	"github.com/yourorg/yield-oracle/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestAPY_RayEncoding(t *testing.T) {
	// 1e26 ray = 0.1 per second, annualized per the stated formula:
	// 0.1 * 31,536,000 * 100
	raw, _ := new(big.Int).SetString("100000000000000000000000000", 10)

	apy := APY(raw, model.EncodingRay)
	assert.InDelta(t, 0.1*SecondsPerYear*100, apy, 1e-6, "ray encoding should follow rate/1e27*secondsPerYear*100")
}

func TestAPY_RayEncodingRealisticRate(t *testing.T) {
	// A realistic Aave-style liquidity rate: 3% APR as a per-second ray.
	// rate = 0.03 / secondsPerYear * 1e27
	rate := new(big.Float).Quo(big.NewFloat(0.03), big.NewFloat(SecondsPerYear))
	rate.Mul(rate, big.NewFloat(1e27))
	raw, _ := rate.Int(nil)

	apy := APY(raw, model.EncodingRay)
	assert.InDelta(t, 3.0, apy, 0.001, "3%% per-second ray should normalize to 3%%")
}

func TestAPY_BasisPoints(t *testing.T) {
	apy := APY(big.NewInt(450), model.EncodingBasisPoints)
	assert.InDelta(t, 4.5, apy, 1e-9, "450 bps should normalize to 4.5%%")
}

func TestAPY_PerBlock(t *testing.T) {
	// per-block fraction of 1e-8 scaled by 1e18
	raw := big.NewInt(10_000_000_000)

	apy := APY(raw, model.EncodingPerBlock)
	want := 1e-8 * float64(BlocksPerYear) * 100
	assert.InDelta(t, want, apy, 1e-6, "per-block encoding should annualize with blocksPerYear")
}

func TestAPY_UnknownEncodingDefaultsToBasisPoints(t *testing.T) {
	apy := APY(big.NewInt(725), model.EncodingKind("mystery"))
	assert.InDelta(t, 7.25, apy, 1e-9, "unknown encodings fall back to basis-points treatment")

	apy = APY(big.NewInt(725), "")
	assert.InDelta(t, 7.25, apy, 1e-9, "empty encoding falls back to basis-points treatment")
}

func TestAPY_ZeroRate(t *testing.T) {
	for _, kind := range []model.EncodingKind{model.EncodingRay, model.EncodingBasisPoints, model.EncodingPerBlock} {
		assert.Zero(t, APY(big.NewInt(0), kind), "zero raw rate should normalize to zero for %s", kind)
	}
}

func TestBlocksPerYear(t *testing.T) {
	assert.Equal(t, 2_628_000, BlocksPerYear, "blocksPerYear should assume 12s blocks")
}
