package aggregate

import (
	"math/big"
	"testing"
	"time"

	"github.com/yourorg/yield-oracle/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeSamples() []model.YieldSample {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return []model.YieldSample{
		{ProtocolID: "a", APY: 8, TVL: big.NewInt(1_000_000), Liquidity: big.NewInt(1), CollectedAt: base},
		{ProtocolID: "b", APY: 6, TVL: big.NewInt(500_000), Liquidity: big.NewInt(1), CollectedAt: base.Add(time.Second)},
		{ProtocolID: "c", APY: 5, TVL: big.NewInt(250_000), Liquidity: big.NewInt(1), CollectedAt: base.Add(2 * time.Second)},
	}
}

func TestCompute_WeightedAPY(t *testing.T) {
	m := Compute(threeSamples())

	// 12,250,000 / 1,750,000 = 7.0 exactly
	assert.InDelta(t, 7.0, m.WeightedAPY, 1e-9, "weighted APY should be the TVL-weighted average")
	assert.Equal(t, 0, m.TotalTVL.Cmp(big.NewInt(1_750_000)), "total TVL should sum all samples")
	assert.Equal(t, 3, m.ProtocolCount)
}

func TestCompute_VolatilityAndSharpe(t *testing.T) {
	m := Compute(threeSamples())

	// population stdev of [8,6,5]: mean 6.3333, variance 1.5556
	assert.InDelta(t, 1.2472, m.Volatility, 0.001, "volatility should be the population standard deviation")
	assert.InDelta(t, (7.0-RiskFreeRatePercent)/m.Volatility, m.SharpeScore, 1e-9)
	assert.InDelta(t, 4.01, m.SharpeScore, 0.01, "Sharpe-like score for the reference scenario")
}

func TestCompute_Deterministic(t *testing.T) {
	first := Compute(threeSamples())
	second := Compute(threeSamples())

	assert.Equal(t, first.WeightedAPY, second.WeightedAPY, "identical inputs must produce identical output")
	assert.Equal(t, first.Volatility, second.Volatility)
	assert.Equal(t, first.SharpeScore, second.SharpeScore)
	assert.Equal(t, 0, first.TotalTVL.Cmp(second.TotalTVL))
	assert.Equal(t, first.CollectedAt, second.CollectedAt)
}

func TestCompute_OrderInsensitive(t *testing.T) {
	samples := threeSamples()
	reversed := []model.YieldSample{samples[2], samples[1], samples[0]}

	forward := Compute(samples)
	backward := Compute(reversed)

	assert.InDelta(t, forward.WeightedAPY, backward.WeightedAPY, 1e-12, "aggregation must not depend on sample order")
	assert.InDelta(t, forward.Volatility, backward.Volatility, 1e-12)
	assert.Equal(t, 0, forward.TotalTVL.Cmp(backward.TotalTVL))
}

func TestCompute_Empty(t *testing.T) {
	m := Compute(nil)

	require.NotNil(t, m.TotalTVL)
	assert.Zero(t, m.WeightedAPY, "empty cycle should produce neutral defaults")
	assert.Zero(t, m.Volatility)
	assert.Zero(t, m.SharpeScore)
	assert.Zero(t, m.ProtocolCount)
	assert.Equal(t, 0, m.TotalTVL.Sign())
	assert.True(t, m.CollectedAt.IsZero())
}

func TestCompute_SingleSample(t *testing.T) {
	s := threeSamples()[:1]
	m := Compute(s)

	assert.InDelta(t, 8.0, m.WeightedAPY, 1e-9)
	assert.Zero(t, m.Volatility, "volatility is defined as 0 for one sample")
	assert.Zero(t, m.SharpeScore, "sharpe is 0 when volatility is 0")
	assert.Equal(t, 1, m.ProtocolCount)
}

func TestCompute_ZeroTVL(t *testing.T) {
	samples := []model.YieldSample{
		{ProtocolID: "a", APY: 8, TVL: big.NewInt(0), Liquidity: big.NewInt(1)},
		{ProtocolID: "b", APY: 6, TVL: big.NewInt(0), Liquidity: big.NewInt(1)},
	}
	m := Compute(samples)

	assert.Zero(t, m.WeightedAPY, "zero total TVL should give a neutral weighted APY")
	assert.Equal(t, 2, m.ProtocolCount, "zero-TVL samples still count as surviving protocols")
}

func TestCompute_TimestampFromNewestSample(t *testing.T) {
	samples := threeSamples()
	m := Compute(samples)
	assert.Equal(t, samples[2].CollectedAt, m.CollectedAt, "metrics timestamp should come from the newest sample")
}
