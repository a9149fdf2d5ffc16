// Package aggregate computes cross-protocol metrics from a cycle's sample
// set. All functions are pure: identical inputs always yield identical
// outputs, which makes replays idempotent.
package aggregate

import (
	"math"
	"math/big"
	"time"

	"github.com/yourorg/yield-oracle/internal/model"
)

// RiskFreeRatePercent is the baseline yield used by the risk-adjusted score.
const RiskFreeRatePercent = 2.0

// Compute derives the TVL-weighted average APY, the cross-sectional
// volatility and a Sharpe-like score from the surviving samples of one
// cycle. An empty sample set produces neutral zeros with protocol count 0.
//
// The score is a simplified proxy, not a true Sharpe ratio: it uses the
// unweighted population standard deviation of a single cycle's
// cross-section rather than a time series.
func Compute(samples []model.YieldSample) model.AggregateMetrics {
	metrics := model.AggregateMetrics{
		TotalTVL:      big.NewInt(0),
		ProtocolCount: len(samples),
	}
	if len(samples) == 0 {
		return metrics
	}

	weighted := new(big.Float)
	var latest time.Time
	for _, s := range samples {
		metrics.TotalTVL.Add(metrics.TotalTVL, s.TVL)

		contrib := new(big.Float).SetInt(s.TVL)
		contrib.Mul(contrib, big.NewFloat(s.APY))
		weighted.Add(weighted, contrib)

		if s.CollectedAt.After(latest) {
			latest = s.CollectedAt
		}
	}
	metrics.CollectedAt = latest

	if metrics.TotalTVL.Sign() > 0 {
		q := new(big.Float).Quo(weighted, new(big.Float).SetInt(metrics.TotalTVL))
		metrics.WeightedAPY, _ = q.Float64()
	}

	metrics.Volatility = populationStdDev(samples)
	if metrics.Volatility > 0 {
		metrics.SharpeScore = (metrics.WeightedAPY - RiskFreeRatePercent) / metrics.Volatility
	}

	return metrics
}

// populationStdDev computes the standard deviation of sample APYs dividing
// by N. Zero for fewer than two samples.
func populationStdDev(samples []model.YieldSample) float64 {
	if len(samples) < 2 {
		return 0
	}

	var sum float64
	for _, s := range samples {
		sum += s.APY
	}
	mean := sum / float64(len(samples))

	var variance float64
	for _, s := range samples {
		diff := s.APY - mean
		variance += diff * diff
	}
	variance /= float64(len(samples))

	return math.Sqrt(variance)
}
