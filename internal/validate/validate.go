// Package validate rejects implausible yield samples before they enter
// aggregation.
package validate

import (
	"fmt"
	"math/big"

	"github.com/yourorg/yield-oracle/internal/model"
)

// Options holds the plausibility bounds applied to every sample.
type Options struct {
	// MaxAPYPercent is the upper bound on annualized yield
	MaxAPYPercent float64

	// MaxWholeTokens bounds TVL at MaxWholeTokens * 10^decimals
	MaxWholeTokens *big.Int
}

// DefaultOptions returns the bounds used in production.
func DefaultOptions() Options {
	return Options{
		MaxAPYPercent:  100,
		MaxWholeTokens: big.NewInt(1_000_000_000),
	}
}

// Sample checks one normalized sample against its source's floors and the
// configured bounds. A non-nil error marks the sample as a collection
// failure.
func Sample(s model.YieldSample, src model.ProtocolSource, opts Options) error {
	if s.APY < 0 {
		return fmt.Errorf("negative APY: %f", s.APY)
	}
	if s.APY > opts.MaxAPYPercent {
		return fmt.Errorf("implausible APY value (>%g%%): %f", opts.MaxAPYPercent, s.APY)
	}

	if s.Liquidity == nil || s.Liquidity.Cmp(src.MinLiquidity) < 0 {
		return fmt.Errorf("liquidity below floor %s", src.MinLiquidity)
	}

	if s.TVL == nil || s.TVL.Sign() < 0 {
		return fmt.Errorf("negative TVL")
	}
	if s.TVL.Cmp(maxTVL(src, opts)) > 0 {
		return fmt.Errorf("implausible TVL: %s", s.TVL)
	}

	return nil
}

// maxTVL computes the sanity ceiling in smallest units for the source's
// token decimals.
func maxTVL(src model.ProtocolSource, opts Options) *big.Int {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(src.Decimals)), nil)
	return new(big.Int).Mul(opts.MaxWholeTokens, scale)
}
