// Package collector performs the full read of a single protocol: breaker
// gate, three chain reads, normalization and validation.
package collector

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/yourorg/yield-oracle/internal/chain"
	"github.com/yourorg/yield-oracle/internal/circuitbreaker"
	"github.com/yourorg/yield-oracle/internal/metrics"
	"github.com/yourorg/yield-oracle/internal/model"
	"github.com/yourorg/yield-oracle/internal/normalize"
	"github.com/yourorg/yield-oracle/internal/validate"
	"github.com/sirupsen/logrus"
)

// EndpointReader issues a read through the HTTP read proxy at baseURL.
type EndpointReader interface {
	CallEndpoint(ctx context.Context, baseURL, address, selector string) (*big.Int, error)
}

// Collector turns one ProtocolSource into at most one YieldSample per cycle.
type Collector struct {
	reader  chain.Reader
	proxy   EndpointReader
	breaker *circuitbreaker.Breaker
	opts    validate.Options
	metrics *metrics.Set
	now     func() time.Time
}

// New creates a collector reading through the given chain reader.
func New(reader chain.Reader, breaker *circuitbreaker.Breaker) *Collector {
	return &Collector{
		reader:  reader,
		breaker: breaker,
		opts:    validate.DefaultOptions(),
		now:     time.Now,
	}
}

// WithProxy routes sources that carry an APIEndpoint through the HTTP read
// proxy at that endpoint instead of the chain RPC.
func (c *Collector) WithProxy(proxy EndpointReader) *Collector {
	c.proxy = proxy
	return c
}

// WithValidation overrides the plausibility bounds.
func (c *Collector) WithValidation(opts validate.Options) *Collector {
	c.opts = opts
	return c
}

// WithMetrics attaches Prometheus instrumentation.
func (c *Collector) WithMetrics(m *metrics.Set) *Collector {
	c.metrics = m
	return c
}

// WithClock overrides the time source, for tests.
func (c *Collector) WithClock(now func() time.Time) *Collector {
	c.now = now
	return c
}

// Collect reads, normalizes and validates one protocol. It returns nil on
// any failure: errors are recorded on the breaker and logged, never
// propagated, so one misbehaving source cannot affect its siblings.
func (c *Collector) Collect(ctx context.Context, src model.ProtocolSource) *model.YieldSample {
	if c.breaker.Open(src.ID) {
		logrus.WithField("protocol", src.ID).Debug("Skipping collection, circuit breaker open")
		c.metrics.SetBreakerState(src.ID, true)
		return nil
	}
	c.metrics.SetBreakerState(src.ID, false)

	sample, err := c.read(ctx, src)
	if err != nil {
		c.breaker.RecordResult(src.ID, false)
		c.metrics.ObserveCollectError(src.ID)
		logrus.WithFields(logrus.Fields{
			"protocol": src.ID,
			"failures": c.breaker.Failures(src.ID),
		}).Warnf("Collection failed: %v", err)
		return nil
	}

	c.breaker.RecordResult(src.ID, true)
	return sample
}

// read performs the three reads and assembles the sample.
func (c *Collector) read(ctx context.Context, src model.ProtocolSource) (*model.YieldSample, error) {
	reader := c.reader
	if src.APIEndpoint != "" && c.proxy != nil {
		reader = proxiedReader{proxy: c.proxy, base: src.APIEndpoint}
	}

	collectedAt := c.now().UTC()

	rawAPY, err := reader.Call(ctx, src.Address, src.APYCall.Selector)
	if err != nil {
		return nil, fmt.Errorf("read APY: %w", err)
	}

	rawTVL, err := reader.Call(ctx, src.Address, src.TVLCall.Selector)
	if err != nil {
		return nil, fmt.Errorf("read TVL: %w", err)
	}

	rawLiquidity, err := reader.Call(ctx, src.Address, src.LiquidityCall.Selector)
	if err != nil {
		return nil, fmt.Errorf("read liquidity: %w", err)
	}

	sample := model.YieldSample{
		ProtocolID:  src.ID,
		APY:         normalize.APY(rawAPY, src.Encoding),
		Liquidity:   rawLiquidity,
		TVL:         rawTVL,
		RiskScore:   src.RiskScore,
		CollectedAt: collectedAt,
	}

	if err := validate.Sample(sample, src, c.opts); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"protocol": src.ID,
		"apy":      sample.APY,
		"tvl":      sample.TVL,
	}).Debug("Collected sample")

	return &sample, nil
}

// proxiedReader binds one source's proxy endpoint to the chain.Reader shape.
type proxiedReader struct {
	proxy EndpointReader
	base  string
}

func (r proxiedReader) Call(ctx context.Context, address, selector string) (*big.Int, error) {
	return r.proxy.CallEndpoint(ctx, r.base, address, selector)
}
