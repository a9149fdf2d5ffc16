package collector

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/yourorg/yield-oracle/internal/circuitbreaker"
	"github.com/yourorg/yield-oracle/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReader returns canned values per selector and counts calls.
type fakeReader struct {
	mu     sync.Mutex
	values map[string]*big.Int
	err    error
	calls  int
}

func (f *fakeReader) Call(_ context.Context, _, selector string) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.values[selector]
	if !ok {
		return nil, errors.New("unexpected selector " + selector)
	}
	return new(big.Int).Set(v), nil
}

func (f *fakeReader) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func bpsSource() model.ProtocolSource {
	return model.ProtocolSource{
		ID:            "lido",
		Address:       "0xae7ab96520DE3A18E5e111B5EaAb095312D7fE84",
		APYCall:       model.CallDescriptor{Selector: "0x01"},
		TVLCall:       model.CallDescriptor{Selector: "0x02"},
		LiquidityCall: model.CallDescriptor{Selector: "0x03"},
		Encoding:      model.EncodingBasisPoints,
		RiskScore:     1,
		MinLiquidity:  big.NewInt(1_000),
		Decimals:      6,
	}
}

func healthyReader() *fakeReader {
	return &fakeReader{values: map[string]*big.Int{
		"0x01": big.NewInt(450),       // 4.5%
		"0x02": big.NewInt(5_000_000), // tvl
		"0x03": big.NewInt(2_000_000), // liquidity
	}}
}

func TestCollect_Success(t *testing.T) {
	reader := healthyReader()
	breaker := circuitbreaker.New()
	c := New(reader, breaker)

	sample := c.Collect(context.Background(), bpsSource())
	require.NotNil(t, sample, "healthy source should yield a sample")

	assert.Equal(t, "lido", sample.ProtocolID)
	assert.InDelta(t, 4.5, sample.APY, 1e-9, "APY should be normalized from basis points")
	assert.Equal(t, 0, sample.TVL.Cmp(big.NewInt(5_000_000)))
	assert.Equal(t, 0, sample.Liquidity.Cmp(big.NewInt(2_000_000)))
	assert.Equal(t, 1, sample.RiskScore, "risk score is copied from the source")
	assert.Equal(t, 3, reader.callCount(), "one collect issues exactly three reads")
	assert.Zero(t, breaker.Failures("lido"), "success should leave the breaker closed")
}

func TestCollect_ReadErrorRecordsFailure(t *testing.T) {
	reader := &fakeReader{err: errors.New("rpc timeout")}
	breaker := circuitbreaker.New()
	c := New(reader, breaker)

	sample := c.Collect(context.Background(), bpsSource())
	assert.Nil(t, sample, "read errors must not produce a sample")
	assert.Equal(t, 1, breaker.Failures("lido"), "failure should be recorded on the breaker")
}

func TestCollect_ValidationFailureRecordsFailure(t *testing.T) {
	reader := healthyReader()
	reader.values["0x01"] = big.NewInt(15_000) // 150% APY, out of range
	breaker := circuitbreaker.New()
	c := New(reader, breaker)

	sample := c.Collect(context.Background(), bpsSource())
	assert.Nil(t, sample, "out-of-range APY must be rejected")
	assert.Equal(t, 1, breaker.Failures("lido"), "data-quality failures count like transient failures")
}

func TestCollect_LowLiquidityRejected(t *testing.T) {
	reader := healthyReader()
	reader.values["0x03"] = big.NewInt(10) // below the 1000 floor
	breaker := circuitbreaker.New()
	c := New(reader, breaker)

	assert.Nil(t, c.Collect(context.Background(), bpsSource()), "liquidity below the source floor must be rejected")
}

func TestCollect_OpenBreakerMakesNoCalls(t *testing.T) {
	reader := healthyReader()
	breaker := circuitbreaker.New()
	c := New(reader, breaker)

	for i := 0; i < circuitbreaker.DefaultFailureThreshold; i++ {
		breaker.RecordResult("lido", false)
	}
	require.True(t, breaker.Open("lido"))

	sample := c.Collect(context.Background(), bpsSource())
	assert.Nil(t, sample, "open breaker should short-circuit collection")
	assert.Zero(t, reader.callCount(), "no chain calls may be issued while the breaker is open")
}

func TestCollect_SuccessResetsBreaker(t *testing.T) {
	reader := healthyReader()
	breaker := circuitbreaker.New()
	c := New(reader, breaker)

	breaker.RecordResult("lido", false)
	breaker.RecordResult("lido", false)

	sample := c.Collect(context.Background(), bpsSource())
	require.NotNil(t, sample)
	assert.Zero(t, breaker.Failures("lido"), "a successful read resets the failure count")
}

// fakeProxy delegates to a fakeReader and records which base URLs it saw.
type fakeProxy struct {
	inner *fakeReader
	mu    sync.Mutex
	bases []string
}

func (f *fakeProxy) CallEndpoint(ctx context.Context, baseURL, address, selector string) (*big.Int, error) {
	f.mu.Lock()
	f.bases = append(f.bases, baseURL)
	f.mu.Unlock()
	return f.inner.Call(ctx, address, selector)
}

func TestCollect_ProxyRoutesAPISources(t *testing.T) {
	rpc := healthyReader()
	proxy := &fakeProxy{inner: healthyReader()}
	breaker := circuitbreaker.New()
	c := New(rpc, breaker).WithProxy(proxy)

	src := bpsSource()
	src.APIEndpoint = "https://reads.example.com"

	sample := c.Collect(context.Background(), src)
	require.NotNil(t, sample)
	assert.Zero(t, rpc.callCount(), "API-backed sources must not touch the chain RPC")
	assert.Equal(t, 3, proxy.inner.callCount(), "API-backed sources read through the proxy")
	require.Len(t, proxy.bases, 3)
	for _, base := range proxy.bases {
		assert.Equal(t, "https://reads.example.com", base, "each read targets the source's own endpoint")
	}
}

func TestCollect_ChainSourcesIgnoreProxy(t *testing.T) {
	rpc := healthyReader()
	proxy := &fakeProxy{inner: healthyReader()}
	breaker := circuitbreaker.New()
	c := New(rpc, breaker).WithProxy(proxy)

	sample := c.Collect(context.Background(), bpsSource())
	require.NotNil(t, sample)
	assert.Equal(t, 3, rpc.callCount(), "sources without an endpoint read from the chain RPC")
	assert.Empty(t, proxy.bases, "the proxy is untouched for chain-backed sources")
}
