// Package oracle orchestrates one full collection cycle: parallel fan-out
// across all registered protocols, aggregation of the surviving samples and
// publication of the result.
package oracle

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/yourorg/yield-oracle/internal/aggregate"
	"github.com/yourorg/yield-oracle/internal/collector"
	"github.com/yourorg/yield-oracle/internal/metrics"
	"github.com/yourorg/yield-oracle/internal/model"
	"github.com/yourorg/yield-oracle/internal/registry"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yourorg/yield-oracle/internal/otel"
)

// Publisher persists a cycle's results.
type Publisher interface {
	Publish(ctx context.Context, samples []model.YieldSample, m model.AggregateMetrics) error
}

// Orchestrator runs collection cycles. A mutex serializes cycles so a slow
// publish can never overlap the next scheduled run.
type Orchestrator struct {
	registry  *registry.Registry
	collector *collector.Collector
	publisher Publisher
	metrics   *metrics.Set
	mu        sync.Mutex
}

// New creates a cycle orchestrator.
func New(reg *registry.Registry, col *collector.Collector, pub Publisher) *Orchestrator {
	return &Orchestrator{
		registry:  reg,
		collector: col,
		publisher: pub,
	}
}

// WithMetrics attaches Prometheus instrumentation.
func (o *Orchestrator) WithMetrics(m *metrics.Set) *Orchestrator {
	o.metrics = m
	return o
}

// RunCycle collects every registered protocol in parallel, aggregates the
// surviving samples and publishes the result. Per-protocol failures never
// fail the cycle; only a publish-stage store fault propagates.
func (o *Orchestrator) RunCycle(ctx context.Context) (model.AggregateMetrics, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	ctx, span := otel.Tracer().Start(ctx, "oracle.RunCycle")
	defer span.End()

	start := time.Now()
	samples := o.collectAll(ctx)

	m := aggregate.Compute(samples)
	if m.ProtocolCount == 0 {
		// No samples means no timestamp to inherit; the outage row still
		// needs a wall-clock position in the time series.
		m.CollectedAt = time.Now().UTC()
	}
	span.SetAttributes(
		attribute.Int("oracle.sample_count", m.ProtocolCount),
		attribute.Float64("oracle.weighted_apy", m.WeightedAPY),
	)

	if err := o.publisher.Publish(ctx, samples, m); err != nil {
		span.RecordError(err)
		o.metrics.ObserveCycle(time.Since(start).Seconds(), true)
		return m, fmt.Errorf("publish cycle results: %w", err)
	}

	tvl, _ := new(big.Float).SetInt(m.TotalTVL).Float64()
	o.metrics.SetAggregate(m.WeightedAPY, tvl, m.ProtocolCount)
	o.metrics.ObserveCycle(time.Since(start).Seconds(), false)

	logrus.WithFields(logrus.Fields{
		"protocols":    o.registry.Len(),
		"survived":     m.ProtocolCount,
		"weighted_apy": m.WeightedAPY,
		"volatility":   m.Volatility,
		"duration":     time.Since(start).Round(time.Millisecond),
	}).Info("Cycle complete")

	return m, nil
}

// collectAll fans out one goroutine per protocol and gathers the non-nil
// samples. Collection order across protocols is unspecified.
func (o *Orchestrator) collectAll(ctx context.Context) []model.YieldSample {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		samples []model.YieldSample
	)

	for _, src := range o.registry.Sources() {
		wg.Add(1)
		go func(src model.ProtocolSource) {
			defer wg.Done()

			if sample := o.collector.Collect(ctx, src); sample != nil {
				mu.Lock()
				samples = append(samples, *sample)
				mu.Unlock()
			}
		}(src)
	}

	wg.Wait()
	return samples
}
