// Package publish writes a cycle's results to the durable store and
// refreshes the snapshot cache.
package publish

import (
	"context"
	"fmt"
	"time"

	"github.com/yourorg/yield-oracle/internal/metrics"
	"github.com/yourorg/yield-oracle/internal/model"
	"github.com/sirupsen/logrus"
)

// Store is the durable, append-only time-series sink.
type Store interface {
	InsertSample(ctx context.Context, sample model.YieldSample) error
	InsertMetrics(ctx context.Context, m model.AggregateMetrics) error
}

// Cache is the low-latency snapshot sink.
type Cache interface {
	SetSnapshot(ctx context.Context, snap model.Snapshot, ttl time.Duration) error
}

// Publisher persists samples and aggregate metrics. The store is the source
// of truth: store failures are fatal for the cycle, cache failures are not.
type Publisher struct {
	store   Store
	cache   Cache
	ttl     time.Duration
	metrics *metrics.Set
}

// New creates a publisher. The cache TTL is tied to the scheduling interval
// so a snapshot expires naturally when successful cycles stop refreshing it.
func New(store Store, cache Cache, ttl time.Duration) *Publisher {
	return &Publisher{store: store, cache: cache, ttl: ttl}
}

// WithMetrics attaches Prometheus instrumentation.
func (p *Publisher) WithMetrics(m *metrics.Set) *Publisher {
	p.metrics = m
	return p
}

// Publish appends every sample and the metrics row to the store, then
// overwrites the cache snapshot wholesale. A store error aborts before the
// cache is touched, so a failed cycle never corrupts the cached snapshot.
// A cycle with no surviving samples records its metrics row but leaves the
// cache alone: readers keep serving the last good snapshot until its TTL
// lapses and only then fall back to the store.
func (p *Publisher) Publish(ctx context.Context, samples []model.YieldSample, m model.AggregateMetrics) error {
	for _, s := range samples {
		if err := p.store.InsertSample(ctx, s); err != nil {
			return fmt.Errorf("insert sample %s: %w", s.ProtocolID, err)
		}
	}
	if err := p.store.InsertMetrics(ctx, m); err != nil {
		return fmt.Errorf("insert metrics: %w", err)
	}

	if len(samples) == 0 {
		logrus.Warn("No samples survived the cycle, leaving cached snapshot to expire")
		return nil
	}

	snap := model.Snapshot{Metrics: m, Samples: samples}
	if err := p.cache.SetSnapshot(ctx, snap, p.ttl); err != nil {
		// Stale cache is acceptable, the store remains authoritative.
		p.metrics.ObserveCacheWriteError()
		logrus.Warnf("Cache refresh failed: %v", err)
	}

	logrus.WithFields(logrus.Fields{
		"samples":      len(samples),
		"weighted_apy": m.WeightedAPY,
		"total_tvl":    m.TotalTVL,
	}).Info("Cycle results published")

	return nil
}
