// Package metrics exposes Prometheus instrumentation for the oracle.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Set holds all service metrics. A nil *Set is a valid no-op receiver so
// tests can run without a registry.
type Set struct {
	CycleDuration  prometheus.Histogram
	CycleFailures  prometheus.Counter
	CollectErrors  *prometheus.CounterVec
	BreakerOpen    *prometheus.GaugeVec
	AggregateAPY   prometheus.Gauge
	AggregateTVL   prometheus.Gauge
	SampleCount    prometheus.Gauge
	CacheWriteErrs prometheus.Counter
}

// Register creates and registers the metric set with the default registry.
func Register() *Set {
	s := &Set{
		CycleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "oracle_cycle_duration_seconds",
				Help:    "Duration of a full collection cycle in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		CycleFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "oracle_cycle_failures_total",
				Help: "Total number of cycles that failed at the publish stage",
			},
		),
		CollectErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oracle_collect_errors_total",
				Help: "Total number of per-protocol collection failures",
			},
			[]string{"protocol"},
		),
		BreakerOpen: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "oracle_circuit_breaker_open",
				Help: "Circuit breaker state per protocol (0=closed, 1=open)",
			},
			[]string{"protocol"},
		),
		AggregateAPY: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "oracle_aggregate_apy_percent",
				Help: "TVL-weighted aggregate APY of the latest cycle",
			},
		),
		AggregateTVL: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "oracle_aggregate_tvl",
				Help: "Total TVL across surviving samples of the latest cycle",
			},
		),
		SampleCount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "oracle_sample_count",
				Help: "Number of surviving samples in the latest cycle",
			},
		),
		CacheWriteErrs: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "oracle_cache_write_errors_total",
				Help: "Total number of non-fatal cache write failures",
			},
		),
	}

	prometheus.MustRegister(
		s.CycleDuration,
		s.CycleFailures,
		s.CollectErrors,
		s.BreakerOpen,
		s.AggregateAPY,
		s.AggregateTVL,
		s.SampleCount,
		s.CacheWriteErrs,
	)

	return s
}

// ObserveCycle records the outcome of one cycle. Safe on a nil Set.
func (s *Set) ObserveCycle(seconds float64, failed bool) {
	if s == nil {
		return
	}
	s.CycleDuration.Observe(seconds)
	if failed {
		s.CycleFailures.Inc()
	}
}

// ObserveCollectError counts a per-protocol failure. Safe on a nil Set.
func (s *Set) ObserveCollectError(protocolID string) {
	if s == nil {
		return
	}
	s.CollectErrors.WithLabelValues(protocolID).Inc()
}

// SetBreakerState reflects a protocol's breaker state. Safe on a nil Set.
func (s *Set) SetBreakerState(protocolID string, open bool) {
	if s == nil {
		return
	}
	v := 0.0
	if open {
		v = 1.0
	}
	s.BreakerOpen.WithLabelValues(protocolID).Set(v)
}

// SetAggregate publishes the latest aggregate numbers. Safe on a nil Set.
func (s *Set) SetAggregate(apy, tvl float64, count int) {
	if s == nil {
		return
	}
	s.AggregateAPY.Set(apy)
	s.AggregateTVL.Set(tvl)
	s.SampleCount.Set(float64(count))
}

// ObserveCacheWriteError counts a non-fatal cache failure. Safe on a nil Set.
func (s *Set) ObserveCacheWriteError() {
	if s == nil {
		return
	}
	s.CacheWriteErrs.Inc()
}
