// Package circuitbreaker suppresses reads against chronically failing
// protocols so a dead endpoint cannot consume retry budget or delay a cycle.
package circuitbreaker

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Defaults balancing data freshness against hammering a dead endpoint.
const (
	DefaultFailureThreshold = 5
	DefaultCooldown         = 30 * time.Minute
)

// state tracks one protocol's consecutive failures.
type state struct {
	failures    int
	lastFailure time.Time
}

// Breaker keeps per-protocol failure state for the process lifetime.
// It is safe for concurrent use by the collectors of one cycle.
type Breaker struct {
	mu        sync.Mutex
	states    map[string]*state
	threshold int
	cooldown  time.Duration
	now       func() time.Time
}

// New creates a breaker with production thresholds.
func New() *Breaker {
	return &Breaker{
		states:    make(map[string]*state),
		threshold: DefaultFailureThreshold,
		cooldown:  DefaultCooldown,
		now:       time.Now,
	}
}

// WithThreshold overrides the consecutive-failure threshold.
func (b *Breaker) WithThreshold(n int) *Breaker {
	b.threshold = n
	return b
}

// WithCooldown overrides the cooldown window.
func (b *Breaker) WithCooldown(d time.Duration) *Breaker {
	b.cooldown = d
	return b
}

// WithClock overrides the time source, for tests.
func (b *Breaker) WithClock(now func() time.Time) *Breaker {
	b.now = now
	return b
}

// RecordResult updates a protocol's state after a collection attempt.
// Any success resets the failure count to zero.
func (b *Breaker) RecordResult(protocolID string, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	st := b.states[protocolID]
	if st == nil {
		st = &state{}
		b.states[protocolID] = st
	}

	if success {
		if st.failures > 0 {
			logrus.WithField("protocol", protocolID).Info("Circuit breaker reset after successful read")
		}
		st.failures = 0
		return
	}

	st.failures++
	st.lastFailure = b.now()
	if st.failures == b.threshold {
		logrus.WithFields(logrus.Fields{
			"protocol": protocolID,
			"failures": st.failures,
			"cooldown": b.cooldown,
		}).Warn("Circuit breaker opened")
	}
}

// Open reports whether calls to the protocol are currently suppressed:
// failures have reached the threshold and the cooldown has not elapsed.
func (b *Breaker) Open(protocolID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	st := b.states[protocolID]
	if st == nil || st.failures < b.threshold {
		return false
	}
	return b.now().Sub(st.lastFailure) < b.cooldown
}

// Failures returns the current consecutive-failure count for a protocol.
func (b *Breaker) Failures(protocolID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if st := b.states[protocolID]; st != nil {
		return st.failures
	}
	return 0
}

// Counts returns a copy of all per-protocol failure counts, for the status
// endpoint and metrics.
func (b *Breaker) Counts() map[string]int {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[string]int, len(b.states))
	for id, st := range b.states {
		out[id] = st.failures
	}
	return out
}
