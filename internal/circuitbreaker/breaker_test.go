package circuitbreaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreaker_StartsClosed(t *testing.T) {
	b := New()
	assert.False(t, b.Open("aave-v3"), "breaker should start closed for unknown protocols")
	assert.Zero(t, b.Failures("aave-v3"), "failure count should start at zero")
}

func TestBreaker_OpensAfterThresholdFailures(t *testing.T) {
	b := New()

	for i := 0; i < DefaultFailureThreshold-1; i++ {
		b.RecordResult("aave-v3", false)
		assert.False(t, b.Open("aave-v3"), "breaker should stay closed below the threshold")
	}

	b.RecordResult("aave-v3", false)
	assert.True(t, b.Open("aave-v3"), "breaker should open at the failure threshold")
	assert.Equal(t, DefaultFailureThreshold, b.Failures("aave-v3"))
}

func TestBreaker_SuccessResetsFailures(t *testing.T) {
	b := New()

	b.RecordResult("lido", false)
	b.RecordResult("lido", false)
	b.RecordResult("lido", false)
	assert.Equal(t, 3, b.Failures("lido"))

	b.RecordResult("lido", true)
	assert.Zero(t, b.Failures("lido"), "any success should reset the failure count")
	assert.False(t, b.Open("lido"))
}

func TestBreaker_ClosesAfterCooldown(t *testing.T) {
	now := time.Now()
	b := New().WithClock(func() time.Time { return now })

	for i := 0; i < DefaultFailureThreshold; i++ {
		b.RecordResult("compound-v2", false)
	}
	assert.True(t, b.Open("compound-v2"), "breaker should be open right after tripping")

	now = now.Add(DefaultCooldown - time.Second)
	assert.True(t, b.Open("compound-v2"), "breaker should stay open inside the cooldown window")

	now = now.Add(2 * time.Second)
	assert.False(t, b.Open("compound-v2"), "breaker should allow attempts once the cooldown elapses")
}

func TestBreaker_FailureDuringCooldownExpiryRetrips(t *testing.T) {
	now := time.Now()
	b := New().WithClock(func() time.Time { return now })

	for i := 0; i < DefaultFailureThreshold; i++ {
		b.RecordResult("yearn-usdc", false)
	}

	now = now.Add(DefaultCooldown + time.Minute)
	assert.False(t, b.Open("yearn-usdc"))

	// The probe attempt fails again: count is already past the threshold,
	// so a single new failure re-opens the breaker.
	b.RecordResult("yearn-usdc", false)
	assert.True(t, b.Open("yearn-usdc"), "a failed probe after cooldown should re-open the breaker")
}

func TestBreaker_ProtocolsAreIndependent(t *testing.T) {
	b := New()

	for i := 0; i < DefaultFailureThreshold; i++ {
		b.RecordResult("aave-v3", false)
	}
	b.RecordResult("lido", false)

	assert.True(t, b.Open("aave-v3"), "tripped protocol should be open")
	assert.False(t, b.Open("lido"), "sibling protocol state must be unaffected")

	counts := b.Counts()
	assert.Equal(t, DefaultFailureThreshold, counts["aave-v3"])
	assert.Equal(t, 1, counts["lido"])
}

func TestBreaker_CustomThresholdAndCooldown(t *testing.T) {
	now := time.Now()
	b := New().WithThreshold(2).WithCooldown(time.Minute).WithClock(func() time.Time { return now })

	b.RecordResult("p", false)
	assert.False(t, b.Open("p"))
	b.RecordResult("p", false)
	assert.True(t, b.Open("p"), "custom threshold should apply")

	now = now.Add(61 * time.Second)
	assert.False(t, b.Open("p"), "custom cooldown should apply")
}
