package guard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreakerOpensAtThreshold(t *testing.T) {
	b := NewBreaker(3, time.Minute)

	b.RecordFailure("example.test")
	b.RecordFailure("example.test")
	assert.False(t, b.IsOpen("example.test"), "threshold-1 failures must stay closed")

	b.RecordFailure("example.test")
	assert.True(t, b.IsOpen("example.test"), "threshold failures must open the circuit")

	retry := b.TimeUntilRetry("example.test")
	assert.Greater(t, retry, 0)
	assert.LessOrEqual(t, retry, 60)
}

func TestBreakerSuccessResetsCount(t *testing.T) {
	b := NewBreaker(3, time.Minute)

	b.RecordFailure("example.test")
	b.RecordFailure("example.test")
	b.RecordSuccess("example.test")

	// Two more failures after a success: still below threshold.
	b.RecordFailure("example.test")
	b.RecordFailure("example.test")
	assert.False(t, b.IsOpen("example.test"))

	failures, _, _ := b.State("example.test")
	assert.Equal(t, 2, failures)
}

func TestBreakerCooldownExpiry(t *testing.T) {
	b := NewBreaker(2, 40*time.Millisecond)

	b.RecordFailure("example.test")
	b.RecordFailure("example.test")
	assert.True(t, b.IsOpen("example.test"))

	time.Sleep(60 * time.Millisecond)

	// First check past the cooldown clears everything.
	assert.False(t, b.IsOpen("example.test"))
	assert.Equal(t, 0, b.TimeUntilRetry("example.test"))

	// The next failure counts from 1, so the circuit stays closed.
	b.RecordFailure("example.test")
	assert.False(t, b.IsOpen("example.test"))

	failures, _, _ := b.State("example.test")
	assert.Equal(t, 1, failures)
}

func TestBreakerDomainsIndependent(t *testing.T) {
	b := NewBreaker(2, time.Minute)

	b.RecordFailure("a.test")
	b.RecordFailure("a.test")

	assert.True(t, b.IsOpen("a.test"))
	assert.False(t, b.IsOpen("b.test"))
	assert.Equal(t, 0, b.TimeUntilRetry("b.test"))
}

func TestBreakerRollingWindowPruned(t *testing.T) {
	b := NewBreaker(10, time.Minute)

	// Seed two stale timestamps directly; the next RecordFailure must evict
	// them from the window without touching the cumulative counter.
	old := time.Now().Add(-2 * time.Minute)
	b.mu.Lock()
	b.domains["example.test"] = &breakerEntry{
		failures: 2,
		recent:   []time.Time{old, old.Add(time.Second)},
	}
	b.mu.Unlock()

	b.RecordFailure("example.test")

	failures, recent, open := b.State("example.test")
	assert.Equal(t, 3, failures, "cumulative count keeps pre-window failures")
	assert.Equal(t, 1, recent, "window holds only the fresh failure")
	assert.False(t, open)
}

func TestBreakerTimeUntilRetryClosed(t *testing.T) {
	b := NewBreaker(3, time.Minute)
	assert.Equal(t, 0, b.TimeUntilRetry("never-seen.test"))

	b.RecordFailure("once.test")
	assert.Equal(t, 0, b.TimeUntilRetry("once.test"))
}
