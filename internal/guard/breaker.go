// Package guard holds the protective state the verifier consults before any
// network work: the per-domain circuit breaker, the Redis-backed quota and
// reputation counters, and the probe source-IP health monitor.
package guard

import (
	"sync"
	"time"
)

const (
	defaultBreakerThreshold = 3
	defaultBreakerCooldown  = 300 * time.Second

	// failureWindow is how long individual failure timestamps are retained.
	// The window is observational only; opening the circuit uses the
	// cumulative counter since the last success.
	failureWindow = 60 * time.Second
)

type breakerEntry struct {
	failures  int
	openUntil time.Time // zero = closed
	recent    []time.Time
}

// Breaker is a per-domain circuit breaker. After threshold consecutive
// failures the domain is gated for the cooldown; the first check past the
// cooldown clears all state.
//
// One instance serves the whole process. Operations are O(1) and very short,
// so a single mutex is enough.
type Breaker struct {
	mu        sync.Mutex
	threshold int
	cooldown  time.Duration
	domains   map[string]*breakerEntry
}

// NewBreaker builds a breaker. Non-positive arguments fall back to the
// defaults (threshold 3, cooldown 300 s).
func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = defaultBreakerThreshold
	}
	if cooldown <= 0 {
		cooldown = defaultBreakerCooldown
	}
	return &Breaker{
		threshold: threshold,
		cooldown:  cooldown,
		domains:   make(map[string]*breakerEntry),
	}
}

// IsOpen reports whether the domain is gated. The first call after the
// cooldown expires atomically resets the domain's state and returns false.
func (b *Breaker) IsOpen(domain string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.domains[domain]
	if !ok || entry.openUntil.IsZero() {
		return false
	}
	if time.Now().Before(entry.openUntil) {
		return true
	}

	// Cooldown elapsed: the next failure counts from 1 again.
	delete(b.domains, domain)
	return false
}

// RecordFailure counts a failure against the domain and opens the circuit
// once the cumulative count reaches the threshold.
func (b *Breaker) RecordFailure(domain string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.domains[domain]
	if !ok {
		entry = &breakerEntry{}
		b.domains[domain] = entry
	}

	now := time.Now()
	entry.failures++
	entry.recent = append(entry.recent, now)

	cutoff := now.Add(-failureWindow)
	kept := entry.recent[:0]
	for _, ts := range entry.recent {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	entry.recent = kept

	if entry.failures >= b.threshold {
		entry.openUntil = now.Add(b.cooldown)
	}
}

// RecordSuccess clears the domain's failure history.
func (b *Breaker) RecordSuccess(domain string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.domains, domain)
}

// TimeUntilRetry returns whole seconds until the domain may be retried,
// or 0 when the circuit is closed.
func (b *Breaker) TimeUntilRetry(domain string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.domains[domain]
	if !ok || entry.openUntil.IsZero() {
		return 0
	}
	remaining := time.Until(entry.openUntil)
	if remaining <= 0 {
		return 0
	}
	return int(remaining.Seconds()) + 1
}

// State reports the current counters for one domain: the cumulative failure
// count, the number of failures in the rolling window, and whether the
// circuit is currently open. Meant for observability; it never mutates.
func (b *Breaker) State(domain string) (failures, recentFailures int, open bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.domains[domain]
	if !ok {
		return 0, 0, false
	}
	open = !entry.openUntil.IsZero() && time.Now().Before(entry.openUntil)
	return entry.failures, len(entry.recent), open
}
