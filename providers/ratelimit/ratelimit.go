// Package ratelimit implements the sliding-window limiter from spec.md §4.1:
// a preemptive path that waits before a request would exceed the window, and
// a reactive path invoked by a provider client on HTTP 429. Ported from
// original_source/providers/tsdb/client.py's RateLimiter/RateLimitStats —
// the deque-of-timestamps window, the release-lock-while-sleeping pattern,
// and the stats fields are kept 1:1. Stats live in memory only and reset
// when the process restarts; this package has no Store interface (the
// teacher's ratelimit.go business logic — login/register/TOTP lockouts — has
// no home in this domain and is not carried over; see DESIGN.md).
package ratelimit

import (
	"sync"
	"time"
)

// Stats is a snapshot of rate-limiter activity, safe to expose to callers.
type Stats struct {
	TotalRequests    int64
	PreemptiveWaits  int64
	ReactiveWaits    int64
	TotalWaitSeconds float64
	LastWaitAt       time.Time
	LastWaitSeconds  float64
	SessionStart     time.Time
}

// IsRateLimited reports whether any wait has occurred this session.
func (s Stats) IsRateLimited() bool { return s.PreemptiveWaits > 0 || s.ReactiveWaits > 0 }

// TotalWaits is the sum of preemptive and reactive wait counts.
func (s Stats) TotalWaits() int64 { return s.PreemptiveWaits + s.ReactiveWaits }

// Limiter is a sliding-window rate limiter with statistics tracking. It never
// fails a caller — Acquire always eventually returns, waiting out the window
// as needed. Safe for concurrent use.
type Limiter struct {
	mu          sync.Mutex
	maxRequests int
	window      time.Duration
	requests    []time.Time // ascending by enqueue time; oldest at index 0
	stats       Stats

	// now is overridable for deterministic tests (spec.md §8 scenario E).
	now func() time.Time
	// sleep is overridable so tests can assert wait durations without
	// actually blocking.
	sleep func(time.Duration)
}

// New creates a Limiter that allows maxRequests per window.
func New(maxRequests int, window time.Duration) *Limiter {
	return &Limiter{
		maxRequests: maxRequests,
		window:      window,
		stats:       Stats{SessionStart: time.Now()},
		now:         time.Now,
		sleep:       time.Sleep,
	}
}

// Stats returns a point-in-time snapshot. Readers may observe any
// consistent count; no caller blocks on this call.
func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

// ResetStats clears statistics, e.g. at the start of a new generation run.
func (l *Limiter) ResetStats() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stats = Stats{SessionStart: l.now()}
}

// RecordReactiveWait records a wait triggered by an upstream 429 response.
// Called by the provider client after it has already slept waitSeconds.
func (l *Limiter) RecordReactiveWait(wait time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stats.ReactiveWaits++
	l.stats.TotalWaitSeconds += wait.Seconds()
	l.stats.LastWaitAt = l.now()
	l.stats.LastWaitSeconds = wait.Seconds()
}

// Acquire blocks until a request slot is available, then reserves it.
// Never returns an error: waits are counted, not surfaced as failures.
func (l *Limiter) Acquire() {
	l.mu.Lock()
	l.stats.TotalRequests++
	now := l.now()
	l.evictExpired(now)

	if len(l.requests) >= l.maxRequests {
		wait := l.requests[0].Add(l.window).Sub(now)
		if wait > 0 {
			l.stats.PreemptiveWaits++
			l.stats.TotalWaitSeconds += wait.Seconds()
			l.stats.LastWaitAt = now
			l.stats.LastWaitSeconds = wait.Seconds()

			// Release the lock while sleeping so Stats() doesn't block on
			// an in-flight wait, matching the Python client's
			// lock.release()/sleep/lock.acquire() pattern.
			l.mu.Unlock()
			l.sleep(wait)
			l.mu.Lock()

			l.evictExpired(l.now())
		}
	}

	l.requests = append(l.requests, l.now())
	l.mu.Unlock()
}

// evictExpired drops timestamps older than the window. Caller holds l.mu.
func (l *Limiter) evictExpired(now time.Time) {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(l.requests) && l.requests[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		l.requests = l.requests[i:]
	}
}
