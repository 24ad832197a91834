package redis

import (
	"sync"
	"time"
)

// breaker stops write attempts after a run of consecutive failures and lets
// a single probe through once the cooldown has elapsed. Probe success
// resumes normal writes, probe failure restarts the cooldown.
type breaker struct {
	mu          sync.Mutex
	maxFailures int
	cooldown    time.Duration

	failures int
	paused   bool
	pausedAt time.Time
	probing  bool
}

func newBreaker(maxFailures int, cooldown time.Duration) *breaker {
	return &breaker{maxFailures: maxFailures, cooldown: cooldown}
}

// allow reports whether a write attempt may proceed.
func (b *breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.paused {
		return true
	}
	if b.probing || time.Since(b.pausedAt) < b.cooldown {
		return false
	}
	b.probing = true
	return true
}

// failure records a failed write. Returns true on the transition into the
// paused state (so the caller can log it once).
func (b *breaker) failure() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.probing {
		b.probing = false
		b.pausedAt = time.Now()
		return false
	}

	b.failures++
	if !b.paused && b.failures >= b.maxFailures {
		b.paused = true
		b.pausedAt = time.Now()
		return true
	}
	return false
}

// success records a successful write and resumes normal operation.
func (b *breaker) success() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	b.paused = false
	b.probing = false
}
