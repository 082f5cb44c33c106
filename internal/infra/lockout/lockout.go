// Package lockout tracks failed login attempts per key in memory and
// locks a key out once it crosses the configured threshold within the
// window. State is process-local; a restart clears it.
package lockout

import (
	"sync"
	"time"
)

type entry struct {
	failures  int
	expiresAt time.Time
}

// Tracker is a thread-safe failed-attempt counter with TTL.
type Tracker struct {
	mu      sync.Mutex
	entries map[string]entry

	maxFailures int
	window      time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

// NewTracker creates a tracker that locks a key after maxFailures
// failures within window. Expired entries are swept in the background
// until Close is called.
func NewTracker(maxFailures int, window time.Duration) *Tracker {
	t := &Tracker{
		entries:     make(map[string]entry),
		maxFailures: maxFailures,
		window:      window,
		stop:        make(chan struct{}),
	}
	go t.sweep()
	return t
}

// Close stops the background sweep. Safe to call more than once; the
// tracker itself remains usable, expired entries just linger until
// touched.
func (t *Tracker) Close() {
	t.stopOnce.Do(func() { close(t.stop) })
}

// Fail records a failed attempt and returns the remaining attempts
// before lockout (0 means the key is now locked).
func (t *Tracker) Fail(key string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		e = entry{}
	}
	e.failures++
	e.expiresAt = time.Now().Add(t.window)
	t.entries[key] = e

	remaining := t.maxFailures - e.failures
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Locked reports whether the key has reached the failure threshold and
// is still inside the lockout window.
func (t *Tracker) Locked(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		return false
	}
	return e.failures >= t.maxFailures
}

// Reset clears the counter for a key (called on successful login).
func (t *Tracker) Reset(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, key)
}

// sweep periodically removes expired entries.
func (t *Tracker) sweep() {
	ticker := time.NewTicker(t.window)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			t.mu.Lock()
			now := time.Now()
			for k, e := range t.entries {
				if now.After(e.expiresAt) {
					delete(t.entries, k)
				}
			}
			t.mu.Unlock()
		}
	}
}
