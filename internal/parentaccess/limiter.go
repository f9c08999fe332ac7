package parentaccess

import (
	"sync"
	"time"
)

// AttemptLimiter throttles failed token lookups per key (client IP).
// Tokens are unguessable by construction, but there is no reason to let
// anyone enumerate for free.
type AttemptLimiter struct {
	mu     sync.Mutex
	byKey  map[string]*window
	max    int
	period time.Duration
}

type window struct {
	start time.Time
	count int
}

func NewAttemptLimiter(max int, period time.Duration) *AttemptLimiter {
	return &AttemptLimiter{byKey: make(map[string]*window), max: max, period: period}
}

// Allow reports whether the key is still under its failure budget.
func (l *AttemptLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := NowFunc()
	w, ok := l.byKey[key]
	if !ok || now.Sub(w.start) > l.period {
		return true
	}
	return w.count < l.max
}

// Fail records a failed lookup for the key.
func (l *AttemptLimiter) Fail(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := NowFunc()
	w, ok := l.byKey[key]
	if !ok || now.Sub(w.start) > l.period {
		l.byKey[key] = &window{start: now, count: 1}
		return
	}
	w.count++
}

// Sweep drops stale windows; called from the jobs runner.
func (l *AttemptLimiter) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := NowFunc()
	for k, w := range l.byKey {
		if now.Sub(w.start) > l.period {
			delete(l.byKey, k)
		}
	}
}
