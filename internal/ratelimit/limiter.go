// Package ratelimit throttles bursts of console output, such as the mass mode
// changes a server sends after a netsplit.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// TokenBucket is a clock-injectable wrapper around rate.Limiter
type TokenBucket struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	limit   rate.Limit
	burst   int
	now     func() time.Time
}

// NewTokenBucket allows perWindow events per window, with bursts up to perWindow
func NewTokenBucket(perWindow int, window time.Duration) *TokenBucket {
	return newTokenBucket(perWindow, window, time.Now)
}

func newTokenBucket(perWindow int, window time.Duration, now func() time.Time) *TokenBucket {
	if perWindow <= 0 {
		perWindow = 1
	}
	if window <= 0 {
		window = time.Second
	}
	limit := rate.Limit(float64(perWindow) / window.Seconds())
	return &TokenBucket{
		limiter: rate.NewLimiter(limit, perWindow),
		limit:   limit,
		burst:   perWindow,
		now:     now,
	}
}

// Allow takes a token if one is available
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.limiter.AllowN(tb.now(), 1)
}

// Wait returns the duration until the next token is available without
// consuming it
func (tb *TokenBucket) Wait() time.Duration {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.now()
	r := tb.limiter.ReserveN(now, 1)
	delay := r.DelayFrom(now)
	r.CancelAt(now)
	return delay
}

// Reset refills the bucket
func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.limiter = rate.NewLimiter(tb.limit, tb.burst)
}

// Throttle passes events through a token bucket and counts the ones it drops.
// A nil Throttle lets everything through.
type Throttle struct {
	bucket *TokenBucket

	mu         sync.Mutex
	suppressed int64
}

// NewThrottle returns a throttle allowing perWindow events per window, or nil
// when perWindow is not positive
func NewThrottle(perWindow int, window time.Duration) *Throttle {
	if perWindow <= 0 {
		return nil
	}
	return &Throttle{bucket: NewTokenBucket(perWindow, window)}
}

// Allow reports whether the next event may pass. When it may, it also returns
// how many events were suppressed since the last one that passed.
func (t *Throttle) Allow() (bool, int64) {
	if t == nil {
		return true, 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.bucket.Allow() {
		t.suppressed++
		return false, 0
	}
	n := t.suppressed
	t.suppressed = 0
	return true, n
}

// Suppressed returns the number of events dropped since the last one passed
func (t *Throttle) Suppressed() int64 {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.suppressed
}
