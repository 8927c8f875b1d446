package ratelimiter

import (
	"sync"
	"time"
)

// TokenBucket refills rate tokens per second up to capacity; each request takes one.
type TokenBucket struct {
	rate     float64
	capacity float64
	tokens   float64
	last     time.Time
	now      Clock
	mu       sync.Mutex
}

// NewTokenBucket starts with a full bucket.
func NewTokenBucket(rate float64, capacity int, clock Clock) *TokenBucket {
	now := orNow(clock)
	return &TokenBucket{rate: rate, capacity: float64(capacity), tokens: float64(capacity), last: now(), now: now}
}

func (t *TokenBucket) Allow() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if elapsed := now.Sub(t.last); elapsed > 0 {
		t.tokens = min(t.capacity, t.tokens+elapsed.Seconds()*t.rate)
		t.last = now
	}
	if t.tokens < 1 {
		return false
	}
	t.tokens--
	return true
}

// LeakyBucket admits requests while the bucket has room; it drains at rate per second.
type LeakyBucket struct {
	rate     float64
	capacity float64
	level    float64
	last     time.Time
	now      Clock
	mu       sync.Mutex
}

func NewLeakyBucket(rate float64, capacity int, clock Clock) *LeakyBucket {
	now := orNow(clock)
	return &LeakyBucket{rate: rate, capacity: float64(capacity), last: now(), now: now}
}

func (l *LeakyBucket) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if elapsed := now.Sub(l.last); elapsed > 0 {
		l.level = max(0, l.level-elapsed.Seconds()*l.rate)
		l.last = now
	}
	if l.level+1 > l.capacity {
		return false
	}
	l.level++
	return true
}
