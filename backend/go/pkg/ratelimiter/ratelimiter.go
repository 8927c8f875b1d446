package ratelimiter

import (
	"fmt"
	"sync"
	"time"
)

// RateLimiter decides whether one more request may pass now.
type RateLimiter interface {
	Allow() bool
}

// Clock returns the current time. Limiters take one so tests can drive time.
type Clock func() time.Time

func orNow(c Clock) Clock {
	if c == nil {
		return time.Now
	}
	return c
}

// Algorithm names accepted by Settings.
const (
	AlgorithmFixedWindow    = "fixedWindow"
	AlgorithmSlidingLog     = "slidingLog"
	AlgorithmSlidingCounter = "slidingCounter"
	AlgorithmLeakyBucket    = "leakyBucket"
	AlgorithmTokenBucket    = "tokenBucket"
)

// Settings select and tune one algorithm. Only the fields of the chosen
// algorithm are read.
type Settings struct {
	Algorithm  string
	Limit      int
	Window     time.Duration
	NumBuckets int
	Rate       float64
	Capacity   int
	Clock      Clock
}

// New builds a limiter for s.
func New(s Settings) (RateLimiter, error) {
	switch s.Algorithm {
	case AlgorithmFixedWindow:
		return NewFixedWindowCounter(s.Limit, s.Window, s.Clock), nil
	case AlgorithmSlidingLog:
		return NewSlidingWindowLog(s.Limit, s.Window, s.Clock), nil
	case AlgorithmSlidingCounter:
		return NewSlidingWindowCounter(s.Limit, s.Window, s.NumBuckets, s.Clock), nil
	case AlgorithmLeakyBucket:
		return NewLeakyBucket(s.Rate, s.Capacity, s.Clock), nil
	case AlgorithmTokenBucket, "":
		return NewTokenBucket(s.Rate, s.Capacity, s.Clock), nil
	default:
		return nil, fmt.Errorf("unknown rate limiter algorithm %q", s.Algorithm)
	}
}

// PerKey keeps one limiter per key, e.g. per client address. Limiters idle
// for longer than ttl are dropped on the next sweep.
type PerKey struct {
	settings Settings
	ttl      time.Duration
	now      Clock

	mu        sync.Mutex
	limiters  map[string]*keyedLimiter
	lastSweep time.Time
}

type keyedLimiter struct {
	RateLimiter
	lastSeen time.Time
}

// NewPerKey validates s by building one limiter up front.
func NewPerKey(s Settings, ttl time.Duration) (*PerKey, error) {
	if _, err := New(s); err != nil {
		return nil, err
	}
	now := orNow(s.Clock)
	return &PerKey{settings: s, ttl: ttl, now: now, limiters: map[string]*keyedLimiter{}, lastSweep: now()}, nil
}

// Allow consults the limiter for key.
func (p *PerKey) Allow(key string) bool {
	p.mu.Lock()
	now := p.now()
	if p.ttl > 0 && now.Sub(p.lastSweep) > p.ttl {
		for k, l := range p.limiters {
			if now.Sub(l.lastSeen) > p.ttl {
				delete(p.limiters, k)
			}
		}
		p.lastSweep = now
	}
	l, ok := p.limiters[key]
	if !ok {
		rl, _ := New(p.settings)
		l = &keyedLimiter{RateLimiter: rl}
		p.limiters[key] = l
	}
	l.lastSeen = now
	p.mu.Unlock()
	return l.Allow()
}

// Len reports how many keys are tracked.
func (p *PerKey) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.limiters)
}
