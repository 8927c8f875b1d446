package ratelimiter

import (
	"container/list"
	"sync"
	"time"
)

// FixedWindowCounter allows limit requests per window, resetting at window boundaries.
type FixedWindowCounter struct {
	limit       int
	window      time.Duration
	count       int
	windowStart time.Time
	now         Clock
	mu          sync.Mutex
}

func NewFixedWindowCounter(limit int, window time.Duration, clock Clock) *FixedWindowCounter {
	now := orNow(clock)
	return &FixedWindowCounter{limit: limit, window: window, windowStart: now(), now: now}
}

func (f *FixedWindowCounter) Allow() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	if now.Sub(f.windowStart) >= f.window {
		f.windowStart = now
		f.count = 0
	}
	if f.count >= f.limit {
		return false
	}
	f.count++
	return true
}

// SlidingWindowLog remembers the time of every admitted request in the last window.
type SlidingWindowLog struct {
	limit  int
	window time.Duration
	log    *list.List
	now    Clock
	mu     sync.Mutex
}

func NewSlidingWindowLog(limit int, window time.Duration, clock Clock) *SlidingWindowLog {
	return &SlidingWindowLog{limit: limit, window: window, log: list.New(), now: orNow(clock)}
}

func (s *SlidingWindowLog) Allow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	boundary := now.Add(-s.window)
	// Timestamps are appended in order, so expired ones sit at the front.
	for e := s.log.Front(); e != nil && !e.Value.(time.Time).After(boundary); e = s.log.Front() {
		s.log.Remove(e)
	}
	if s.log.Len() >= s.limit {
		return false
	}
	s.log.PushBack(now)
	return true
}

// SlidingWindowCounter approximates a sliding window with numBuckets fixed buckets.
type SlidingWindowCounter struct {
	limit      int
	buckets    []int
	bucketSize time.Duration
	current    int
	lastUpdate time.Time
	now        Clock
	mu         sync.Mutex
}

func NewSlidingWindowCounter(limit int, window time.Duration, numBuckets int, clock Clock) *SlidingWindowCounter {
	if numBuckets <= 0 {
		numBuckets = 10
	}
	bucketSize := window / time.Duration(numBuckets)
	if bucketSize <= 0 {
		bucketSize = time.Nanosecond
	}
	now := orNow(clock)
	return &SlidingWindowCounter{
		limit:      limit,
		buckets:    make([]int, numBuckets),
		bucketSize: bucketSize,
		lastUpdate: now(),
		now:        now,
	}
}

// advance clears the buckets that fell out of the window.
func (s *SlidingWindowCounter) advance() {
	now := s.now()
	steps := int(now.Sub(s.lastUpdate) / s.bucketSize)
	if steps <= 0 {
		return
	}
	n := len(s.buckets)
	for i := 1; i <= min(steps, n); i++ {
		s.buckets[(s.current+i)%n] = 0
	}
	s.current = (s.current + steps) % n
	s.lastUpdate = s.lastUpdate.Add(time.Duration(steps) * s.bucketSize)
}

func (s *SlidingWindowCounter) Allow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.advance()
	total := 0
	for _, c := range s.buckets {
		total += c
	}
	if total >= s.limit {
		return false
	}
	s.buckets[s.current]++
	return true
}
