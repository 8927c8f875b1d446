package consumer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// StartID reads a stream from its first entry.
const StartID = "0-0"

// Event is one entry of a job's event stream.
type Event struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// Source is an append-only event stream per job.
type Source interface {
	// Read returns the entries after lastID. When there are none it waits
	// for a bounded time and may return an empty slice.
	Read(ctx context.Context, jobID, lastID string) ([]Event, error)
	// Append adds a message and returns its entry id.
	Append(ctx context.Context, jobID, message string) (string, error)
}

// RedisStream reads and writes job events in Redis streams keyed
// prefix+jobID, with the payload in a single field.
type RedisStream struct {
	client *redis.Client
	prefix string
	field  string
	block  time.Duration
	count  int64
}

// NewRedisStream builds a stream source. block bounds each XREAD wait and
// must be positive, since a zero block waits forever.
func NewRedisStream(client *redis.Client, prefix, field string, block time.Duration) *RedisStream {
	if block <= 0 {
		block = 5 * time.Second
	}
	return &RedisStream{client: client, prefix: prefix, field: field, block: block, count: 100}
}

// Key is the Redis key of a job's stream.
func (r *RedisStream) Key(jobID string) string { return r.prefix + jobID }

func (r *RedisStream) Read(ctx context.Context, jobID, lastID string) ([]Event, error) {
	res, err := r.client.XRead(ctx, &redis.XReadArgs{
		Streams: []string{r.Key(jobID), lastID},
		Count:   r.count,
		Block:   r.block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("xread %s: %w", r.Key(jobID), err)
	}
	var events []Event
	for _, stream := range res {
		for _, m := range stream.Messages {
			msg, _ := m.Values[r.field].(string)
			events = append(events, Event{ID: m.ID, Message: msg})
		}
	}
	return events, nil
}

func (r *RedisStream) Append(ctx context.Context, jobID, message string) (string, error) {
	id, err := r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: r.Key(jobID),
		Values: map[string]interface{}{r.field: message},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd %s: %w", r.Key(jobID), err)
	}
	return id, nil
}

// MemoryStream is an in-process Source. Entry ids are "<n>-0" with n
// counting from 1.
type MemoryStream struct {
	mu      sync.Mutex
	streams map[string]*memoryLog
	block   time.Duration
}

type memoryLog struct {
	messages []string
	// grown is closed and replaced on every append.
	grown chan struct{}
}

// NewMemoryStream builds an empty stream set; Read waits at most block.
func NewMemoryStream(block time.Duration) *MemoryStream {
	if block <= 0 {
		block = time.Second
	}
	return &MemoryStream{streams: map[string]*memoryLog{}, block: block}
}

func (m *MemoryStream) log(jobID string) *memoryLog {
	l, ok := m.streams[jobID]
	if !ok {
		l = &memoryLog{grown: make(chan struct{})}
		m.streams[jobID] = l
	}
	return l
}

func (m *MemoryStream) Append(_ context.Context, jobID, message string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := m.log(jobID)
	l.messages = append(l.messages, message)
	close(l.grown)
	l.grown = make(chan struct{})
	return fmt.Sprintf("%d-0", len(l.messages)), nil
}

func (m *MemoryStream) Read(ctx context.Context, jobID, lastID string) ([]Event, error) {
	after, err := sequence(lastID)
	if err != nil {
		return nil, err
	}
	timer := time.NewTimer(m.block)
	defer timer.Stop()
	for {
		m.mu.Lock()
		l := m.log(jobID)
		if len(l.messages) > after {
			events := make([]Event, 0, len(l.messages)-after)
			for i := after; i < len(l.messages); i++ {
				events = append(events, Event{ID: fmt.Sprintf("%d-0", i+1), Message: l.messages[i]})
			}
			m.mu.Unlock()
			return events, nil
		}
		grown := l.grown
		m.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return nil, nil
		case <-grown:
		}
	}
}

func sequence(id string) (int, error) {
	head, _, _ := strings.Cut(id, "-")
	n, err := strconv.Atoi(head)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid stream id %q", id)
	}
	return n, nil
}
