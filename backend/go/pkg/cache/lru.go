package cache

import (
	"container/list"
	"errors"
	"sync"
	"time"
)

// ErrUnbounded 表示既没有设置 Capacity 也没有设置 MaxWeight。
var ErrUnbounded = errors.New("cache: Capacity or MaxWeight must be set")

// Options 配置 LRU 的淘汰策略。
type Options struct {
	// Capacity 是最大条目数，0 表示不限制。
	Capacity int
	// MaxWeight 是所有条目权重之和的上限，0 表示不限制。
	MaxWeight int
	// TTL 为 0 时条目永不过期。
	TTL time.Duration
	// Now 默认为 time.Now。
	Now func() time.Time
}

type item[K comparable, V any] struct {
	key     K
	value   V
	weight  int
	expires time.Time
}

// LRU 是并发安全的泛型 LRU 缓存，支持按数量、按权重和按时间淘汰。
type LRU[K comparable, V any] struct {
	opts   Options
	mu     sync.Mutex
	order  *list.List
	items  map[K]*list.Element
	weight int
}

// New 创建一个 LRU 缓存。
func New[K comparable, V any](opts Options) (*LRU[K, V], error) {
	if opts.Capacity <= 0 && opts.MaxWeight <= 0 {
		return nil, ErrUnbounded
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &LRU[K, V]{opts: opts, order: list.New(), items: make(map[K]*list.Element)}, nil
}

// Get 返回键对应的值，并把它标记为最近使用。过期条目在这里被动删除。
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.items[key]
	if !ok {
		return zero, false
	}
	it := el.Value.(*item[K, V])
	if c.expired(it) {
		c.remove(el)
		return zero, false
	}
	c.order.MoveToFront(el)
	return it.value, true
}

// Put 添加或替换一个条目。只按数量限制时 weight 传 1 即可。
func (c *LRU[K, V]) Put(key K, value V, weight int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expires time.Time
	if c.opts.TTL > 0 {
		expires = c.opts.Now().Add(c.opts.TTL)
	}
	if el, ok := c.items[key]; ok {
		it := el.Value.(*item[K, V])
		c.weight += weight - it.weight
		it.value, it.weight, it.expires = value, weight, expires
		c.order.MoveToFront(el)
	} else {
		c.items[key] = c.order.PushFront(&item[K, V]{key: key, value: value, weight: weight, expires: expires})
		c.weight += weight
	}

	// 一个很重的新条目可能挤掉多个旧条目
	for c.over() {
		c.remove(c.order.Back())
	}
}

// Remove 删除一个条目，返回它是否存在。
func (c *LRU[K, V]) Remove(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if ok {
		c.remove(el)
	}
	return ok
}

// Purge 清空缓存。
func (c *LRU[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.items = make(map[K]*list.Element)
	c.weight = 0
}

// Len 返回条目数量（含尚未被动删除的过期条目）。
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Weight 返回当前的总权重。
func (c *LRU[K, V]) Weight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.weight
}

func (c *LRU[K, V]) expired(it *item[K, V]) bool {
	return c.opts.TTL > 0 && c.opts.Now().After(it.expires)
}

// over 假设已持有锁。至少保留一个条目。
func (c *LRU[K, V]) over() bool {
	if c.order.Len() <= 1 {
		return false
	}
	if c.opts.Capacity > 0 && c.order.Len() > c.opts.Capacity {
		return true
	}
	return c.opts.MaxWeight > 0 && c.weight > c.opts.MaxWeight
}

func (c *LRU[K, V]) remove(el *list.Element) {
	it := c.order.Remove(el).(*item[K, V])
	delete(c.items, it.key)
	c.weight -= it.weight
}
