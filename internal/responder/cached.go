package responder

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/hpungsan/weatheragent/internal/observability"
	"github.com/hpungsan/weatheragent/internal/router"
)

// Cached wraps a Responder with an in-memory LRU keyed by the normalized
// prompt. Concurrent misses for the same prompt share one backend call; the
// shared call outlives any single caller's cancellation, and each caller
// stops waiting when its own context is done.
type Cached struct {
	inner   router.Responder
	cache   *lruCache
	group   singleflight.Group
	metrics *observability.Metrics
}

// NewCached creates a cache decorator holding at most maxEntries replies.
func NewCached(inner router.Responder, maxEntries int, metrics *observability.Metrics) *Cached {
	return &Cached{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

// Respond implements router.Responder.
func (c *Cached) Respond(ctx context.Context, text string) (string, error) {
	key := cacheKey(text)
	if reply, ok := c.cache.get(key); ok {
		c.count("hit")
		return reply, nil
	}
	c.count("miss")

	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		// A call for the same key may have completed since the lookup above.
		if reply, ok := c.cache.get(key); ok {
			return reply, nil
		}
		reply, err := c.inner.Respond(shared, text)
		if err != nil {
			return "", err
		}
		// Empty replies are left uncached so the next call retries.
		if strings.TrimSpace(reply) != "" {
			c.cache.put(key, reply)
		}
		return reply, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// Len returns the number of cached replies.
func (c *Cached) Len() int {
	return c.cache.size()
}

func (c *Cached) count(result string) {
	if c.metrics != nil {
		c.metrics.ResponderCache.WithLabelValues(result).Inc()
	}
}

func cacheKey(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}

// lruCache is a thread-safe LRU of reply strings.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value string
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return "", false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key, value string) {
	if c.maxEntries <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
