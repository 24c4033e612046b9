package tenant

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Cache stores resolved tenants under provider lookup keys.
type Cache interface {
	// Get returns a copy of the cached tenant.
	Get(ctx context.Context, key string) (*Tenant, bool)
	Set(ctx context.Context, key string, tenant *Tenant, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// DefaultCacheSize bounds NewInMemoryCache.
const DefaultCacheSize = 1000

// sweepInterval is how often expired entries are dropped without a read.
const sweepInterval = time.Minute

type lruEntry struct {
	key       string
	tenant    Tenant
	expiresAt time.Time
}

// lruCache keeps at most size tenants per process, evicting the least
// recently read entry first.
type lruCache struct {
	mu      sync.Mutex
	size    int
	order   *list.List
	entries map[string]*list.Element

	closeOnce sync.Once
	stop      chan struct{}
	stopped   chan struct{}
}

// NewInMemoryCache returns a process-local cache of DefaultCacheSize entries.
func NewInMemoryCache() Cache {
	return NewInMemoryCacheWithSize(DefaultCacheSize)
}

// NewInMemoryCacheWithSize returns a process-local cache holding at most
// size tenants. Non-positive sizes use DefaultCacheSize.
func NewInMemoryCacheWithSize(size int) Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c := &lruCache{
		size:    size,
		order:   list.New(),
		entries: make(map[string]*list.Element, size),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go c.sweep()
	return c
}

func (c *lruCache) Get(_ context.Context, key string) (*Tenant, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*lruEntry)
	if time.Now().After(e.expiresAt) {
		c.remove(el)
		return nil, false
	}
	c.order.MoveToFront(el)

	t := e.tenant
	return &t, true
}

func (c *lruCache) Set(_ context.Context, key string, t *Tenant, ttl time.Duration) error {
	if t == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := time.Now().Add(ttl)
	if el, ok := c.entries[key]; ok {
		e := el.Value.(*lruEntry)
		e.tenant, e.expiresAt = *t, expiresAt
		c.order.MoveToFront(el)
		return nil
	}

	if c.order.Len() >= c.size {
		c.remove(c.order.Back())
	}
	c.entries[key] = c.order.PushFront(&lruEntry{key: key, tenant: *t, expiresAt: expiresAt})
	return nil
}

func (c *lruCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range keys {
		if el, ok := c.entries[key]; ok {
			c.remove(el)
		}
	}
	return nil
}

// Close stops the sweeper. It is safe to call more than once.
func (c *lruCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stop)
		<-c.stopped
	})
	return nil
}

// remove expects c.mu to be held.
func (c *lruCache) remove(el *list.Element) {
	if el == nil {
		return
	}
	c.order.Remove(el)
	delete(c.entries, el.Value.(*lruEntry).key)
}

func (c *lruCache) sweep() {
	defer close(c.stopped)

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case now := <-ticker.C:
			c.mu.Lock()
			for el := c.order.Back(); el != nil; {
				prev := el.Prev()
				if now.After(el.Value.(*lruEntry).expiresAt) {
					c.remove(el)
				}
				el = prev
			}
			c.mu.Unlock()
		}
	}
}

type noOpCache struct{}

// NewNoOpCache returns a Cache that never hits. Useful to disable caching.
func NewNoOpCache() Cache { return noOpCache{} }

func (noOpCache) Get(context.Context, string) (*Tenant, bool)               { return nil, false }
func (noOpCache) Set(context.Context, string, *Tenant, time.Duration) error { return nil }
func (noOpCache) Delete(context.Context, ...string) error                   { return nil }
func (noOpCache) Close() error                                              { return nil }
