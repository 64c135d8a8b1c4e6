// Package cache keeps recent catalog lookups in memory in front of a slower
// catalog.Client.
package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/thehub/internal/domain/catalog"
	"github.com/okian/thehub/pkg/metrics"
)

// node is one cached lookup in the recency list.
type node struct {
	ref      string
	display  catalog.Display
	notFound bool
	expires  time.Time
	prev     *node
	next     *node
}

func (n *node) reset() {
	*n = node{}
}

// Client is a bounded, TTL-limited LRU cache implementing catalog.Client.
// Successful and not-found lookups are cached; other errors are not.
// When full, the least recently used entry is evicted.
type Client struct {
	next     catalog.Client
	mu       sync.Mutex
	entries  map[string]*node
	head     *node // most recently used
	tail     *node // least recently used
	maxSize  int
	ttl      time.Duration
	now      func() time.Time
	size     atomic.Int64
	nodePool sync.Pool
}

// New wraps next with a cache.
func New(next catalog.Client, opts ...Option) *Client {
	c := &Client{
		next:    next,
		maxSize: 1024,
		ttl:     5 * time.Minute,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.entries = make(map[string]*node)
	c.nodePool = sync.Pool{New: func() interface{} { return &node{} }}
	return c
}

// Lookup implements catalog.Client.
func (c *Client) Lookup(ctx context.Context, ref string) (catalog.Display, error) {
	if d, notFound, ok := c.get(ref); ok {
		metrics.RecordCatalogCacheHit()
		if notFound {
			return catalog.Display{}, catalog.ErrNotFound
		}
		return d, nil
	}
	metrics.RecordCatalogCacheMiss()

	d, err := c.next.Lookup(ctx, ref)
	switch {
	case err == nil:
		c.put(ref, d, false)
	case errors.Is(err, catalog.ErrNotFound):
		c.put(ref, catalog.Display{}, true)
	}
	return d, err
}

// Size returns the number of cached references.
func (c *Client) Size() int64 {
	return c.size.Load()
}

func (c *Client) get(ref string) (catalog.Display, bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.entries[ref]
	if !ok {
		return catalog.Display{}, false, false
	}
	if c.ttl > 0 && !c.now().Before(n.expires) {
		c.remove(n)
		return catalog.Display{}, false, false
	}
	c.unlink(n)
	c.pushFront(n)
	return n.display, n.notFound, true
}

func (c *Client) put(ref string, d catalog.Display, notFound bool) {
	if c.maxSize <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[ref]; ok {
		c.remove(old)
	}
	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	n := c.nodePool.Get().(*node)
	n.ref = ref
	n.display = d
	n.notFound = notFound
	n.expires = c.now().Add(c.ttl)
	c.pushFront(n)
	c.entries[ref] = n
	metrics.UpdateCatalogCacheSize(c.size.Add(1))
}

// pushFront makes n the most recently used entry. Must be called with c.mu held.
func (c *Client) pushFront(n *node) {
	n.prev = nil
	n.next = c.head
	if c.head != nil {
		c.head.prev = n
	}
	c.head = n
	if c.tail == nil {
		c.tail = n
	}
}

// unlink detaches n from the list. Must be called with c.mu held.
func (c *Client) unlink(n *node) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		c.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		c.tail = n.prev
	}
	n.prev, n.next = nil, nil
}

// remove drops n from the cache. Must be called with c.mu held.
func (c *Client) remove(n *node) {
	delete(c.entries, n.ref)
	c.unlink(n)
	n.reset()
	c.nodePool.Put(n)
	metrics.UpdateCatalogCacheSize(c.size.Add(-1))
}

// evictOldest drops the least recently used entry. Must be called with c.mu held.
func (c *Client) evictOldest() {
	if c.tail == nil {
		return
	}
	c.remove(c.tail)
	metrics.RecordCatalogCacheEviction()
}
