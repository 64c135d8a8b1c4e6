package cache

import "time"

// Option configures the cache.
type Option func(*Client)

// WithMaxSize sets the maximum number of cached references.
// Zero or negative disables caching.
func WithMaxSize(maxSize int) Option {
	return func(c *Client) {
		c.maxSize = maxSize
	}
}

// WithTTL sets how long a lookup stays cached. Zero keeps entries until evicted.
func WithTTL(ttl time.Duration) Option {
	return func(c *Client) {
		if ttl >= 0 {
			c.ttl = ttl
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}
