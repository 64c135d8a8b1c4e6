package cache_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/thehub/internal/adapters/catalog/cache"
	"github.com/okian/thehub/internal/domain/catalog"
	. "github.com/smartystreets/goconvey/convey"
)

type countingClient struct {
	mu    sync.Mutex
	calls map[string]int
	fail  error
}

func (c *countingClient) Lookup(_ context.Context, ref string) (catalog.Display, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calls == nil {
		c.calls = map[string]int{}
	}
	c.calls[ref]++
	if c.fail != nil {
		return catalog.Display{}, c.fail
	}
	if ref == "missing" {
		return catalog.Display{}, catalog.ErrNotFound
	}
	return catalog.Display{Title: "title-" + ref}, nil
}

func (c *countingClient) count(ref string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[ref]
}

func TestCache(t *testing.T) {
	ctx := context.Background()

	Convey("Given a cache in front of a catalog", t, func() {
		next := &countingClient{}
		now := time.Unix(1_700_000_000, 0)
		c := cache.New(next,
			cache.WithMaxSize(2),
			cache.WithTTL(time.Minute),
			cache.WithClock(func() time.Time { return now }),
		)

		Convey("When the same reference is looked up twice", func() {
			d1, err1 := c.Lookup(ctx, "a")
			d2, err2 := c.Lookup(ctx, "a")

			Convey("Then the catalog is asked once", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(d1, ShouldResemble, d2)
				So(next.count("a"), ShouldEqual, 1)
				So(c.Size(), ShouldEqual, 1)
			})
		})

		Convey("When a reference is not found", func() {
			_, err1 := c.Lookup(ctx, "missing")
			_, err2 := c.Lookup(ctx, "missing")

			Convey("Then the negative answer is cached", func() {
				So(errors.Is(err1, catalog.ErrNotFound), ShouldBeTrue)
				So(errors.Is(err2, catalog.ErrNotFound), ShouldBeTrue)
				So(next.count("missing"), ShouldEqual, 1)
			})
		})

		Convey("When the catalog fails", func() {
			next.fail = errors.New("timeout")
			_, err1 := c.Lookup(ctx, "a")
			_, err2 := c.Lookup(ctx, "a")

			Convey("Then the failure is not cached", func() {
				So(err1, ShouldNotBeNil)
				So(err2, ShouldNotBeNil)
				So(next.count("a"), ShouldEqual, 2)
				So(c.Size(), ShouldEqual, 0)
			})
		})

		Convey("When an entry outlives its TTL", func() {
			_, _ = c.Lookup(ctx, "a")
			now = now.Add(2 * time.Minute)
			_, _ = c.Lookup(ctx, "a")

			Convey("Then it is fetched again", func() {
				So(next.count("a"), ShouldEqual, 2)
				So(c.Size(), ShouldEqual, 1)
			})
		})

		Convey("When more references than the capacity are cached", func() {
			_, _ = c.Lookup(ctx, "a")
			_, _ = c.Lookup(ctx, "b")
			_, _ = c.Lookup(ctx, "c")

			Convey("Then the least recently used one is evicted", func() {
				So(c.Size(), ShouldEqual, 2)
				_, _ = c.Lookup(ctx, "c")
				_, _ = c.Lookup(ctx, "b")
				So(next.count("b"), ShouldEqual, 1)
				So(next.count("c"), ShouldEqual, 1)
				_, _ = c.Lookup(ctx, "a")
				So(next.count("a"), ShouldEqual, 2)
			})
		})
	})

	Convey("Given a full cache whose oldest entry was just read", t, func() {
		next := &countingClient{}
		c := cache.New(next, cache.WithMaxSize(2), cache.WithTTL(time.Minute))
		_, _ = c.Lookup(ctx, "a")
		_, _ = c.Lookup(ctx, "b")
		_, _ = c.Lookup(ctx, "a")

		Convey("When a new reference is cached", func() {
			_, _ = c.Lookup(ctx, "c")

			Convey("Then the read entry survives and the idle one is evicted", func() {
				So(c.Size(), ShouldEqual, 2)
				_, _ = c.Lookup(ctx, "a")
				So(next.count("a"), ShouldEqual, 1)
				_, _ = c.Lookup(ctx, "b")
				So(next.count("b"), ShouldEqual, 2)
			})
		})
	})

	Convey("Given a cache with caching disabled", t, func() {
		next := &countingClient{}
		c := cache.New(next, cache.WithMaxSize(0))
		_, _ = c.Lookup(ctx, "a")
		_, _ = c.Lookup(ctx, "a")
		So(next.count("a"), ShouldEqual, 2)
		So(c.Size(), ShouldEqual, 0)
	})

	Convey("Given concurrent lookups", t, func() {
		next := &countingClient{}
		c := cache.New(next, cache.WithMaxSize(16))
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, _ = c.Lookup(ctx, fmt.Sprintf("ref-%d", i%32))
			}(i)
		}
		wg.Wait()

		So(c.Size(), ShouldBeLessThanOrEqualTo, 16)
	})
}
