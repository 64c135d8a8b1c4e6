package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/thehub/internal/adapters/mq/queue"
	worker "github.com/okian/thehub/internal/adapters/mq/worker"
	"github.com/okian/thehub/internal/domain/catalog"
	logging "github.com/okian/thehub/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing.
type mockClient struct {
	mu     sync.Mutex
	delays map[string]time.Duration
	errors map[string]error
	calls  int
}

func newMockClient() *mockClient {
	return &mockClient{delays: map[string]time.Duration{}, errors: map[string]error{}}
}

func (m *mockClient) Lookup(ctx context.Context, ref string) (catalog.Display, error) {
	m.mu.Lock()
	m.calls++
	delay := m.delays[ref]
	err := m.errors[ref]
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return catalog.Display{}, ctx.Err()
		}
	}
	if err != nil {
		return catalog.Display{}, err
	}
	return catalog.Display{Title: "title:" + ref}, nil
}

func (m *mockClient) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// rejectingQueue accepts nothing, forcing inline lookups.
type rejectingQueue struct{}

func (rejectingQueue) Enqueue(context.Context, queue.Job) bool { return false }
func (rejectingQueue) Dequeue(context.Context) <-chan queue.Job {
	return make(chan queue.Job)
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a worker reading from a queue", t, func() {
		_ = logging.Init()

		q := queue.NewInMemoryQueue(queue.WithCapacity(10))
		client := newMockClient()
		client.errors["bad"] = errors.New("boom")
		w := worker.NewInMemoryWorker(q, client, worker.WithName("test-worker"))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When a job is queued", func() {
			reply := make(chan catalog.Result, 1)
			q.Enqueue(ctx, queue.Job{Ctx: ctx, Index: 3, Ref: "a", Reply: reply})

			convey.Convey("Then the result is sent back with its index", func() {
				res := <-reply
				convey.So(res.Index, convey.ShouldEqual, 3)
				convey.So(res.Err, convey.ShouldBeNil)
				convey.So(res.Display.Title, convey.ShouldEqual, "title:a")
			})
		})

		convey.Convey("When the lookup fails", func() {
			reply := make(chan catalog.Result, 1)
			q.Enqueue(ctx, queue.Job{Ctx: ctx, Index: 0, Ref: "bad", Reply: reply})

			convey.Convey("Then the error is sent back", func() {
				res := <-reply
				convey.So(res.Err, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When the job's context is already cancelled", func() {
			jobCtx, jobCancel := context.WithCancel(context.Background())
			jobCancel()
			reply := make(chan catalog.Result, 1)
			q.Enqueue(ctx, queue.Job{Ctx: jobCtx, Index: 0, Ref: "a", Reply: reply})

			convey.Convey("Then the catalog is not called", func() {
				res := <-reply
				convey.So(errors.Is(res.Err, context.Canceled), convey.ShouldBeTrue)
				convey.So(client.callCount(), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When shutting down", func() {
			err := w.Shutdown(context.Background())
			convey.So(err, convey.ShouldBeNil)
			convey.So(w.Shutdown(context.Background()), convey.ShouldBeNil)
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a started pool", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(64))
		client := newMockClient()
		pool := worker.NewPool(4, q, client)
		ctx := context.Background()
		pool.Start(ctx)
		defer func() { _ = pool.Shutdown(ctx) }()

		convey.So(pool.Size(), convey.ShouldEqual, 4)

		convey.Convey("When lookups finish out of order", func() {
			refs := []string{"slow", "fast", "medium", "bad"}
			client.delays["slow"] = 40 * time.Millisecond
			client.delays["medium"] = 20 * time.Millisecond
			client.errors["bad"] = errors.New("boom")

			res := pool.FetchAll(ctx, refs)

			convey.Convey("Then results are returned in request order", func() {
				convey.So(res, convey.ShouldHaveLength, 4)
				for i, ref := range refs[:3] {
					convey.So(res[i].Index, convey.ShouldEqual, i)
					convey.So(res[i].Display.Title, convey.ShouldEqual, "title:"+ref)
				}
			})

			convey.Convey("And one failure does not affect siblings", func() {
				convey.So(res[3].Err, convey.ShouldNotBeNil)
				convey.So(res[0].Err, convey.ShouldBeNil)
				convey.So(res[2].Err, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the request context ends first", func() {
			client.delays["slow"] = time.Second
			reqCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
			defer cancel()

			res := pool.FetchAll(reqCtx, []string{"slow"})

			convey.Convey("Then the pending lookup reports the context error", func() {
				convey.So(res, convey.ShouldHaveLength, 1)
				convey.So(errors.Is(res[0].Err, context.DeadlineExceeded), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When fetching many references concurrently", func() {
			var wg sync.WaitGroup
			errs := make(chan error, 8)
			for g := 0; g < 8; g++ {
				wg.Add(1)
				go func(g int) {
					defer wg.Done()
					refs := make([]string, 10)
					for i := range refs {
						refs[i] = fmt.Sprintf("g%d-%d", g, i)
					}
					for i, r := range pool.FetchAll(ctx, refs) {
						if r.Display.Title != "title:"+refs[i] {
							errs <- fmt.Errorf("result %d mismatched: %q", i, r.Display.Title)
							return
						}
					}
				}(g)
			}
			wg.Wait()
			close(errs)

			convey.Convey("Then every batch gets its own results", func() {
				for err := range errs {
					convey.So(err, convey.ShouldBeNil)
				}
				convey.So(client.callCount(), convey.ShouldEqual, 80)
			})
		})
	})

	convey.Convey("Given a queue that rejects jobs", t, func() {
		client := newMockClient()
		pool := worker.NewPool(1, rejectingQueue{}, client)

		convey.Convey("When fetching", func() {
			res := pool.FetchAll(context.Background(), []string{"a", "b"})

			convey.Convey("Then lookups run inline", func() {
				convey.So(res[0].Display.Title, convey.ShouldEqual, "title:a")
				convey.So(res[1].Display.Title, convey.ShouldEqual, "title:b")
				convey.So(client.callCount(), convey.ShouldEqual, 2)
				convey.So(res[1].Index, convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the request is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			res := pool.FetchAll(ctx, []string{"a", "b"})

			convey.Convey("Then no inline lookup is made", func() {
				convey.So(res, convey.ShouldHaveLength, 2)
				convey.So(errors.Is(res[0].Err, context.Canceled), convey.ShouldBeTrue)
				convey.So(res[1].Index, convey.ShouldEqual, 1)
				convey.So(client.callCount(), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When shutting down a pool that never started", func() {
			convey.So(pool.Shutdown(context.Background()), convey.ShouldBeNil)
		})
	})

	convey.Convey("Given a pool with queued jobs but no running workers", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(4))
		pool := worker.NewPool(1, q, newMockClient())
		done := make(chan []catalog.Result, 1)
		go func() { done <- pool.FetchAll(context.Background(), []string{"a"}) }()

		time.Sleep(10 * time.Millisecond)
		_ = pool.Shutdown(context.Background())

		convey.Convey("Then pending lookups report the stop", func() {
			res := <-done
			convey.So(errors.Is(res[0].Err, worker.ErrStopped), convey.ShouldBeTrue)
		})
	})
}
