// Package worker runs catalog lookups on a fixed pool of goroutines fed by
// the enrichment queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/thehub/internal/adapters/mq/queue"
	"github.com/okian/thehub/internal/domain/catalog"
	"github.com/okian/thehub/pkg/logger"
	"github.com/okian/thehub/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 4 // multiplier for runtime.NumCPU()
	poolShutdownTimeout     = 30 * time.Second
)

// ErrStopped is reported for lookups that were pending when the pool stopped.
var ErrStopped = errors.New("worker pool stopped")

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Enqueuer is the producer side of the queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, j queue.Job) bool
}

// JobQueue is both sides of the queue.
type JobQueue interface {
	Queue
	Enqueuer
}

// Worker processes jobs until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)
	// Shutdown stops the worker.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker performs catalog lookups for queued jobs.
type InMemoryWorker struct {
	queue  Queue
	client catalog.Client
	name   string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, client catalog.Client, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		client:   client,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			w.process(j)
		}
	}
}

// Shutdown stops the worker after its current job.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) process(j queue.Job) {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	ctx := j.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	res := catalog.Result{Index: j.Index}
	if err := ctx.Err(); err != nil {
		res.Err = err
	} else {
		res.Display, res.Err = w.client.Lookup(ctx, j.Ref)
	}
	if res.Err != nil && !errors.Is(res.Err, catalog.ErrNotFound) {
		metrics.RecordErrorByComponent("worker", "lookup_error")
	}

	select {
	case j.Reply <- res:
	default:
		w.logger.Warn(ctx, "dropped lookup result", logger.String("ref", j.Ref), logger.Int("index", j.Index))
	}
}

// Pool manages the enrichment workers and implements catalog.Fetcher.
type Pool struct {
	workers  []*InMemoryWorker
	queue    Queue
	enqueuer Enqueuer
	client   catalog.Client

	started      atomic.Bool
	shutdown     chan struct{}
	shutdownOnce sync.Once

	logger logger.Logger
}

// NewPool creates a worker pool reading from q. Lookups the queue rejects are
// performed inline with client.
func NewPool(workerCount int, q JobQueue, client catalog.Client) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	p := &Pool{
		workers:  make([]*InMemoryWorker, workerCount),
		queue:    q,
		enqueuer: q,
		client:   client,
		shutdown: make(chan struct{}),
		logger:   logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		p.workers[i] = NewInMemoryWorker(q, client, WithName("worker-"+strconv.Itoa(i)))
	}
	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// FetchAll implements catalog.Fetcher. Every reference gets a result, in
// request order, even if the pool stops or ctx ends midway.
func (p *Pool) FetchAll(ctx context.Context, refs []string) []catalog.Result {
	out := make([]catalog.Result, len(refs))
	if len(refs) == 0 {
		return out
	}

	reply := make(chan catalog.Result, len(refs))
	pending := 0
	var inline []int
	for i, ref := range refs {
		if p.enqueuer.Enqueue(ctx, queue.Job{Ctx: ctx, Index: i, Ref: ref, Reply: reply}) {
			pending++
			continue
		}
		metrics.RecordInlineFallback()
		inline = append(inline, i)
	}

	// Rejected jobs are looked up on the calling goroutine.
	filled := make([]bool, len(refs))
	if len(inline) > 0 {
		rejected := make([]string, len(inline))
		for j, i := range inline {
			rejected[j] = refs[i]
		}
		for _, res := range (catalog.Sequential{Client: p.client}).FetchAll(ctx, rejected) {
			i := inline[res.Index]
			res.Index = i
			out[i] = res
			filled[i] = true
		}
	}

	for pending > 0 {
		select {
		case res := <-reply:
			out[res.Index] = res
			filled[res.Index] = true
			pending--
		case <-ctx.Done():
			return fill(out, filled, ctx.Err())
		case <-p.shutdown:
			return fill(out, filled, ErrStopped)
		}
	}
	return out
}

func fill(out []catalog.Result, filled []bool, err error) []catalog.Result {
	for i := range out {
		if !filled[i] {
			out[i] = catalog.Result{Index: i, Err: err}
		}
	}
	return out
}

// Shutdown closes the queue and waits for the workers to stop.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	p.shutdownOnce.Do(func() { close(p.shutdown) })
	if !p.started.Load() {
		metrics.UpdateWorkerCount(0)
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var errs []error
	for i, w := range p.workers {
		if err := w.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			errs = append(errs, err)
		}
	}
	metrics.UpdateWorkerCount(0)
	return errors.Join(errs...)
}
