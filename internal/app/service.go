// Package service wires the configuration store, the catalog and the
// recommendation engine into the operations the HTTP API serves.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	jobqueue "github.com/okian/thehub/internal/adapters/mq/queue"
	workerpool "github.com/okian/thehub/internal/adapters/mq/worker"
	"github.com/okian/thehub/internal/adapters/repository"
	"github.com/okian/thehub/internal/domain/catalog"
	"github.com/okian/thehub/internal/domain/model"
	"github.com/okian/thehub/internal/domain/planner"
	"github.com/okian/thehub/internal/domain/recommend"
	"github.com/okian/thehub/pkg/logger"
	"github.com/okian/thehub/pkg/metrics"
)

// Sentinel errors.
var (
	ErrNotStarted       = errors.New("service not started")
	ErrNoStore          = errors.New("no configuration store")
	ErrStoreUnavailable = errors.New("configuration store unavailable")
)

// FormData is what the questionnaire widget needs to render.
type FormData = model.FormData

// Service implements the API dependencies for the recommendation system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   repository.Store
	catalog catalog.Client
	queue   *jobqueue.InMemoryQueue
	pool    *workerpool.Pool
	engine  *recommend.Engine

	// Configuration
	workerCount         int
	queueSize           int
	unknownCategoryName string
	validateQuestions   bool

	// State
	started   bool
	cancelRun context.CancelFunc
	served    atomic.Int64
	failed    atomic.Int64

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the configuration store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithCatalog sets the catalog used to enrich product lines.
func WithCatalog(c catalog.Client) Option {
	return func(s *Service) {
		if c != nil {
			s.catalog = c
		}
	}
}

// WithWorkerCount sets the number of enrichment workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the enrichment queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithUnknownCategoryName sets the label for rules whose category is missing.
func WithUnknownCategoryName(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.unknownCategoryName = name
		}
	}
}

// WithRuleQuestionValidation toggles skipping rules that disagree with their question.
func WithRuleQuestionValidation(enabled bool) Option {
	return func(s *Service) {
		s.validateQuestions = enabled
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		catalog:             catalog.Unavailable{},
		workerCount:         runtime.NumCPU() * 2,
		queueSize:           1024,
		unknownCategoryName: recommend.DefaultUnknownCategoryName,
		validateQuestions:   true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the engine and starts the enrichment workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.store == nil {
		return ErrNoStore
	}

	s.logger.Info(ctx, "starting recommendation service...")

	// Workers outlive the start call; Stop ends them.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancelRun = cancel

	s.queue = jobqueue.NewInMemoryQueue(
		jobqueue.WithCapacity(s.queueSize),
		jobqueue.WithBufferSize(s.queueSize),
	)
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.catalog)
	s.pool.Start(runCtx)

	s.engine = recommend.New(
		planner.New(s.pool, planner.WithLogger(s.logger.Named("planner"))),
		recommend.WithLogger(s.logger.Named("engine")),
		recommend.WithUnknownCategoryName(s.unknownCategoryName),
		recommend.WithQuestionValidation(s.validateQuestions),
	)

	s.started = true
	s.logger.Info(ctx, "recommendation service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Bool("validateRuleQuestions", s.validateQuestions),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping recommendation service...")

	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown incomplete", logger.Error(err))
	}
	s.cancelRun()

	if closer, ok := s.store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			s.logger.Warn(ctx, "error closing store", logger.Error(err))
		}
	}

	s.started = false
	s.logger.Info(ctx, "recommendation service stopped")
}

func (s *Service) running() (*recommend.Engine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.engine, nil
}

// Recommend evaluates answers for sportID against the current configuration.
// Store failures are returned wrapped in ErrStoreUnavailable; an empty result
// is not an error.
func (s *Service) Recommend(ctx context.Context, answers model.Answers, sportID string) ([]model.Recommendation, error) {
	engine, err := s.running()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	snap, err := s.loadSnapshot(ctx)
	if err != nil {
		s.failed.Add(1)
		return nil, err
	}

	recs, err := engine.Aggregate(ctx, snap, answers, sportID)
	if err != nil {
		s.failed.Add(1)
		metrics.RecordErrorByComponent("service", "aggregate")
		return nil, fmt.Errorf("recommend: %w", err)
	}
	metrics.RecordRecommendationLatency(float64(time.Since(start).Milliseconds()))
	s.served.Add(1)

	s.logger.Debug(ctx, "recommendations generated",
		logger.String("sportId", sportID),
		logger.Int("answers", len(answers)),
		logger.Int("blocks", len(recs)),
	)
	return recs, nil
}

// loadSnapshot reads the collections the engine needs concurrently.
func (s *Service) loadSnapshot(ctx context.Context) (model.Snapshot, error) {
	var snap model.Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		snap.Rules, err = s.store.ListRules(gctx)
		return err
	})
	g.Go(func() (err error) {
		snap.Products, err = s.store.ListProducts(gctx)
		return err
	})
	g.Go(func() (err error) {
		snap.Categories, err = s.store.ListCategories(gctx)
		return err
	})
	if s.validateQuestions {
		g.Go(func() (err error) {
			snap.Questions, err = s.store.ListQuestions(gctx)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return model.Snapshot{}, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return snap, nil
}

// FormData returns the sports that have questions and the questions to ask.
// With a sportID, questions are limited to that sport and ordered by their
// position in it.
func (s *Service) FormData(ctx context.Context, sportID string) (FormData, error) {
	if _, err := s.running(); err != nil {
		return FormData{}, err
	}

	var sports []model.Sport
	var questions []model.Question
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		sports, err = s.store.ListSports(gctx)
		return err
	})
	g.Go(func() (err error) {
		questions, err = s.store.ListQuestions(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.failed.Add(1)
		return FormData{}, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	out := FormData{Sports: []model.Sport{}, Questions: []model.Question{}}
	for _, sp := range sports {
		for _, q := range questions {
			if q.AppliesTo(sp.ID) {
				out.Sports = append(out.Sports, sp)
				break
			}
		}
	}

	for _, q := range questions {
		if sportID != "" && !q.AppliesTo(sportID) {
			continue
		}
		if q.Sports == nil {
			q.Sports = []model.SportOrder{}
		}
		if q.TimeComponents == nil {
			q.TimeComponents = []model.TimeComponent{}
		}
		out.Questions = append(out.Questions, q)
	}
	if sportID != "" {
		sort.SliceStable(out.Questions, func(i, j int) bool {
			a, _ := out.Questions[i].OrderFor(sportID)
			b, _ := out.Questions[j].OrderFor(sportID)
			return a < b
		})
	}
	return out, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":               s.started,
		"workerCount":           s.workerCount,
		"queueSize":             s.queueSize,
		"validateRuleQuestions": s.validateQuestions,
		"requestsServed":        s.served.Load(),
		"requestsFailed":        s.failed.Load(),
	}
	if s.started {
		queueLen := s.queue.Len(context.Background())
		stats["queueLength"] = queueLen
		stats["activeWorkers"] = s.pool.Size()
		if sized, ok := s.catalog.(interface{ Size() int64 }); ok {
			stats["catalogCacheSize"] = sized.Size()
		}

		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		metrics.UpdateSystemMemoryUsage(m.Alloc)
		metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
	}
	return stats
}
