package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/okian/thehub/internal/adapters/catalog/cache"
	"github.com/okian/thehub/internal/adapters/catalog/shopify"
	"github.com/okian/thehub/internal/adapters/http/api"
	"github.com/okian/thehub/internal/adapters/http/site"
	"github.com/okian/thehub/internal/adapters/http/swagger"
	"github.com/okian/thehub/internal/adapters/repository"
	app "github.com/okian/thehub/internal/app"
	"github.com/okian/thehub/internal/config"
	"github.com/okian/thehub/internal/domain/catalog"
	"github.com/okian/thehub/pkg/logger"
	"github.com/okian/thehub/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 30 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	systemMetricsInterval  = 10 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// A missing .env is normal outside development.
	envErr := godotenv.Load()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			os.Stderr.WriteString("failed to sync logs: " + err.Error() + "\n")
		}
	}()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	if err := logger.SetFormat(cfg.LogFormat); err != nil {
		os.Stderr.WriteString("invalid log_format; using text: " + err.Error() + "\n")
	}
	loggerInstance := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	if envErr != nil {
		loggerInstance.Debug(ctx, "no .env file loaded", logger.Error(envErr))
	}

	store, err := openStore(ctx, cfg, loggerInstance)
	if err != nil {
		loggerInstance.Error(ctx, "failed to open configuration store", logger.String("driver", cfg.StoreDriver), logger.Error(err))
		return
	}

	svc := app.New(
		app.WithLogger(loggerInstance.Named("service")),
		app.WithStore(store),
		app.WithCatalog(newCatalog(ctx, cfg, loggerInstance)),
		app.WithWorkerCount(cfg.EnrichmentWorkers),
		app.WithQueueSize(cfg.EnrichmentQueueSize),
		app.WithUnknownCategoryName(cfg.UnknownCategoryName),
		app.WithRuleQuestionValidation(cfg.ValidateRuleQuestions),
	)
	if err := svc.Start(ctx); err != nil {
		loggerInstance.Error(ctx, "failed to start service", logger.Error(err))
		return
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	apiServer := api.NewServer(svc, svc,
		api.WithAllowedOrigins(cfg.CORSAllowedOrigins),
		api.WithLogger(loggerInstance.Named("api")),
	)
	router := apiServer.Routes(ctx)
	swagger.Register(ctx, router)
	site.Register(ctx, router)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// openStore opens the configured store. The sqlite store is migrated and,
// when a seed path is set, loaded from that YAML document.
func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (repository.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreYAML:
		if _, err := repository.ReadSnapshotFile(cfg.StorePath); err != nil {
			return nil, err
		}
		return repository.NewYAMLStore(cfg.StorePath, repository.WithLogger(log.Named("yamlstore"))), nil
	case config.StoreSQLite:
		s, err := repository.OpenSQLite(cfg.StorePath, repository.WithLogger(log.Named("sqlitestore")))
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		if cfg.SeedPath != "" {
			snap, err := repository.ReadSnapshotFile(cfg.SeedPath)
			if err != nil {
				_ = s.Close()
				return nil, err
			}
			if err := s.Import(ctx, snap); err != nil {
				_ = s.Close()
				return nil, err
			}
			log.Info(ctx, "seeded sqlite store", logger.String("seed", cfg.SeedPath))
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: unknown store_driver %q", config.ErrInvalidConfig, cfg.StoreDriver)
	}
}

// newCatalog returns the Shopify client behind a cache, or a catalog that
// reports every product as not found when no shop is configured.
func newCatalog(ctx context.Context, cfg *config.Config, log logger.Logger) catalog.Client {
	var client catalog.Client = catalog.Unavailable{}
	sc, err := shopify.NewClient(shopify.Config{
		Domain:     cfg.ShopifyDomain,
		Token:      cfg.ShopifyToken,
		APIVersion: cfg.ShopifyAPIVersion,
		Timeout:    time.Duration(cfg.CatalogTimeoutMS) * time.Millisecond,
	})
	switch {
	case err == nil:
		client = sc
		log.Info(ctx, "catalog enrichment enabled", logger.String("shop", cfg.ShopifyDomain))
	case errors.Is(err, shopify.ErrNotConfigured):
		log.Warn(ctx, "catalog enrichment disabled; shopify_domain or shopify_token not set")
	default:
		log.Error(ctx, "catalog enrichment disabled", logger.Error(err))
	}

	if cfg.CatalogCacheSize <= 0 {
		return client
	}
	return cache.New(client,
		cache.WithMaxSize(cfg.CatalogCacheSize),
		cache.WithTTL(time.Duration(cfg.CatalogCacheTTLSeconds)*time.Second),
	)
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}

// updateServiceMetrics copies service stats into gauges.
func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()

	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
	if workers, ok := stats["activeWorkers"].(int); ok {
		metrics.UpdateWorkerCount(workers)
	}
	if size, ok := stats["catalogCacheSize"].(int64); ok {
		metrics.UpdateCatalogCacheSize(size)
	}
}
