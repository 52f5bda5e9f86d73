package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/catalogimporter/internal/config"
	"github.com/utafrali/catalogimporter/internal/domain"
	"github.com/utafrali/catalogimporter/internal/event"
	handler "github.com/utafrali/catalogimporter/internal/handler/http"
	"github.com/utafrali/catalogimporter/internal/importer"
	"github.com/utafrali/catalogimporter/internal/media"
	"github.com/utafrali/catalogimporter/internal/progress"
	"github.com/utafrali/catalogimporter/internal/repository"
	"github.com/utafrali/catalogimporter/internal/repository/memory"
	"github.com/utafrali/catalogimporter/internal/repository/postgres"
	"github.com/utafrali/catalogimporter/internal/seo"
	"github.com/utafrali/catalogimporter/internal/service"
	"github.com/utafrali/catalogimporter/internal/storage"
	"github.com/utafrali/catalogimporter/internal/storage/local"
	memstorage "github.com/utafrali/catalogimporter/internal/storage/memory"
	"github.com/utafrali/catalogimporter/migrations"
	"github.com/utafrali/catalogimporter/pkg/database"
	"github.com/utafrali/catalogimporter/pkg/health"
	"github.com/utafrali/catalogimporter/pkg/httpclient"
	pkgkafka "github.com/utafrali/catalogimporter/pkg/kafka"
	"github.com/utafrali/catalogimporter/pkg/middleware"
	"github.com/utafrali/catalogimporter/pkg/tracing"
)

const serviceName = "catalog-importer"

// App wires together all dependencies and runs the catalog importer.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	imports        *service.ImportService
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// stores groups the entity repositories the importer writes to.
type stores struct {
	products             repository.ProductRepository
	urlRecords           repository.UrlRecordRepository
	languages            repository.LanguageRepository
	localized            repository.LocalizedPropertyRepository
	categories           repository.TargetRepository
	productCategories    repository.MappingRepository
	manufacturers        repository.TargetRepository
	productManufacturers repository.MappingRepository
	pictures             repository.PictureRepository
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}

	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = tracerShutdown

	healthHandler := health.NewHandler()

	st, err := a.openStore(ctx, healthHandler)
	if err != nil {
		a.closeResources()
		return nil, err
	}

	var tracker *progress.Tracker
	if cfg.RedisHost != "" {
		client, err := database.NewRedisClient(ctx, database.RedisConfig{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
			PoolSize: cfg.RedisPoolSize,
		})
		if err != nil {
			// Progress sharing is optional; imports still run on this instance.
			logger.Warn("redis unavailable, import progress stays local",
				slog.String("host", cfg.RedisHost),
				slog.String("error", err.Error()),
			)
		} else {
			a.redis = client
			tracker = progress.NewTracker(client, cfg.ProgressTTL, logger)
			healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
				return client.Ping(ctx).Err()
			})
			logger.Info("connected to Redis", slog.Int("port", cfg.RedisPort), slog.String("host", cfg.RedisHost))
		}
	}

	var (
		notifier  importer.Notifier
		publisher service.FinishPublisher
	)
	if len(cfg.KafkaBrokers) > 0 {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		eventProducer := event.NewProducer(a.producer, logger)
		notifier, publisher = eventProducer, eventProducer
		producer := a.producer
		healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
			return producer.Ping(ctx)
		})
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	pictureStore, err := a.openPictureStorage()
	if err != nil {
		a.closeResources()
		return nil, err
	}

	var fetcher media.Fetcher
	if cfg.RemotePictures {
		baseClient := httpclient.New(httpclient.Config{
			Timeout:         30 * time.Second,
			MaxRetries:      2,
			RetryWaitMin:    500 * time.Millisecond,
			RetryWaitMax:    5 * time.Second,
			MaxConnsPerHost: 16,
		})
		cbCfg := httpclient.CircuitBreakerConfig{
			Name:         "picture-download",
			MaxRequests:  cfg.CBMaxRequests,
			Interval:     time.Duration(cfg.CBInterval) * time.Second,
			Timeout:      time.Duration(cfg.CBTimeout) * time.Second,
			FailureRatio: cfg.CBFailureRatio,
			MinRequests:  cfg.CBMinRequests,
		}
		fetcher = httpclient.NewCircuitBreakerClient(baseClient, cbCfg, logger)
		logger.Info("circuit breaker initialized",
			slog.String("name", cbCfg.Name),
			slog.Int("timeout_seconds", cfg.CBTimeout),
		)
	}

	slugs := seo.NewService(st.urlRecords, seo.Settings{
		ReservedSlugs: cfg.ReservedSlugs,
		MaxLength:     cfg.SlugMaxLength,
	}, logger)
	pictures := media.NewService(st.pictures, pictureStore, media.NewLoader(cfg.PictureSourceDir, fetcher), logger)

	imp := importer.New(importer.Dependencies{
		Products:             st.products,
		Slugs:                slugs,
		Languages:            st.languages,
		Localized:            st.localized,
		Categories:           st.categories,
		ProductCategories:    st.productCategories,
		Manufacturers:        st.manufacturers,
		ProductManufacturers: st.productManufacturers,
		Pictures:             pictures,
		Notifier:             notifier,
		Logger:               logger,
	})

	a.imports = service.NewImportService(imp, tracker, publisher, service.Options{
		WorkDir:            cfg.WorkDir,
		MaxConcurrent:      cfg.MaxConcurrent,
		DefaultBatchSize:   cfg.BatchSize,
		DefaultCulture:     cfg.Culture,
		ParallelDependents: cfg.ParallelDependents,
		Retention:          cfg.ProgressTTL,
	}, logger)

	cors := middleware.DefaultCORSConfig()
	cors.Environment = cfg.Environment
	router := handler.NewRouter(a.imports, healthHandler, handler.RouterConfig{
		MaxUploadBytes: cfg.MaxUploadMB << 20,
		CORS:           cors,
		PprofCIDRs:     cfg.PprofAllowedCIDRs,
	}, logger)

	// Uploads can be large, so reads get a longer deadline.
	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// openStore connects the entity store selected by configuration.
func (a *App) openStore(ctx context.Context, healthHandler *health.Handler) (*stores, error) {
	cfg := a.cfg
	if cfg.Store == config.StoreMemory {
		store := memory.NewStore()
		store.AddLanguage(domain.Language{
			ID:              1,
			Name:            cfg.Culture,
			LanguageCulture: cfg.Culture,
			UniqueSeoCode:   seoCode(cfg.Culture),
			Published:       true,
			DisplayOrder:    1,
		})
		a.logger.Warn("using in-memory catalog store, data is lost on restart")
		return &stores{
			products:             store.Products(),
			urlRecords:           store.UrlRecords(),
			languages:            store.Languages(),
			localized:            store.LocalizedProperties(),
			categories:           store.Categories(),
			productCategories:    store.ProductCategories(),
			manufacturers:        store.Manufacturers(),
			productManufacturers: store.ProductManufacturers(),
			pictures:             store.Pictures(),
		}, nil
	}

	pool, err := database.NewPostgresPoolWithLogger(ctx, &database.PostgresConfig{
		Host:            cfg.PostgresHost,
		Port:            cfg.PostgresPort,
		User:            cfg.PostgresUser,
		Password:        cfg.PostgresPass,
		DBName:          cfg.PostgresDB,
		SSLMode:         cfg.PostgresSSL,
		ApplicationName: serviceName,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: time.Duration(cfg.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(cfg.DBMaxConnIdleTimeMins) * time.Minute,
	}, a.logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	a.pool = pool
	a.logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)

	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, serviceName); err != nil {
		a.logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
	}

	if cfg.RunMigrations {
		if err := database.RunMigrations(ctx, pool, migrations.FS, a.logger); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		a.logger.Info("database migrations completed")
	}

	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, a.logger)
	}

	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})

	return &stores{
		products:             postgres.NewProductRepository(pool),
		urlRecords:           postgres.NewUrlRecordRepository(pool),
		languages:            postgres.NewLanguageRepository(pool),
		localized:            postgres.NewLocalizedPropertyRepository(pool),
		categories:           postgres.NewTargetRepository(pool, domain.MappingCategory),
		productCategories:    postgres.NewMappingRepository(pool, domain.MappingCategory),
		manufacturers:        postgres.NewTargetRepository(pool, domain.MappingManufacturer),
		productManufacturers: postgres.NewMappingRepository(pool, domain.MappingManufacturer),
		pictures:             postgres.NewPictureRepository(pool),
	}, nil
}

func (a *App) openPictureStorage() (storage.Storage, error) {
	if a.cfg.PictureStorage == config.PictureStorageMemory {
		return memstorage.New(a.cfg.PictureBaseURL), nil
	}
	s, err := local.New(a.cfg.PictureDir, a.cfg.PictureBaseURL)
	if err != nil {
		return nil, fmt.Errorf("open picture storage: %w", err)
	}
	return s, nil
}

// seoCode returns the two letter code of a culture such as "en-US".
func seoCode(culture string) string {
	if len(culture) >= 2 {
		return culture[:2]
	}
	return culture
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in order:
// 1. HTTP server (drain in-flight requests)
// 2. Running imports (abort and wait)
// 3. Tracer
// 4. Kafka producer, Redis and PostgreSQL
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var result *multierror.Error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		result = multierror.Append(result, err)
	}

	importCtx, importCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer importCancel()
	if err := a.imports.Shutdown(importCtx); err != nil {
		a.logger.Error("import shutdown error", slog.String("error", err.Error()))
		result = multierror.Append(result, err)
	}

	if err := a.closeResources(); err != nil {
		result = multierror.Append(result, err)
	}

	a.logger.Info("application shutdown complete")
	return result.ErrorOrNil()
}

// closeResources releases the tracer and the backing connections. It is
// also used to unwind a partially built App.
func (a *App) closeResources() error {
	var result *multierror.Error

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			result = multierror.Append(result, err)
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			result = multierror.Append(result, err)
		}
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			result = multierror.Append(result, err)
		}
	}

	if a.pool != nil {
		a.pool.Close()
	}

	return result.ErrorOrNil()
}
