// Package bootstrap opens the configured infrastructure and assembles the services.
package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
	"github.com/sifan077/shortlink/config"
	"github.com/sifan077/shortlink/internal/app/cache"
	"github.com/sifan077/shortlink/internal/app/repository"
	appserver "github.com/sifan077/shortlink/internal/app/server"
	"github.com/sifan077/shortlink/internal/app/service"
	infraNATS "github.com/sifan077/shortlink/internal/infra/nats"
	infraPostgres "github.com/sifan077/shortlink/internal/infra/postgres"
	infraPrometheus "github.com/sifan077/shortlink/internal/infra/prometheus"
	infraRedis "github.com/sifan077/shortlink/internal/infra/redis"
	"github.com/sifan077/shortlink/internal/infra/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	connectAttempts = 5
	connectBackoff  = 500 * time.Millisecond
)

// App holds every long-lived component. Optional infrastructure is nil when disabled.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Registry *prometheus.Registry
	Metrics  *infraPrometheus.Metrics

	DB        *gorm.DB
	SQL       *sql.DB
	Postgres  *pgxpool.Pool
	Redis     *redis.Client
	NATS      *nats.Conn
	JetStream nats.JetStreamContext

	Store      repository.Store
	Cache      cache.LinkCache
	Links      *repository.BloomLinkRepository
	Slugs      *service.SlugGenerator
	LinkSvc    service.LinkService
	Analytics  service.AnalyticsService
	Recorder   service.ClickRecorder
	Publisher  *service.ClickPublisher
	Consumer   *service.ClickConsumer
	Reconciler *service.CounterReconciler

	closers []func()
}

// New connects to storage (and Redis/NATS when enabled), migrates the schema and wires the services.
// On error everything opened so far is closed.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (_ *App, err error) {
	a := &App{
		Config:   cfg,
		Logger:   log,
		Registry: prometheus.NewRegistry(),
	}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.Metrics = infraPrometheus.NewMetrics(a.Registry)

	if err := a.openDatabase(ctx); err != nil {
		return nil, err
	}
	if err := a.openCache(ctx); err != nil {
		return nil, err
	}
	if err := a.openMessaging(); err != nil {
		return nil, err
	}
	if err := a.wireServices(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

// OpenDatabase opens and migrates the configured database, retrying the first connection.
func OpenDatabase(ctx context.Context, cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		db, err := sqlite.Open(cfg.Database.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := sqlite.AutoMigrate(ctx, db); err != nil {
			closeGorm(db)
			return nil, err
		}
		return db, nil
	case config.DriverPostgres:
		db, err := withRetry(ctx, log, "postgres", func() (*gorm.DB, error) {
			return infraPostgres.NewGorm(cfg.Postgres)
		})
		if err != nil {
			return nil, err
		}
		if err := infraPostgres.Migrate(ctx, db, log); err != nil {
			closeGorm(db)
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("bootstrap: unsupported database driver %q", cfg.Database.Driver)
	}
}

func (a *App) openDatabase(ctx context.Context) error {
	db, err := OpenDatabase(ctx, a.Config, a.Logger)
	if err != nil {
		return err
	}
	a.DB = db
	a.closers = append(a.closers, func() { closeGorm(db) })

	if a.SQL, err = db.DB(); err != nil {
		return fmt.Errorf("bootstrap: retrieve sql db: %w", err)
	}
	a.Logger.Info("database ready", zap.String("driver", a.Config.Database.Driver))

	if a.Config.Database.Driver == config.DriverPostgres {
		pool, err := infraPostgres.NewPool(ctx, a.Config.Postgres)
		if err != nil {
			return err
		}
		a.Postgres = pool
		a.closers = append(a.closers, pool.Close)
	}
	return nil
}

func (a *App) openCache(ctx context.Context) error {
	if !a.Config.Redis.Enabled {
		return nil
	}
	client, err := withRetry(ctx, a.Logger, "redis", func() (*redis.Client, error) {
		return infraRedis.NewClient(ctx, a.Config.Redis)
	})
	if err != nil {
		return err
	}
	a.Redis = client
	a.closers = append(a.closers, func() { _ = client.Close() })
	a.Logger.Info("connected to redis", zap.String("addr", client.Options().Addr))
	return nil
}

func (a *App) openMessaging() error {
	if !a.Config.NATS.Enabled {
		return nil
	}
	conn, js, err := infraNATS.Connect(a.Config.NATS)
	if err != nil {
		return err
	}
	a.NATS, a.JetStream = conn, js
	a.closers = append(a.closers, func() { _ = conn.Drain() })
	a.Logger.Info("connected to nats", zap.String("url", infraNATS.URL(a.Config.NATS)))
	return nil
}

func (a *App) wireServices(ctx context.Context) error {
	a.Store = repository.NewStore(a.DB)
	a.Links = repository.NewBloomLinkRepository(a.Store.Links(), a.Config.Slug.BloomCapacity, a.Config.Slug.BloomFalseRate)
	warmed, err := a.Links.Warm(ctx)
	if err != nil {
		return err
	}
	a.Logger.Info("slug filter warmed", zap.Int("slugs", warmed))

	a.Slugs = service.NewSlugGenerator(a.Config.Slug, service.SlugGeneratorDeps{
		Checker: a.Links,
		Logger:  a.Logger.Named("slug"),
		Metrics: a.Metrics,
	})

	if a.Redis != nil {
		a.Cache = cache.NewRedisLinkCache(a.Redis, a.Config.Redis.CacheTTL)
	}
	a.LinkSvc = service.NewLinkService(service.LinkServiceDeps{
		Links:   a.Links,
		Slugs:   a.Slugs,
		Cache:   a.Cache,
		Logger:  a.Logger.Named("links"),
		Metrics: a.Metrics,
	})
	a.Analytics = service.NewAnalyticsService(a.Store.Clicks())
	a.Recorder = service.NewClickRecorder(a.Store, a.Logger.Named("clicks"), a.Metrics)
	a.Reconciler = service.NewCounterReconciler(a.Config.Reconciler, service.CounterReconcilerDeps{
		Store:   a.Store,
		Cache:   a.Cache,
		Logger:  a.Logger.Named("reconciler"),
		Metrics: a.Metrics,
	})

	if a.JetStream != nil && a.Config.Analytics.AsyncClicks {
		if err := service.EnsureClickStream(a.JetStream); err != nil {
			return err
		}
		a.Publisher = service.NewClickPublisher(a.JetStream)
		a.Consumer = service.NewClickConsumer(a.JetStream, a.Logger.Named("click-consumer"), a.Links, a.Recorder)
	}
	return nil
}

// ServerDependencies returns what the HTTP server needs from a.
func (a *App) ServerDependencies() appserver.Dependencies {
	deps := appserver.Dependencies{
		Logger:    a.Logger,
		Metrics:   a.Metrics,
		BaseURL:   a.Config.App.BaseURL,
		Origins:   a.Config.HTTP.AllowedOrigins,
		Postgres:  a.Postgres,
		Redis:     a.Redis,
		NATS:      a.NATS,
		Links:     a.LinkSvc,
		Analytics: a.Analytics,
		Recorder:  a.Recorder,
	}
	if a.SQL != nil {
		deps.Database = a.SQL
	}
	if a.Publisher != nil {
		deps.Publisher = a.Publisher
	}
	return deps
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func withRetry[T any](ctx context.Context, log *zap.Logger, name string, connect func() (T, error)) (T, error) {
	attempt := 0
	backoff := retry.WithMaxRetries(connectAttempts-1, retry.NewExponential(connectBackoff))
	return retry.DoValue(ctx, backoff, func(ctx context.Context) (T, error) {
		attempt++
		v, err := connect()
		if err != nil {
			log.Warn("connection attempt failed",
				zap.String("dependency", name),
				zap.Int("attempt", attempt),
				zap.Error(err))
			var zero T
			if errors.Is(err, context.Canceled) {
				return zero, err
			}
			return zero, retry.RetryableError(err)
		}
		return v, nil
	})
}

func closeGorm(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
