package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sifan077/shortlink/config"
	"github.com/sifan077/shortlink/internal/app/bootstrap"
	appserver "github.com/sifan077/shortlink/internal/app/server"
	"github.com/sifan077/shortlink/internal/infra/logger"
	infraPrometheus "github.com/sifan077/shortlink/internal/infra/prometheus"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		// The logger is configured from cfg, so fall back to a default one here.
		fallback, _ := logger.New(logger.Config{Development: true})
		fallback.Fatal("Failed to load config", zap.Error(err))
	}

	log, err := logger.New(logger.Config{
		Development: cfg.App.IsDevelopment(),
		Level:       cfg.Log.Level,
		Encoding:    cfg.Log.Encoding,
		Service:     "shortlink",
		Env:         cfg.App.Env,
	})
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync(log) }()

	log.Info("Configuration loaded successfully",
		zap.String("env", cfg.App.Env),
		zap.String("database_driver", cfg.Database.Driver),
		zap.String("postgres_host", cfg.Postgres.Host),
		zap.Int("postgres_port", cfg.Postgres.Port),
		zap.Bool("redis_enabled", cfg.Redis.Enabled),
		zap.Bool("nats_enabled", cfg.NATS.Enabled),
		zap.Bool("async_clicks", cfg.Analytics.AsyncClicks),
	)

	app, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialise application", zap.Error(err))
	}
	defer app.Close()

	if cfg.Prometheus.Enabled {
		promServer := infraPrometheus.NewServer(cfg.Prometheus, app.Registry)
		go func() {
			log.Info("Starting Prometheus metrics server", zap.Int("port", cfg.Prometheus.Port))
			if err := promServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Prometheus metrics server stopped unexpectedly", zap.Error(err))
			}
		}()
		defer func() {
			if err := promServer.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn("Failed to close Prometheus server", zap.Error(err))
			}
		}()
	}

	if app.Consumer != nil {
		if err := app.Consumer.Start(ctx); err != nil {
			log.Fatal("Failed to start click consumer", zap.Error(err))
		}
		log.Info("Click consumer started")
		// Runs before app.Close so no click is mid-transaction when the database closes.
		defer app.Consumer.Stop()
	}

	if cfg.Reconciler.Enabled {
		if err := app.Reconciler.Start(ctx); err != nil {
			log.Fatal("Failed to start counter reconciler", zap.Error(err))
		}
		defer app.Reconciler.Stop()
	}

	server := appserver.New(app.ServerDependencies())

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", cfg.HTTP.Addr))
		errCh <- server.Listen(cfg.HTTP.Addr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("Fiber server exited", zap.Error(err))
		}
	case <-ctx.Done():
		log.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("Graceful shutdown failed", zap.Error(err))
	}
}
