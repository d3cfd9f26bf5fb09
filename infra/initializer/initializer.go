// Package initializer wires configuration into the concrete store, event bus and metrics.
package initializer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/amirasaad/bankcore/infra"
	infra_eventbus "github.com/amirasaad/bankcore/infra/eventbus"
	"github.com/amirasaad/bankcore/infra/memory"
	infra_repository "github.com/amirasaad/bankcore/infra/repository"
	"github.com/amirasaad/bankcore/pkg/app"
	"github.com/amirasaad/bankcore/pkg/config"
	"github.com/amirasaad/bankcore/pkg/eventbus"
	"github.com/amirasaad/bankcore/pkg/metrics"
	promcollector "github.com/amirasaad/bankcore/pkg/metrics/prometheus"
	"github.com/amirasaad/bankcore/pkg/repository"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

// InitializeDependencies builds the application dependencies from cfg. The Redis consumer,
// when configured, runs until ctx is done. The returned cleanup releases connections.
func InitializeDependencies(ctx context.Context, cfg *config.App) (
	deps *app.Deps,
	cleanup func(),
	err error,
) {
	logger := SetupLogger(cfg.Log)
	deps = &app.Deps{Logger: logger}
	var closers []func() error
	cleanup = func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if cerr := closers[i](); cerr != nil {
				logger.Warn("Failed to release resource", "error", cerr)
			}
		}
	}
	defer func() {
		if err != nil {
			cleanup()
			deps, cleanup = nil, nil
		}
	}()

	var closeDB func() error
	deps.Uow, closeDB, err = newUnitOfWork(cfg, logger)
	if err != nil {
		return
	}
	if closeDB != nil {
		closers = append(closers, closeDB)
	}

	var closeBus func() error
	deps.EventBus, closeBus, err = newEventBus(ctx, cfg.Redis, logger)
	if err != nil {
		return
	}
	if closeBus != nil {
		closers = append(closers, closeBus)
	}

	deps.Metrics, deps.Registry, err = newMetrics(cfg.Metrics)
	if err != nil {
		return
	}
	return deps, cleanup, nil
}

func newUnitOfWork(cfg *config.App, logger *slog.Logger) (repository.UnitOfWork, func() error, error) {
	switch cfg.DB.Driver {
	case "", "memory":
		logger.Warn("Using in-memory store; data is lost on restart")
		return memory.New(), nil, nil
	case "postgres":
		db, err := infra.NewDBConnection(cfg.DB, cfg.Env)
		if err != nil {
			logger.Error("Failed to initialize database", "error", err)
			return nil, nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, err
		}
		if cfg.DB.Migrate {
			if err := infra.Migrate(db); err != nil {
				_ = sqlDB.Close()
				return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
			}
			logger.Info("Database schema is up to date")
		}
		return infra_repository.NewUoW(db), sqlDB.Close, nil
	}
	return nil, nil, fmt.Errorf("unsupported database driver %q", cfg.DB.Driver)
}

func newEventBus(ctx context.Context, cfg *config.Redis, logger *slog.Logger) (eventbus.Bus, func() error, error) {
	if cfg == nil || cfg.URL == "" {
		return infra_eventbus.NewWithMemory(logger), nil, nil
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	bus, err := infra_eventbus.NewWithRedis(ctx, client, cfg.Stream, cfg.Group, infra_eventbus.LedgerFactories(), logger)
	if err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to create Redis event bus: %w", err)
	}
	go func() {
		if err := bus.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Redis event consumer stopped", "error", err)
		}
	}()
	return bus, client.Close, nil
}

func newMetrics(cfg *config.Metrics) (metrics.Recorder, *prometheus.Registry, error) {
	if cfg == nil || !cfg.Enabled {
		return metrics.Nop{}, nil, nil
	}
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := promcollector.NewCollector(cfg.Namespace)
	if err := collector.Register(registry); err != nil {
		return nil, nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	return collector, registry, nil
}
