package main

import (
	"agora/internal/config"
	"agora/internal/db"
	"agora/internal/events"
	"agora/internal/logging"
	"agora/internal/services"
	"agora/internal/telemetry"
	"agora/internal/utils"
	"context"
	"fmt"

	"go.uber.org/zap"
)

// app holds the wired engine shared by every command.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	store     services.Store
	telemetry *telemetry.Provider
	publisher *events.Publisher
	deps      services.Deps
	counter   *services.CounterAggregator
	closers   []func() error
}

func loadConfig(configFile string) (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	a := &app{cfg: cfg, logger: logger}

	if err := a.openStore(); err != nil {
		a.Close(ctx)
		return nil, err
	}

	if a.telemetry, err = telemetry.Init(ctx, cfg.Telemetry, logger); err != nil {
		a.Close(ctx)
		return nil, err
	}
	metrics, err := telemetry.NewMetrics(a.telemetry.Meter)
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	cache, err := utils.NewQueryCache(cfg.Cache.Size, cfg.Cache.TTL, utils.WithStats(metrics))
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("failed to create query cache: %w", err)
	}

	notifier := services.MultiNotifier{services.NewStoreNotifier(a.store)}
	if a.publisher, err = events.New(cfg.Redis, logger); err != nil {
		// 实时推送不可用时仍落库通知
		logger.Warn("redis publisher unavailable", zap.Error(err))
	} else if a.publisher != nil {
		notifier = append(notifier, a.publisher)
		a.closers = append(a.closers, a.publisher.Close)
	}

	a.deps = services.Deps{
		Store:    a.store,
		Cache:    cache,
		Notifier: notifier,
		Metrics:  metrics,
		Logger:   logger,
	}
	a.counter = services.NewCounterAggregator(a.deps)
	return a, nil
}

func (a *app) openStore() error {
	switch a.cfg.Database.Driver {
	case "memory":
		a.logger.Warn("Using in-memory store, data is lost on exit")
		a.store = db.NewMemoryStore()
	default:
		gdb, err := db.Open(a.cfg.Database, a.cfg.Logging.Level, a.logger)
		if err != nil {
			return err
		}
		a.store = db.NewRepository(gdb)
		a.closers = append(a.closers, func() error { return db.Close(gdb) })
	}
	return nil
}

func (a *app) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", zap.Error(err))
		}
	}
	if err := a.telemetry.Shutdown(ctx); err != nil {
		a.logger.Warn("telemetry shutdown failed", zap.Error(err))
	}
	_ = a.logger.Sync()
}
