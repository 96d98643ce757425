package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"stakewatch/internal/config"
	"stakewatch/internal/monitor"
	"stakewatch/internal/notifications"
	"stakewatch/internal/prometheus"
	"stakewatch/internal/repository"
	"stakewatch/internal/repository/memory"
	"stakewatch/internal/repository/postgres"
	"stakewatch/internal/source"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the config file")
	flag.Parse()

	// Setup structured logging
	opts := &slog.HandlerOptions{
		AddSource: true,
		Level:     slog.LevelDebug,
	}
	handler := slog.NewTextHandler(os.Stdout, opts)
	logger := slog.New(handler)
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Received shutdown signal, initiating graceful shutdown...")
		cancel()
	}()

	store, cleanup, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("Failed to open storage backend", "backend", cfg.Storage.Backend, "error", err)
		os.Exit(1)
	}
	defer cleanup()

	cooldown, err := openCooldown(cfg, logger)
	if err != nil {
		logger.Error("Failed to connect cooldown store", "error", err)
		os.Exit(1)
	}

	notifier := notifications.New(
		cfg.Notifications.ShoutrrrURLs(),
		cfg.Notifications.CriticalShoutrrrURLs(),
		cooldown, logger)
	notifier.SetMinSeverity(cfg.Notifications.Severity())
	notifier.SetCooldown(cfg.Notifications.Cooldown)

	metrics := prometheus.New(cfg.Metrics.Enabled, cfg.Metrics.Port)
	src := source.NewFileSource(cfg.Source.SnapshotFile)

	mon := monitor.New(src, store, notifier, metrics, cfg, logger)

	// Hot reload for the tunables that allow it; backend and source changes
	// need a restart.
	go func() {
		if err := config.Watch(ctx, *configPath, mon.ApplyConfig); err != nil {
			logger.Warn("Config watch unavailable", "error", err)
		}
	}()

	mon.Start(ctx)
}

func openStore(ctx context.Context, cfg *config.Config) (repository.Store, func(), error) {
	switch cfg.Storage.Backend {
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Storage.DatabaseURL())
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ping postgres: %w", err)
		}
		return postgres.New(pool), pool.Close, nil
	case "memory":
		return memory.New(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func openCooldown(cfg *config.Config, logger *slog.Logger) (notifications.CooldownStore, error) {
	if !cfg.Notifications.Redis.Enabled {
		return notifications.NewMemoryCooldown(), nil
	}
	rc := cfg.Notifications.Redis
	cooldown, err := notifications.NewRedisCooldown(rc.Addr, rc.Password(), rc.DB)
	if err != nil {
		return nil, err
	}
	logger.Info("Using Redis cooldown store", "addr", rc.Addr)
	return cooldown, nil
}
