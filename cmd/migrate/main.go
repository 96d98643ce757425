package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"stakewatch/internal/app/migrate"
	"stakewatch/internal/config"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the config file")
	command := flag.String("command", "up", "migrate command (up|status|down)")
	timeout := flag.Duration("timeout", time.Minute, "command timeout")
	target := flag.Int64("target", 0, "target version for down command (optional)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	runner, err := migrate.New(cfg.Storage.DatabaseURL(), cfg.Storage.MigrationsDir, logger)
	if err != nil {
		logger.Error("Failed to configure migration runner", "error", err)
		os.Exit(1)
	}

	switch *command {
	case "up":
		err = runner.Ensure(ctx)
	case "status":
		err = runner.Status(ctx)
	case "down":
		err = runner.Down(ctx, *target)
	default:
		logger.Error("Unsupported command", "command", *command)
		os.Exit(1)
	}
	if err != nil {
		logger.Error("Migration command failed", "command", *command, "error", err)
		os.Exit(1)
	}

	logger.Info("Migration command completed", "command", *command)
}
