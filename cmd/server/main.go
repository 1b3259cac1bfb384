package main

import (
	"log/slog"
	"os"

	"go-notes-workspace/internal/app"
	"go-notes-workspace/internal/config"
	"go-notes-workspace/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	_, noColor := os.LookupEnv("NO_COLOR")
	slog.SetDefault(logger.New(os.Stdout, cfg.LogLevel, noColor))

	application, err := app.New(cfg)
	if err != nil {
		slog.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("application run failed", "error", err)
		os.Exit(1)
	}
}
