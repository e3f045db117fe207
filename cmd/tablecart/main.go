package main

import (
	"context"
	"log/slog"
	"os"

	_ "github.com/kyochen/tablecart/docs"
	"github.com/kyochen/tablecart/internal/app"
	"github.com/kyochen/tablecart/internal/config"
)

// @title TableCart API
// @version 1.0
// @description Shared table-side ordering: live carts, kitchen tickets and pickup calls.
// @host localhost:8000
// @BasePath /
func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.New()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create application", "error", err)
		os.Exit(1)
	}

	if err := application.Run(context.Background()); err != nil {
		logger.Error("application finished with error", "error", err)
		os.Exit(1)
	}
}
