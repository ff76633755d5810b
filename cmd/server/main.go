package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"fridgesight/internal/app"
	"fridgesight/internal/config"
	"fridgesight/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := logger.NewLogger(cfg)

	application, err := app.NewApp(cfg, logger, app.Options{})
	if err != nil {
		logger.Error("Startup failed: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
