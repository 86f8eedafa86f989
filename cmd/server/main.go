package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"ai-app-builder/internal/config"
	"ai-app-builder/internal/handlers"
	"ai-app-builder/internal/logging"
	"ai-app-builder/internal/server"
)

func main() {
	log.Println("Starting AI App Builder")

	// Load .env file
	if err := godotenv.Load(); err != nil {
		// Try parent directory for .env
		if err := godotenv.Load("../.env"); err != nil {
			log.Println("WARNING: No .env file found, using environment variables")
		}
	}

	logging.Init()
	defer logging.Sync()
	logger := logging.L()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	for _, w := range cfg.Warnings() {
		logger.Warn(w)
	}

	srv, err := server.New(cfg, handlers.Version, logger)
	if err != nil {
		logger.Fatal("failed to initialize server", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
