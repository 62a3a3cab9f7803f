package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"zootovary/crawler/internal/config"
	"zootovary/crawler/internal/container"

	log "github.com/sirupsen/logrus"
)

func main() {
	log.Info("Starting zootovary catalog crawler...")

	// Load configuration using viper
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	log.Info("Configuration loaded successfully")

	// Initialize container with all dependencies
	app, err := container.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	defer app.Close()

	// Cancel on Ctrl-C / SIGTERM; cancellation aborts without restarts
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn("Stopped by user")
			return
		}
		log.Fatalf("Crawler exited with error: %v", err)
	}

	log.Info("Crawl finished successfully")
}
