// Command capture takes one or more pictures, identifies their contents and
// prints each validated batch as JSON.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fridgesight/internal/camera/webcam"
	"fridgesight/internal/config"
	"fridgesight/internal/logger"
	"fridgesight/internal/service/ai"
	"fridgesight/internal/service/capture"
)

func main() {
	os.Exit(run())
}

func run() int {
	count := flag.Int("n", 1, "Number of images to capture")
	interval := flag.Duration("interval", 2*time.Second, "Delay between captures")
	record := flag.Bool("record", false, "Record each batch as an event and reconcile the inventory")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		return 1
	}
	// stdout carries the JSON results
	logger := logger.NewWriter(os.Stderr, cfg.LogDebug)

	if err := cfg.RequireInference(); err != nil {
		logger.Error("%v", err)
		return 1
	}
	client, err := ai.NewClient(cfg)
	if err != nil {
		logger.Error("Failed to create inference client: %v", err)
		return 1
	}
	source, err := webcam.Open(cfg.CameraIndex, cfg.CameraReplayDir)
	if err != nil {
		logger.Error("Failed to open camera: %v", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session := capture.NewSession(cfg, source, client, logger, capture.Options{
		Count:    *count,
		Interval: *interval,
		Record:   *record,
		Out:      os.Stdout,
	})
	failures, err := session.Run(ctx)
	if err != nil {
		logger.Error("Capture session failed: %v", err)
		return 1
	}
	if failures > 0 {
		return 1
	}
	return 0
}
