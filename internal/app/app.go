package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"fridgesight/internal/camera"
	"fridgesight/internal/camera/webcam"
	"fridgesight/internal/config"
	"fridgesight/internal/dto"
	"fridgesight/internal/logger"
	"fridgesight/internal/repository/sqlite"
	"fridgesight/internal/route"
	"fridgesight/internal/service"
	"fridgesight/internal/service/ai"
	"fridgesight/internal/service/inventory"
	"fridgesight/internal/service/light"
	"fridgesight/internal/service/notify"
	"fridgesight/internal/service/pipeline"
	"fridgesight/internal/service/storage"
	"fridgesight/internal/service/websocket"

	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// Options selects which parts of the service run.
type Options struct {
	// Headless skips the HTTP panel, the viewer hub and the live feed.
	Headless bool
}

type App struct {
	config    *config.Config
	logger    *logger.Logger
	options   Options
	startedAt time.Time

	camera    camera.Source
	store     *sqlite.Store
	snapshots *storage.SnapshotWriter
	publisher notify.Publisher
	hub       *websocket.HubService
	feed      *websocket.LiveFeed
	monitor   *light.Monitor

	// feedSource is set only when the feed does not share the monitor's camera.
	feedSource camera.Source
}

// NewApp wires every component. Any error here is a startup failure.
func NewApp(cfg *config.Config, log *logger.Logger, opts Options) (*App, error) {
	if err := cfg.RequireInference(); err != nil {
		return nil, err
	}
	client, err := ai.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create inference client: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	source, err := webcam.Open(cfg.CameraIndex, cfg.CameraReplayDir)
	if err != nil {
		store.Close()
		return nil, err
	}

	publisher, err := notify.NewPublisher(cfg, log)
	if err != nil {
		log.Warning("MQTT publisher unavailable, continuing without it: %v", err)
		publisher = notify.Nop{}
	}

	a := &App{
		config:    cfg,
		logger:    log,
		options:   opts,
		startedAt: time.Now().UTC(),
		camera:    source,
		store:     store,
		snapshots: storage.NewSnapshotWriter(cfg),
		publisher: publisher,
	}

	// viewers stays a nil interface when headless
	var viewers service.Viewers
	if !opts.Headless {
		a.hub = websocket.NewHubService(log)
		viewers = a.hub
		if cfg.LiveFeedEnabled {
			feedSource, err := camera.SecondarySource(source, cfg.CameraReplayDir)
			if err != nil {
				publisher.Close()
				source.Close()
				store.Close()
				return nil, err
			}
			if feedSource != source {
				a.feedSource = feedSource
			}
			a.feed = websocket.NewLiveFeed(cfg, feedSource, a.hub, log)
		}
	}

	p := pipeline.New(cfg, source, client, storage.NewImageStore(cfg, log), log)
	manager := service.NewManager(p, store, inventory.NewReconciler(store, log), a.snapshots, publisher, viewers, log)
	a.monitor = light.NewMonitor(cfg, source, manager, store, log)

	return a, nil
}

// Run blocks until ctx is cancelled or a component fails.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	a.printBanner()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.monitor.Run(ctx)
	})

	if a.hub != nil {
		g.Go(func() error {
			a.hub.Run(ctx)
			return nil
		})
	}
	if a.feed != nil {
		g.Go(func() error {
			a.feed.Run(ctx)
			return nil
		})
	}

	if !a.options.Headless {
		server := &http.Server{
			Addr: fmt.Sprintf(":%d", a.config.Port),
			Handler: route.SetupRoutes(route.Dependencies{
				Config:    a.config,
				Logger:    a.logger,
				Store:     a.store,
				Snapshots: a.snapshots,
				Status:    a,
				Viewers:   a.hub,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("failed to serve http: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Status reports live service state for the panel.
func (a *App) Status() dto.StatusData {
	status := dto.StatusData{
		StartedAt: a.startedAt,
		Monitor:   true,
		LiveFeed:  a.feed != nil,
	}
	if a.hub != nil {
		status.Viewers = a.hub.GetClientCount()
	}
	status.Published, status.PublishFailures = a.publisher.Stats()
	return status
}

func (a *App) close() {
	a.publisher.Close()
	if a.feedSource != nil {
		a.feedSource.Close()
	}
	if err := a.store.Close(); err != nil {
		a.logger.Error("Error closing database: %v", err)
	}
	a.logger.Info("Shutdown complete")
}

func (a *App) printBanner() {
	fmt.Printf("🧊 fridgesight\n")
	if !a.options.Headless {
		fmt.Printf("📍 URL: http://localhost:%d\n", a.config.Port)
	}
	fmt.Printf("📷 Camera: %s\n", a.cameraLabel())
	fmt.Printf("🤖 Model: %s (%s)\n", a.config.LLMModel, a.config.LLMProvider)
	fmt.Printf("📁 Images: %s\n", a.config.ImageDirectory)
	fmt.Printf("🗄️  Database: %s\n", a.config.DBPath)
}

func (a *App) cameraLabel() string {
	if a.config.CameraReplayDir != "" {
		return "replay " + a.config.CameraReplayDir
	}
	return fmt.Sprintf("device %d", a.config.CameraIndex)
}
