// Package capture runs one-shot capture sessions outside the light monitor.
package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"fridgesight/internal/camera"
	"fridgesight/internal/config"
	"fridgesight/internal/dto"
	"fridgesight/internal/errs"
	"fridgesight/internal/logger"
	"fridgesight/internal/model"
	"fridgesight/internal/repository/sqlite"
	"fridgesight/internal/service/ai"
	"fridgesight/internal/service/inventory"
	"fridgesight/internal/service/pipeline"
	"fridgesight/internal/service/storage"
)

type Options struct {
	Count    int
	Interval time.Duration
	// Record stores each batch as an item_detected event and reconciles it.
	Record bool
	// Out receives one indented JSON snapshot per successful capture.
	Out io.Writer
}

// Session owns the camera for a series of captures.
type Session struct {
	cfg    *config.Config
	source camera.Source
	client ai.Client
	logger *logger.Logger
	opts   Options
}

func NewSession(cfg *config.Config, source camera.Source, client ai.Client, logger *logger.Logger, opts Options) *Session {
	if opts.Count < 1 {
		opts.Count = 1
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	return &Session{cfg: cfg, source: source, client: client, logger: logger, opts: opts}
}

// Run takes the configured number of pictures and returns how many failed.
// The camera is released on every return path.
func (s *Session) Run(ctx context.Context) (int, error) {
	defer func() {
		if err := s.source.Close(); err != nil {
			s.logger.Warning("Failed to release camera: %v", err)
		}
	}()

	var (
		store      *sqlite.Store
		reconciler *inventory.Reconciler
	)
	if s.opts.Record {
		if err := os.MkdirAll(filepath.Dir(s.cfg.DBPath), 0755); err != nil {
			return 0, fmt.Errorf("failed to create database directory: %w", err)
		}
		var err error
		store, err = sqlite.Open(s.cfg.DBPath)
		if err != nil {
			return 0, err
		}
		defer store.Close()
		reconciler = inventory.NewReconciler(store, s.logger)
	}

	p := pipeline.New(s.cfg, s.source, s.client, storage.NewImageStore(s.cfg, s.logger), s.logger)
	snapshots := storage.NewSnapshotWriter(s.cfg)
	encoder := json.NewEncoder(s.opts.Out)
	encoder.SetIndent("", "  ")

	failures := 0
	for i := 0; i < s.opts.Count && ctx.Err() == nil; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				continue
			case <-time.After(s.opts.Interval):
			}
		}

		s.logger.Info("Capture %d/%d", i+1, s.opts.Count)
		result, err := p.Run(ctx)
		if err != nil {
			failures++
			s.logFailure(i+1, err)
			continue
		}

		snapshot := &dto.Snapshot{Items: result.Items, Timestamp: result.CapturedAt.UTC(), ImagePath: result.ImagePath}
		if store != nil {
			eventID, err := recordBatch(ctx, store, reconciler, result)
			if err != nil {
				failures++
				s.logger.Error("Capture %d not recorded: %v", i+1, err)
			}
			snapshot.EventID = eventID
		}

		if err := snapshots.Write(snapshot); err != nil {
			s.logger.Warning("Failed to write %s: %v", snapshots.Path(), err)
		}
		if err := encoder.Encode(snapshot); err != nil {
			s.logger.Error("Failed to print result: %v", err)
		}
	}
	return failures, nil
}

func (s *Session) logFailure(n int, err error) {
	s.logger.Error("Capture %d failed: %v", n, err)
	raw, cleaned := errs.Diagnostics(err)
	if raw != "" {
		s.logger.Error("Raw response: %s", raw)
	}
	if cleaned != "" {
		s.logger.Error("Cleaned response: %s", cleaned)
	}
}

func recordBatch(ctx context.Context, store *sqlite.Store, reconciler *inventory.Reconciler, result *pipeline.Result) (int64, error) {
	imagePath := result.ImagePath
	eventID, err := store.RecordEvent(ctx, &model.FridgeEvent{
		Timestamp: result.CapturedAt,
		EventType: model.EventItemDetected,
		ImagePath: &imagePath,
	})
	if err != nil {
		return 0, err
	}
	if _, err := reconciler.Apply(ctx, eventID, result.Items); err != nil {
		return eventID, err
	}
	return eventID, nil
}
