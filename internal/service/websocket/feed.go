package websocket

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"time"

	"fridgesight/internal/camera"
	"fridgesight/internal/config"
	"fridgesight/internal/dto"
	"fridgesight/internal/logger"
)

// LiveFeed streams camera frames to the hub while viewers are connected.
type LiveFeed struct {
	source   camera.Source
	hub      *HubService
	logger   *logger.Logger
	interval time.Duration
}

func NewLiveFeed(cfg *config.Config, source camera.Source, hub *HubService, logger *logger.Logger) *LiveFeed {
	return &LiveFeed{
		source:   source,
		hub:      hub,
		logger:   logger,
		interval: time.Second / time.Duration(max(cfg.LiveFeedFPS, 1)),
	}
}

// Run pushes frames until ctx is cancelled. The camera is only read while
// at least one viewer is connected.
func (f *LiveFeed) Run(ctx context.Context) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	f.logger.Info("Live feed started at %v per frame", f.interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if f.hub.GetClientCount() == 0 {
				continue
			}
			if err := f.pushFrame(); err != nil {
				f.logger.Warning("Live feed frame skipped: %v", err)
			}
		}
	}
}

func (f *LiveFeed) pushFrame() error {
	frame, err := f.source.Read()
	if err != nil {
		return err
	}
	defer frame.Close()

	data, err := frame.EncodeJPEG()
	if err != nil {
		return err
	}
	light, err := frame.Brightness()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(dto.LiveMessage{
		Type:  dto.LiveFrame,
		Image: base64.StdEncoding.EncodeToString(data),
		Light: light,
	})
	if err != nil {
		return err
	}
	f.hub.Broadcast(payload)
	return nil
}
