// Package light watches the camera for the fridge light switching on and
// fires a capture cycle once the light has settled.
package light

import (
	"context"
	"math"
	"time"

	"fridgesight/internal/camera"
	"fridgesight/internal/config"
	"fridgesight/internal/errs"
	"fridgesight/internal/logger"
	"fridgesight/internal/model"
	"fridgesight/internal/repository"
)

const heartbeatFrames = 100

// Trigger describes the sample that started a capture cycle.
type Trigger struct {
	At         time.Time
	Brightness float64
}

// CycleRunner runs one capture cycle. A nil error marks the cycle as
// successful and starts the minimum capture interval.
type CycleRunner interface {
	RunCycle(ctx context.Context, trigger Trigger) error
}

// Monitor samples brightness and debounces dark-to-lit transitions.
// It is single-threaded: cycles run synchronously inside Step.
type Monitor struct {
	source camera.Source
	cycle  CycleRunner
	events repository.EventRepository
	logger *logger.Logger

	threshold      float64
	stabilization  time.Duration
	minInterval    time.Duration
	sampleInterval time.Duration
	logInterval    time.Duration
	retryDelay     time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	lastLit      bool
	lastCapture  time.Time
	lastLightLog time.Time
	frames       uint64
}

// NewMonitor creates a monitor. events may be nil to skip door events.
func NewMonitor(cfg *config.Config, source camera.Source, cycle CycleRunner, events repository.EventRepository, logger *logger.Logger) *Monitor {
	return &Monitor{
		source:         source,
		cycle:          cycle,
		events:         events,
		logger:         logger,
		threshold:      cfg.LightThreshold,
		stabilization:  cfg.StabilizationTime(),
		minInterval:    cfg.MinCaptureInterval(),
		sampleInterval: cfg.SampleInterval(),
		logInterval:    cfg.LightLogInterval(),
		retryDelay:     cfg.FrameRetryDelay(),
		now:            time.Now,
		sleep:          sleepContext,
	}
}

// Run samples until ctx is cancelled and always closes the camera on exit.
func (m *Monitor) Run(ctx context.Context) error {
	defer func() {
		if err := m.source.Close(); err != nil {
			m.logger.Warning("Failed to release camera: %v", err)
		}
		m.logger.Info("Light monitor stopped")
	}()

	m.logger.Info("Light monitor started (threshold %.1f, min interval %v)", m.threshold, m.minInterval)
	for ctx.Err() == nil {
		m.Step(ctx)
	}
	return nil
}

// Step performs one sampling iteration.
func (m *Monitor) Step(ctx context.Context) {
	level, err := m.sample()
	if err != nil {
		if errs.Recoverable(err) {
			m.logger.Warning("Failed to read frame: %v", err)
		} else {
			m.logger.Error("Unexpected sampling failure: %v", err)
		}
		m.sleep(ctx, m.retryDelay)
		return
	}
	now := m.now()
	m.frames++

	lit := level > m.threshold

	if now.Sub(m.lastLightLog) >= m.logInterval {
		m.logger.Info("Current light level: %.1f (threshold %.1f)", level, m.threshold)
		m.lastLightLog = now
	}
	if m.frames%heartbeatFrames == 0 {
		m.logger.Debug("Processed %d frames, light level %.1f", m.frames, level)
	}

	if lit != m.lastLit {
		m.recordEdge(ctx, lit, level, now)
	}

	if lit && !m.lastLit && m.sinceLastCapture(now) > m.minInterval {
		m.trigger(ctx, now)
	}

	m.lastLit = lit
	m.sleep(ctx, m.sampleInterval)
}

func (m *Monitor) trigger(ctx context.Context, now time.Time) {
	m.logger.Info("Light detected, waiting %v for stabilization", m.stabilization)
	if err := m.sleep(ctx, m.stabilization); err != nil {
		return
	}

	level, err := m.sample()
	if err != nil {
		m.logger.Warning("Failed to re-check light level: %v", err)
		return
	}
	if level <= m.threshold {
		m.logger.Warning("Light not stable (%.1f), skipping capture", level)
		return
	}

	if err := m.cycle.RunCycle(ctx, Trigger{At: now, Brightness: level}); err != nil {
		m.logger.Warning("Capture cycle failed, waiting for next light change")
		return
	}
	m.lastCapture = now
}

// sample reads one frame and returns its brightness. Failures are
// CaptureErrors.
func (m *Monitor) sample() (float64, error) {
	frame, err := m.source.Read()
	if err != nil {
		return 0, &errs.CaptureError{Attempts: 1, Err: err}
	}
	defer frame.Close()

	level, err := frame.Brightness()
	if err != nil {
		return 0, &errs.CaptureError{Attempts: 1, Err: err}
	}
	return level, nil
}

func (m *Monitor) sinceLastCapture(now time.Time) time.Duration {
	if m.lastCapture.IsZero() {
		return math.MaxInt64
	}
	return now.Sub(m.lastCapture)
}

func (m *Monitor) recordEdge(ctx context.Context, lit bool, level float64, at time.Time) {
	if m.events == nil {
		return
	}
	eventType := model.EventDoorClose
	if lit {
		eventType = model.EventDoorOpen
	}
	event := &model.FridgeEvent{Timestamp: at.UTC(), EventType: eventType, LightLevel: &level}
	if _, err := m.events.RecordEvent(ctx, event); err != nil {
		m.logger.Warning("Failed to record %s event: %v", eventType, err)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
