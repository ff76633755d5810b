package service

import (
	"context"
	"time"

	"fridgesight/internal/dto"
	"fridgesight/internal/errs"
	"fridgesight/internal/logger"
	"fridgesight/internal/model"
	"fridgesight/internal/repository"
	"fridgesight/internal/service/inventory"
	"fridgesight/internal/service/light"
	"fridgesight/internal/service/notify"
	"fridgesight/internal/service/pipeline"

	"github.com/google/uuid"
)

// Pipeline produces one validated detection batch per call.
type Pipeline interface {
	Run(ctx context.Context) (*pipeline.Result, error)
}

// Reconciler applies a batch to the inventory.
type Reconciler interface {
	Apply(ctx context.Context, eventID int64, items []model.DetectedItem) (*inventory.Summary, error)
}

// SnapshotWriter stores the latest detection outside the database.
type SnapshotWriter interface {
	Write(snapshot *dto.Snapshot) error
}

// Viewers receives detection notices for the live panel.
type Viewers interface {
	BroadcastDetection(msg *dto.DetectionMessage)
}

// Manager runs capture cycles for the light monitor. Each cycle flows
// pipeline → event record → snapshot → reconciliation → notifications.
type Manager struct {
	pipeline   Pipeline
	events     repository.EventRepository
	reconciler Reconciler
	snapshots  SnapshotWriter
	publisher  notify.Publisher
	viewers    Viewers
	logger     *logger.Logger
}

var _ light.CycleRunner = (*Manager)(nil)

// NewManager wires a cycle manager. publisher and viewers may be nil.
func NewManager(p Pipeline, events repository.EventRepository, reconciler Reconciler, snapshots SnapshotWriter, publisher notify.Publisher, viewers Viewers, logger *logger.Logger) *Manager {
	if publisher == nil {
		publisher = notify.Nop{}
	}
	return &Manager{
		pipeline:   p,
		events:     events,
		reconciler: reconciler,
		snapshots:  snapshots,
		publisher:  publisher,
		viewers:    viewers,
		logger:     logger,
	}
}

// RunCycle executes one capture cycle. Every failure is logged here with its
// diagnostics and returned so the monitor can keep the capture window open.
func (m *Manager) RunCycle(ctx context.Context, trigger light.Trigger) error {
	traceID := uuid.NewString()
	started := time.Now()
	m.logger.Info("[%s] Capture cycle started (light %.1f)", traceID, trigger.Brightness)

	result, err := m.pipeline.Run(ctx)
	if err != nil {
		return m.fail(traceID, err)
	}
	m.logger.Info("[%s] Detected %d item(s) in %s", traceID, len(result.Items), result.ImagePath)

	imagePath := result.ImagePath
	level := trigger.Brightness
	event := &model.FridgeEvent{
		Timestamp:  result.CapturedAt.UTC(),
		EventType:  model.EventItemDetected,
		ImagePath:  &imagePath,
		LightLevel: &level,
	}
	eventID, err := m.events.RecordEvent(ctx, event)
	if err != nil {
		return m.fail(traceID, &errs.PersistenceError{Op: "failed to record detection event", Err: err})
	}

	snapshot := &dto.Snapshot{
		Items:     result.Items,
		Timestamp: event.Timestamp,
		ImagePath: imagePath,
		EventID:   eventID,
	}
	if err := m.snapshots.Write(snapshot); err != nil {
		m.logger.Warning("[%s] Failed to write detection snapshot: %v", traceID, err)
	}

	summary, err := m.reconciler.Apply(ctx, eventID, result.Items)
	if err != nil {
		return m.fail(traceID, err)
	}

	msg := &dto.DetectionMessage{
		TraceID:   traceID,
		EventID:   eventID,
		Timestamp: event.Timestamp,
		ImagePath: imagePath,
		Items:     result.Items,
		Added:     summary.Added,
		Updated:   summary.Updated,
	}
	if err := m.publisher.Publish(ctx, msg); err != nil {
		m.logger.Warning("[%s] Failed to publish detection: %v", traceID, err)
	}
	if m.viewers != nil {
		m.viewers.BroadcastDetection(msg)
	}

	m.logger.Info("[%s] Capture cycle complete: event %d, %d added, %d updated (%v)",
		traceID, eventID, summary.Added, summary.Updated, time.Since(started).Round(time.Millisecond))
	return nil
}

func (m *Manager) fail(traceID string, err error) error {
	m.logger.Error("[%s] Capture cycle failed: %v", traceID, err)
	raw, cleaned := errs.Diagnostics(err)
	if raw != "" {
		m.logger.Error("[%s] Raw response: %s", traceID, raw)
	}
	if cleaned != "" {
		m.logger.Error("[%s] Cleaned response: %s", traceID, cleaned)
	}
	return err
}
