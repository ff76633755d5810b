package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"fridgesight/internal/dto"
	"fridgesight/internal/model"
)

// EventRepository implements repository.EventRepository for SQLite.
type EventRepository struct {
	db *DB
}

// NewEventRepository creates a new SQLite event repository.
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db}
}

// RecordEvent appends an event and sets its ID.
func (r *EventRepository) RecordEvent(ctx context.Context, event *model.FridgeEvent) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().ExecContext(ctx, `
		INSERT INTO fridge_events (timestamp, event_type, image_path, light_level)
		VALUES (?, ?, ?, ?)
	`, event.Timestamp.UTC(), string(event.EventType), nullString(event.ImagePath), nullFloat(event.LightLevel))
	if err != nil {
		return 0, fmt.Errorf("failed to insert event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read event id: %w", err)
	}
	event.ID = id
	return id, nil
}

// GetEvent retrieves an event by ID.
func (r *EventRepository) GetEvent(ctx context.Context, id int64) (*model.FridgeEvent, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	row := r.db.Conn().QueryRowContext(ctx, `
		SELECT id, timestamp, event_type, image_path, light_level
		FROM fridge_events WHERE id = ?
	`, id)

	event, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("event %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return event, nil
}

// LatestEvent returns the most recent event of the given type, or nil when none exists.
func (r *EventRepository) LatestEvent(ctx context.Context, eventType model.EventType) (*model.FridgeEvent, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	row := r.db.Conn().QueryRowContext(ctx, `
		SELECT id, timestamp, event_type, image_path, light_level
		FROM fridge_events WHERE event_type = ?
		ORDER BY timestamp DESC, id DESC LIMIT 1
	`, string(eventType))

	event, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest event: %w", err)
	}
	return event, nil
}

// ListEvents returns events newest first.
func (r *EventRepository) ListEvents(ctx context.Context, filter *dto.EventFilters) ([]model.FridgeEvent, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	query := `SELECT id, timestamp, event_type, image_path, light_level FROM fridge_events`
	var conditions []string
	var args []interface{}

	if filter != nil {
		if filter.Type != "" {
			conditions = append(conditions, "event_type = ?")
			args = append(args, string(filter.Type))
		}
		if !filter.After.IsZero() {
			conditions = append(conditions, "timestamp >= ?")
			args = append(args, filter.After.UTC())
		}
		if !filter.Before.IsZero() {
			conditions = append(conditions, "timestamp <= ?")
			args = append(args, filter.Before.UTC())
		}
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY timestamp DESC, id DESC"
	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := r.db.Conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []model.FridgeEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, *event)
	}
	return events, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(s scanner) (*model.FridgeEvent, error) {
	var (
		event      model.FridgeEvent
		eventType  string
		imagePath  sql.NullString
		lightLevel sql.NullFloat64
	)
	if err := s.Scan(&event.ID, &event.Timestamp, &eventType, &imagePath, &lightLevel); err != nil {
		return nil, err
	}
	event.EventType = model.EventType(eventType)
	if imagePath.Valid {
		event.ImagePath = &imagePath.String
	}
	if lightLevel.Valid {
		event.LightLevel = &lightLevel.Float64
	}
	return &event, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
