package model

import "time"

// EventType classifies a FridgeEvent.
type EventType string

const (
	EventDoorOpen     EventType = "door_open"
	EventDoorClose    EventType = "door_close"
	EventItemDetected EventType = "item_detected"
)

// FridgeEvent represents a light transition or a capture. Append-only.
type FridgeEvent struct {
	ID         int64     `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	EventType  EventType `json:"event_type"`
	ImagePath  *string   `json:"image_path,omitempty"`
	LightLevel *float64  `json:"light_level,omitempty"`
}
