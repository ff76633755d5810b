package dto

import (
	"time"

	"fridgesight/internal/model"
)

// DetectionMessage is published after a capture cycle commits.
type DetectionMessage struct {
	TraceID   string               `json:"trace_id"`
	EventID   int64                `json:"event_id"`
	Timestamp time.Time            `json:"timestamp"`
	ImagePath string               `json:"image_path"`
	Items     []model.DetectedItem `json:"items"`
	Added     int                  `json:"added"`
	Updated   int                  `json:"updated"`
}
