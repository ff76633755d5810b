package dto

import (
	"time"

	"fridgesight/internal/model"
)

// Snapshot is the side-channel file written after every validated detection.
type Snapshot struct {
	Items     []model.DetectedItem `json:"items"`
	Timestamp time.Time            `json:"timestamp"`
	ImagePath string               `json:"image_path"`
	EventID   int64                `json:"event_id,omitempty"`
}
