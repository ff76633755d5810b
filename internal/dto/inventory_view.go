package dto

import (
	"time"

	"fridgesight/internal/model"
)

// InventoryEntry is one row of the /inventory listing.
type InventoryEntry struct {
	Name       string    `json:"name"`
	Quantity   int       `json:"quantity"`
	FirstSeen  time.Time `json:"first_seen"`
	LastSeen   time.Time `json:"last_seen"`
	Confidence float64   `json:"confidence"`
}

func NewInventoryEntry(item model.InventoryItem) InventoryEntry {
	return InventoryEntry{
		Name:       item.Name,
		Quantity:   item.Quantity,
		FirstSeen:  item.FirstSeen,
		LastSeen:   item.LastSeen,
		Confidence: item.Confidence,
	}
}

// StatusData describes the running service for the panel.
type StatusData struct {
	Status        string     `json:"status"`
	StartedAt     time.Time  `json:"started_at"`
	Monitor       bool       `json:"monitor"`
	LiveFeed      bool       `json:"live_feed"`
	Viewers       int        `json:"viewers"`
	LastDetection *time.Time `json:"last_detection,omitempty"`
	PresentItems  int        `json:"present_items"`

	// Detection publishing counters; zero when no broker is configured.
	Published       uint64 `json:"published"`
	PublishFailures uint64 `json:"publish_failures"`
}
