package model

import "time"

// InventoryItem represents a persisted inventory row.
// At most one present item exists per Name.
type InventoryItem struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Quantity   int       `json:"quantity"`
	FirstSeen  time.Time `json:"first_seen"`
	LastSeen   time.Time `json:"last_seen"`
	Confidence float64   `json:"confidence"`
	IsPresent  bool      `json:"is_present"`
}

// HistoryAction is the kind of mutation an ItemHistory row records.
type HistoryAction string

const (
	ActionAdded   HistoryAction = "added"
	ActionRemoved HistoryAction = "removed"
	ActionUpdated HistoryAction = "updated"
)

// ItemHistory represents one inventory mutation. Append-only.
type ItemHistory struct {
	ID             int64         `json:"id"`
	ItemID         int64         `json:"item_id"`
	EventID        int64         `json:"event_id"`
	Action         HistoryAction `json:"action"`
	QuantityChange int           `json:"quantity_change"`
	Timestamp      time.Time     `json:"timestamp"`
}
