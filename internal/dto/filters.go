// Filters narrow the event and history listings served by the control panel.
package dto

import (
	"time"

	"fridgesight/internal/model"
)

type EventFilters struct {
	Type   model.EventType
	After  time.Time
	Before time.Time
	Limit  int
}

type HistoryFilters struct {
	ItemID int64
	Action model.HistoryAction
	Limit  int
}
