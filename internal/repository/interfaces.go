package repository

import (
	"context"

	"fridgesight/internal/dto"
	"fridgesight/internal/model"
)

// EventRepository defines the append-only fridge event log.
type EventRepository interface {
	// Create operations
	RecordEvent(ctx context.Context, event *model.FridgeEvent) (int64, error)

	// Read operations
	GetEvent(ctx context.Context, id int64) (*model.FridgeEvent, error)
	LatestEvent(ctx context.Context, eventType model.EventType) (*model.FridgeEvent, error)
	ListEvents(ctx context.Context, filter *dto.EventFilters) ([]model.FridgeEvent, error)
}

// InventoryRepository defines inventory reads and the transactional write path.
type InventoryRepository interface {
	// Read operations
	ListPresentItems(ctx context.Context) ([]model.InventoryItem, error)
	GetItemByName(ctx context.Context, name string) (*model.InventoryItem, error)
	ListHistory(ctx context.Context, filter *dto.HistoryFilters) ([]model.ItemHistory, error)

	// InTx runs fn inside one transaction. The transaction commits when fn
	// returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(tx InventoryTx) error) error
}

// InventoryTx is the write surface available inside a reconciliation batch.
type InventoryTx interface {
	ListPresentItems(ctx context.Context) ([]model.InventoryItem, error)
	// UpsertItem inserts item when its ID is zero, setting the ID, and
	// updates the stored row otherwise.
	UpsertItem(ctx context.Context, item *model.InventoryItem) error
	AppendHistory(ctx context.Context, entry *model.ItemHistory) error
}

// Store is the full persistence surface.
type Store interface {
	EventRepository
	InventoryRepository
	Close() error
}
