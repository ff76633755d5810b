// Package inventory applies detection batches to the persisted inventory.
package inventory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fridgesight/internal/errs"
	"fridgesight/internal/logger"
	"fridgesight/internal/model"
	"fridgesight/internal/repository"
)

// Summary reports what one batch changed.
type Summary struct {
	EventID   int64
	Added     int
	Updated   int
	Unchanged int
	History   []model.ItemHistory
}

// Reconciler diffs detection batches against the present inventory. Items
// missing from a batch are left untouched: one photo is a partial view.
type Reconciler struct {
	store  repository.InventoryRepository
	logger *logger.Logger
	now    func() time.Time
	mu     sync.Mutex
}

func NewReconciler(store repository.InventoryRepository, logger *logger.Logger) *Reconciler {
	return &Reconciler{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Apply reconciles items recorded under eventID in a single transaction.
// Either every change of the batch is committed or none is.
func (r *Reconciler) Apply(ctx context.Context, eventID int64, items []model.DetectedItem) (*Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	summary := &Summary{EventID: eventID}
	if len(items) == 0 {
		return summary, nil
	}

	now := r.now()
	err := r.store.InTx(ctx, func(tx repository.InventoryTx) error {
		present, err := tx.ListPresentItems(ctx)
		if err != nil {
			return err
		}
		byName := make(map[string]*model.InventoryItem, len(present))
		for i := range present {
			byName[present[i].Name] = &present[i]
		}

		for _, detected := range items {
			entry, err := r.applyOne(ctx, tx, byName, eventID, detected, now)
			if err != nil {
				return err
			}
			switch {
			case entry == nil:
				summary.Unchanged++
			case entry.Action == model.ActionAdded:
				summary.Added++
				summary.History = append(summary.History, *entry)
			default:
				summary.Updated++
				summary.History = append(summary.History, *entry)
			}
		}
		return nil
	})
	if err != nil {
		return nil, &errs.PersistenceError{Op: fmt.Sprintf("failed to reconcile event %d", eventID), Err: err}
	}

	r.logger.Info("Inventory reconciled for event %d: %d added, %d updated, %d unchanged",
		eventID, summary.Added, summary.Updated, summary.Unchanged)
	return summary, nil
}

// applyOne writes one detection and returns the history entry it produced,
// or nil when the quantity did not change.
func (r *Reconciler) applyOne(ctx context.Context, tx repository.InventoryTx, byName map[string]*model.InventoryItem, eventID int64, detected model.DetectedItem, now time.Time) (*model.ItemHistory, error) {
	name := detected.Name()
	quantity := detected.Quantity.Count
	score := detected.Confidence.Score()

	item, ok := byName[name]
	if !ok {
		item = &model.InventoryItem{
			Name:       name,
			Quantity:   quantity,
			FirstSeen:  now,
			LastSeen:   now,
			Confidence: score,
			IsPresent:  true,
		}
		if err := tx.UpsertItem(ctx, item); err != nil {
			return nil, err
		}
		byName[name] = item

		entry := &model.ItemHistory{ItemID: item.ID, EventID: eventID, Action: model.ActionAdded, QuantityChange: quantity, Timestamp: now}
		if err := tx.AppendHistory(ctx, entry); err != nil {
			return nil, err
		}
		return entry, nil
	}

	previous := item.Quantity
	item.Quantity = quantity
	item.LastSeen = now
	if score > item.Confidence {
		item.Confidence = score
	}
	if err := tx.UpsertItem(ctx, item); err != nil {
		return nil, err
	}

	if previous == quantity {
		return nil, nil
	}
	entry := &model.ItemHistory{ItemID: item.ID, EventID: eventID, Action: model.ActionUpdated, QuantityChange: quantity - previous, Timestamp: now}
	if err := tx.AppendHistory(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}
