package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"fridgesight/internal/dto"
	"fridgesight/internal/model"
	"fridgesight/internal/repository"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

const itemColumns = `id, name, quantity, first_seen, last_seen, confidence, is_present`

// InventoryRepository implements repository.InventoryRepository for SQLite.
type InventoryRepository struct {
	db *DB
}

// NewInventoryRepository creates a new SQLite inventory repository.
func NewInventoryRepository(db *DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

// ListPresentItems returns every item currently believed to be in the fridge.
func (r *InventoryRepository) ListPresentItems(ctx context.Context) ([]model.InventoryItem, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	return listPresentItems(ctx, r.db.Conn())
}

// GetItemByName returns the present item with the given name, or nil.
func (r *InventoryRepository) GetItemByName(ctx context.Context, name string) (*model.InventoryItem, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	row := r.db.Conn().QueryRowContext(ctx, `
		SELECT `+itemColumns+` FROM fridge_items WHERE name = ? AND is_present = 1
	`, name)

	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

// ListHistory returns history entries newest first.
func (r *InventoryRepository) ListHistory(ctx context.Context, filter *dto.HistoryFilters) ([]model.ItemHistory, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	query := `SELECT id, item_id, event_id, action, quantity_change, timestamp FROM item_history`
	var conditions []string
	var args []interface{}

	if filter != nil {
		if filter.ItemID > 0 {
			conditions = append(conditions, "item_id = ?")
			args = append(args, filter.ItemID)
		}
		if filter.Action != "" {
			conditions = append(conditions, "action = ?")
			args = append(args, string(filter.Action))
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
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []model.ItemHistory
	for rows.Next() {
		var (
			entry  model.ItemHistory
			action string
		)
		if err := rows.Scan(&entry.ID, &entry.ItemID, &entry.EventID, &action, &entry.QuantityChange, &entry.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		entry.Action = model.HistoryAction(action)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// InTx runs fn in a single transaction holding the write lock.
func (r *InventoryRepository) InTx(ctx context.Context, fn func(tx repository.InventoryTx) error) error {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&inventoryTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type inventoryTx struct {
	tx *sql.Tx
}

func (t *inventoryTx) ListPresentItems(ctx context.Context) ([]model.InventoryItem, error) {
	return listPresentItems(ctx, t.tx)
}

func (t *inventoryTx) UpsertItem(ctx context.Context, item *model.InventoryItem) error {
	if item.ID == 0 {
		result, err := t.tx.ExecContext(ctx, `
			INSERT INTO fridge_items (name, quantity, first_seen, last_seen, confidence, is_present)
			VALUES (?, ?, ?, ?, ?, ?)
		`, item.Name, item.Quantity, item.FirstSeen.UTC(), item.LastSeen.UTC(), item.Confidence, item.IsPresent)
		if err != nil {
			return fmt.Errorf("failed to insert item %q: %w", item.Name, err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read item id: %w", err)
		}
		item.ID = id
		return nil
	}

	result, err := t.tx.ExecContext(ctx, `
		UPDATE fridge_items
		SET name = ?, quantity = ?, first_seen = ?, last_seen = ?, confidence = ?, is_present = ?
		WHERE id = ?
	`, item.Name, item.Quantity, item.FirstSeen.UTC(), item.LastSeen.UTC(), item.Confidence, item.IsPresent, item.ID)
	if err != nil {
		return fmt.Errorf("failed to update item %d: %w", item.ID, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("failed to update item %d: not found", item.ID)
	}
	return nil
}

func (t *inventoryTx) AppendHistory(ctx context.Context, entry *model.ItemHistory) error {
	result, err := t.tx.ExecContext(ctx, `
		INSERT INTO item_history (item_id, event_id, action, quantity_change, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`, entry.ItemID, entry.EventID, string(entry.Action), entry.QuantityChange, entry.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert history: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read history id: %w", err)
	}
	entry.ID = id
	return nil
}

func listPresentItems(ctx context.Context, q querier) ([]model.InventoryItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+itemColumns+` FROM fridge_items WHERE is_present = 1 ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []model.InventoryItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func scanItem(s scanner) (*model.InventoryItem, error) {
	var item model.InventoryItem
	if err := s.Scan(&item.ID, &item.Name, &item.Quantity, &item.FirstSeen, &item.LastSeen, &item.Confidence, &item.IsPresent); err != nil {
		return nil, err
	}
	return &item, nil
}
