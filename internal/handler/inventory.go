package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"fridgesight/internal/dto"
	"fridgesight/internal/logger"
	"fridgesight/internal/model"
	"fridgesight/internal/repository"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// InventoryHandler returns every present item.
func InventoryHandler(inventory repository.InventoryRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		items, err := inventory.ListPresentItems(r.Context())
		if err != nil {
			logger.Error("Error querying inventory: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		entries := make([]dto.InventoryEntry, 0, len(items))
		for _, item := range items {
			entries = append(entries, dto.NewInventoryEntry(item))
		}
		writeJSON(w, logger, entries)
	}
}

// HistoryHandler returns audit entries, filtered by item and action.
func HistoryHandler(inventory repository.InventoryRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := &dto.HistoryFilters{
			Action: model.HistoryAction(q.Get("action")),
			Limit:  min(atoiDefault(q.Get("limit"), defaultListLimit), maxListLimit),
		}
		if raw := q.Get("item"); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || id <= 0 {
				http.Error(w, "Invalid item parameter", http.StatusBadRequest)
				return
			}
			filter.ItemID = id
		}

		entries, err := inventory.ListHistory(r.Context(), filter)
		if err != nil {
			logger.Error("Error querying history: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if entries == nil {
			entries = []model.ItemHistory{}
		}
		writeJSON(w, logger, entries)
	}
}

// EventsHandler returns fridge events newest first.
func EventsHandler(events repository.EventRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := &dto.EventFilters{
			Type:   model.EventType(q.Get("type")),
			After:  parseDate(q.Get("dateAfter")),
			Before: parseDate(q.Get("dateBefore")),
			Limit:  min(atoiDefault(q.Get("limit"), defaultListLimit), maxListLimit),
		}
		if !filter.Before.IsZero() {
			filter.Before = filter.Before.Add(24*time.Hour - time.Nanosecond)
		}

		list, err := events.ListEvents(r.Context(), filter)
		if err != nil {
			logger.Error("Error querying events: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if list == nil {
			list = []model.FridgeEvent{}
		}
		writeJSON(w, logger, list)
	}
}

// SnapshotReader loads the latest detection snapshot.
type SnapshotReader interface {
	Read() (*dto.Snapshot, error)
}

// LatestDetectionHandler returns the most recent validated detection.
func LatestDetectionHandler(snapshots SnapshotReader, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot, err := snapshots.Read()
		if err != nil {
			logger.Error("Error reading detection snapshot: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if snapshot == nil {
			http.Error(w, "No detection yet", http.StatusNotFound)
			return
		}
		writeJSON(w, logger, snapshot)
	}
}

// StatusProvider reports the live parts of the service.
type StatusProvider interface {
	Status() dto.StatusData
}

// StatusHandler reports service state plus the latest detection time.
func StatusHandler(status StatusProvider, store repository.Store, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := status.Status()
		data.Status = "running"

		latest, err := store.LatestEvent(r.Context(), model.EventItemDetected)
		if err != nil {
			logger.Warning("Error reading latest detection: %v", err)
		} else if latest != nil {
			data.LastDetection = &latest.Timestamp
		}

		items, err := store.ListPresentItems(r.Context())
		if err != nil {
			logger.Warning("Error counting inventory: %v", err)
		}
		data.PresentItems = len(items)

		writeJSON(w, logger, data)
	}
}

func writeJSON(w http.ResponseWriter, logger *logger.Logger, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

// parseDate parses a date string in the format "2006-01-02" from the request (HTML input format).
func parseDate(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}
	}
	return t
}
