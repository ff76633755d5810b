package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"fridgesight/internal/config"
	"fridgesight/internal/dto"
	"fridgesight/internal/model"
)

// SnapshotWriter keeps the latest detection in a JSON file for external readers.
type SnapshotWriter struct {
	path string
	mu   sync.Mutex
}

func NewSnapshotWriter(config *config.Config) *SnapshotWriter {
	return &SnapshotWriter{path: config.SnapshotPath}
}

// Path returns the snapshot file location.
func (w *SnapshotWriter) Path() string {
	return w.path
}

// Write replaces the snapshot file. Readers see either the previous or the
// new content, never a partial file.
func (w *SnapshotWriter) Write(snapshot *dto.Snapshot) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := *snapshot
	if out.Items == nil {
		out.Items = []model.DetectedItem{}
	}
	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(w.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmpName, w.path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

// Read loads the current snapshot. It returns nil when no snapshot exists yet.
func (w *SnapshotWriter) Read() (*dto.Snapshot, error) {
	data, err := os.ReadFile(w.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snapshot dto.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	return &snapshot, nil
}
