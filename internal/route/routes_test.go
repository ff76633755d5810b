package route

import (
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"fridgesight/internal/config"
	"fridgesight/internal/dto"
	"fridgesight/internal/logger"
	"fridgesight/internal/repository/sqlite"
)

type noSnapshot struct{}

func (noSnapshot) Read() (*dto.Snapshot, error) { return nil, nil }

type idleStatus struct{}

func (idleStatus) Status() dto.StatusData { return dto.StatusData{} }

func newTestHandler(t *testing.T, password string) http.Handler {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "fridge.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return SetupRoutes(Dependencies{
		Config:    &config.Config{Password: password, LogDirectory: t.TempDir(), ImageDirectory: t.TempDir()},
		Logger:    logger.NewWriter(io.Discard, false),
		Store:     store,
		Snapshots: noSnapshot{},
		Status:    idleStatus{},
	})
}

func TestSetupRoutes(t *testing.T) {
	h := newTestHandler(t, "")

	tests := []struct {
		path     string
		expected int
	}{
		{"/inventory", http.StatusOK},
		{"/status", http.StatusOK},
		{"/api/events", http.StatusOK},
		{"/api/history", http.StatusOK},
		{"/api/detections/latest", http.StatusNotFound},
		{"/logs/info", http.StatusNotFound},
		{"/api/view", http.StatusNotFound},
		{"/does-not-exist", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.expected {
				t.Errorf("Expected %d, got %d", tt.expected, rec.Code)
			}
		})
	}
}

func TestSetupRoutes_RequiresLogin(t *testing.T) {
	h := newTestHandler(t, "secret")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", rec.Code)
	}
}
