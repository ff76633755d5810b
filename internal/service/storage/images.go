package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"fridgesight/internal/config"
	"fridgesight/internal/logger"
)

// ImageTimestampLayout names captured images yymmddHHMMSS.jpg.
const ImageTimestampLayout = "060102150405"

// ImageStore writes captured JPEGs into the image directory.
type ImageStore struct {
	imagesDir string
	logger    *logger.Logger
	mu        sync.Mutex
}

// NewImageStore creates a new ImageStore for the configured image directory.
func NewImageStore(config *config.Config, logger *logger.Logger) *ImageStore {
	return &ImageStore{
		imagesDir: config.ImageDirectory,
		logger:    logger,
	}
}

// Save writes data as <imagesDir>/yymmddHHMMSS.jpg and returns the path.
// A second capture within the same second gets a numeric suffix.
func (s *ImageStore) Save(data []byte, capturedAt time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.imagesDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create image directory: %w", err)
	}

	base := capturedAt.Format(ImageTimestampLayout)
	fullpath := filepath.Join(s.imagesDir, base+".jpg")
	for n := 2; fileExists(fullpath); n++ {
		fullpath = filepath.Join(s.imagesDir, fmt.Sprintf("%s_%d.jpg", base, n))
	}

	if err := os.WriteFile(fullpath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write image %s: %w", fullpath, err)
	}

	s.logger.Debug("Wrote %d bytes to %s", len(data), fullpath)
	return fullpath, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
