package camera

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// FileSource replays still images from a directory in name order, looping
// when the end is reached.
type FileSource struct {
	files  []string
	next   int
	closed bool
	mu     sync.Mutex
}

// OpenDirectory lists the .jpg, .jpeg and .png files in dir.
func OpenDirectory(dir string) (*FileSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read replay directory %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".jpg", ".jpeg", ".png":
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no images found in %s", dir)
	}
	sort.Strings(files)

	return &FileSource{files: files}, nil
}

func (s *FileSource) Read() (Frame, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, fmt.Errorf("replay source is closed")
	}
	path := s.files[s.next]
	s.next = (s.next + 1) % len(s.files)
	s.mu.Unlock()

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return &ImageFrame{Image: img, At: time.Now()}, nil
}

func (s *FileSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// SecondarySource returns a source for a second reader of the camera. A
// replay directory gets its own FileSource so each reader keeps its own
// position; a device is returned as is and shared.
func SecondarySource(shared Source, replayDir string) (Source, error) {
	if replayDir == "" {
		return shared, nil
	}
	source, err := OpenDirectory(replayDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open secondary replay source: %w", err)
	}
	return source, nil
}
