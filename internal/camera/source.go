// Package camera reads frames from the fridge camera.
//
// A Frame owns native memory on real devices and must be closed by whoever
// received it. Frames are never retained across capture cycles.
package camera

import (
	"errors"
	"time"
)

// ErrNoFrame is returned when the source produced no image for a read.
var ErrNoFrame = errors.New("camera returned no frame")

// Frame is a single captured raster.
type Frame interface {
	// Brightness returns the mean grayscale intensity in [0, 255].
	Brightness() (float64, error)
	// EncodeJPEG serializes the frame as a JPEG image.
	EncodeJPEG() ([]byte, error)
	CapturedAt() time.Time
	Close() error
}

// Source produces frames until closed.
type Source interface {
	Read() (Frame, error)
	Close() error
}
