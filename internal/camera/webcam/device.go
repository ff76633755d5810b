// Package webcam reads frames from a local capture device through OpenCV.
package webcam

import (
	"fmt"
	"sync"
	"time"

	"fridgesight/internal/camera"

	"gocv.io/x/gocv"
)

// Device reads frames from a local video capture device through OpenCV.
// Reads are serialized so the monitor and the live feed may share one device.
type Device struct {
	index   int
	capture *gocv.VideoCapture
	mu      sync.Mutex
}

// OpenDevice opens the capture device at index with auto exposure and
// auto focus enabled.
func OpenDevice(index int) (*Device, error) {
	capture, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return nil, fmt.Errorf("failed to open camera %d: %w", index, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("failed to open camera %d: device not available", index)
	}

	capture.Set(gocv.VideoCaptureAutoExposure, 1)
	capture.Set(gocv.VideoCaptureAutoFocus, 1)

	return &Device{index: index, capture: capture}, nil
}

// Read grabs the next frame. The caller must Close the returned frame.
func (d *Device) Read() (camera.Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.capture == nil {
		return nil, fmt.Errorf("camera %d is closed", d.index)
	}

	mat := gocv.NewMat()
	if ok := d.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("camera %d: %w", d.index, camera.ErrNoFrame)
	}

	return &matFrame{mat: mat, capturedAt: time.Now()}, nil
}

func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.capture == nil {
		return nil
	}
	err := d.capture.Close()
	d.capture = nil
	return err
}

type matFrame struct {
	mat        gocv.Mat
	capturedAt time.Time
}

func (f *matFrame) Brightness() (float64, error) {
	gray := gocv.NewMat()
	defer gray.Close()

	if err := gocv.CvtColor(f.mat, &gray, gocv.ColorBGRToGray); err != nil {
		return 0, fmt.Errorf("failed to convert frame to grayscale: %w", err)
	}
	return gray.Mean().Val1, nil
}

func (f *matFrame) EncodeJPEG() ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, f.mat)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (f *matFrame) CapturedAt() time.Time {
	return f.capturedAt
}

func (f *matFrame) Close() error {
	return f.mat.Close()
}

// Open returns a directory replay source when replayDir is set, otherwise
// the capture device at index.
func Open(index int, replayDir string) (camera.Source, error) {
	if replayDir != "" {
		src, err := camera.OpenDirectory(replayDir)
		if err != nil {
			return nil, err
		}
		return src, nil
	}
	dev, err := OpenDevice(index)
	if err != nil {
		return nil, err
	}
	return dev, nil
}
