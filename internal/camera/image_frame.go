package camera

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"time"
)

// ImageFrame is a Frame backed by a decoded Go image. It is used for replayed
// files and in tests where no capture device exists.
type ImageFrame struct {
	Image image.Image
	At    time.Time
}

// NewUniformFrame returns a w×h gray frame whose every pixel has level v.
func NewUniformFrame(w, h int, v uint8, at time.Time) *ImageFrame {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return &ImageFrame{Image: img, At: at}
}

// Brightness averages ITU-R 601 luma over every pixel.
func (f *ImageFrame) Brightness() (float64, error) {
	if f.Image == nil {
		return 0, fmt.Errorf("frame has no image")
	}
	bounds := f.Image.Bounds()
	pixels := bounds.Dx() * bounds.Dy()
	if pixels == 0 {
		return 0, fmt.Errorf("frame is empty")
	}

	var sum float64
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray := color.GrayModel.Convert(f.Image.At(x, y)).(color.Gray)
			sum += float64(gray.Y)
		}
	}
	return sum / float64(pixels), nil
}

func (f *ImageFrame) EncodeJPEG() ([]byte, error) {
	if f.Image == nil {
		return nil, fmt.Errorf("frame has no image")
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, f.Image, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	return buf.Bytes(), nil
}

func (f *ImageFrame) CapturedAt() time.Time {
	return f.At
}

func (f *ImageFrame) Close() error {
	return nil
}
