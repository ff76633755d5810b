// Package pipeline turns one camera frame into a validated list of items:
// capture, encode, identify with the vision service, then validate.
package pipeline

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"

	"fridgesight/internal/camera"
	"fridgesight/internal/config"
	"fridgesight/internal/errs"
	"fridgesight/internal/logger"
	"fridgesight/internal/model"
	"fridgesight/internal/service/ai"
)

// ImageWriter persists the captured JPEG and returns where it was written.
type ImageWriter interface {
	Save(data []byte, capturedAt time.Time) (string, error)
}

// Encoded is a frame serialized for transport.
type Encoded struct {
	JPEG   []byte
	Base64 string
}

// Result is the outcome of one successful run.
type Result struct {
	Items      []model.DetectedItem
	ImagePath  string
	CapturedAt time.Time
	// Raw is the extracted JSON text the items were parsed from.
	Raw string
}

// Pipeline runs the capture-and-identify sequence against one camera and one
// inference client.
type Pipeline struct {
	source camera.Source
	client ai.Client
	images ImageWriter
	logger *logger.Logger

	captureAttempts   int
	captureBackoff    time.Duration
	inferenceAttempts int
	inferenceBackoff  time.Duration

	sleep func(ctx context.Context, d time.Duration) error
}

func New(cfg *config.Config, source camera.Source, client ai.Client, images ImageWriter, logger *logger.Logger) *Pipeline {
	return &Pipeline{
		source:            source,
		client:            client,
		images:            images,
		logger:            logger,
		captureAttempts:   max(cfg.CaptureAttempts, 1),
		captureBackoff:    cfg.CaptureBackoff(),
		inferenceAttempts: max(cfg.InferenceAttempts, 1),
		inferenceBackoff:  cfg.InferenceBackoff(),
		sleep:             sleepContext,
	}
}

// Run captures a frame, stores it, and returns the validated detections.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	frame, err := p.Capture(ctx)
	if err != nil {
		return nil, err
	}
	defer frame.Close()

	encoded, err := Encode(frame)
	if err != nil {
		return nil, err
	}

	imagePath, err := p.images.Save(encoded.JPEG, frame.CapturedAt())
	if err != nil {
		return nil, &errs.PersistenceError{Op: "failed to save image", Err: err}
	}
	p.logger.Info("Captured image saved to %s", imagePath)

	raw, err := p.Identify(ctx, encoded.Base64)
	if err != nil {
		return nil, err
	}

	items, err := Validate(raw)
	if err != nil {
		return nil, err
	}

	return &Result{
		Items:      items,
		ImagePath:  imagePath,
		CapturedAt: frame.CapturedAt(),
		Raw:        raw,
	}, nil
}

// Capture reads one frame, retrying with a fixed backoff.
func (p *Pipeline) Capture(ctx context.Context) (camera.Frame, error) {
	var lastErr error
	for attempt := 1; attempt <= p.captureAttempts; attempt++ {
		frame, err := p.source.Read()
		if err == nil {
			return frame, nil
		}
		lastErr = err
		p.logger.Warning("Capture attempt %d/%d failed: %v", attempt, p.captureAttempts, err)

		if attempt < p.captureAttempts {
			if err := p.sleep(ctx, p.captureBackoff); err != nil {
				return nil, &errs.CaptureError{Attempts: attempt, Err: err}
			}
		}
	}
	return nil, &errs.CaptureError{Attempts: p.captureAttempts, Err: lastErr}
}

// Encode serializes the frame as JPEG plus its base64 text.
func Encode(frame camera.Frame) (*Encoded, error) {
	data, err := frame.EncodeJPEG()
	if err != nil {
		return nil, &errs.EncodingError{Err: err}
	}
	if len(data) == 0 {
		return nil, &errs.EncodingError{Err: errors.New("encoder produced no data")}
	}
	return &Encoded{
		JPEG:   data,
		Base64: base64.StdEncoding.EncodeToString(data),
	}, nil
}

// Identify asks the vision service for the items in the image and returns the
// extracted JSON text. Transport errors and replies that are not JSON after
// extraction are both retried.
func (p *Pipeline) Identify(ctx context.Context, imageBase64 string) (string, error) {
	var (
		lastErr error
		lastRaw string
		attempt int
	)
	for attempt = 1; attempt <= p.inferenceAttempts; attempt++ {
		reply, err := p.client.Infer(ctx, imageBase64, Prompt)
		if err == nil {
			lastRaw = reply
			p.logger.Debug("Raw inference reply: %s", reply)

			extracted := ExtractJSON(reply)
			if json.Valid([]byte(extracted)) {
				return extracted, nil
			}
			err = errors.New("reply is not valid JSON after extraction")
			p.logger.Warning("Inference attempt %d/%d returned unparseable text: %q", attempt, p.inferenceAttempts, reply)
		} else {
			p.logger.Warning("Inference attempt %d/%d failed: %v", attempt, p.inferenceAttempts, err)
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
		if attempt < p.inferenceAttempts {
			if err := p.sleep(ctx, p.inferenceBackoff); err != nil {
				lastErr = err
				break
			}
		}
	}
	if attempt > p.inferenceAttempts {
		attempt = p.inferenceAttempts
	}
	return "", &errs.InferenceError{Attempts: attempt, LastRaw: lastRaw, Err: lastErr}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
