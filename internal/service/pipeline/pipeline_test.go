package pipeline

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"fridgesight/internal/camera"
	"fridgesight/internal/errs"
	"fridgesight/internal/logger"
)

type fakeSource struct {
	failures int
	reads    int
}

func (s *fakeSource) Read() (camera.Frame, error) {
	s.reads++
	if s.reads <= s.failures {
		return nil, camera.ErrNoFrame
	}
	return camera.NewUniformFrame(8, 8, 120, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)), nil
}

func (s *fakeSource) Close() error { return nil }

type fakeClient struct {
	replies []string
	errs    []error
	calls   int
}

func (c *fakeClient) Infer(ctx context.Context, imageBase64, prompt string) (string, error) {
	i := c.calls
	c.calls++
	if i < len(c.errs) && c.errs[i] != nil {
		return "", c.errs[i]
	}
	if i < len(c.replies) {
		return c.replies[i], nil
	}
	return c.replies[len(c.replies)-1], nil
}

type fakeImages struct {
	saved [][]byte
	err   error
}

func (f *fakeImages) Save(data []byte, capturedAt time.Time) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.saved = append(f.saved, data)
	return "imgs/" + capturedAt.Format("060102150405") + ".jpg", nil
}

func newTestPipeline(source camera.Source, client *fakeClient, images *fakeImages) (*Pipeline, *[]time.Duration) {
	var slept []time.Duration
	p := &Pipeline{
		source:            source,
		client:            client,
		images:            images,
		logger:            logger.NewWriter(io.Discard, true),
		captureAttempts:   3,
		captureBackoff:    time.Second,
		inferenceAttempts: 3,
		inferenceBackoff:  2 * time.Second,
		sleep: func(ctx context.Context, d time.Duration) error {
			slept = append(slept, d)
			return ctx.Err()
		},
	}
	return p, &slept
}

func TestRun_Success(t *testing.T) {
	images := &fakeImages{}
	p, _ := newTestPipeline(&fakeSource{}, &fakeClient{replies: []string{"```json\n" + milkReply + "\n```"}}, images)

	result, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(result.Items) != 1 || result.Items[0].Name() != "Milk" {
		t.Errorf("unexpected items %+v", result.Items)
	}
	if result.ImagePath != "imgs/250102030405.jpg" {
		t.Errorf("unexpected image path %s", result.ImagePath)
	}
	if result.Raw != milkReply {
		t.Errorf("expected extracted JSON, got %q", result.Raw)
	}
	if len(images.saved) != 1 {
		t.Errorf("expected one saved image, got %d", len(images.saved))
	}
}

func TestCapture_RetriesThenSucceeds(t *testing.T) {
	source := &fakeSource{failures: 2}
	p, slept := newTestPipeline(source, &fakeClient{}, &fakeImages{})

	frame, err := p.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	frame.Close()
	if source.reads != 3 {
		t.Errorf("expected 3 reads, got %d", source.reads)
	}
	if len(*slept) != 2 || (*slept)[0] != time.Second {
		t.Errorf("expected two 1s backoffs, got %v", *slept)
	}
}

func TestCapture_Exhausted(t *testing.T) {
	source := &fakeSource{failures: 10}
	p, _ := newTestPipeline(source, &fakeClient{}, &fakeImages{})

	_, err := p.Capture(context.Background())
	var captureErr *errs.CaptureError
	if !errors.As(err, &captureErr) {
		t.Fatalf("expected CaptureError, got %v", err)
	}
	if captureErr.Attempts != 3 || source.reads != 3 {
		t.Errorf("expected 3 attempts, got %d (reads %d)", captureErr.Attempts, source.reads)
	}
	if !errors.Is(err, camera.ErrNoFrame) {
		t.Error("expected cause to be preserved")
	}
}

func TestIdentify_RetriesProseThenSucceeds(t *testing.T) {
	client := &fakeClient{replies: []string{"I'm not sure what is in this fridge.", `{"items":[]}`}}
	p, slept := newTestPipeline(&fakeSource{}, client, &fakeImages{})

	raw, err := p.Identify(context.Background(), "QUJD")
	if err != nil {
		t.Fatalf("Identify failed: %v", err)
	}
	if raw != `{"items":[]}` {
		t.Errorf("unexpected raw %q", raw)
	}
	if client.calls != 2 {
		t.Errorf("expected 2 calls, got %d", client.calls)
	}
	if len(*slept) != 1 || (*slept)[0] != 2*time.Second {
		t.Errorf("expected one 2s backoff, got %v", *slept)
	}
}

func TestIdentify_TransportErrorRetried(t *testing.T) {
	client := &fakeClient{errs: []error{errors.New("connection reset")}, replies: []string{"", `{"items":[]}`}}
	p, _ := newTestPipeline(&fakeSource{}, client, &fakeImages{})

	if _, err := p.Identify(context.Background(), "QUJD"); err != nil {
		t.Fatalf("Identify failed: %v", err)
	}
	if client.calls != 2 {
		t.Errorf("expected 2 calls, got %d", client.calls)
	}
}

func TestIdentify_Exhausted(t *testing.T) {
	client := &fakeClient{replies: []string{"Sorry, I can't help with that."}}
	p, _ := newTestPipeline(&fakeSource{}, client, &fakeImages{})

	_, err := p.Identify(context.Background(), "QUJD")
	var inferenceErr *errs.InferenceError
	if !errors.As(err, &inferenceErr) {
		t.Fatalf("expected InferenceError, got %v", err)
	}
	if inferenceErr.Attempts != 3 || client.calls != 3 {
		t.Errorf("expected 3 attempts, got %d (calls %d)", inferenceErr.Attempts, client.calls)
	}
	if inferenceErr.LastRaw != "Sorry, I can't help with that." {
		t.Errorf("expected last raw reply, got %q", inferenceErr.LastRaw)
	}
}

func TestIdentify_StopsOnCancel(t *testing.T) {
	client := &fakeClient{errs: []error{errors.New("timeout"), errors.New("timeout"), errors.New("timeout")}}
	p, _ := newTestPipeline(&fakeSource{}, client, &fakeImages{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Identify(ctx, "QUJD")
	var inferenceErr *errs.InferenceError
	if !errors.As(err, &inferenceErr) {
		t.Fatalf("expected InferenceError, got %v", err)
	}
	if client.calls != 1 {
		t.Errorf("expected cancellation to stop retries, got %d calls", client.calls)
	}
}

func TestRun_ValidationFailure(t *testing.T) {
	p, _ := newTestPipeline(&fakeSource{}, &fakeClient{replies: []string{`{"objects":[]}`}}, &fakeImages{})

	_, err := p.Run(context.Background())
	var validationErr *errs.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestRun_ImageSaveFailure(t *testing.T) {
	client := &fakeClient{replies: []string{milkReply}}
	p, _ := newTestPipeline(&fakeSource{}, client, &fakeImages{err: errors.New("disk full")})

	_, err := p.Run(context.Background())
	var persistenceErr *errs.PersistenceError
	if !errors.As(err, &persistenceErr) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
	if client.calls != 0 {
		t.Error("inference should not run when the image cannot be saved")
	}
}

type brokenFrame struct{ *camera.ImageFrame }

func (brokenFrame) EncodeJPEG() ([]byte, error) { return nil, errors.New("unsupported format") }

func TestEncode_Failure(t *testing.T) {
	_, err := Encode(brokenFrame{&camera.ImageFrame{}})
	var encodingErr *errs.EncodingError
	if !errors.As(err, &encodingErr) {
		t.Fatalf("expected EncodingError, got %v", err)
	}
}

func TestEncode_Base64(t *testing.T) {
	encoded, err := Encode(camera.NewUniformFrame(4, 4, 10, time.Now()))
	if err != nil {
		t.Fatal(err)
	}
	if len(encoded.JPEG) == 0 || encoded.Base64 == "" {
		t.Errorf("expected JPEG bytes and base64 text, got %d / %d", len(encoded.JPEG), len(encoded.Base64))
	}
}
