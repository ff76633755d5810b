package light

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"testing"
	"time"

	"fridgesight/internal/camera"
	"fridgesight/internal/dto"
	"fridgesight/internal/errs"
	"fridgesight/internal/logger"
	"fridgesight/internal/model"
)

var errRead = errors.New("read failed")

// scriptedSource replays brightness values; a negative value is a read error.
type scriptedSource struct {
	levels []float64
	reads  int
	closed bool
	onRead func(n int)
}

func (s *scriptedSource) Read() (camera.Frame, error) {
	n := s.reads
	s.reads++
	if s.onRead != nil {
		s.onRead(n)
	}
	if n >= len(s.levels) || s.levels[n] < 0 {
		return nil, errRead
	}
	return camera.NewUniformFrame(2, 2, uint8(s.levels[n]), time.Time{}), nil
}

func (s *scriptedSource) Close() error {
	s.closed = true
	return nil
}

type recordingCycle struct {
	triggers []Trigger
	fail     []bool
}

func (c *recordingCycle) RunCycle(ctx context.Context, trigger Trigger) error {
	i := len(c.triggers)
	c.triggers = append(c.triggers, trigger)
	if i < len(c.fail) && c.fail[i] {
		return errors.New("inference exhausted")
	}
	return nil
}

type recordingEvents struct {
	events []model.FridgeEvent
}

func (r *recordingEvents) RecordEvent(ctx context.Context, event *model.FridgeEvent) (int64, error) {
	r.events = append(r.events, *event)
	return int64(len(r.events)), nil
}

func (r *recordingEvents) GetEvent(ctx context.Context, id int64) (*model.FridgeEvent, error) {
	return nil, nil
}

func (r *recordingEvents) LatestEvent(ctx context.Context, eventType model.EventType) (*model.FridgeEvent, error) {
	return nil, nil
}

func (r *recordingEvents) ListEvents(ctx context.Context, filter *dto.EventFilters) ([]model.FridgeEvent, error) {
	return r.events, nil
}

type testClock struct {
	now   time.Time
	slept []time.Duration
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Sleep(ctx context.Context, d time.Duration) error {
	c.slept = append(c.slept, d)
	c.now = c.now.Add(d)
	return ctx.Err()
}

func newTestMonitor(source camera.Source, cycle CycleRunner, minInterval time.Duration) (*Monitor, *testClock, *recordingEvents) {
	clock := &testClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	events := &recordingEvents{}
	m := &Monitor{
		source:         source,
		cycle:          cycle,
		events:         events,
		logger:         logger.NewWriter(io.Discard, true),
		threshold:      50,
		stabilization:  2 * time.Second,
		minInterval:    minInterval,
		sampleInterval: 500 * time.Millisecond,
		logInterval:    30 * time.Second,
		retryDelay:     time.Second,
		now:            clock.Now,
		sleep:          clock.Sleep,
	}
	return m, clock, events
}

func TestStep_TriggersOnThirdSample(t *testing.T) {
	source := &scriptedSource{levels: []float64{30, 30, 80, 80}}
	cycle := &recordingCycle{}
	m, clock, _ := newTestMonitor(source, cycle, 0)
	start := clock.now

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		m.Step(ctx)
		if i < 2 && len(cycle.triggers) != 0 {
			t.Fatalf("unexpected trigger after sample %d", i+1)
		}
	}

	if len(cycle.triggers) != 1 {
		t.Fatalf("expected exactly one trigger, got %d", len(cycle.triggers))
	}
	wantAt := start.Add(2 * 500 * time.Millisecond)
	if !cycle.triggers[0].At.Equal(wantAt) {
		t.Errorf("expected trigger at third sample time %v, got %v", wantAt, cycle.triggers[0].At)
	}
	if cycle.triggers[0].Brightness != 80 {
		t.Errorf("expected re-checked brightness 80, got %v", cycle.triggers[0].Brightness)
	}
	if !m.lastCapture.Equal(wantAt) {
		t.Errorf("expected last capture to be the sample time, got %v", m.lastCapture)
	}
}

func TestStep_StabilizationWaitBeforeRecheck(t *testing.T) {
	source := &scriptedSource{levels: []float64{80, 80}}
	m, clock, _ := newTestMonitor(source, &recordingCycle{}, 0)

	m.Step(context.Background())

	if len(clock.slept) != 2 || clock.slept[0] != 2*time.Second || clock.slept[1] != 500*time.Millisecond {
		t.Errorf("expected stabilization then sample sleep, got %v", clock.slept)
	}
	if source.reads != 2 {
		t.Errorf("expected a re-check read, got %d reads", source.reads)
	}
}

func TestStep_UnstableLightSkipsCapture(t *testing.T) {
	source := &scriptedSource{levels: []float64{80, 30, 80, 80}}
	cycle := &recordingCycle{}
	m, _, _ := newTestMonitor(source, cycle, 0)

	m.Step(context.Background())
	if len(cycle.triggers) != 0 {
		t.Fatal("capture should be skipped when the re-check is dark")
	}
	if !m.lastLit {
		t.Error("lastLit should follow the sampled frame, not the re-check")
	}

	// Still lit on the next sample: no new rising edge.
	m.Step(context.Background())
	if len(cycle.triggers) != 0 {
		t.Error("no trigger expected without a new rising edge")
	}
}

func TestStep_ReadFailureContinues(t *testing.T) {
	source := &scriptedSource{levels: []float64{-1, 30, 80, 80}}
	cycle := &recordingCycle{}
	m, clock, _ := newTestMonitor(source, cycle, 0)

	ctx := context.Background()
	m.Step(ctx)
	if len(clock.slept) != 1 || clock.slept[0] != time.Second {
		t.Errorf("expected 1s retry delay after failed read, got %v", clock.slept)
	}
	m.Step(ctx)
	m.Step(ctx)
	if len(cycle.triggers) != 1 {
		t.Errorf("expected monitor to recover and trigger once, got %d", len(cycle.triggers))
	}
}

func TestStep_RecheckReadFailureSkipsCapture(t *testing.T) {
	source := &scriptedSource{levels: []float64{80, -1}}
	cycle := &recordingCycle{}
	m, _, _ := newTestMonitor(source, cycle, 0)

	m.Step(context.Background())
	if len(cycle.triggers) != 0 {
		t.Error("capture should be skipped when the re-check read fails")
	}
}

func TestStep_FailedCycleDoesNotStartInterval(t *testing.T) {
	levels := []float64{80, 80, 30, 80, 80}

	source := &scriptedSource{levels: levels}
	cycle := &recordingCycle{fail: []bool{true}}
	m, _, _ := newTestMonitor(source, cycle, 300*time.Second)
	for i := 0; i < 3; i++ {
		m.Step(context.Background())
	}
	if len(cycle.triggers) != 2 {
		t.Errorf("expected the next edge to retry after a failed cycle, got %d triggers", len(cycle.triggers))
	}

	source = &scriptedSource{levels: levels}
	cycle = &recordingCycle{}
	m, _, _ = newTestMonitor(source, cycle, 300*time.Second)
	for i := 0; i < 3; i++ {
		m.Step(context.Background())
	}
	if len(cycle.triggers) != 1 {
		t.Errorf("expected the interval to suppress the second edge, got %d triggers", len(cycle.triggers))
	}
}

func TestStep_MinIntervalBetweenCaptures(t *testing.T) {
	// Door opens every 40 samples (20s) for 10 samples; re-checks see the light.
	var levels []float64
	for cycle := 0; cycle < 60; cycle++ {
		for i := 0; i < 30; i++ {
			levels = append(levels, 10)
		}
		for i := 0; i < 10; i++ {
			levels = append(levels, 120)
		}
	}
	source := &scriptedSource{levels: levels}
	cycle := &recordingCycle{}
	m, _, _ := newTestMonitor(source, cycle, 300*time.Second)

	ctx := context.Background()
	for source.reads < len(levels)-1 {
		m.Step(ctx)
	}

	if len(cycle.triggers) < 2 {
		t.Fatalf("expected several captures over the run, got %d", len(cycle.triggers))
	}
	for i := 1; i < len(cycle.triggers); i++ {
		gap := cycle.triggers[i].At.Sub(cycle.triggers[i-1].At)
		if gap <= 300*time.Second {
			t.Errorf("captures %d and %d only %v apart", i-1, i, gap)
		}
	}
}

// expectedTriggers replays the trigger rule over levels for steps
// iterations: fire on a dark-to-lit sample when no successful capture
// happened within minInterval and the re-check after stabilization is lit.
func expectedTriggers(levels []float64, fail []bool, steps int, start time.Time, stabilization, sampleInterval, minInterval time.Duration) []time.Time {
	var (
		triggers    []time.Time
		lastLit     bool
		lastCapture time.Time
		attempts    int
	)
	now, next := start, 0
	for i := 0; i < steps; i++ {
		level := levels[next]
		next++
		lit := level > 50
		elapsed := lastCapture.IsZero() || now.Sub(lastCapture) > minInterval
		if lit && !lastLit && elapsed {
			at := now
			now = now.Add(stabilization)
			recheck := levels[next]
			next++
			if recheck > 50 {
				triggers = append(triggers, at)
				failed := attempts < len(fail) && fail[attempts]
				attempts++
				if !failed {
					lastCapture = at
				}
			}
		}
		lastLit = lit
		now = now.Add(sampleInterval)
	}
	return triggers
}

func TestStep_TriggerRuleOverRandomSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	palette := []float64{0, 10, 49, 50, 51, 80, 200}
	intervals := []time.Duration{0, time.Second, 5 * time.Second, 30 * time.Second, 300 * time.Second}

	for trial := 0; trial < 300; trial++ {
		steps := 50 + rng.Intn(150)
		levels := make([]float64, 2*steps)
		for i := range levels {
			levels[i] = palette[rng.Intn(len(palette))]
		}
		fail := make([]bool, steps)
		for i := range fail {
			fail[i] = rng.Intn(4) == 0
		}
		minInterval := intervals[rng.Intn(len(intervals))]

		source := &scriptedSource{levels: levels}
		cycle := &recordingCycle{fail: fail}
		m, clock, _ := newTestMonitor(source, cycle, minInterval)
		start := clock.now

		for i := 0; i < steps; i++ {
			m.Step(context.Background())
		}

		want := expectedTriggers(levels, fail, steps, start, m.stabilization, m.sampleInterval, minInterval)
		if len(cycle.triggers) != len(want) {
			t.Fatalf("trial %d (interval %v): expected %d triggers, got %d", trial, minInterval, len(want), len(cycle.triggers))
		}
		for i, trigger := range cycle.triggers {
			if !trigger.At.Equal(want[i]) {
				t.Fatalf("trial %d: trigger %d at %v, expected %v", trial, i, trigger.At, want[i])
			}
		}
	}
}

func TestSample_FailuresAreRecoverable(t *testing.T) {
	source := &scriptedSource{levels: []float64{-1}}
	m, _, _ := newTestMonitor(source, &recordingCycle{}, 0)

	_, err := m.sample()
	var captureErr *errs.CaptureError
	if !errors.As(err, &captureErr) || !errors.Is(err, errRead) {
		t.Fatalf("expected CaptureError wrapping the read failure, got %v", err)
	}
	if !errs.Recoverable(err) {
		t.Error("sampling failures should be recoverable")
	}

	m.source = &scriptedSource{levels: []float64{-1, 80}}
	m.Step(context.Background())
	m.Step(context.Background())
	if !m.lastLit {
		t.Error("expected the loop to keep sampling after a failed read")
	}
}

func TestStep_DoorEvents(t *testing.T) {
	source := &scriptedSource{levels: []float64{10, 90, 90, 90, 10}}
	m, _, events := newTestMonitor(source, &recordingCycle{}, 0)

	for i := 0; i < 4; i++ {
		m.Step(context.Background())
	}

	if len(events.events) != 2 {
		t.Fatalf("expected door_open and door_close, got %+v", events.events)
	}
	if events.events[0].EventType != model.EventDoorOpen || events.events[1].EventType != model.EventDoorClose {
		t.Errorf("unexpected event order %s, %s", events.events[0].EventType, events.events[1].EventType)
	}
	if events.events[0].LightLevel == nil || *events.events[0].LightLevel != 90 {
		t.Errorf("expected light level on door_open, got %v", events.events[0].LightLevel)
	}
}

func TestRun_StopsOnCancelAndClosesCamera(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	source := &scriptedSource{levels: []float64{10, 10, 10, 10, 10}}
	source.onRead = func(n int) {
		if n == 3 {
			cancel()
		}
	}
	m, _, _ := newTestMonitor(source, &recordingCycle{}, 0)

	if err := m.Run(ctx); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !source.closed {
		t.Error("camera should be released when the monitor stops")
	}
	if source.reads != 4 {
		t.Errorf("expected the loop to stop right after cancellation, got %d reads", source.reads)
	}
}
